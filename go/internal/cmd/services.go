package main

import (
	"database/sql"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/refcrew/refcrew/go/internal/assignment"
	"github.com/refcrew/refcrew/go/internal/dispute"
	"github.com/refcrew/refcrew/go/internal/gamesource"
	"github.com/refcrew/refcrew/go/internal/outbox"
	"github.com/refcrew/refcrew/go/internal/payment"
	"github.com/refcrew/refcrew/go/internal/rating"
	"github.com/refcrew/refcrew/go/internal/referees"
	"github.com/refcrew/refcrew/go/internal/score"
	"github.com/refcrew/refcrew/go/internal/sqlutil"
	"github.com/refcrew/refcrew/go/internal/stats"
)

// Engine bundles the workflow engine's app layers for the embedding
// application.
type Engine struct {
	Assignments *assignment.App
	Referees    *referees.App
	Scores      *score.Reconciler
	Ratings     *rating.App
	Payments    *payment.App
	Disputes    *dispute.App
	Stats       *stats.Projector
	Outbox      *outbox.App
}

func setupEngine(database *sql.DB, games gamesource.GameSource, cfg *Config) *Engine {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer
	clock := clockwork.NewRealClock()
	db := sqlutil.NewDB(database)

	outboxRepo := outbox.NewRepository(database)
	outboxApp := outbox.NewApp(outboxRepo, clock)

	assignmentRepo := assignment.NewRepository(database)
	notesRepo := assignment.NewNotesRepository(database)
	assignmentApp := assignment.NewApp(assignmentRepo, notesRepo, outboxApp, games, db, clock)

	statsProjector := stats.NewProjector(assignmentRepo, clock,
		time.Month(cfg.Season.StartMonth),
		time.Duration(cfg.Stats.CacheTTLSeconds)*time.Second)

	refereeRepo := referees.NewRepository(database)
	refereeApp := referees.NewApp(refereeRepo, statsProjector, clock)

	scoreReconciler := score.NewReconciler(assignmentRepo, outboxApp, db, clock)

	ratingRepo := rating.NewRepository(database)
	ratingApp := rating.NewApp(ratingRepo, assignmentRepo, refereeRepo, outboxApp, db, clock)

	paymentRepo := payment.NewRepository(database)
	paymentApp := payment.NewApp(paymentRepo, assignmentRepo, outboxApp, db, clock)

	disputeRepo := dispute.NewRepository(database)
	disputeApp := dispute.NewApp(disputeRepo, assignmentRepo, refereeRepo, outboxApp, db, clock)

	return &Engine{
		Assignments: assignmentApp,
		Referees:    refereeApp,
		Scores:      scoreReconciler,
		Ratings:     ratingApp,
		Payments:    paymentApp,
		Disputes:    disputeApp,
		Stats:       statsProjector,
		Outbox:      outboxApp,
	}
}
