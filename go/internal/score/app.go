package score

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/refcrew/refcrew/go/internal/events"
	"github.com/refcrew/refcrew/go/internal/identity"
	"github.com/refcrew/refcrew/go/internal/models"
	"github.com/refcrew/refcrew/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

// ErrInvalidScore is returned when a submitted score is not a non-negative
// integer pair.
var ErrInvalidScore = errors.New("invalid score")

// ErrNotEligible is returned when score submission preconditions are unmet:
// the assignment is not accepted, the game has not started, or a score was
// already submitted.
var ErrNotEligible = errors.New("assignment not eligible for score submission")

// AssignmentRepository defines what the reconciler needs from the assignment repository
type AssignmentRepository interface {
	GetAssignment(ctx context.Context, id uuid.UUID) (*models.RefereeAssignment, error)
	SubmitScore(ctx context.Context, q sqlutil.Querier, id uuid.UUID, homeScore, awayScore int, now time.Time) (*models.RefereeAssignment, error)
}

// Outbox defines what the reconciler needs from the event outbox
type Outbox interface {
	Insert(ctx context.Context, q sqlutil.Querier, entityID uuid.UUID, eventType string, payload any) error
}

// SubmitScoreRequest carries one final score submission.
type SubmitScoreRequest struct {
	AssignmentID uuid.UUID          `json:"assignment_id"`
	HomeScore    int                `json:"home_score"`
	AwayScore    int                `json:"away_score"`
	Submitter    identity.Principal `json:"submitter"`
}

// Reconciler gates and records final score submission by the assigned
// referee. The emitted score.submitted event is the authoritative input for
// downstream standings recalculation; the engine itself never touches game
// records.
type Reconciler struct {
	repo   AssignmentRepository
	outbox Outbox
	db     sqlutil.Runner
	clock  clockwork.Clock
}

// NewReconciler creates a new score Reconciler
func NewReconciler(repo AssignmentRepository, outbox Outbox, db sqlutil.Runner, clock clockwork.Clock) *Reconciler {
	return &Reconciler{
		repo:   repo,
		outbox: outbox,
		db:     db,
		clock:  clock,
	}
}

// CanSubmitScore reports whether the assignment is currently eligible for
// score submission: accepted, game started, no score recorded yet.
func (r *Reconciler) CanSubmitScore(asgn *models.RefereeAssignment) bool {
	return asgn.Status == models.AssignmentStatusAccepted &&
		!r.clock.Now().Before(asgn.Game.StartsAt) &&
		!asgn.ScoreSubmitted
}

// SubmitScore records the final score and completes the assignment. The
// underlying flip of score_submitted is a conditional update, so of two
// concurrent submissions exactly one wins; the loser fails with ErrNotEligible.
func (r *Reconciler) SubmitScore(ctx context.Context, req SubmitScoreRequest) (*models.RefereeAssignment, error) {
	if req.HomeScore < 0 || req.AwayScore < 0 {
		return nil, fmt.Errorf("%w: scores must be non-negative", ErrInvalidScore)
	}

	asgn, err := r.repo.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if !r.CanSubmitScore(asgn) {
		return nil, ErrNotEligible
	}

	now := r.clock.Now()
	var updated *models.RefereeAssignment
	err = r.db.RunTx(ctx, func(q sqlutil.Querier) error {
		var err error
		updated, err = r.repo.SubmitScore(ctx, q, req.AssignmentID, req.HomeScore, req.AwayScore, now)
		if err != nil {
			return err
		}
		if updated == nil {
			// Another submitter won the flip between our read and this write.
			return ErrNotEligible
		}
		return r.outbox.Insert(ctx, q, updated.ID, events.TypeScoreSubmitted, events.ScoreSubmittedPayload{
			AssignmentID: updated.ID,
			GameID:       updated.GameRef.GameID(),
			HomeScore:    req.HomeScore,
			AwayScore:    req.AwayScore,
			SubmittedBy:  req.Submitter.ID,
			SubmittedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("assignment_id", updated.ID.String()).
		Int("home_score", req.HomeScore).
		Int("away_score", req.AwayScore).
		Msg("final score submitted")
	return updated, nil
}
