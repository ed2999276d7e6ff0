package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/refcrew/refcrew/go/internal/events"
	"github.com/refcrew/refcrew/go/internal/models"
	"github.com/refcrew/refcrew/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

// ErrInvalidRating is returned when any score is outside the 1-5 scale.
var ErrInvalidRating = errors.New("invalid rating")

// RatingRepository defines what the app layer needs from the rating repository
type RatingRepository interface {
	CreateRating(ctx context.Context, q sqlutil.Querier, rating *models.RefereeRating) error
	ListByReferee(ctx context.Context, refereeID uuid.UUID, limit int32) ([]models.RefereeRating, error)
	ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.RefereeRating, error)
}

// AssignmentSource defines what the aggregator needs from the assignment store
type AssignmentSource interface {
	GetAssignment(ctx context.Context, id uuid.UUID) (*models.RefereeAssignment, error)
}

// ProfileAggregate defines what the aggregator needs from the referee
// directory: the atomic fold of one score into the running average.
type ProfileAggregate interface {
	ApplyRating(ctx context.Context, q sqlutil.Querier, refereeID uuid.UUID, overall int, now time.Time) error
}

// Outbox defines what the aggregator needs from the event outbox
type Outbox interface {
	Insert(ctx context.Context, q sqlutil.Querier, entityID uuid.UUID, eventType string, payload any) error
}

// App records rating events and maintains the referee's running average.
type App struct {
	repo        RatingRepository
	assignments AssignmentSource
	profiles    ProfileAggregate
	outbox      Outbox
	db          sqlutil.Runner
	clock       clockwork.Clock
}

// NewApp creates a new rating App
func NewApp(repo RatingRepository, assignments AssignmentSource, profiles ProfileAggregate, outbox Outbox, db sqlutil.Runner, clock clockwork.Clock) *App {
	return &App{
		repo:        repo,
		assignments: assignments,
		profiles:    profiles,
		outbox:      outbox,
		db:          db,
		clock:       clock,
	}
}

// SubmitRating records one immutable rating and folds it into the referee's
// average. Repeat submissions by the same reviewer accumulate as new records;
// nothing is de-duplicated at this layer. The insert, the average update and
// the event share one transaction.
func (a *App) SubmitRating(ctx context.Context, req SubmitRatingRequest) (*models.RefereeRating, error) {
	if err := validateScores(req.Scores); err != nil {
		return nil, err
	}

	asgn, err := a.assignments.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	rt := &models.RefereeRating{
		ID:             uuid.New(),
		AssignmentID:   req.AssignmentID,
		RefereeID:      asgn.RefereeID,
		ReviewerID:     req.Reviewer.ID,
		ReviewerRole:   string(req.Reviewer.Role),
		Scores:         req.Scores,
		PublicComment:  req.PublicComment,
		PrivateComment: req.PrivateComment,
		CreatedAt:      now,
	}

	err = a.db.RunTx(ctx, func(q sqlutil.Querier) error {
		if err := a.repo.CreateRating(ctx, q, rt); err != nil {
			return err
		}
		if err := a.profiles.ApplyRating(ctx, q, asgn.RefereeID, req.Scores.Overall, now); err != nil {
			return err
		}
		return a.outbox.Insert(ctx, q, rt.ID, events.TypeRatingReceived, events.RatingReceivedPayload{
			RatingID:     rt.ID,
			AssignmentID: rt.AssignmentID,
			RefereeID:    rt.RefereeID,
			Overall:      rt.Scores.Overall,
			ReceivedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("rating_id", rt.ID.String()).
		Str("referee_id", rt.RefereeID.String()).
		Int("overall", rt.Scores.Overall).
		Msg("rating recorded")
	return rt, nil
}

// ListByReferee retrieves a referee's ratings, most recent first.
func (a *App) ListByReferee(ctx context.Context, refereeID uuid.UUID, limit int32) ([]models.RefereeRating, error) {
	return a.repo.ListByReferee(ctx, refereeID, limit)
}

// ListByAssignment retrieves all ratings recorded against one assignment.
func (a *App) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.RefereeRating, error) {
	return a.repo.ListByAssignment(ctx, assignmentID)
}

func validateScores(scores models.RatingScores) error {
	if scores.Overall < 1 || scores.Overall > 5 {
		return fmt.Errorf("%w: overall must be between 1 and 5", ErrInvalidRating)
	}
	for name, sub := range map[string]*int{
		"mechanics":       scores.Mechanics,
		"positioning":     scores.Positioning,
		"communication":   scores.Communication,
		"professionalism": scores.Professionalism,
	} {
		if sub != nil && (*sub < 1 || *sub > 5) {
			return fmt.Errorf("%w: %s must be between 1 and 5", ErrInvalidRating, name)
		}
	}
	return nil
}
