package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/refcrew/refcrew/go/internal/events"
	"github.com/refcrew/refcrew/go/internal/gamesource"
	"github.com/refcrew/refcrew/go/internal/identity"
	"github.com/refcrew/refcrew/go/internal/models"
	"github.com/refcrew/refcrew/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

// AssignmentRepository defines what the app layer needs from the assignment repository
type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, q sqlutil.Querier, req CreateAssignmentRequest, snapshot models.GameSnapshot, now time.Time) (*models.RefereeAssignment, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*models.RefereeAssignment, error)
	UpdateStatusWhere(ctx context.Context, q sqlutil.Querier, id uuid.UUID, from []models.AssignmentStatus, to models.AssignmentStatus, respondedAt *time.Time, reason *string, now time.Time) (*models.RefereeAssignment, error)
	ListByReferee(ctx context.Context, refereeID uuid.UUID, filter ListFilter) ([]models.RefereeAssignment, error)
	ListByGame(ctx context.Context, kind models.GameRefKind, gameID uuid.UUID) ([]models.RefereeAssignment, error)
	ListByStatus(ctx context.Context, status models.AssignmentStatus, limit int32) ([]models.RefereeAssignment, error)
	SetPaymentSummary(ctx context.Context, q sqlutil.Querier, id uuid.UUID, status models.PaymentSummaryStatus, now time.Time) error
}

// NoteRepository defines what the app layer needs from the notes repository
type NoteRepository interface {
	CreateNote(ctx context.Context, assignmentID, refereeID uuid.UUID, body string, now time.Time) (*models.RefereeNote, error)
	GetNote(ctx context.Context, id uuid.UUID) (*models.RefereeNote, error)
	UpdateNote(ctx context.Context, id uuid.UUID, body string, now time.Time) error
	DeleteNote(ctx context.Context, id uuid.UUID) error
	ListNotes(ctx context.Context, assignmentID, refereeID uuid.UUID) ([]models.RefereeNote, error)
}

// Outbox defines what the app layer needs from the event outbox. Inserts join
// the caller's transaction so an emitted event can never outlive a rolled-back
// transition.
type Outbox interface {
	Insert(ctx context.Context, q sqlutil.Querier, entityID uuid.UUID, eventType string, payload any) error
}

// allowedTransitions is the full lifecycle of an assignment. Statuses absent
// from a target list are unreachable from that state.
var allowedTransitions = map[models.AssignmentStatus][]models.AssignmentStatus{
	models.AssignmentStatusPending:   {models.AssignmentStatusAccepted, models.AssignmentStatusDeclined, models.AssignmentStatusCancelled},
	models.AssignmentStatusAccepted:  {models.AssignmentStatusCompleted, models.AssignmentStatusCancelled, models.AssignmentStatusNoShow},
	models.AssignmentStatusDeclined:  {},
	models.AssignmentStatusCancelled: {},
	models.AssignmentStatusCompleted: {},
	models.AssignmentStatusNoShow:    {},
}

// App drives the assignment lifecycle state machine.
type App struct {
	repo   AssignmentRepository
	notes  NoteRepository
	outbox Outbox
	games  gamesource.GameSource
	db     sqlutil.Runner
	clock  clockwork.Clock
}

// NewApp creates a new assignment App
func NewApp(repo AssignmentRepository, notes NoteRepository, outbox Outbox, games gamesource.GameSource, db sqlutil.Runner, clock clockwork.Clock) *App {
	return &App{
		repo:   repo,
		notes:  notes,
		outbox: outbox,
		games:  games,
		db:     db,
		clock:  clock,
	}
}

// CreateAssignment binds a referee to a game in the pending state. Game facts
// are snapshotted from the game source at this moment and never refreshed.
func (a *App) CreateAssignment(ctx context.Context, req CreateAssignmentRequest) (*models.RefereeAssignment, error) {
	if err := a.validateCreateAssignmentRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	snapshot, err := a.games.SnapshotFor(ctx, req.GameRef)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot game: %w", err)
	}

	now := a.clock.Now()
	var asgn *models.RefereeAssignment
	err = a.db.RunTx(ctx, func(q sqlutil.Querier) error {
		asgn, err = a.repo.CreateAssignment(ctx, q, req, snapshot, now)
		if err != nil {
			return err
		}
		return a.outbox.Insert(ctx, q, asgn.ID, events.TypeAssignmentCreated, events.AssignmentCreatedPayload{
			AssignmentID: asgn.ID,
			RefereeID:    asgn.RefereeID,
			GameID:       asgn.GameRef.GameID(),
			Sport:        asgn.Game.Sport,
			GameStartsAt: asgn.Game.StartsAt,
			AssignedAt:   asgn.AssignedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("assignment_id", asgn.ID.String()).
		Str("referee_id", asgn.RefereeID.String()).
		Str("sport", asgn.Game.Sport).
		Msg("created assignment")
	return asgn, nil
}

// Respond records the referee's accept or decline. Legal only from pending;
// the conditional update guarantees that of two concurrent responses exactly
// one succeeds and the other fails with ErrInvalidTransition.
func (a *App) Respond(ctx context.Context, req RespondRequest) (*models.RefereeAssignment, error) {
	to := models.AssignmentStatusDeclined
	if req.Accept {
		to = models.AssignmentStatusAccepted
	}
	if !req.Accept && req.Reason != nil && len(*req.Reason) > maxReasonLen {
		return nil, fmt.Errorf("validation failed: decline reason too long")
	}

	now := a.clock.Now()
	var asgn *models.RefereeAssignment
	err := a.db.RunTx(ctx, func(q sqlutil.Querier) error {
		var err error
		asgn, err = a.repo.UpdateStatusWhere(ctx, q,
			req.AssignmentID,
			[]models.AssignmentStatus{models.AssignmentStatusPending},
			to, &now, req.Reason, now)
		if err != nil {
			return err
		}
		if asgn == nil {
			return a.conflictError(ctx, req.AssignmentID)
		}
		return a.outbox.Insert(ctx, q, asgn.ID, events.TypeAssignmentResponded, events.AssignmentRespondedPayload{
			AssignmentID: asgn.ID,
			RefereeID:    asgn.RefereeID,
			Accepted:     req.Accept,
			Reason:       reasonOrEmpty(req.Reason),
			RespondedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("assignment_id", asgn.ID.String()).
		Bool("accepted", req.Accept).
		Msg("assignment responded")
	return asgn, nil
}

// Cancel withdraws an assignment. Legal from pending or accepted.
func (a *App) Cancel(ctx context.Context, id uuid.UUID, by identity.Principal) (*models.RefereeAssignment, error) {
	now := a.clock.Now()
	var asgn *models.RefereeAssignment
	err := a.db.RunTx(ctx, func(q sqlutil.Querier) error {
		var err error
		asgn, err = a.repo.UpdateStatusWhere(ctx, q, id,
			[]models.AssignmentStatus{models.AssignmentStatusPending, models.AssignmentStatusAccepted},
			models.AssignmentStatusCancelled, nil, nil, now)
		if err != nil {
			return err
		}
		if asgn == nil {
			return a.conflictError(ctx, id)
		}
		return a.outbox.Insert(ctx, q, asgn.ID, events.TypeAssignmentCancelled, events.AssignmentCancelledPayload{
			AssignmentID: asgn.ID,
			RefereeID:    asgn.RefereeID,
			CancelledBy:  by.ID,
			CancelledAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("assignment_id", asgn.ID.String()).
		Str("cancelled_by", by.ID.String()).
		Msg("assignment cancelled")
	return asgn, nil
}

// MarkCompleted is the administrative completion path, used when score
// reconciliation or an operator determines the outcome. Legal from accepted.
func (a *App) MarkCompleted(ctx context.Context, id uuid.UUID) (*models.RefereeAssignment, error) {
	return a.markOutcome(ctx, id, models.AssignmentStatusCompleted, events.TypeAssignmentCompleted)
}

// MarkNoShow records that the referee did not show up. Legal from accepted.
func (a *App) MarkNoShow(ctx context.Context, id uuid.UUID) (*models.RefereeAssignment, error) {
	return a.markOutcome(ctx, id, models.AssignmentStatusNoShow, events.TypeAssignmentNoShow)
}

func (a *App) markOutcome(ctx context.Context, id uuid.UUID, to models.AssignmentStatus, eventType string) (*models.RefereeAssignment, error) {
	now := a.clock.Now()
	var asgn *models.RefereeAssignment
	err := a.db.RunTx(ctx, func(q sqlutil.Querier) error {
		var err error
		asgn, err = a.repo.UpdateStatusWhere(ctx, q, id,
			[]models.AssignmentStatus{models.AssignmentStatusAccepted},
			to, nil, nil, now)
		if err != nil {
			return err
		}
		if asgn == nil {
			return a.conflictError(ctx, id)
		}
		return a.outbox.Insert(ctx, q, asgn.ID, eventType, events.AssignmentOutcomePayload{
			AssignmentID: asgn.ID,
			RefereeID:    asgn.RefereeID,
			RecordedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("assignment_id", asgn.ID.String()).
		Str("status", string(to)).
		Msg("assignment outcome recorded")
	return asgn, nil
}

// GetAssignment retrieves an assignment by ID
func (a *App) GetAssignment(ctx context.Context, id uuid.UUID) (*models.RefereeAssignment, error) {
	return a.repo.GetAssignment(ctx, id)
}

// ListByReferee retrieves a referee's assignments, optionally filtered.
func (a *App) ListByReferee(ctx context.Context, refereeID uuid.UUID, filter ListFilter) ([]models.RefereeAssignment, error) {
	return a.repo.ListByReferee(ctx, refereeID, filter)
}

// ListByGame retrieves all assignments bound to one game.
func (a *App) ListByGame(ctx context.Context, ref models.GameRef) ([]models.RefereeAssignment, error) {
	return a.repo.ListByGame(ctx, ref.Kind(), ref.GameID())
}

// ListByStatus retrieves assignments in a given status across referees.
func (a *App) ListByStatus(ctx context.Context, status models.AssignmentStatus, limit int32) ([]models.RefereeAssignment, error) {
	if err := validateStatus(status); err != nil {
		return nil, err
	}
	return a.repo.ListByStatus(ctx, status, limit)
}

// SyncPaymentSummary updates the assignment's fast-path payment field from
// the ledger. The ledger never writes this automatically; the reconciliation
// job owns keeping the two consistent.
func (a *App) SyncPaymentSummary(ctx context.Context, id uuid.UUID, status models.PaymentSummaryStatus) error {
	return a.db.RunTx(ctx, func(q sqlutil.Querier) error {
		return a.repo.SetPaymentSummary(ctx, q, id, status, a.clock.Now())
	})
}

// CanTransition reports whether the lifecycle defines a move from one status
// to another.
func CanTransition(from, to models.AssignmentStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if to == allowed {
			return true
		}
	}
	return false
}

// conflictError distinguishes a missing assignment from a lost race after a
// conditional update matched no row.
func (a *App) conflictError(ctx context.Context, id uuid.UUID) error {
	if _, err := a.repo.GetAssignment(ctx, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}

const maxReasonLen = 500

func reasonOrEmpty(reason *string) string {
	if reason == nil {
		return ""
	}
	return *reason
}

func (a *App) validateCreateAssignmentRequest(req CreateAssignmentRequest) error {
	if req.RefereeID == uuid.Nil {
		return fmt.Errorf("referee_id is required")
	}
	if req.GameRef == nil {
		return fmt.Errorf("game_ref is required")
	}
	if req.GameRef.GameID() == uuid.Nil {
		return fmt.Errorf("game_ref game id is required")
	}
	if req.Assigner.ID == uuid.Nil {
		return fmt.Errorf("assigner is required")
	}
	switch req.Assigner.Role {
	case identity.RoleLeague, identity.RoleTeam, identity.RoleHeadCoach, identity.RoleAdmin:
	default:
		return fmt.Errorf("role %s cannot assign referees", req.Assigner.Role)
	}
	if req.PayAmount < 0 {
		return fmt.Errorf("pay_amount cannot be negative")
	}
	return nil
}

func validateStatus(status models.AssignmentStatus) error {
	switch status {
	case models.AssignmentStatusPending, models.AssignmentStatusAccepted,
		models.AssignmentStatusDeclined, models.AssignmentStatusCancelled,
		models.AssignmentStatusCompleted, models.AssignmentStatusNoShow:
		return nil
	default:
		return fmt.Errorf("invalid assignment status: %s", status)
	}
}
