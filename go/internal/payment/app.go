package payment

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

// ErrNotFound is returned when the referenced payment does not exist.
var ErrNotFound = errors.New("payment not found")

// ErrInvalidPaymentTarget is returned when a payment names an assignment that
// does not belong to the named referee, or names no assignments at all.
var ErrInvalidPaymentTarget = errors.New("invalid payment target")

// ErrInvalidTransition is returned on an illegal payment status change.
var ErrInvalidTransition = errors.New("invalid payment status transition")

// PaymentRepository defines what the app layer needs from the payment repository
type PaymentRepository interface {
	CreatePayment(ctx context.Context, q sqlutil.Querier, p *models.RefereePayment) error
	GetPayment(ctx context.Context, id uuid.UUID) (*models.RefereePayment, error)
	UpdateStatusWhere(ctx context.Context, q sqlutil.Querier, id uuid.UUID, from, to models.PaymentStatus, externalRef, failureReason *string, now time.Time) (*models.RefereePayment, error)
	ListByReferee(ctx context.Context, refereeID uuid.UUID) ([]models.RefereePayment, error)
	ListByStatus(ctx context.Context, status models.PaymentStatus, limit int32) ([]models.RefereePayment, error)
	ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.RefereePayment, error)
}

// AssignmentSource defines what the ledger needs from the assignment store
type AssignmentSource interface {
	AssignmentsOwnedBy(ctx context.Context, refereeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error)
}

// Outbox defines what the ledger needs from the event outbox
type Outbox interface {
	Insert(ctx context.Context, q sqlutil.Querier, entityID uuid.UUID, eventType string, payload any) error
}

// RecordPaymentRequest represents a new ledger entry covering one or more
// assignments.
type RecordPaymentRequest struct {
	RefereeID     uuid.UUID          `json:"referee_id"`
	AssignmentIDs []uuid.UUID        `json:"assignment_ids"`
	Amount        float64            `json:"amount"`
	Method        string             `json:"method"`
	Payer         identity.Principal `json:"payer"`
}

// App is the payment ledger: append-style compensation records with their own
// status machine. It never mutates the assignment's summary payment field;
// keeping that fast path consistent is the integrating application's job.
type App struct {
	repo        PaymentRepository
	assignments AssignmentSource
	outbox      Outbox
	db          sqlutil.Runner
	clock       clockwork.Clock
}

// NewApp creates a new payment ledger App
func NewApp(repo PaymentRepository, assignments AssignmentSource, outbox Outbox, db sqlutil.Runner, clock clockwork.Clock) *App {
	return &App{
		repo:        repo,
		assignments: assignments,
		outbox:      outbox,
		db:          db,
		clock:       clock,
	}
}

// RecordPayment creates a pending ledger record. Every named assignment must
// belong to the named referee.
func (a *App) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*models.RefereePayment, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("validation failed: amount must be greater than 0")
	}
	if len(req.AssignmentIDs) == 0 {
		return nil, fmt.Errorf("%w: no assignments named", ErrInvalidPaymentTarget)
	}
	if req.Method == "" {
		return nil, fmt.Errorf("validation failed: method is required")
	}

	owned, err := a.assignments.AssignmentsOwnedBy(ctx, req.RefereeID, req.AssignmentIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range req.AssignmentIDs {
		if !owned[id] {
			return nil, fmt.Errorf("%w: assignment %s does not belong to referee %s",
				ErrInvalidPaymentTarget, id, req.RefereeID)
		}
	}

	now := a.clock.Now()
	p := &models.RefereePayment{
		ID:            uuid.New(),
		RefereeID:     req.RefereeID,
		AssignmentIDs: req.AssignmentIDs,
		Amount:        req.Amount,
		Method:        req.Method,
		PayerID:       req.Payer.ID,
		PayerRole:     string(req.Payer.Role),
		Status:        models.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = a.db.RunTx(ctx, func(q sqlutil.Querier) error {
		if err := a.repo.CreatePayment(ctx, q, p); err != nil {
			return err
		}
		return a.outbox.Insert(ctx, q, p.ID, events.TypePaymentRecorded, events.PaymentRecordedPayload{
			PaymentID:  p.ID,
			RefereeID:  p.RefereeID,
			Amount:     p.Amount,
			RecordedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", p.ID.String()).
		Str("referee_id", p.RefereeID.String()).
		Float64("amount", p.Amount).
		Int("assignments", len(p.AssignmentIDs)).
		Msg("payment recorded")
	return p, nil
}

// MarkPaid completes a pending payment, optionally attaching the external
// transaction reference.
func (a *App) MarkPaid(ctx context.Context, id uuid.UUID, externalRef *string) (*models.RefereePayment, error) {
	return a.transition(ctx, id, models.PaymentStatusPending, models.PaymentStatusCompleted, externalRef, nil)
}

// MarkFailed fails a pending payment with a reason.
func (a *App) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*models.RefereePayment, error) {
	return a.transition(ctx, id, models.PaymentStatusPending, models.PaymentStatusFailed, nil, &reason)
}

// MarkRefunded records a refund of a completed payment.
func (a *App) MarkRefunded(ctx context.Context, id uuid.UUID, reason string) (*models.RefereePayment, error) {
	return a.transition(ctx, id, models.PaymentStatusCompleted, models.PaymentStatusRefunded, nil, &reason)
}

func (a *App) transition(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus, externalRef, failureReason *string) (*models.RefereePayment, error) {
	var p *models.RefereePayment
	err := a.db.RunTx(ctx, func(q sqlutil.Querier) error {
		var err error
		p, err = a.repo.UpdateStatusWhere(ctx, q, id, from, to, externalRef, failureReason, a.clock.Now())
		if err != nil {
			return err
		}
		if p == nil {
			if _, err := a.repo.GetPayment(ctx, id); err != nil {
				return err
			}
			return ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", id.String()).
		Str("status", string(to)).
		Msg("payment status changed")
	return p, nil
}

// GetPayment retrieves a payment by ID
func (a *App) GetPayment(ctx context.Context, id uuid.UUID) (*models.RefereePayment, error) {
	return a.repo.GetPayment(ctx, id)
}

// ListByReferee retrieves a referee's payment history, most recent first.
func (a *App) ListByReferee(ctx context.Context, refereeID uuid.UUID) ([]models.RefereePayment, error) {
	return a.repo.ListByReferee(ctx, refereeID)
}

// ListByStatus retrieves payments in one status across referees, most
// recently updated first. Used by the summary reconciliation job.
func (a *App) ListByStatus(ctx context.Context, status models.PaymentStatus, limit int32) ([]models.RefereePayment, error) {
	return a.repo.ListByStatus(ctx, status, limit)
}

// ListByAssignment retrieves all payments covering one assignment.
func (a *App) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.RefereePayment, error) {
	return a.repo.ListByAssignment(ctx, assignmentID)
}
