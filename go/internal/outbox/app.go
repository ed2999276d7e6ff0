package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/refcrew/refcrew/go/internal/sqlutil"
)

// EventRepository defines what the app layer needs from the outbox repository
type EventRepository interface {
	InsertEvent(ctx context.Context, q sqlutil.Querier, id, entityID uuid.UUID, eventType string, payload []byte, now time.Time) error
	FetchUnsent(ctx context.Context, limit int32) ([]Event, error)
	FetchByID(ctx context.Context, id uuid.UUID) (*Event, error)
	MarkSent(ctx context.Context, id uuid.UUID, now time.Time) error
}

// App is the write side of the outbox. Domain apps call Insert inside their
// own transactions; the relay worker and listener own delivery.
type App struct {
	repo  EventRepository
	clock clockwork.Clock
}

// NewApp creates a new outbox App
func NewApp(repo EventRepository, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		clock: clock,
	}
}

// Insert marshals the payload and stores the event in the caller's
// transaction.
func (a *App) Insert(ctx context.Context, q sqlutil.Querier, entityID uuid.UUID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return a.repo.InsertEvent(ctx, q, uuid.New(), entityID, eventType, body, a.clock.Now())
}

// FetchUnsent returns pending events for the relay, oldest first.
func (a *App) FetchUnsent(ctx context.Context, limit int32) ([]Event, error) {
	return a.repo.FetchUnsent(ctx, limit)
}

// FetchByID returns one pending event.
func (a *App) FetchByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	return a.repo.FetchByID(ctx, id)
}

// MarkSent records successful delivery of an event.
func (a *App) MarkSent(ctx context.Context, id uuid.UUID) error {
	return a.repo.MarkSent(ctx, id, a.clock.Now())
}
