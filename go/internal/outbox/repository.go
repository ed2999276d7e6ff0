package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/refcrew/refcrew/go/internal/sqlutil"
)

// ErrEventNotFound is returned when an outbox event is absent or already sent.
var ErrEventNotFound = errors.New("outbox event not found or already sent")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// InsertEvent stores one event row; it joins the caller's transaction so the
// event commits or rolls back with the state change that produced it.
func (r *Repository) InsertEvent(ctx context.Context, q sqlutil.Querier, id, entityID uuid.UUID, eventType string, payload []byte, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO outbox_events (id, entity_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, entityID, eventType, payload, now)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", eventType, err)
	}
	return nil
}

func (r *Repository) FetchUnsent(ctx context.Context, limit int32) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entity_id, event_type, payload, created_at
		FROM outbox_events
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.EntityID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *Repository) FetchByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var e Event
	err := r.db.QueryRowContext(ctx, `
		SELECT id, entity_id, event_type, payload, created_at
		FROM outbox_events
		WHERE id = $1 AND sent_at IS NULL`, id).
		Scan(&e.ID, &e.EntityID, &e.EventType, &e.Payload, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to fetch outbox event by ID: %w", err)
	}
	return &e, nil
}

func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events SET sent_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}
