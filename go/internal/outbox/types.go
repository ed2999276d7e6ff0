package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one pending or delivered domain event. EntityID is the aggregate
// the event describes (assignment, rating, payment or thread).
type Event struct {
	ID        uuid.UUID       `json:"id"`
	EntityID  uuid.UUID       `json:"entity_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}
