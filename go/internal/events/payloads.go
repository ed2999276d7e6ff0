package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types published for the notification collaborator. Delivery is
// fire-and-forget; a delivery failure never rolls back the transition that
// produced the event.
const (
	TypeAssignmentCreated   = "assignment.created"
	TypeAssignmentResponded = "assignment.responded"
	TypeAssignmentCancelled = "assignment.cancelled"
	TypeAssignmentCompleted = "assignment.completed"
	TypeAssignmentNoShow    = "assignment.no_show"
	TypeScoreSubmitted      = "score.submitted"
	TypeRatingReceived      = "rating.received"
	TypePaymentRecorded     = "payment.recorded"
	TypeThreadMessage       = "thread.message"
	TypeThreadClosed        = "thread.closed"
)

// AssignmentCreatedPayload is the payload for an assignment.created event.
type AssignmentCreatedPayload struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	RefereeID    uuid.UUID `json:"referee_id"`
	GameID       uuid.UUID `json:"game_id"`
	Sport        string    `json:"sport"`
	GameStartsAt time.Time `json:"game_starts_at"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// AssignmentRespondedPayload is the payload for an assignment.responded event.
type AssignmentRespondedPayload struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	RefereeID    uuid.UUID `json:"referee_id"`
	Accepted     bool      `json:"accepted"`
	Reason       string    `json:"reason,omitempty"`
	RespondedAt  time.Time `json:"responded_at"`
}

// AssignmentCancelledPayload is the payload for an assignment.cancelled event.
type AssignmentCancelledPayload struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	RefereeID    uuid.UUID `json:"referee_id"`
	CancelledBy  uuid.UUID `json:"cancelled_by"`
	CancelledAt  time.Time `json:"cancelled_at"`
}

// AssignmentOutcomePayload is the payload for assignment.completed and
// assignment.no_show events.
type AssignmentOutcomePayload struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	RefereeID    uuid.UUID `json:"referee_id"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// ScoreSubmittedPayload is the payload for a score.submitted event. It is the
// authoritative final score for downstream standings recalculation.
type ScoreSubmittedPayload struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	GameID       uuid.UUID `json:"game_id"`
	HomeScore    int       `json:"home_score"`
	AwayScore    int       `json:"away_score"`
	SubmittedBy  uuid.UUID `json:"submitted_by"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// RatingReceivedPayload is the payload for a rating.received event.
type RatingReceivedPayload struct {
	RatingID     uuid.UUID `json:"rating_id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	RefereeID    uuid.UUID `json:"referee_id"`
	Overall      int       `json:"overall"`
	ReceivedAt   time.Time `json:"received_at"`
}

// PaymentRecordedPayload is the payload for a payment.recorded event.
type PaymentRecordedPayload struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	RefereeID  uuid.UUID `json:"referee_id"`
	Amount     float64   `json:"amount"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ThreadMessagePayload is the payload for a thread.message event.
type ThreadMessagePayload struct {
	ThreadID   uuid.UUID `json:"thread_id"`
	MessageID  uuid.UUID `json:"message_id"`
	SenderRole string    `json:"sender_role"`
	SentAt     time.Time `json:"sent_at"`
}

// ThreadClosedPayload is the payload for a thread.closed event.
type ThreadClosedPayload struct {
	ThreadID uuid.UUID `json:"thread_id"`
	ClosedBy uuid.UUID `json:"closed_by"`
	ClosedAt time.Time `json:"closed_at"`
}
