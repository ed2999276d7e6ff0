package models

import (
	"time"

	"github.com/google/uuid"
)

// InfractionSeverity grades a reported rule violation.
type InfractionSeverity string

const (
	SeverityMinor    InfractionSeverity = "MINOR"
	SeverityModerate InfractionSeverity = "MODERATE"
	SeverityMajor    InfractionSeverity = "MAJOR"
	SeveritySevere   InfractionSeverity = "SEVERE"
)

// InfractionStatus defines the review state of an infraction report.
type InfractionStatus string

const (
	InfractionSubmitted   InfractionStatus = "SUBMITTED"
	InfractionUnderReview InfractionStatus = "UNDER_REVIEW"
	InfractionResolved    InfractionStatus = "RESOLVED"
	InfractionDismissed   InfractionStatus = "DISMISSED"
	InfractionAppealed    InfractionStatus = "APPEALED"
)

// Infraction is a reported rule violation tied to one assignment.
type Infraction struct {
	ID           uuid.UUID          `json:"id"`
	AssignmentID uuid.UUID          `json:"assignment_id"`
	Title        string             `json:"title"`
	Description  string             `json:"description,omitempty"`
	Severity     InfractionSeverity `json:"severity"`
	Status       InfractionStatus   `json:"status"`
	ReporterID   uuid.UUID          `json:"reporter_id"`
	ReporterRole string             `json:"reporter_role"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// ThreadStatus defines the open/closed state of a dispute thread.
type ThreadStatus string

const (
	ThreadActive ThreadStatus = "ACTIVE"
	ThreadClosed ThreadStatus = "CLOSED"
)

// ThreadRole tags a dispute-thread participant or message sender.
type ThreadRole string

const (
	ThreadRoleLeague    ThreadRole = "LEAGUE"
	ThreadRoleReferee   ThreadRole = "REFEREE"
	ThreadRoleTeam      ThreadRole = "TEAM"
	ThreadRoleHeadCoach ThreadRole = "HEADCOACH"
	// ThreadRoleSystem is reserved for synthetic auto-generated messages such
	// as closure records. It is never a participant.
	ThreadRoleSystem ThreadRole = "SYSTEM"
)

// ThreadParticipant binds one identity to a thread under a fixed role.
type ThreadParticipant struct {
	UserID uuid.UUID  `json:"user_id"`
	Name   string     `json:"name"`
	Role   ThreadRole `json:"role"`
}

// InfractionThread is the bounded multi-party conversation resolving one
// infraction. Exactly one thread exists per infraction. Closing is one-way.
type InfractionThread struct {
	ID           uuid.UUID           `json:"id"`
	InfractionID uuid.UUID           `json:"infraction_id"`
	Participants []ThreadParticipant `json:"participants"`
	Status       ThreadStatus        `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	ClosedAt     *time.Time          `json:"closed_at,omitempty"`
}

// InfractionMessage is one append-only message within a thread, ordered by
// creation time. SenderID is uuid.Nil for system messages.
type InfractionMessage struct {
	ID         uuid.UUID  `json:"id"`
	ThreadID   uuid.UUID  `json:"thread_id"`
	SenderID   uuid.UUID  `json:"sender_id"`
	SenderName string     `json:"sender_name"`
	SenderRole ThreadRole `json:"sender_role"`
	Body       string     `json:"body"`
	CreatedAt  time.Time  `json:"created_at"`
}
