package dispute

import (
	"github.com/google/uuid"
	"github.com/refcrew/refcrew/go/internal/identity"
	"github.com/refcrew/refcrew/go/internal/models"
)

// ReportInfractionRequest files a rule violation against an assignment and
// opens its dispute thread in one step. Participants bind the thread for its
// whole life: the league contact is mandatory, the team director and head
// coach join depending on who is party to the dispute. The assignment's
// referee is always bound.
type ReportInfractionRequest struct {
	AssignmentID uuid.UUID                 `json:"assignment_id"`
	Title        string                    `json:"title"`
	Description  string                    `json:"description,omitempty"`
	Severity     models.InfractionSeverity `json:"severity"`
	Reporter     identity.Principal        `json:"reporter"`
	League       identity.Principal        `json:"league"`
	TeamDirector *identity.Principal       `json:"team_director,omitempty"`
	HeadCoach    *identity.Principal       `json:"head_coach,omitempty"`
}

// SendMessageRequest posts one message to a dispute thread.
type SendMessageRequest struct {
	ThreadID uuid.UUID          `json:"thread_id"`
	Sender   identity.Principal `json:"sender"`
	Body     string             `json:"body"`
}
