package assignment

import (
	"github.com/google/uuid"
	"github.com/refcrew/refcrew/go/internal/identity"
	"github.com/refcrew/refcrew/go/internal/models"
)

// CreateAssignmentRequest represents a request to bind a referee to a game.
type CreateAssignmentRequest struct {
	RefereeID uuid.UUID          `json:"referee_id"`
	GameRef   models.GameRef     `json:"game_ref"`
	Position  string             `json:"position"`
	PayAmount float64            `json:"pay_amount"`
	Assigner  identity.Principal `json:"assigner"`
}

// RespondRequest represents the referee's answer to a pending assignment.
type RespondRequest struct {
	AssignmentID uuid.UUID          `json:"assignment_id"`
	Accept       bool               `json:"accept"`
	Reason       *string            `json:"reason,omitempty"`
	Referee      identity.Principal `json:"referee"`
}

// NoteRequest represents a create or update of a private referee note.
type NoteRequest struct {
	AssignmentID uuid.UUID          `json:"assignment_id"`
	Body         string             `json:"body"`
	Referee      identity.Principal `json:"referee"`
}

// ListFilter narrows assignment queries.
type ListFilter struct {
	Status *models.AssignmentStatus `json:"status,omitempty"`
	Sport  *string                  `json:"sport,omitempty"`
	Limit  int32                    `json:"limit,omitempty"`
}
