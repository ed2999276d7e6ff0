package rating

import (
	"github.com/google/uuid"
	"github.com/refcrew/refcrew/go/internal/identity"
	"github.com/refcrew/refcrew/go/internal/models"
)

// SubmitRatingRequest represents one post-game rating from a reviewer.
type SubmitRatingRequest struct {
	AssignmentID   uuid.UUID           `json:"assignment_id"`
	Reviewer       identity.Principal  `json:"reviewer"`
	Scores         models.RatingScores `json:"scores"`
	PublicComment  string              `json:"public_comment,omitempty"`
	PrivateComment string              `json:"private_comment,omitempty"`
}
