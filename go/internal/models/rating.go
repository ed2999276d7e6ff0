package models

import (
	"time"

	"github.com/google/uuid"
)

// RatingScores holds the multi-dimension scores of one rating event.
// Overall is mandatory; the sub-dimensions are optional. All scores are
// integers on a 1-5 scale.
type RatingScores struct {
	Overall         int  `json:"overall"`
	Mechanics       *int `json:"mechanics,omitempty"`
	Positioning     *int `json:"positioning,omitempty"`
	Communication   *int `json:"communication,omitempty"`
	Professionalism *int `json:"professionalism,omitempty"`
}

// RefereeRating is one immutable rating event for an assignment. Ratings are
// never edited; revisions accumulate as new records.
type RefereeRating struct {
	ID             uuid.UUID    `json:"id"`
	AssignmentID   uuid.UUID    `json:"assignment_id"`
	RefereeID      uuid.UUID    `json:"referee_id"`
	ReviewerID     uuid.UUID    `json:"reviewer_id"`
	ReviewerRole   string       `json:"reviewer_role"`
	Scores         RatingScores `json:"scores"`
	PublicComment  string       `json:"public_comment,omitempty"`
	PrivateComment string       `json:"private_comment,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}
