package models

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentStatus defines the lifecycle state of a referee assignment.
type AssignmentStatus string

const (
	AssignmentStatusPending   AssignmentStatus = "PENDING"
	AssignmentStatusAccepted  AssignmentStatus = "ACCEPTED"
	AssignmentStatusDeclined  AssignmentStatus = "DECLINED"
	AssignmentStatusCancelled AssignmentStatus = "CANCELLED"
	AssignmentStatusCompleted AssignmentStatus = "COMPLETED"
	AssignmentStatusNoShow    AssignmentStatus = "NO_SHOW"
)

// IsTerminal reports whether no further transition is defined from s.
func (s AssignmentStatus) IsTerminal() bool {
	switch s {
	case AssignmentStatusDeclined, AssignmentStatusCancelled,
		AssignmentStatusCompleted, AssignmentStatusNoShow:
		return true
	}
	return false
}

// GameRefKind discriminates the two game reference shapes.
type GameRefKind string

const (
	GameRefKindLeague GameRefKind = "LEAGUE"
	GameRefKindTeam   GameRefKind = "TEAM"
)

// GameRef is the reference from an assignment to the game it covers.
// Exactly one concrete kind exists per assignment: a game scheduled inside a
// league, or an independent team-organized game.
type GameRef interface {
	Kind() GameRefKind
	// GameID is the identity of the referenced game record.
	GameID() uuid.UUID
	// OwnerID is the league or team that owns the game record.
	OwnerID() uuid.UUID
	isGameRef()
}

// LeagueGameRef points at a game scheduled by a league.
type LeagueGameRef struct {
	LeagueID uuid.UUID `json:"league_id"`
	Game     uuid.UUID `json:"game_id"`
}

func (LeagueGameRef) isGameRef()           {}
func (LeagueGameRef) Kind() GameRefKind    { return GameRefKindLeague }
func (r LeagueGameRef) GameID() uuid.UUID  { return r.Game }
func (r LeagueGameRef) OwnerID() uuid.UUID { return r.LeagueID }

// TeamGameRef points at an independent game organized by a single team.
type TeamGameRef struct {
	TeamID uuid.UUID `json:"team_id"`
	Game   uuid.UUID `json:"game_id"`
}

func (TeamGameRef) isGameRef()           {}
func (TeamGameRef) Kind() GameRefKind    { return GameRefKindTeam }
func (r TeamGameRef) GameID() uuid.UUID  { return r.Game }
func (r TeamGameRef) OwnerID() uuid.UUID { return r.TeamID }

// GameSnapshot is the denormalized copy of game facts captured at assignment
// time. It keeps the assignment displayable even if the source game record is
// later edited or deleted; the GameRef stays as a weak reference for
// reconciliation.
type GameSnapshot struct {
	StartsAt     time.Time `json:"starts_at"`
	Location     string    `json:"location"`
	HomeTeamName string    `json:"home_team_name"`
	AwayTeamName string    `json:"away_team_name"`
	Sport        string    `json:"sport"`
	AgeGroup     string    `json:"age_group"`
}

// PaymentSummaryStatus is the fast-path payment state carried on the
// assignment. The payment ledger is the source of truth for payment history.
type PaymentSummaryStatus string

const (
	PaymentSummaryUnpaid PaymentSummaryStatus = "UNPAID"
	PaymentSummaryPaid   PaymentSummaryStatus = "PAID"
)

// RefereeAssignment binds one referee to one specific game.
type RefereeAssignment struct {
	ID             uuid.UUID            `json:"id"`
	RefereeID      uuid.UUID            `json:"referee_id"`
	GameRef        GameRef              `json:"game_ref"`
	AssignerID     uuid.UUID            `json:"assigner_id"`
	AssignerRole   string               `json:"assigner_role"`
	Position       string               `json:"position"`
	Game           GameSnapshot         `json:"game"`
	PayAmount      float64              `json:"pay_amount"`
	PaymentStatus  PaymentSummaryStatus `json:"payment_status"`
	ScoreSubmitted bool                 `json:"score_submitted"`
	FinalHomeScore *int                 `json:"final_home_score,omitempty"`
	FinalAwayScore *int                 `json:"final_away_score,omitempty"`
	Status         AssignmentStatus     `json:"status"`
	DeclineReason  *string              `json:"decline_reason,omitempty"`
	AssignedAt     time.Time            `json:"assigned_at"`
	RespondedAt    *time.Time           `json:"responded_at,omitempty"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// RefereeNote is a private scratchpad entry scoped to one assignment and its
// referee. Notes are never visible to any other party.
type RefereeNote struct {
	ID           uuid.UUID `json:"id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	RefereeID    uuid.UUID `json:"referee_id"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
