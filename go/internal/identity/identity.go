package identity

import (
	"context"

	"github.com/google/uuid"
)

// Role is the application role an acting principal holds.
type Role string

const (
	RoleLeague    Role = "LEAGUE"
	RoleTeam      Role = "TEAM"
	RoleHeadCoach Role = "HEADCOACH"
	RoleReferee   Role = "REFEREE"
	RoleAdmin     Role = "ADMIN"
)

// Principal is the resolved acting identity passed explicitly into every
// engine call. The engine trusts the resolution and performs no credential
// checks of its own.
type Principal struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role Role      `json:"role"`
}

// Resolver maps an opaque auth token or session to a Principal. Implemented
// by the surrounding application's auth layer.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Principal, error)
}
