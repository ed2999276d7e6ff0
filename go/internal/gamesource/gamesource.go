package gamesource

import (
	"context"
	"errors"

	"github.com/refcrew/refcrew/go/internal/models"
)

// ErrGameNotFound is returned when the referenced game record does not exist.
var ErrGameNotFound = errors.New("game not found")

// GameSource provides read-only access to live game records. It is consulted
// exactly once per assignment, at creation time, to capture the denormalized
// snapshot; the engine never writes through it.
type GameSource interface {
	SnapshotFor(ctx context.Context, ref models.GameRef) (models.GameSnapshot, error)
}
