package gamesource

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/refcrew/refcrew/go/internal/models"
)

// Static is an in-memory GameSource for development wiring and tests.
type Static struct {
	mu    sync.RWMutex
	games map[uuid.UUID]models.GameSnapshot
}

func NewStatic() *Static {
	return &Static{
		games: make(map[uuid.UUID]models.GameSnapshot),
	}
}

// Put registers or replaces the snapshot for a game ID.
func (s *Static) Put(gameID uuid.UUID, snapshot models.GameSnapshot) {
	s.mu.Lock()
	s.games[gameID] = snapshot
	s.mu.Unlock()
}

func (s *Static) SnapshotFor(ctx context.Context, ref models.GameRef) (models.GameSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.games[ref.GameID()]
	if !ok {
		return models.GameSnapshot{}, ErrGameNotFound
	}
	return snapshot, nil
}
