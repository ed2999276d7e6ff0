package stats

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/refcrew/refcrew/go/internal/assignment"
	"github.com/refcrew/refcrew/go/internal/models"
)

// AssignmentSource defines what the projector needs from the assignment store
type AssignmentSource interface {
	ListByReferee(ctx context.Context, refereeID uuid.UUID, filter assignment.ListFilter) ([]models.RefereeAssignment, error)
}

// Projection is the full derived view of one referee's assignment history.
type Projection struct {
	models.RefereeStats

	Accepted       int     `json:"accepted"`
	Declined       int     `json:"declined"`
	NoShows        int     `json:"no_shows"`
	AcceptanceRate float64 `json:"acceptance_rate"`
	CompletionRate float64 `json:"completion_rate"`
}

// Projector derives referee stats by folding over assignment history. It is a
// pure read: nothing it computes is ever written back by the projector
// itself. Results may be cached briefly; the cache is never authoritative.
type Projector struct {
	assignments AssignmentSource
	clock       clockwork.Clock

	// Month in which a new season starts, e.g. time.August for fall-rollover
	// youth leagues.
	seasonStart time.Month

	cacheTTL time.Duration
	mu       sync.Mutex
	cache    map[uuid.UUID]cacheEntry
}

type cacheEntry struct {
	projection Projection
	computedAt time.Time
}

// NewProjector creates a new stats Projector. A cacheTTL of zero disables
// caching.
func NewProjector(assignments AssignmentSource, clock clockwork.Clock, seasonStart time.Month, cacheTTL time.Duration) *Projector {
	return &Projector{
		assignments: assignments,
		clock:       clock,
		seasonStart: seasonStart,
		cacheTTL:    cacheTTL,
		cache:       make(map[uuid.UUID]cacheEntry),
	}
}

// Project folds the referee's full assignment history into a Projection.
func (p *Projector) Project(ctx context.Context, refereeID uuid.UUID) (*Projection, error) {
	now := p.clock.Now()

	if p.cacheTTL > 0 {
		p.mu.Lock()
		if entry, ok := p.cache[refereeID]; ok && now.Sub(entry.computedAt) < p.cacheTTL {
			p.mu.Unlock()
			projection := entry.projection
			return &projection, nil
		}
		p.mu.Unlock()
	}

	assignments, err := p.assignments.ListByReferee(ctx, refereeID, assignment.ListFilter{})
	if err != nil {
		return nil, err
	}

	seasonFrom, seasonTo := p.seasonWindow(now)

	projection := Projection{
		RefereeStats: models.RefereeStats{SportBreakdown: make(map[string]int)},
	}
	total := 0
	cancelled := 0
	everAccepted := 0
	for _, a := range assignments {
		total++
		switch a.Status {
		case models.AssignmentStatusCancelled:
			cancelled++
		case models.AssignmentStatusAccepted:
			everAccepted++
		case models.AssignmentStatusNoShow:
			everAccepted++
			projection.NoShows++
		case models.AssignmentStatusDeclined:
			projection.Declined++
		case models.AssignmentStatusCompleted:
			everAccepted++
			projection.TotalGamesAllTime++
			projection.SportBreakdown[a.Game.Sport]++
			if !a.Game.StartsAt.Before(seasonFrom) && a.Game.StartsAt.Before(seasonTo) {
				projection.GamesThisSeason++
			}
		}
	}
	projection.Accepted = everAccepted

	if responded := total - cancelled; responded > 0 {
		projection.AcceptanceRate = float64(everAccepted) / float64(responded)
	}
	if everAccepted > 0 {
		projection.CompletionRate = float64(projection.TotalGamesAllTime) / float64(everAccepted)
	}

	if p.cacheTTL > 0 {
		p.mu.Lock()
		p.cache[refereeID] = cacheEntry{projection: projection, computedAt: now}
		p.mu.Unlock()
	}

	return &projection, nil
}

// ComputeStats returns the counter subset of the projection, in the shape the
// referee directory denormalizes onto profiles.
func (p *Projector) ComputeStats(ctx context.Context, refereeID uuid.UUID) (models.RefereeStats, error) {
	projection, err := p.Project(ctx, refereeID)
	if err != nil {
		return models.RefereeStats{}, err
	}
	return projection.RefereeStats, nil
}

// Invalidate drops any cached projection for the referee.
func (p *Projector) Invalidate(refereeID uuid.UUID) {
	p.mu.Lock()
	delete(p.cache, refereeID)
	p.mu.Unlock()
}

// seasonWindow returns the [from, to) bounds of the season containing now.
func (p *Projector) seasonWindow(now time.Time) (time.Time, time.Time) {
	year := now.Year()
	if now.Month() < p.seasonStart {
		year--
	}
	from := time.Date(year, p.seasonStart, 1, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(1, 0, 0)
}
