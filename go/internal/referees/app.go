package referees

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/refcrew/refcrew/go/internal/identity"
	"github.com/refcrew/refcrew/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ProfileRepository defines what the app layer needs from the profile repository
type ProfileRepository interface {
	CreateProfile(ctx context.Context, req CreateProfileRequest, now time.Time) (*models.RefereeProfile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.RefereeProfile, error)
	GetProfileByUser(ctx context.Context, userID uuid.UUID) (*models.RefereeProfile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest, now time.Time) (*models.RefereeProfile, error)
	SetVerificationStatus(ctx context.Context, id uuid.UUID, status models.VerificationStatus, now time.Time) (*models.RefereeProfile, error)
	SetStats(ctx context.Context, id uuid.UUID, stats models.RefereeStats, now time.Time) error
	Search(ctx context.Context, filter SearchFilter) ([]models.RefereeProfile, error)
}

// StatsSource defines what the app layer needs from the stats projector when
// refreshing the denormalized counters on a profile.
type StatsSource interface {
	ComputeStats(ctx context.Context, refereeID uuid.UUID) (models.RefereeStats, error)
}

// allowedVerification maps each verification status to its legal successors.
var allowedVerification = map[models.VerificationStatus][]models.VerificationStatus{
	models.VerificationUnverified: {models.VerificationPending, models.VerificationVerified, models.VerificationRejected},
	models.VerificationPending:    {models.VerificationVerified, models.VerificationRejected},
	models.VerificationVerified:   {models.VerificationRejected},
	models.VerificationRejected:   {models.VerificationPending},
}

// App is the referee directory: profile lifecycle, admin verification, and
// search.
type App struct {
	repo  ProfileRepository
	stats StatsSource
	clock clockwork.Clock
}

// NewApp creates a new referee directory App
func NewApp(repo ProfileRepository, stats StatsSource, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		stats: stats,
		clock: clock,
	}
}

// CreateProfile registers a referee in the directory on signup.
func (a *App) CreateProfile(ctx context.Context, req CreateProfileRequest) (*models.RefereeProfile, error) {
	if err := a.validateCreateProfileRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	profile, err := a.repo.CreateProfile(ctx, req, a.clock.Now())
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("profile_id", profile.ID.String()).
		Str("display_name", profile.DisplayName).
		Msg("created referee profile")
	return profile, nil
}

// GetProfile retrieves a profile by ID
func (a *App) GetProfile(ctx context.Context, id uuid.UUID) (*models.RefereeProfile, error) {
	return a.repo.GetProfile(ctx, id)
}

// GetProfileByUser retrieves a profile by its owning user identity.
func (a *App) GetProfileByUser(ctx context.Context, userID uuid.UUID) (*models.RefereeProfile, error) {
	return a.repo.GetProfileByUser(ctx, userID)
}

// UpdateProfile applies an owner edit. Only the referee who owns the profile
// may edit it; verification status is admin-only and not touchable here.
func (a *App) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest, by identity.Principal) (*models.RefereeProfile, error) {
	current, err := a.repo.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.UserID != by.ID {
		return nil, ErrNotProfileOwner
	}

	return a.repo.UpdateProfile(ctx, id, req, a.clock.Now())
}

// Deactivate hides a profile from search without deleting it. Profiles are
// never hard-deleted.
func (a *App) Deactivate(ctx context.Context, id uuid.UUID, by identity.Principal) error {
	current, err := a.repo.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	if current.UserID != by.ID && by.Role != identity.RoleAdmin {
		return ErrNotProfileOwner
	}

	active := false
	_, err = a.repo.UpdateProfile(ctx, id, UpdateProfileRequest{Active: &active}, a.clock.Now())
	return err
}

// SetVerificationStatus moves a profile through the admin verification flow.
func (a *App) SetVerificationStatus(ctx context.Context, id uuid.UUID, status models.VerificationStatus, by identity.Principal) (*models.RefereeProfile, error) {
	if by.Role != identity.RoleAdmin {
		return nil, ErrNotAdmin
	}

	current, err := a.repo.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateVerificationTransition(current.VerificationStatus, status); err != nil {
		return nil, err
	}

	profile, err := a.repo.SetVerificationStatus(ctx, id, status, a.clock.Now())
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("profile_id", id.String()).
		Str("status", string(status)).
		Msg("verification status changed")
	return profile, nil
}

// RefreshStats recomputes the denormalized aggregate counters from the
// assignment history and stores them on the profile. The projection itself is
// read-only; this is the one sanctioned write-back.
func (a *App) RefreshStats(ctx context.Context, id uuid.UUID) (*models.RefereeProfile, error) {
	stats, err := a.stats.ComputeStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	if err := a.repo.SetStats(ctx, id, stats, a.clock.Now()); err != nil {
		return nil, err
	}
	return a.repo.GetProfile(ctx, id)
}

// Search finds active referees matching the filter. When filter.Near is set,
// profiles outside their own travel radius from that point are dropped.
func (a *App) Search(ctx context.Context, filter SearchFilter) ([]models.RefereeProfile, error) {
	profiles, err := a.repo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	if filter.Near == nil {
		return profiles, nil
	}

	matched := profiles[:0]
	for _, p := range profiles {
		dist := milesBetween(p.HomeLocation, *filter.Near)
		if dist <= float64(p.TravelRadiusMiles) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

const earthRadiusMiles = 3958.8

// milesBetween is the haversine great-circle distance between two points.
func milesBetween(a, b models.Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}

func validateVerificationTransition(from, to models.VerificationStatus) error {
	for _, allowed := range allowedVerification[from] {
		if to == allowed {
			return nil
		}
	}
	return fmt.Errorf("verification transition from %s to %s is not allowed", from, to)
}

func (a *App) validateCreateProfileRequest(req CreateProfileRequest) error {
	if req.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if req.DisplayName == "" {
		return fmt.Errorf("display_name is required")
	}
	if len(req.Sports) == 0 {
		return fmt.Errorf("at least one sport is required")
	}
	if req.YearsExperience < 0 {
		return fmt.Errorf("years_experience cannot be negative")
	}
	if req.TravelRadiusMiles < 0 {
		return fmt.Errorf("travel_radius_miles cannot be negative")
	}
	return nil
}
