package referees

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refcrew/refcrew/go/internal/identity"
	"github.com/refcrew/refcrew/go/internal/models"
)

type fakeProfileRepo struct {
	profiles map[uuid.UUID]*models.RefereeProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[uuid.UUID]*models.RefereeProfile)}
}

func (r *fakeProfileRepo) CreateProfile(ctx context.Context, req CreateProfileRequest, now time.Time) (*models.RefereeProfile, error) {
	profile := &models.RefereeProfile{
		ID:                 uuid.New(),
		UserID:             req.UserID,
		DisplayName:        req.DisplayName,
		Sports:             req.Sports,
		Certifications:     req.Certifications,
		YearsExperience:    req.YearsExperience,
		Availability:       req.Availability,
		TravelRadiusMiles:  req.TravelRadiusMiles,
		HomeLocation:       req.HomeLocation,
		PaymentPreference:  req.PaymentPreference,
		VerificationStatus: models.VerificationUnverified,
		Active:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	r.profiles[profile.ID] = profile
	cp := *profile
	return &cp, nil
}

func (r *fakeProfileRepo) GetProfile(ctx context.Context, id uuid.UUID) (*models.RefereeProfile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *profile
	return &cp, nil
}

func (r *fakeProfileRepo) GetProfileByUser(ctx context.Context, userID uuid.UUID) (*models.RefereeProfile, error) {
	for _, profile := range r.profiles {
		if profile.UserID == userID {
			cp := *profile
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeProfileRepo) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest, now time.Time) (*models.RefereeProfile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.DisplayName != nil {
		profile.DisplayName = *req.DisplayName
	}
	if req.Sports != nil {
		profile.Sports = *req.Sports
	}
	if req.YearsExperience != nil {
		profile.YearsExperience = *req.YearsExperience
	}
	if req.Availability != nil {
		profile.Availability = *req.Availability
	}
	if req.TravelRadiusMiles != nil {
		profile.TravelRadiusMiles = *req.TravelRadiusMiles
	}
	if req.HomeLocation != nil {
		profile.HomeLocation = *req.HomeLocation
	}
	if req.Active != nil {
		profile.Active = *req.Active
	}
	profile.UpdatedAt = now
	cp := *profile
	return &cp, nil
}

func (r *fakeProfileRepo) SetVerificationStatus(ctx context.Context, id uuid.UUID, status models.VerificationStatus, now time.Time) (*models.RefereeProfile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	profile.VerificationStatus = status
	profile.UpdatedAt = now
	cp := *profile
	return &cp, nil
}

func (r *fakeProfileRepo) SetStats(ctx context.Context, id uuid.UUID, stats models.RefereeStats, now time.Time) error {
	profile, ok := r.profiles[id]
	if !ok {
		return ErrNotFound
	}
	profile.Stats = stats
	profile.UpdatedAt = now
	return nil
}

func (r *fakeProfileRepo) Search(ctx context.Context, filter SearchFilter) ([]models.RefereeProfile, error) {
	var out []models.RefereeProfile
	for _, profile := range r.profiles {
		if !profile.Active {
			continue
		}
		if filter.VerifiedOnly && profile.VerificationStatus != models.VerificationVerified {
			continue
		}
		if filter.Sport != "" {
			found := false
			for _, s := range profile.Sports {
				if s == filter.Sport {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		if filter.MinRating != nil && profile.AverageRating < *filter.MinRating {
			continue
		}
		out = append(out, *profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AverageRating > out[j].AverageRating })
	return out, nil
}

type fakeStatsSource struct {
	stats models.RefereeStats
}

func (s *fakeStatsSource) ComputeStats(ctx context.Context, refereeID uuid.UUID) (models.RefereeStats, error) {
	return s.stats, nil
}

type refereesFixture struct {
	app   *App
	repo  *fakeProfileRepo
	stats *fakeStatsSource
	admin identity.Principal
}

func newRefereesFixture(t *testing.T) *refereesFixture {
	t.Helper()
	repo := newFakeProfileRepo()
	stats := &fakeStatsSource{}
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC))
	return &refereesFixture{
		app:   NewApp(repo, stats, clock),
		repo:  repo,
		stats: stats,
		admin: identity.Principal{ID: uuid.New(), Name: "Ops", Role: identity.RoleAdmin},
	}
}

func (f *refereesFixture) create(t *testing.T, name string, sports []string, loc models.Location, radius int) *models.RefereeProfile {
	t.Helper()
	profile, err := f.app.CreateProfile(context.Background(), CreateProfileRequest{
		UserID:            uuid.New(),
		DisplayName:       name,
		Sports:            sports,
		YearsExperience:   4,
		Availability:      models.Availability{Weekends: true},
		TravelRadiusMiles: radius,
		HomeLocation:      loc,
	})
	require.NoError(t, err)
	return profile
}

func TestCreateProfileDefaults(t *testing.T) {
	f := newRefereesFixture(t)

	profile := f.create(t, "Sam Ortiz", []string{"soccer"}, models.Location{City: "Denver", State: "CO"}, 25)

	assert.Equal(t, models.VerificationUnverified, profile.VerificationStatus)
	assert.True(t, profile.Active)
	assert.Zero(t, profile.TotalRatings)
}

func TestCreateProfileValidation(t *testing.T) {
	f := newRefereesFixture(t)
	ctx := context.Background()

	_, err := f.app.CreateProfile(ctx, CreateProfileRequest{DisplayName: "x", Sports: []string{"soccer"}})
	assert.Error(t, err, "missing user")

	_, err = f.app.CreateProfile(ctx, CreateProfileRequest{UserID: uuid.New(), Sports: []string{"soccer"}})
	assert.Error(t, err, "missing display name")

	_, err = f.app.CreateProfile(ctx, CreateProfileRequest{UserID: uuid.New(), DisplayName: "x"})
	assert.Error(t, err, "no sports")

	_, err = f.app.CreateProfile(ctx, CreateProfileRequest{
		UserID: uuid.New(), DisplayName: "x", Sports: []string{"soccer"}, TravelRadiusMiles: -5,
	})
	assert.Error(t, err, "negative radius")
}

func TestUpdateProfileOwnerOnly(t *testing.T) {
	f := newRefereesFixture(t)
	profile := f.create(t, "Sam Ortiz", []string{"soccer"}, models.Location{}, 25)

	name := "Sam O."
	_, err := f.app.UpdateProfile(context.Background(), profile.ID, UpdateProfileRequest{DisplayName: &name},
		identity.Principal{ID: uuid.New(), Role: identity.RoleReferee})
	assert.ErrorIs(t, err, ErrNotProfileOwner)

	updated, err := f.app.UpdateProfile(context.Background(), profile.ID, UpdateProfileRequest{DisplayName: &name},
		identity.Principal{ID: profile.UserID, Role: identity.RoleReferee})
	require.NoError(t, err)
	assert.Equal(t, "Sam O.", updated.DisplayName)
}

func TestDeactivateHidesFromSearch(t *testing.T) {
	f := newRefereesFixture(t)
	profile := f.create(t, "Sam Ortiz", []string{"soccer"}, models.Location{}, 25)
	ctx := context.Background()

	err := f.app.Deactivate(ctx, profile.ID, identity.Principal{ID: profile.UserID, Role: identity.RoleReferee})
	require.NoError(t, err)

	results, err := f.app.Search(ctx, SearchFilter{Sport: "soccer"})
	require.NoError(t, err)
	assert.Empty(t, results)

	// The record itself survives.
	got, err := f.app.GetProfile(ctx, profile.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestVerificationFlow(t *testing.T) {
	f := newRefereesFixture(t)
	profile := f.create(t, "Sam Ortiz", []string{"soccer"}, models.Location{}, 25)
	ctx := context.Background()

	_, err := f.app.SetVerificationStatus(ctx, profile.ID, models.VerificationVerified,
		identity.Principal{ID: uuid.New(), Role: identity.RoleLeague})
	assert.ErrorIs(t, err, ErrNotAdmin)

	pending, err := f.app.SetVerificationStatus(ctx, profile.ID, models.VerificationPending, f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, pending.VerificationStatus)

	verified, err := f.app.SetVerificationStatus(ctx, profile.ID, models.VerificationVerified, f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, verified.VerificationStatus)

	// Verified cannot move back to pending, only to rejected.
	_, err = f.app.SetVerificationStatus(ctx, profile.ID, models.VerificationPending, f.admin)
	assert.Error(t, err)

	rejected, err := f.app.SetVerificationStatus(ctx, profile.ID, models.VerificationRejected, f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, rejected.VerificationStatus)

	// Rejected referees can re-enter review.
	_, err = f.app.SetVerificationStatus(ctx, profile.ID, models.VerificationPending, f.admin)
	require.NoError(t, err)
}

func TestRefreshStatsWritesBack(t *testing.T) {
	f := newRefereesFixture(t)
	profile := f.create(t, "Sam Ortiz", []string{"soccer"}, models.Location{}, 25)

	f.stats.stats = models.RefereeStats{
		TotalGamesAllTime: 12,
		GamesThisSeason:   4,
		SportBreakdown:    map[string]int{"soccer": 12},
	}

	updated, err := f.app.RefreshStats(context.Background(), profile.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, updated.Stats.TotalGamesAllTime)
	assert.Equal(t, 4, updated.Stats.GamesThisSeason)
}

func TestSearchAppliesTravelRadius(t *testing.T) {
	f := newRefereesFixture(t)

	denver := models.Location{City: "Denver", State: "CO", Latitude: 39.7392, Longitude: -104.9903}
	boulder := models.Location{City: "Boulder", State: "CO", Latitude: 40.0150, Longitude: -105.2705}
	springs := models.Location{City: "Colorado Springs", State: "CO", Latitude: 38.8339, Longitude: -104.8214}

	// Boulder is roughly 24 miles from Denver, Colorado Springs roughly 63.
	f.create(t, "Near Enough", []string{"soccer"}, boulder, 30)
	f.create(t, "Too Tight A Radius", []string{"soccer"}, boulder, 10)
	f.create(t, "Too Far", []string{"soccer"}, springs, 30)
	f.create(t, "Wide Ranger", []string{"soccer"}, springs, 100)

	results, err := f.app.Search(context.Background(), SearchFilter{Sport: "soccer", Near: &denver})
	require.NoError(t, err)

	names := make([]string, 0, len(results))
	for _, p := range results {
		names = append(names, p.DisplayName)
	}
	assert.ElementsMatch(t, []string{"Near Enough", "Wide Ranger"}, names)
}

func TestSearchWithoutLocationSkipsRadiusFilter(t *testing.T) {
	f := newRefereesFixture(t)
	f.create(t, "Anywhere", []string{"basketball"}, models.Location{}, 0)

	results, err := f.app.Search(context.Background(), SearchFilter{Sport: "basketball"})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMilesBetween(t *testing.T) {
	denver := models.Location{Latitude: 39.7392, Longitude: -104.9903}
	boulder := models.Location{Latitude: 40.0150, Longitude: -105.2705}

	d := milesBetween(denver, boulder)
	assert.InDelta(t, 24, d, 2)
	assert.Zero(t, milesBetween(denver, denver))
}
