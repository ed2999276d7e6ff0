package referees

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/refcrew/refcrew/go/internal/models"
	"github.com/refcrew/refcrew/go/internal/sqlutil"
)

const profileColumns = `
	id, user_id, display_name, sports, certifications, years_experience,
	avail_weekdays, avail_weekends, avail_evenings, avail_notes,
	travel_radius_miles, home_city, home_state, home_lat, home_lng,
	payment_preference, verification_status, stats,
	average_rating, total_ratings, active, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) CreateProfile(ctx context.Context, req CreateProfileRequest, now time.Time) (*models.RefereeProfile, error) {
	certsBytes, err := json.Marshal(req.Certifications)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal certifications: %w", err)
	}
	statsBytes, err := json.Marshal(models.RefereeStats{})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO referee_profiles (
			id, user_id, display_name, sports, certifications, years_experience,
			avail_weekdays, avail_weekends, avail_evenings, avail_notes,
			travel_radius_miles, home_city, home_state, home_lat, home_lng,
			payment_preference, verification_status, stats,
			average_rating, total_ratings, active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, 0, 0, TRUE, $19, $19
		)
		RETURNING `+profileColumns,
		uuid.New(), req.UserID, req.DisplayName, pq.Array(req.Sports), certsBytes, req.YearsExperience,
		req.Availability.Weekdays, req.Availability.Weekends, req.Availability.Evenings, req.Availability.Notes,
		req.TravelRadiusMiles, req.HomeLocation.City, req.HomeLocation.State,
		req.HomeLocation.Latitude, req.HomeLocation.Longitude,
		req.PaymentPreference, string(models.VerificationUnverified), statsBytes, now,
	)

	profile, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*models.RefereeProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+` FROM referee_profiles WHERE id = $1`, id)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

func (r *Repository) GetProfileByUser(ctx context.Context, userID uuid.UUID) (*models.RefereeProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+` FROM referee_profiles WHERE user_id = $1`, userID)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile by user: %w", err)
	}
	return profile, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest, now time.Time) (*models.RefereeProfile, error) {
	var certsBytes []byte
	if req.Certifications != nil {
		var err error
		certsBytes, err = json.Marshal(*req.Certifications)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal certifications: %w", err)
		}
	}

	var sports any
	if req.Sports != nil {
		sports = pq.Array(*req.Sports)
	}

	var weekdays, weekends, evenings *bool
	var availNotes *string
	if req.Availability != nil {
		weekdays = &req.Availability.Weekdays
		weekends = &req.Availability.Weekends
		evenings = &req.Availability.Evenings
		availNotes = &req.Availability.Notes
	}

	var homeCity, homeState *string
	var homeLat, homeLng *float64
	if req.HomeLocation != nil {
		homeCity = &req.HomeLocation.City
		homeState = &req.HomeLocation.State
		homeLat = &req.HomeLocation.Latitude
		homeLng = &req.HomeLocation.Longitude
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE referee_profiles SET
			display_name = COALESCE($2, display_name),
			sports = COALESCE($3, sports),
			certifications = COALESCE($4, certifications),
			years_experience = COALESCE($5, years_experience),
			avail_weekdays = COALESCE($6, avail_weekdays),
			avail_weekends = COALESCE($7, avail_weekends),
			avail_evenings = COALESCE($8, avail_evenings),
			avail_notes = COALESCE($9, avail_notes),
			travel_radius_miles = COALESCE($10, travel_radius_miles),
			home_city = COALESCE($11, home_city),
			home_state = COALESCE($12, home_state),
			home_lat = COALESCE($13, home_lat),
			home_lng = COALESCE($14, home_lng),
			payment_preference = COALESCE($15, payment_preference),
			active = COALESCE($16, active),
			updated_at = $17
		WHERE id = $1
		RETURNING `+profileColumns,
		id, req.DisplayName, sports, certsBytes, sqlutil.ToSqlInt32(req.YearsExperience),
		weekdays, weekends, evenings, availNotes,
		sqlutil.ToSqlInt32(req.TravelRadiusMiles), homeCity, homeState, homeLat, homeLng,
		sqlutil.ToSqlString(req.PaymentPreference), req.Active, now,
	)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

func (r *Repository) SetVerificationStatus(ctx context.Context, id uuid.UUID, status models.VerificationStatus, now time.Time) (*models.RefereeProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE referee_profiles SET verification_status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+profileColumns,
		id, string(status), now)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to set verification status: %w", err)
	}
	return profile, nil
}

// ApplyRating folds one overall score into the profile's running average in a
// single statement, so concurrent reviewers never lose updates.
func (r *Repository) ApplyRating(ctx context.Context, q sqlutil.Querier, refereeID uuid.UUID, overall int, now time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE referee_profiles
		SET average_rating = (average_rating * total_ratings + $2) / (total_ratings + 1),
		    total_ratings = total_ratings + 1,
		    updated_at = $3
		WHERE id = $1`,
		refereeID, overall, now)
	if err != nil {
		return fmt.Errorf("failed to apply rating: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStats replaces the denormalized aggregate counters on the profile.
func (r *Repository) SetStats(ctx context.Context, id uuid.UUID, stats models.RefereeStats, now time.Time) error {
	statsBytes, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE referee_profiles SET stats = $2, updated_at = $3 WHERE id = $1`,
		id, statsBytes, now)
	if err != nil {
		return fmt.Errorf("failed to set stats: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Search returns active profiles matching the filter, sorted by average
// rating descending. Travel-radius filtering happens in the app layer since
// it needs great-circle math.
func (r *Repository) Search(ctx context.Context, filter SearchFilter) ([]models.RefereeProfile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM referee_profiles
		WHERE active = TRUE
		  AND ($1 = '' OR $1 = ANY(sports))
		  AND (NOT $2 OR verification_status = $3)
		  AND ($4::boolean IS NULL OR avail_weekdays = $4)
		  AND ($5::boolean IS NULL OR avail_weekends = $5)
		  AND ($6::boolean IS NULL OR avail_evenings = $6)
		  AND ($7::float8 IS NULL OR average_rating >= $7)
		ORDER BY average_rating DESC, total_ratings DESC
		LIMIT CASE WHEN $8 > 0 THEN $8 ELSE NULL END`,
		filter.Sport, filter.VerifiedOnly, string(models.VerificationVerified),
		filter.Weekdays, filter.Weekends, filter.Evenings, filter.MinRating, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}
	defer rows.Close()

	var out []models.RefereeProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.RefereeProfile, error) {
	var (
		p          models.RefereeProfile
		sports     pq.StringArray
		certsBytes []byte
		statsBytes []byte
		verStatus  string
	)

	err := row.Scan(
		&p.ID, &p.UserID, &p.DisplayName, &sports, &certsBytes, &p.YearsExperience,
		&p.Availability.Weekdays, &p.Availability.Weekends, &p.Availability.Evenings, &p.Availability.Notes,
		&p.TravelRadiusMiles, &p.HomeLocation.City, &p.HomeLocation.State,
		&p.HomeLocation.Latitude, &p.HomeLocation.Longitude,
		&p.PaymentPreference, &verStatus, &statsBytes,
		&p.AverageRating, &p.TotalRatings, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Sports = sports
	p.VerificationStatus = models.VerificationStatus(verStatus)
	if len(certsBytes) > 0 {
		if err := json.Unmarshal(certsBytes, &p.Certifications); err != nil {
			return nil, fmt.Errorf("failed to unmarshal certifications: %w", err)
		}
	}
	if len(statsBytes) > 0 {
		if err := json.Unmarshal(statsBytes, &p.Stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
		}
	}

	return &p, nil
}
