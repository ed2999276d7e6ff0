package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationStatus defines the admin verification state of a referee profile.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "UNVERIFIED"
	VerificationPending    VerificationStatus = "PENDING"
	VerificationVerified   VerificationStatus = "VERIFIED"
	VerificationRejected   VerificationStatus = "REJECTED"
)

// Certification is one officiating credential held by a referee.
type Certification struct {
	Sport        string     `json:"sport"`
	Organization string     `json:"organization"`
	Verified     bool       `json:"verified"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Availability holds a referee's recurring availability windows.
type Availability struct {
	Weekdays bool   `json:"weekdays"`
	Weekends bool   `json:"weekends"`
	Evenings bool   `json:"evenings"`
	Notes    string `json:"notes,omitempty"`
}

// Location is a point used for travel-radius matching.
type Location struct {
	City      string  `json:"city"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RefereeStats holds the aggregate counters denormalized onto the profile.
type RefereeStats struct {
	TotalGamesAllTime int            `json:"total_games_all_time"`
	GamesThisSeason   int            `json:"games_this_season"`
	SportBreakdown    map[string]int `json:"sport_breakdown,omitempty"`
}

// RefereeProfile represents a referee's directory record.
// Profiles are never hard-deleted, only deactivated.
type RefereeProfile struct {
	ID                 uuid.UUID          `json:"id"`
	UserID             uuid.UUID          `json:"user_id"`
	DisplayName        string             `json:"display_name"`
	Sports             []string           `json:"sports"`
	Certifications     []Certification    `json:"certifications,omitempty"`
	YearsExperience    int                `json:"years_experience"`
	Availability       Availability       `json:"availability"`
	TravelRadiusMiles  int                `json:"travel_radius_miles"`
	HomeLocation       Location           `json:"home_location"`
	PaymentPreference  string             `json:"payment_preference,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	Stats              RefereeStats       `json:"stats"`
	AverageRating      float64            `json:"average_rating"`
	TotalRatings       int                `json:"total_ratings"`
	Active             bool               `json:"active"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}
