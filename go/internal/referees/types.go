package referees

import (
	"github.com/google/uuid"
	"github.com/refcrew/refcrew/go/internal/models"
)

// CreateProfileRequest represents a referee signing up to the directory.
type CreateProfileRequest struct {
	UserID            uuid.UUID              `json:"user_id"`
	DisplayName       string                 `json:"display_name"`
	Sports            []string               `json:"sports"`
	Certifications    []models.Certification `json:"certifications,omitempty"`
	YearsExperience   int                    `json:"years_experience"`
	Availability      models.Availability    `json:"availability"`
	TravelRadiusMiles int                    `json:"travel_radius_miles"`
	HomeLocation      models.Location        `json:"home_location"`
	PaymentPreference string                 `json:"payment_preference,omitempty"`
}

// UpdateProfileRequest represents an owner edit of a profile. Nil fields are
// left unchanged.
type UpdateProfileRequest struct {
	DisplayName       *string                 `json:"display_name,omitempty"`
	Sports            *[]string               `json:"sports,omitempty"`
	Certifications    *[]models.Certification `json:"certifications,omitempty"`
	YearsExperience   *int                    `json:"years_experience,omitempty"`
	Availability      *models.Availability    `json:"availability,omitempty"`
	TravelRadiusMiles *int                    `json:"travel_radius_miles,omitempty"`
	HomeLocation      *models.Location        `json:"home_location,omitempty"`
	PaymentPreference *string                 `json:"payment_preference,omitempty"`
	Active            *bool                   `json:"active,omitempty"`
}

// SearchFilter narrows directory searches. Results are sorted by average
// rating, best first.
type SearchFilter struct {
	Sport        string           `json:"sport,omitempty"`
	VerifiedOnly bool             `json:"verified_only,omitempty"`
	Weekdays     *bool            `json:"weekdays,omitempty"`
	Weekends     *bool            `json:"weekends,omitempty"`
	Evenings     *bool            `json:"evenings,omitempty"`
	MinRating    *float64         `json:"min_rating,omitempty"`
	Near         *models.Location `json:"near,omitempty"`
	Limit        int32            `json:"limit,omitempty"`
}
