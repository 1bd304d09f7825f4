package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Activity labels a companion can offer. Bookings must reference one of these.
const (
	ActivityDinner   = "dinner"
	ActivityMovie    = "movie"
	ActivityCoffee   = "coffee"
	ActivityCityTour = "city_tour"
	ActivityShopping = "shopping"
	ActivityEvent    = "event"
	ActivityWorkout  = "workout"
)

var ActivityLabels = []string{
	ActivityDinner,
	ActivityMovie,
	ActivityCoffee,
	ActivityCityTour,
	ActivityShopping,
	ActivityEvent,
	ActivityWorkout,
}

// IsValidActivity reports whether label belongs to the fixed activity set.
func IsValidActivity(label string) bool {
	for _, a := range ActivityLabels {
		if a == label {
			return true
		}
	}
	return false
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// CompanionProfile holds the service-providing side of a user account.
type CompanionProfile struct {
	ID                 uint               `json:"id" gorm:"primaryKey"`
	UserID             uint               `json:"user_id" gorm:"uniqueIndex;not null"`
	User               User               `json:"user,omitempty" gorm:"foreignKey:UserID"`
	DisplayName        string             `json:"display_name" gorm:"size:100;not null"`
	Bio                string             `json:"bio" gorm:"type:text"`
	City               string             `json:"city" gorm:"size:100;index"`
	HourlyRate         float64            `json:"hourly_rate" gorm:"type:decimal(10,2);not null"`
	Activities         string             `json:"activities" gorm:"type:text"` // comma-separated activity labels
	PhotoURL           string             `json:"photo_url" gorm:"size:512"`
	IsAvailable        bool               `json:"is_available" gorm:"default:true"`
	VerificationStatus VerificationStatus `json:"verification_status" gorm:"type:varchar(20);default:'pending'"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	DeletedAt          gorm.DeletedAt     `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for CompanionProfile
func (CompanionProfile) TableName() string {
	return "companion_profiles"
}

// ActivityList splits the stored activities into labels.
func (p *CompanionProfile) ActivityList() []string {
	if p.Activities == "" {
		return nil
	}
	parts := strings.Split(p.Activities, ",")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// OffersActivity reports whether the companion has declared the given label.
func (p *CompanionProfile) OffersActivity(label string) bool {
	for _, a := range p.ActivityList() {
		if a == label {
			return true
		}
	}
	return false
}

// IsVerified reports whether the companion passed identity review.
func (p *CompanionProfile) IsVerified() bool {
	return p.VerificationStatus == VerificationApproved
}
