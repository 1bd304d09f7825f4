package models

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// IsTerminal reports whether no further status transition is allowed.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusRequested PaymentStatus = "requested"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusDisputed  PaymentStatus = "disputed"
)

// Booking is a request for a time-boxed companionship session between a user
// and a companion. Status and payment status are independent axes; a booking
// only reaches completed together with payment confirmation.
type Booking struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	UserID        uint          `json:"user_id" gorm:"not null;index"`
	CompanionID   uint          `json:"companion_id" gorm:"not null;index"`
	Date          string        `json:"date" gorm:"size:10;not null"`      // YYYY-MM-DD
	StartTime     string        `json:"start_time" gorm:"size:5;not null"` // HH:MM, local to UTC
	DurationHours int           `json:"duration_hours" gorm:"not null"`
	Activity      string        `json:"activity" gorm:"size:50;not null"`
	HourlyRate    float64       `json:"hourly_rate" gorm:"type:decimal(10,2);not null"`  // snapshot, immutable
	TotalAmount   float64       `json:"total_amount" gorm:"type:decimal(10,2);not null"` // frozen at creation
	Status        BookingStatus `json:"status" gorm:"type:varchar(20);default:'pending';check:status IN ('pending','accepted','rejected','active','completed','cancelled')"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'pending';check:payment_status IN ('pending','requested','paid','confirmed','disputed')"`

	// Schedule window, materialized at creation so the double-booking guard
	// is a plain range query.
	StartsAt time.Time `json:"starts_at" gorm:"not null;index"`
	EndsAt   time.Time `json:"ends_at" gorm:"not null"`

	CancelledBy        *uint   `json:"cancelled_by"`
	CancellationReason *string `json:"cancellation_reason" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	User      User             `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Companion CompanionProfile `json:"companion,omitempty" gorm:"foreignKey:CompanionID"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}
