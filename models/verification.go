package models

import (
	"time"

	"gorm.io/gorm"
)

// VerificationRequest is a companion's identity document submission awaiting
// admin review.
type VerificationRequest struct {
	ID          uint               `json:"id" gorm:"primaryKey"`
	CompanionID uint               `json:"companion_id" gorm:"not null;index"`
	Companion   CompanionProfile   `json:"companion,omitempty" gorm:"foreignKey:CompanionID"`
	DocumentURL string             `json:"document_url" gorm:"size:512;not null"`
	Status      VerificationStatus `json:"status" gorm:"type:varchar(20);default:'pending'"`
	ReviewedBy  *uint              `json:"reviewed_by"`
	ReviewNote  string             `json:"review_note" gorm:"size:500"`
	ReviewedAt  *time.Time         `json:"reviewed_at"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	DeletedAt   gorm.DeletedAt     `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for VerificationRequest
func (VerificationRequest) TableName() string {
	return "verification_requests"
}

type ComplaintStatus string

const (
	ComplaintOpen      ComplaintStatus = "open"
	ComplaintResolved  ComplaintStatus = "resolved"
	ComplaintDismissed ComplaintStatus = "dismissed"
)

// Complaint is raised against a booking (e.g. a payment dispute) and handled
// by the admin back office.
type Complaint struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	BookingID  uint            `json:"booking_id" gorm:"not null;index"`
	Booking    Booking         `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	RaisedBy   uint            `json:"raised_by" gorm:"not null"`
	Reason     string          `json:"reason" gorm:"size:1000;not null"`
	Status     ComplaintStatus `json:"status" gorm:"type:varchar(20);default:'open'"`
	ResolvedBy *uint           `json:"resolved_by"`
	Resolution string          `json:"resolution" gorm:"size:1000"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for Complaint
func (Complaint) TableName() string {
	return "complaints"
}
