package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentRequest records a companion asking the user to pay for a booking.
// The payment itself happens outside the app; we only track the request,
// the optional QR image the companion uploaded, and when it was settled.
type PaymentRequest struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	BookingID   uint           `json:"booking_id" gorm:"uniqueIndex;not null"`
	Booking     Booking        `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	Amount      float64        `json:"amount" gorm:"type:decimal(10,2);not null"`
	QRImageURL  string         `json:"qr_image_url" gorm:"size:512"`
	RequestedAt time.Time      `json:"requested_at" gorm:"not null"`
	PaidAt      *time.Time     `json:"paid_at"`
	ConfirmedAt *time.Time     `json:"confirmed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for PaymentRequest
func (PaymentRequest) TableName() string {
	return "payment_requests"
}
