package models

import (
	"time"

	"gorm.io/gorm"
)

// ChatWindow is the time range during which in-app messaging tied to a
// booking is reachable. Created exactly once, when the booking is accepted;
// never recreated and never deleted, it simply falls out of reach once the
// grace period passes.
type ChatWindow struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	BookingID         uint       `json:"booking_id" gorm:"uniqueIndex;not null"`
	Booking           Booking    `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	StartsAt          time.Time  `json:"starts_at" gorm:"not null"`
	EndsAt            time.Time  `json:"ends_at" gorm:"not null"`
	GracePeriodEndsAt time.Time  `json:"grace_period_ends_at" gorm:"not null"`
	IsActive          bool       `json:"is_active" gorm:"default:true"` // cleared by moderation
	LastMessageAt     *time.Time `json:"last_message_at"`
	LastMessageText   string     `json:"last_message_text"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ChatMessage is a single message inside a chat window.
type ChatMessage struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	ChatWindowID uint           `json:"chat_window_id" gorm:"not null;index"`
	SenderID     uint           `json:"sender_id" gorm:"not null"`
	SenderRole   string         `json:"sender_role" gorm:"size:20;not null"` // "user" or "companion"
	Content      string         `json:"content" gorm:"type:text;not null"`
	IsRead       bool           `json:"is_read" gorm:"default:false"`
	ReadAt       *time.Time     `json:"read_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for ChatWindow
func (ChatWindow) TableName() string {
	return "chat_windows"
}

// TableName specifies the table name for ChatMessage
func (ChatMessage) TableName() string {
	return "chat_messages"
}
