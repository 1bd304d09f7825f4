package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleCompanion UserRole = "companion"
	RoleAdmin     UserRole = "admin"
)

type User struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	FullName          string     `json:"full_name" gorm:"size:255;not null"`
	PhoneNumber       string     `json:"phone_number" gorm:"size:20;uniqueIndex;not null"`
	PasswordHash      string     `json:"-" gorm:"size:255;not null"` // Hidden from JSON
	Role              UserRole   `json:"role" gorm:"type:varchar(20);not null;default:'user';check:role IN ('user','companion','admin')"`
	ProfilePictureURL *string    `json:"profile_picture_url" gorm:"size:255"`
	IsActive          bool       `json:"is_active" gorm:"default:true"`
	IsBanned          bool       `json:"is_banned" gorm:"default:false"`
	BanReason         *string    `json:"ban_reason,omitempty" gorm:"size:500"`
	LastSeenAt        *time.Time `json:"last_seen_at"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Bookings []Booking `json:"bookings,omitempty" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate is a GORM hook that runs before creating a user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// IsValidRole checks if the user role is valid
func (u *User) IsValidRole() bool {
	switch u.Role {
	case RoleUser, RoleCompanion, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsCompanion checks if the user is a companion
func (u *User) IsCompanion() bool {
	return u.Role == RoleCompanion
}

// IsAdmin checks if the user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
