package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"companion-booking-server/models"
)

// Every booking operation reports failures through one of the error kinds
// below. All of them are recoverable: handlers translate them into JSON
// responses and the caller re-prompts or refreshes.

// InvalidScheduleError means the requested date/time is in the past or the
// duration is out of allowed bounds.
type InvalidScheduleError struct {
	Reason string
}

func (e *InvalidScheduleError) Error() string {
	return "invalid schedule: " + e.Reason
}

// SchedulingConflictError means the companion already holds an overlapping
// accepted or active booking.
type SchedulingConflictError struct {
	CompanionID uint
}

func (e *SchedulingConflictError) Error() string {
	return fmt.Sprintf("companion %d is already booked in the requested window", e.CompanionID)
}

// InvalidTransitionError means an operation was attempted on a booking whose
// current status forbids it, or the actor is not the expected party. It
// carries the attempted transition so callers can log precisely; UIs are
// expected to refresh rather than surface it raw.
type InvalidTransitionError struct {
	BookingID uint
	Attempted string
	Status    models.BookingStatus
	Payment   models.PaymentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking %d: cannot %s (status=%s, payment_status=%s)",
		e.BookingID, e.Attempted, e.Status, e.Payment)
}

// NotFoundError means the referenced booking or companion does not exist.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ErrActivityNotOffered rejects a booking whose activity label is not among
// the companion's declared activities.
var ErrActivityNotOffered = errors.New("activity not offered by companion")

// isUniqueViolation detects a unique-constraint failure from Postgres
// (lib/pq error 23505), from GORM's translated error, or from SQLite when
// running under the test driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
