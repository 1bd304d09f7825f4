package services

import (
	"time"

	"companion-booking-server/models"
)

// GracePeriod is how long past a session's scheduled end its chat stays
// reachable.
const GracePeriod = 30 * time.Minute

// DeriveChatWindow computes the chat window for a booking. Pure; called only
// from the accept branch of RespondToBooking. The booking_id unique index
// guarantees it is materialized at most once per booking.
func DeriveChatWindow(booking *models.Booking) models.ChatWindow {
	return models.ChatWindow{
		BookingID:         booking.ID,
		StartsAt:          booking.StartsAt,
		EndsAt:            booking.EndsAt,
		GracePeriodEndsAt: booking.EndsAt.Add(GracePeriod),
		IsActive:          true,
	}
}

// IsChatReachable reports whether the chat tied to a booking is currently
// usable. Both boundaries are inclusive. The truth value changes purely as a
// function of wall-clock time, so interactive callers must re-evaluate it on
// every render or poll.
func IsChatReachable(window *models.ChatWindow, status models.BookingStatus, now time.Time) bool {
	switch status {
	case models.BookingStatusAccepted, models.BookingStatusActive, models.BookingStatusCompleted:
	default:
		return false
	}
	if !window.IsActive {
		return false
	}
	return !now.Before(window.StartsAt) && !now.After(window.GracePeriodEndsAt)
}
