package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"companion-booking-server/config"
	"companion-booking-server/models"
)

// A booking can never exceed 24 hours; deployments may configure a lower cap.
const (
	minDurationHours        = 1
	defaultMaxDurationHours = 24
)

// BookingService owns the booking lifecycle: status and payment transitions,
// the double-booking guard, and chat-window creation on acceptance. All
// writes go through conditional updates keyed on the expected prior status,
// so concurrent conflicting transitions lose with an InvalidTransitionError
// instead of clobbering each other.
type BookingService struct {
	db          *gorm.DB
	clock       Clock
	notifier    Notifier
	maxDuration int
}

// NewBookingService creates a booking service. The duration cap comes from
// configuration when loaded, clamped to the 24-hour ceiling.
func NewBookingService(db *gorm.DB, clock Clock, notifier Notifier) *BookingService {
	maxDuration := defaultMaxDurationHours
	if config.AppConfig != nil {
		if v := config.AppConfig.Booking.MaxDurationHours; v >= minDurationHours && v <= defaultMaxDurationHours {
			maxDuration = v
		}
	}
	return &BookingService{db: db, clock: clock, notifier: notifier, maxDuration: maxDuration}
}

// CreateBookingInput carries a user's booking request.
type CreateBookingInput struct {
	UserID        uint
	CompanionID   uint
	Date          string // YYYY-MM-DD
	StartTime     string // HH:MM
	DurationHours int
	Activity      string
	HourlyRate    float64
}

// CreateBooking validates the request and persists a pending booking.
// The hourly rate is snapshotted onto the row and the total amount frozen;
// neither is ever recomputed.
func (s *BookingService) CreateBooking(input CreateBookingInput) (*models.Booking, error) {
	if input.DurationHours < minDurationHours || input.DurationHours > s.maxDuration {
		return nil, &InvalidScheduleError{
			Reason: fmt.Sprintf("duration must be between %d and %d hours", minDurationHours, s.maxDuration),
		}
	}

	startsAt, err := CombineSchedule(input.Date, input.StartTime)
	if err != nil {
		return nil, err
	}
	if !startsAt.After(s.clock.Now()) {
		return nil, &InvalidScheduleError{Reason: "requested time is in the past"}
	}
	endsAt := startsAt.Add(time.Duration(input.DurationHours) * time.Hour)

	var companion models.CompanionProfile
	if err := s.db.First(&companion, input.CompanionID).Error; err != nil {
		return nil, &NotFoundError{Entity: "companion", ID: input.CompanionID}
	}
	if !models.IsValidActivity(input.Activity) || !companion.OffersActivity(input.Activity) {
		return nil, ErrActivityNotOffered
	}
	if input.HourlyRate <= 0 {
		return nil, &InvalidScheduleError{Reason: "hourly rate must be positive"}
	}

	booking := models.Booking{
		UserID:        input.UserID,
		CompanionID:   input.CompanionID,
		Date:          input.Date,
		StartTime:     input.StartTime,
		DurationHours: input.DurationHours,
		Activity:      input.Activity,
		HourlyRate:    input.HourlyRate,
		TotalAmount:   input.HourlyRate * float64(input.DurationHours),
		Status:        models.BookingStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		StartsAt:      startsAt,
		EndsAt:        endsAt,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Double-booking guard: the companion must not already hold an
		// accepted or active booking overlapping the requested window.
		var overlapping int64
		if err := tx.Model(&models.Booking{}).
			Where("companion_id = ? AND status IN (?, ?) AND starts_at < ? AND ends_at > ?",
				input.CompanionID,
				models.BookingStatusAccepted, models.BookingStatusActive,
				endsAt, startsAt).
			Count(&overlapping).Error; err != nil {
			return err
		}
		if overlapping > 0 {
			return &SchedulingConflictError{CompanionID: input.CompanionID}
		}
		return tx.Create(&booking).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(companion.UserID, "booking_created", "New booking request",
		fmt.Sprintf("You have a new %s booking request for %s %s", booking.Activity, booking.Date, booking.StartTime),
		map[string]interface{}{"booking_id": booking.ID})

	return &booking, nil
}

// RespondToBooking lets the booking's companion accept or reject a pending
// booking. Accepting also materializes the chat window, in the same
// transaction; the unique booking_id index backstops double-creation races.
func (s *BookingService) RespondToBooking(bookingID, companionUserID uint, accept bool) (*models.Booking, error) {
	booking, companion, err := s.fetchBookingWithCompanion(bookingID)
	if err != nil {
		return nil, err
	}
	if companion.UserID != companionUserID {
		return nil, s.transitionError(booking, "respond")
	}

	newStatus := models.BookingStatusRejected
	if accept {
		newStatus = models.BookingStatusAccepted
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingID, models.BookingStatusPending).
			Update("status", newStatus)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.transitionError(booking, "respond")
		}
		if accept {
			window := DeriveChatWindow(booking)
			if err := tx.Create(&window).Error; err != nil {
				if isUniqueViolation(err) {
					return s.transitionError(booking, "respond")
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.Status = newStatus
	if accept {
		s.notifier.Notify(booking.UserID, "booking_accepted", "Booking accepted",
			fmt.Sprintf("Your %s booking for %s %s was accepted", booking.Activity, booking.Date, booking.StartTime),
			map[string]interface{}{"booking_id": booking.ID})
	} else {
		s.notifier.Notify(booking.UserID, "booking_rejected", "Booking rejected",
			fmt.Sprintf("Your %s booking for %s %s was declined", booking.Activity, booking.Date, booking.StartTime),
			map[string]interface{}{"booking_id": booking.ID})
	}

	return booking, nil
}

// CancelBooking cancels a pending booking. Either party may cancel; once a
// booking has been accepted it can no longer be cancelled.
func (s *BookingService) CancelBooking(bookingID, actorID uint, reason string) (*models.Booking, error) {
	booking, companion, err := s.fetchBookingWithCompanion(bookingID)
	if err != nil {
		return nil, err
	}
	if actorID != booking.UserID && actorID != companion.UserID {
		return nil, s.transitionError(booking, "cancel")
	}

	updates := map[string]interface{}{
		"status":       models.BookingStatusCancelled,
		"cancelled_by": actorID,
	}
	if reason != "" {
		updates["cancellation_reason"] = reason
	}

	res := s.db.Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingID, models.BookingStatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.transitionError(booking, "cancel")
	}

	booking.Status = models.BookingStatusCancelled
	booking.CancelledBy = &actorID

	counterparty := booking.UserID
	if actorID == booking.UserID {
		counterparty = companion.UserID
	}
	s.notifier.Notify(counterparty, "booking_cancelled", "Booking cancelled",
		fmt.Sprintf("The %s booking for %s %s was cancelled", booking.Activity, booking.Date, booking.StartTime),
		map[string]interface{}{"booking_id": booking.ID, "reason": reason})

	return booking, nil
}

// RequestPayment moves the payment axis from pending to requested and
// records a payment request for the frozen total amount. Only the companion
// may call it, and only while the booking is accepted or active.
func (s *BookingService) RequestPayment(bookingID, companionUserID uint, qrImageURL string) (*models.Booking, error) {
	booking, companion, err := s.fetchBookingWithCompanion(bookingID)
	if err != nil {
		return nil, err
	}
	if companion.UserID != companionUserID {
		return nil, s.transitionError(booking, "request payment")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status IN (?, ?) AND payment_status = ?",
				bookingID,
				models.BookingStatusAccepted, models.BookingStatusActive,
				models.PaymentStatusPending).
			Update("payment_status", models.PaymentStatusRequested)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.transitionError(booking, "request payment")
		}

		request := models.PaymentRequest{
			BookingID:   bookingID,
			Amount:      booking.TotalAmount,
			QRImageURL:  qrImageURL,
			RequestedAt: s.clock.Now(),
		}
		if err := tx.Create(&request).Error; err != nil && !isUniqueViolation(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.PaymentStatus = models.PaymentStatusRequested
	s.notifier.Notify(booking.UserID, "payment_requested", "Payment requested",
		fmt.Sprintf("Payment of %.2f was requested for your %s booking", booking.TotalAmount, booking.Activity),
		map[string]interface{}{"booking_id": booking.ID, "amount": booking.TotalAmount})

	return booking, nil
}

// MarkPaymentSent records the user-side "I have paid" action, moving the
// payment axis from requested to paid. Confirmation stays with the companion.
func (s *BookingService) MarkPaymentSent(bookingID, userID uint) (*models.Booking, error) {
	booking, companion, err := s.fetchBookingWithCompanion(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, s.transitionError(booking, "mark payment sent")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status IN (?, ?) AND payment_status = ?",
				bookingID,
				models.BookingStatusAccepted, models.BookingStatusActive,
				models.PaymentStatusRequested).
			Update("payment_status", models.PaymentStatusPaid)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.transitionError(booking, "mark payment sent")
		}
		now := s.clock.Now()
		return tx.Model(&models.PaymentRequest{}).
			Where("booking_id = ?", bookingID).
			Update("paid_at", now).Error
	})
	if err != nil {
		return nil, err
	}

	booking.PaymentStatus = models.PaymentStatusPaid
	s.notifier.Notify(companion.UserID, "payment_sent", "Payment sent",
		fmt.Sprintf("The user reports payment of %.2f for the %s booking", booking.TotalAmount, booking.Activity),
		map[string]interface{}{"booking_id": booking.ID})

	return booking, nil
}

// ConfirmPayment is the companion confirming receipt. It sets
// payment_status=confirmed AND status=completed in a single UPDATE so no
// reader can ever observe one without the other.
func (s *BookingService) ConfirmPayment(bookingID, companionUserID uint) (*models.Booking, error) {
	booking, companion, err := s.fetchBookingWithCompanion(bookingID)
	if err != nil {
		return nil, err
	}
	if companion.UserID != companionUserID {
		return nil, s.transitionError(booking, "confirm payment")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status IN (?, ?) AND payment_status = ?",
				bookingID,
				models.BookingStatusAccepted, models.BookingStatusActive,
				models.PaymentStatusPaid).
			Updates(map[string]interface{}{
				"payment_status": models.PaymentStatusConfirmed,
				"status":         models.BookingStatusCompleted,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.transitionError(booking, "confirm payment")
		}
		now := s.clock.Now()
		return tx.Model(&models.PaymentRequest{}).
			Where("booking_id = ?", bookingID).
			Update("confirmed_at", now).Error
	})
	if err != nil {
		return nil, err
	}

	booking.PaymentStatus = models.PaymentStatusConfirmed
	booking.Status = models.BookingStatusCompleted
	s.notifier.Notify(booking.UserID, "payment_confirmed", "Booking completed",
		fmt.Sprintf("Payment confirmed; your %s booking is complete", booking.Activity),
		map[string]interface{}{"booking_id": booking.ID})

	return booking, nil
}

// DisputePayment freezes the payment axis at disputed and raises a complaint
// for the admin back office. The booking status is left untouched.
func (s *BookingService) DisputePayment(bookingID, actorID uint, reason string) (*models.Booking, error) {
	booking, companion, err := s.fetchBookingWithCompanion(bookingID)
	if err != nil {
		return nil, err
	}
	if actorID != booking.UserID && actorID != companion.UserID {
		return nil, s.transitionError(booking, "dispute payment")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND payment_status IN (?, ?)",
				bookingID, models.PaymentStatusRequested, models.PaymentStatusPaid).
			Update("payment_status", models.PaymentStatusDisputed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.transitionError(booking, "dispute payment")
		}
		complaint := models.Complaint{
			BookingID: bookingID,
			RaisedBy:  actorID,
			Reason:    reason,
			Status:    models.ComplaintOpen,
		}
		return tx.Create(&complaint).Error
	})
	if err != nil {
		return nil, err
	}

	booking.PaymentStatus = models.PaymentStatusDisputed

	counterparty := booking.UserID
	if actorID == booking.UserID {
		counterparty = companion.UserID
	}
	s.notifier.Notify(counterparty, "payment_disputed", "Payment disputed",
		fmt.Sprintf("The payment for the %s booking on %s was disputed", booking.Activity, booking.Date),
		map[string]interface{}{"booking_id": booking.ID, "reason": reason})

	return booking, nil
}

// ActivateDueBookings flips accepted bookings whose start time has passed to
// active. Called periodically by the session job.
func (s *BookingService) ActivateDueBookings() (int64, error) {
	res := s.db.Model(&models.Booking{}).
		Where("status = ? AND starts_at <= ?", models.BookingStatusAccepted, s.clock.Now()).
		Update("status", models.BookingStatusActive)
	return res.RowsAffected, res.Error
}

// GetBooking loads a booking visible to the given actor (user or companion).
func (s *BookingService) GetBooking(bookingID, actorID uint) (*models.Booking, error) {
	booking, companion, err := s.fetchBookingWithCompanion(bookingID)
	if err != nil {
		return nil, err
	}
	if actorID != booking.UserID && actorID != companion.UserID {
		return nil, &NotFoundError{Entity: "booking", ID: bookingID}
	}
	return booking, nil
}

// ChatWindowFor returns the chat window for a booking along with the owning
// booking's current status, for reachability evaluation.
func (s *BookingService) ChatWindowFor(bookingID uint) (*models.ChatWindow, models.BookingStatus, error) {
	var window models.ChatWindow
	if err := s.db.Where("booking_id = ?", bookingID).First(&window).Error; err != nil {
		return nil, "", &NotFoundError{Entity: "chat window", ID: bookingID}
	}
	var booking models.Booking
	if err := s.db.First(&booking, bookingID).Error; err != nil {
		return nil, "", &NotFoundError{Entity: "booking", ID: bookingID}
	}
	return &window, booking.Status, nil
}

func (s *BookingService) fetchBookingWithCompanion(bookingID uint) (*models.Booking, *models.CompanionProfile, error) {
	var booking models.Booking
	if err := s.db.First(&booking, bookingID).Error; err != nil {
		return nil, nil, &NotFoundError{Entity: "booking", ID: bookingID}
	}
	var companion models.CompanionProfile
	if err := s.db.First(&companion, booking.CompanionID).Error; err != nil {
		return nil, nil, &NotFoundError{Entity: "companion", ID: booking.CompanionID}
	}
	return &booking, &companion, nil
}

func (s *BookingService) transitionError(booking *models.Booking, attempted string) error {
	return &InvalidTransitionError{
		BookingID: booking.ID,
		Attempted: attempted,
		Status:    booking.Status,
		Payment:   booking.PaymentStatus,
	}
}

// CombineSchedule merges a calendar date and a time-of-day string into an
// absolute UTC instant.
func CombineSchedule(date, startTime string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, &InvalidScheduleError{Reason: "date must be YYYY-MM-DD"}
	}
	t, err := time.Parse("15:04", startTime)
	if err != nil {
		return time.Time{}, &InvalidScheduleError{Reason: "start time must be HH:MM"}
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
