package services

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"companion-booking-server/config"
	"companion-booking-server/database"
	"companion-booking-server/models"
)

var testDBCounter int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:booking_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func createTestUser(t *testing.T, db *gorm.DB, role models.UserRole, phone string) *models.User {
	t.Helper()
	user := models.User{
		FullName:     "Test " + string(role),
		PhoneNumber:  phone,
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createTestCompanion(t *testing.T, db *gorm.DB, phone string) (*models.User, *models.CompanionProfile) {
	t.Helper()
	user := createTestUser(t, db, models.RoleCompanion, phone)
	profile := models.CompanionProfile{
		UserID:             user.ID,
		DisplayName:        "Companion",
		City:               "Lisbon",
		HourlyRate:         500,
		Activities:         "dinner,coffee,movie",
		IsAvailable:        true,
		VerificationStatus: models.VerificationApproved,
	}
	require.NoError(t, db.Create(&profile).Error)
	return user, &profile
}

func newTestService(t *testing.T) (*BookingService, *gorm.DB, *fakeClock) {
	t.Helper()
	db := newTestDB(t)
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewBookingService(db, clock, NopNotifier{}), db, clock
}

func TestCreateBooking(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	_, profile := createTestCompanion(t, db, "+101")

	booking, err := svc.CreateBooking(CreateBookingInput{
		UserID:        user.ID,
		CompanionID:   profile.ID,
		Date:          "2024-06-10",
		StartTime:     "18:00",
		DurationHours: 2,
		Activity:      models.ActivityDinner,
		HourlyRate:    500,
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
	assert.Equal(t, float64(1000), booking.TotalAmount)
	assert.Equal(t, time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC), booking.StartsAt.UTC())
	assert.Equal(t, time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC), booking.EndsAt.UTC())
}

func TestCreateBookingDurationCapFromConfig(t *testing.T) {
	prev := config.AppConfig
	config.AppConfig = &config.Config{Booking: config.BookingConfig{MaxDurationHours: 4}}
	t.Cleanup(func() { config.AppConfig = prev })

	svc, db, _ := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	_, profile := createTestCompanion(t, db, "+101")

	input := CreateBookingInput{
		UserID:        user.ID,
		CompanionID:   profile.ID,
		Date:          "2024-06-10",
		StartTime:     "18:00",
		DurationHours: 5,
		Activity:      models.ActivityDinner,
		HourlyRate:    500,
	}

	var schedErr *InvalidScheduleError
	_, err := svc.CreateBooking(input)
	assert.ErrorAs(t, err, &schedErr)

	input.DurationHours = 4
	_, err = svc.CreateBooking(input)
	assert.NoError(t, err)
}

func TestCreateBookingValidation(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	_, profile := createTestCompanion(t, db, "+101")

	valid := CreateBookingInput{
		UserID:        user.ID,
		CompanionID:   profile.ID,
		Date:          "2024-06-10",
		StartTime:     "18:00",
		DurationHours: 2,
		Activity:      models.ActivityDinner,
		HourlyRate:    500,
	}

	var schedErr *InvalidScheduleError

	tooShort := valid
	tooShort.DurationHours = 0
	_, err := svc.CreateBooking(tooShort)
	assert.ErrorAs(t, err, &schedErr)

	tooLong := valid
	tooLong.DurationHours = 25
	_, err = svc.CreateBooking(tooLong)
	assert.ErrorAs(t, err, &schedErr)

	past := valid
	past.Date = "2024-05-01"
	_, err = svc.CreateBooking(past)
	assert.ErrorAs(t, err, &schedErr)

	badDate := valid
	badDate.Date = "10/06/2024"
	_, err = svc.CreateBooking(badDate)
	assert.ErrorAs(t, err, &schedErr)

	badTime := valid
	badTime.StartTime = "6pm"
	_, err = svc.CreateBooking(badTime)
	assert.ErrorAs(t, err, &schedErr)

	unknownActivity := valid
	unknownActivity.Activity = "skydiving"
	_, err = svc.CreateBooking(unknownActivity)
	assert.ErrorIs(t, err, ErrActivityNotOffered)

	notOffered := valid
	notOffered.Activity = models.ActivityWorkout
	_, err = svc.CreateBooking(notOffered)
	assert.ErrorIs(t, err, ErrActivityNotOffered)

	noCompanion := valid
	noCompanion.CompanionID = 9999
	_, err = svc.CreateBooking(noCompanion)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRespondToBookingAccept(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	companionUser, profile := createTestCompanion(t, db, "+101")

	booking, err := svc.CreateBooking(CreateBookingInput{
		UserID:        user.ID,
		CompanionID:   profile.ID,
		Date:          "2024-06-10",
		StartTime:     "18:00",
		DurationHours: 2,
		Activity:      models.ActivityDinner,
		HourlyRate:    500,
	})
	require.NoError(t, err)

	accepted, err := svc.RespondToBooking(booking.ID, companionUser.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusAccepted, accepted.Status)

	var window models.ChatWindow
	require.NoError(t, db.Where("booking_id = ?", booking.ID).First(&window).Error)
	assert.Equal(t, time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC), window.StartsAt.UTC())
	assert.Equal(t, time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC), window.EndsAt.UTC())
	assert.Equal(t, time.Date(2024, 6, 10, 20, 30, 0, 0, time.UTC), window.GracePeriodEndsAt.UTC())
	assert.True(t, window.IsActive)
}

func TestRespondToBookingReject(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	companionUser, profile := createTestCompanion(t, db, "+101")

	booking, err := svc.CreateBooking(CreateBookingInput{
		UserID: user.ID, CompanionID: profile.ID,
		Date: "2024-06-10", StartTime: "18:00", DurationHours: 2,
		Activity: models.ActivityDinner, HourlyRate: 500,
	})
	require.NoError(t, err)

	rejected, err := svc.RespondToBooking(booking.ID, companionUser.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRejected, rejected.Status)

	var count int64
	db.Model(&models.ChatWindow{}).Where("booking_id = ?", booking.ID).Count(&count)
	assert.Zero(t, count)
}

func TestRespondToBookingAuthorization(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	_, profile := createTestCompanion(t, db, "+101")
	otherCompanion, _ := createTestCompanion(t, db, "+102")

	booking, err := svc.CreateBooking(CreateBookingInput{
		UserID: user.ID, CompanionID: profile.ID,
		Date: "2024-06-10", StartTime: "18:00", DurationHours: 2,
		Activity: models.ActivityDinner, HourlyRate: 500,
	})
	require.NoError(t, err)

	var transitionErr *InvalidTransitionError
	_, err = svc.RespondToBooking(booking.ID, otherCompanion.ID, true)
	assert.ErrorAs(t, err, &transitionErr)

	var stored models.Booking
	require.NoError(t, db.First(&stored, booking.ID).Error)
	assert.Equal(t, models.BookingStatusPending, stored.Status)
}

func TestRespondToBookingAlreadyDecided(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	companionUser, profile := createTestCompanion(t, db, "+101")

	booking, err := svc.CreateBooking(CreateBookingInput{
		UserID: user.ID, CompanionID: profile.ID,
		Date: "2024-06-10", StartTime: "18:00", DurationHours: 2,
		Activity: models.ActivityDinner, HourlyRate: 500,
	})
	require.NoError(t, err)

	_, err = svc.RespondToBooking(booking.ID, companionUser.ID, true)
	require.NoError(t, err)

	var transitionErr *InvalidTransitionError
	_, err = svc.RespondToBooking(booking.ID, companionUser.ID, false)
	assert.ErrorAs(t, err, &transitionErr)

	var stored models.Booking
	require.NoError(t, db.First(&stored, booking.ID).Error)
	assert.Equal(t, models.BookingStatusAccepted, stored.Status)
}

func TestDoubleBookingGuard(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	otherUser := createTestUser(t, db, models.RoleUser, "+103")
	companionUser, profile := createTestCompanion(t, db, "+101")

	first, err := svc.CreateBooking(CreateBookingInput{
		UserID: user.ID, CompanionID: profile.ID,
		Date: "2024-06-10", StartTime: "18:00", DurationHours: 2,
		Activity: models.ActivityDinner, HourlyRate: 500,
	})
	require.NoError(t, err)
	_, err = svc.RespondToBooking(first.ID, companionUser.ID, true)
	require.NoError(t, err)

	// Overlapping window while the first booking is accepted
	var conflictErr *SchedulingConflictError
	_, err = svc.CreateBooking(CreateBookingInput{
		UserID: otherUser.ID, CompanionID: profile.ID,
		Date: "2024-06-10", StartTime: "19:00", DurationHours: 2,
		Activity: models.ActivityCoffee, HourlyRate: 500,
	})
	assert.ErrorAs(t, err, &conflictErr)

	// Adjacent window starting exactly at the first booking's end is fine
	_, err = svc.CreateBooking(CreateBookingInput{
		UserID: otherUser.ID, CompanionID: profile.ID,
		Date: "2024-06-10", StartTime: "20:00", DurationHours: 2,
		Activity: models.ActivityCoffee, HourlyRate: 500,
	})
	assert.NoError(t, err)
}

func TestCancelBooking(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	companionUser, profile := createTestCompanion(t, db, "+101")
	stranger := createTestUser(t, db, models.RoleUser, "+104")

	booking, err := svc.CreateBooking(CreateBookingInput{
		UserID: user.ID, CompanionID: profile.ID,
		Date: "2024-06-10", StartTime: "18:00", DurationHours: 2,
		Activity: models.ActivityDinner, HourlyRate: 500,
	})
	require.NoError(t, err)

	var transitionErr *InvalidTransitionError
	_, err = svc.CancelBooking(booking.ID, stranger.ID, "not mine")
	assert.ErrorAs(t, err, &transitionErr)

	cancelled, err := svc.CancelBooking(booking.ID, user.ID, "changed plans")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, user.ID, *cancelled.CancelledBy)

	var stored models.Booking
	require.NoError(t, db.First(&stored, booking.ID).Error)
	assert.Equal(t, models.BookingStatusCancelled, stored.Status)
	require.NotNil(t, stored.CancellationReason)
	assert.Equal(t, "changed plans", *stored.CancellationReason)

	// Accepted bookings cannot be cancelled
	second, err := svc.CreateBooking(CreateBookingInput{
		UserID: user.ID, CompanionID: profile.ID,
		Date: "2024-06-11", StartTime: "18:00", DurationHours: 2,
		Activity: models.ActivityDinner, HourlyRate: 500,
	})
	require.NoError(t, err)
	_, err = svc.RespondToBooking(second.ID, companionUser.ID, true)
	require.NoError(t, err)

	_, err = svc.CancelBooking(second.ID, user.ID, "")
	assert.ErrorAs(t, err, &transitionErr)
}

func TestPaymentFlow(t *testing.T) {
	svc, db, clock := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	companionUser, profile := createTestCompanion(t, db, "+101")

	booking, err := svc.CreateBooking(CreateBookingInput{
		UserID: user.ID, CompanionID: profile.ID,
		Date: "2024-06-10", StartTime: "18:00", DurationHours: 2,
		Activity: models.ActivityDinner, HourlyRate: 500,
	})
	require.NoError(t, err)
	_, err = svc.RespondToBooking(booking.ID, companionUser.ID, true)
	require.NoError(t, err)

	clock.now = time.Date(2024, 6, 10, 18, 5, 0, 0, time.UTC)

	requested, err := svc.RequestPayment(booking.ID, companionUser.ID, "https://example.com/qr.png")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRequested, requested.PaymentStatus)

	var request models.PaymentRequest
	require.NoError(t, db.Where("booking_id = ?", booking.ID).First(&request).Error)
	assert.Equal(t, float64(1000), request.Amount)
	assert.Equal(t, "https://example.com/qr.png", request.QRImageURL)

	// Requesting again is rejected: the payment axis has left pending
	var transitionErr *InvalidTransitionError
	_, err = svc.RequestPayment(booking.ID, companionUser.ID, "")
	assert.ErrorAs(t, err, &transitionErr)

	// Only the booking user may mark the payment sent
	_, err = svc.MarkPaymentSent(booking.ID, companionUser.ID)
	assert.ErrorAs(t, err, &transitionErr)

	paid, err := svc.MarkPaymentSent(booking.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)

	completed, err := svc.ConfirmPayment(booking.ID, companionUser.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusConfirmed, completed.PaymentStatus)
	assert.Equal(t, models.BookingStatusCompleted, completed.Status)

	// Both fields changed together in the stored row
	var stored models.Booking
	require.NoError(t, db.First(&stored, booking.ID).Error)
	assert.Equal(t, models.PaymentStatusConfirmed, stored.PaymentStatus)
	assert.Equal(t, models.BookingStatusCompleted, stored.Status)

	require.NoError(t, db.Where("booking_id = ?", booking.ID).First(&request).Error)
	assert.NotNil(t, request.PaidAt)
	assert.NotNil(t, request.ConfirmedAt)
}

func TestConfirmPaymentRequiresPaid(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	companionUser, profile := createTestCompanion(t, db, "+101")

	booking, err := svc.CreateBooking(CreateBookingInput{
		UserID: user.ID, CompanionID: profile.ID,
		Date: "2024-06-10", StartTime: "18:00", DurationHours: 2,
		Activity: models.ActivityDinner, HourlyRate: 500,
	})
	require.NoError(t, err)
	_, err = svc.RespondToBooking(booking.ID, companionUser.ID, true)
	require.NoError(t, err)
	_, err = svc.RequestPayment(booking.ID, companionUser.ID, "")
	require.NoError(t, err)

	// Payment is requested but not yet paid: confirmation must change nothing
	var transitionErr *InvalidTransitionError
	_, err = svc.ConfirmPayment(booking.ID, companionUser.ID)
	assert.ErrorAs(t, err, &transitionErr)

	var stored models.Booking
	require.NoError(t, db.First(&stored, booking.ID).Error)
	assert.Equal(t, models.BookingStatusAccepted, stored.Status)
	assert.Equal(t, models.PaymentStatusRequested, stored.PaymentStatus)
}

func TestDisputePayment(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	companionUser, profile := createTestCompanion(t, db, "+101")

	booking, err := svc.CreateBooking(CreateBookingInput{
		UserID: user.ID, CompanionID: profile.ID,
		Date: "2024-06-10", StartTime: "18:00", DurationHours: 2,
		Activity: models.ActivityDinner, HourlyRate: 500,
	})
	require.NoError(t, err)
	_, err = svc.RespondToBooking(booking.ID, companionUser.ID, true)
	require.NoError(t, err)

	// Nothing to dispute while the payment axis is still pending
	var transitionErr *InvalidTransitionError
	_, err = svc.DisputePayment(booking.ID, user.ID, "never happened")
	assert.ErrorAs(t, err, &transitionErr)

	_, err = svc.RequestPayment(booking.ID, companionUser.ID, "")
	require.NoError(t, err)

	disputed, err := svc.DisputePayment(booking.ID, user.ID, "amount is wrong")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusDisputed, disputed.PaymentStatus)
	assert.Equal(t, models.BookingStatusAccepted, disputed.Status)

	var complaint models.Complaint
	require.NoError(t, db.Where("booking_id = ?", booking.ID).First(&complaint).Error)
	assert.Equal(t, user.ID, complaint.RaisedBy)
	assert.Equal(t, models.ComplaintOpen, complaint.Status)
	assert.Equal(t, "amount is wrong", complaint.Reason)
}

func TestTerminalBookingImmutable(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	companionUser, profile := createTestCompanion(t, db, "+101")

	booking, err := svc.CreateBooking(CreateBookingInput{
		UserID: user.ID, CompanionID: profile.ID,
		Date: "2024-06-10", StartTime: "18:00", DurationHours: 2,
		Activity: models.ActivityDinner, HourlyRate: 500,
	})
	require.NoError(t, err)
	_, err = svc.RespondToBooking(booking.ID, companionUser.ID, false)
	require.NoError(t, err)

	var transitionErr *InvalidTransitionError
	_, err = svc.RespondToBooking(booking.ID, companionUser.ID, true)
	assert.ErrorAs(t, err, &transitionErr)
	_, err = svc.CancelBooking(booking.ID, user.ID, "")
	assert.ErrorAs(t, err, &transitionErr)
	_, err = svc.RequestPayment(booking.ID, companionUser.ID, "")
	assert.ErrorAs(t, err, &transitionErr)
	_, err = svc.MarkPaymentSent(booking.ID, user.ID)
	assert.ErrorAs(t, err, &transitionErr)
	_, err = svc.ConfirmPayment(booking.ID, companionUser.ID)
	assert.ErrorAs(t, err, &transitionErr)

	var stored models.Booking
	require.NoError(t, db.First(&stored, booking.ID).Error)
	assert.Equal(t, models.BookingStatusRejected, stored.Status)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
}

func TestActivateDueBookings(t *testing.T) {
	svc, db, clock := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	companionUser, profile := createTestCompanion(t, db, "+101")

	due, err := svc.CreateBooking(CreateBookingInput{
		UserID: user.ID, CompanionID: profile.ID,
		Date: "2024-06-10", StartTime: "18:00", DurationHours: 2,
		Activity: models.ActivityDinner, HourlyRate: 500,
	})
	require.NoError(t, err)
	_, err = svc.RespondToBooking(due.ID, companionUser.ID, true)
	require.NoError(t, err)

	// Still pending, must not be touched by the sweep
	notDue, err := svc.CreateBooking(CreateBookingInput{
		UserID: user.ID, CompanionID: profile.ID,
		Date: "2024-06-12", StartTime: "18:00", DurationHours: 2,
		Activity: models.ActivityDinner, HourlyRate: 500,
	})
	require.NoError(t, err)

	clock.now = time.Date(2024, 6, 10, 18, 0, 30, 0, time.UTC)

	activated, err := svc.ActivateDueBookings()
	require.NoError(t, err)
	assert.Equal(t, int64(1), activated)

	var stored models.Booking
	require.NoError(t, db.First(&stored, due.ID).Error)
	assert.Equal(t, models.BookingStatusActive, stored.Status)

	var storedNotDue models.Booking
	require.NoError(t, db.First(&storedNotDue, notDue.ID).Error)
	assert.Equal(t, models.BookingStatusPending, storedNotDue.Status)
}

func TestGetBookingVisibility(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := createTestUser(t, db, models.RoleUser, "+100")
	companionUser, profile := createTestCompanion(t, db, "+101")
	stranger := createTestUser(t, db, models.RoleUser, "+105")

	booking, err := svc.CreateBooking(CreateBookingInput{
		UserID: user.ID, CompanionID: profile.ID,
		Date: "2024-06-10", StartTime: "18:00", DurationHours: 2,
		Activity: models.ActivityDinner, HourlyRate: 500,
	})
	require.NoError(t, err)

	_, err = svc.GetBooking(booking.ID, user.ID)
	assert.NoError(t, err)
	_, err = svc.GetBooking(booking.ID, companionUser.ID)
	assert.NoError(t, err)

	var notFound *NotFoundError
	_, err = svc.GetBooking(booking.ID, stranger.ID)
	assert.True(t, errors.As(err, &notFound))
}
