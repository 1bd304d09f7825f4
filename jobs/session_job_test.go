package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"companion-booking-server/database"
	"companion-booking-server/models"
	"companion-booking-server/services"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func TestSessionJobActivatesDueBookings(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:session_job_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	start := time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)
	booking := models.Booking{
		UserID:        1,
		CompanionID:   1,
		Date:          "2024-06-10",
		StartTime:     "18:00",
		DurationHours: 2,
		Activity:      models.ActivityDinner,
		HourlyRate:    500,
		TotalAmount:   1000,
		Status:        models.BookingStatusAccepted,
		PaymentStatus: models.PaymentStatusPending,
		StartsAt:      start,
		EndsAt:        start.Add(2 * time.Hour),
	}
	require.NoError(t, db.Create(&booking).Error)

	clock := fixedClock{now: start.Add(time.Minute)}
	svc := services.NewBookingService(db, clock, services.NopNotifier{})

	job := NewSessionJob(svc)
	job.activateDue()

	var stored models.Booking
	require.NoError(t, db.First(&stored, booking.ID).Error)
	assert.Equal(t, models.BookingStatusActive, stored.Status)
}
