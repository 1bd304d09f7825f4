package routes

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"companion-booking-server/models"
	"companion-booking-server/services"
)

func TestRespondBookingErrorStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		code int
	}{
		{
			name: "invalid schedule",
			err:  &services.InvalidScheduleError{Reason: "duration must be between 1 and 24 hours"},
			code: http.StatusBadRequest,
		},
		{
			name: "scheduling conflict",
			err:  &services.SchedulingConflictError{CompanionID: 7},
			code: http.StatusConflict,
		},
		{
			name: "invalid transition",
			err: &services.InvalidTransitionError{
				BookingID: 3,
				Attempted: "confirm payment",
				Status:    models.BookingStatusAccepted,
				Payment:   models.PaymentStatusRequested,
			},
			code: http.StatusConflict,
		},
		{
			name: "not found",
			err:  &services.NotFoundError{Entity: "booking", ID: 42},
			code: http.StatusNotFound,
		},
		{
			name: "activity not offered",
			err:  services.ErrActivityNotOffered,
			code: http.StatusBadRequest,
		},
		{
			name: "wrapped not found",
			err:  fmt.Errorf("loading booking: %w", &services.NotFoundError{Entity: "booking", ID: 9}),
			code: http.StatusNotFound,
		},
		{
			name: "unknown error",
			err:  errors.New("connection reset"),
			code: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondBookingError(c, tc.err)

			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestBookingIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("numeric", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: "15"}}

		id, ok := bookingIDParam(c)
		assert.True(t, ok)
		assert.Equal(t, uint(15), id)
	})

	t.Run("non-numeric", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: "abc"}}

		_, ok := bookingIDParam(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
