package routes

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"companion-booking-server/database"
	"companion-booking-server/middleware"
	"companion-booking-server/models"
	"companion-booking-server/services"
	"companion-booking-server/utils"
)

// respondBookingError maps booking service errors onto HTTP responses.
func respondBookingError(c *gin.Context, err error) {
	var schedErr *services.InvalidScheduleError
	var conflictErr *services.SchedulingConflictError
	var transitionErr *services.InvalidTransitionError
	var notFoundErr *services.NotFoundError

	switch {
	case errors.As(err, &schedErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid schedule",
			"message": schedErr.Reason,
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Scheduling conflict",
			"message": "The companion is already booked in the requested window",
		})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Invalid transition",
			"message": "The booking is not in a state that allows this action",
			"details": gin.H{
				"status":         transitionErr.Status,
				"payment_status": transitionErr.Payment,
			},
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not found",
			"message": notFoundErr.Error(),
		})
	case errors.Is(err, services.ErrActivityNotOffered):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Activity not offered",
			"message": "The companion does not offer this activity",
		})
	default:
		log.Printf("Booking operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"message": "Failed to process booking operation",
		})
	}
}

func bookingIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid ID",
			"message": "Booking ID must be a number",
		})
		return 0, false
	}
	return uint(id), true
}

// RegisterBookingRoutes registers the booking lifecycle routes
func RegisterBookingRoutes(router *gin.RouterGroup, svc *services.BookingService) {
	// Create a booking request
	router.POST("", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var req struct {
			CompanionID   uint   `json:"companion_id" binding:"required"`
			Date          string `json:"date" binding:"required"`
			StartTime     string `json:"start_time" binding:"required"`
			DurationHours int    `json:"duration_hours" binding:"required"`
			Activity      string `json:"activity" binding:"required"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}

		// Rate comes from the companion's published profile, never the client
		var companion models.CompanionProfile
		if err := database.DB.First(&companion, req.CompanionID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Companion not found",
				"message": "No companion with this ID",
			})
			return
		}
		if !companion.IsVerified() || !companion.IsAvailable {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Companion unavailable",
				"message": "This companion is not currently accepting bookings",
			})
			return
		}

		booking, err := svc.CreateBooking(services.CreateBookingInput{
			UserID:        userID,
			CompanionID:   req.CompanionID,
			Date:          req.Date,
			StartTime:     req.StartTime,
			DurationHours: req.DurationHours,
			Activity:      req.Activity,
			HourlyRate:    companion.HourlyRate,
		})
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Booking request created",
			"data": gin.H{
				"booking": booking,
			},
		})
	})

	// List own bookings, from either side of the marketplace
	router.GET("", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		role := models.UserRole(c.GetString("user_role"))

		query := database.DB.Model(&models.Booking{})
		if role == models.RoleCompanion {
			var profile models.CompanionProfile
			if err := database.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{
					"error":   "Profile not found",
					"message": "No companion profile for this account",
				})
				return
			}
			query = query.Where("companion_id = ?", profile.ID)
		} else {
			query = query.Where("user_id = ?", userID)
		}

		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		var bookings []models.Booking
		if err := query.Order("starts_at DESC").Limit(100).Find(&bookings).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to fetch bookings",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"bookings": bookings,
			},
		})
	})

	// Get one booking
	router.GET("/:id", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, ok := bookingIDParam(c)
		if !ok {
			return
		}

		booking, err := svc.GetBooking(id, userID)
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"booking": booking,
			},
		})
	})

	// Companion accepts or rejects a pending booking
	router.POST("/:id/respond", middleware.RequireRole(models.RoleCompanion), func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, ok := bookingIDParam(c)
		if !ok {
			return
		}

		var req struct {
			Accept *bool `json:"accept" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}

		booking, err := svc.RespondToBooking(id, userID, *req.Accept)
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Booking " + string(booking.Status),
			"data": gin.H{
				"booking": booking,
			},
		})
	})

	// Either party cancels a pending booking
	router.POST("/:id/cancel", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, ok := bookingIDParam(c)
		if !ok {
			return
		}

		var req struct {
			Reason string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&req)

		booking, err := svc.CancelBooking(id, userID, middleware.SanitizeInput(req.Reason))
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Booking cancelled",
			"data": gin.H{
				"booking": booking,
			},
		})
	})

	// Companion requests payment, optionally attaching a payment QR image
	router.POST("/:id/payment/request", middleware.RequireRole(models.RoleCompanion), func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, ok := bookingIDParam(c)
		if !ok {
			return
		}

		var qrURL string
		if file, header, err := c.Request.FormFile("qr_image"); err == nil {
			defer file.Close()
			qrURL, err = utils.UploadImage(file, header.Filename, "payment-qr")
			if err != nil {
				log.Printf("QR upload failed for booking %d: %v", id, err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "Upload failed",
					"message": "Failed to upload QR image",
				})
				return
			}
		}

		booking, err := svc.RequestPayment(id, userID, qrURL)
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Payment requested",
			"data": gin.H{
				"booking": booking,
			},
		})
	})

	// User reports having sent the payment
	router.POST("/:id/payment/sent", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, ok := bookingIDParam(c)
		if !ok {
			return
		}

		booking, err := svc.MarkPaymentSent(id, userID)
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Payment marked as sent",
			"data": gin.H{
				"booking": booking,
			},
		})
	})

	// Companion confirms payment receipt, completing the booking
	router.POST("/:id/payment/confirm", middleware.RequireRole(models.RoleCompanion), func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, ok := bookingIDParam(c)
		if !ok {
			return
		}

		booking, err := svc.ConfirmPayment(id, userID)
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Payment confirmed, booking completed",
			"data": gin.H{
				"booking": booking,
			},
		})
	})

	// Either party disputes the payment
	router.POST("/:id/payment/dispute", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, ok := bookingIDParam(c)
		if !ok {
			return
		}

		var req struct {
			Reason string `json:"reason" binding:"required,min=4,max=1000"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}

		booking, err := svc.DisputePayment(id, userID, middleware.SanitizeInput(req.Reason))
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Payment disputed",
			"data": gin.H{
				"booking": booking,
			},
		})
	})

	// Payment request details for a booking
	router.GET("/:id/payment", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, ok := bookingIDParam(c)
		if !ok {
			return
		}

		if _, err := svc.GetBooking(id, userID); err != nil {
			respondBookingError(c, err)
			return
		}

		var request models.PaymentRequest
		if err := database.DB.Where("booking_id = ?", id).First(&request).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not found",
				"message": "No payment request for this booking",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"payment_request": request,
			},
		})
	})
}
