package routes

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"companion-booking-server/database"
	"companion-booking-server/middleware"
	"companion-booking-server/models"
	"companion-booking-server/services"
	ws "companion-booking-server/websocket"
)

// RegisterAdminRoutes registers the admin back office routes
func RegisterAdminRoutes(router *gin.RouterGroup, hub *ws.Hub) {
	router.Use(middleware.AuthMiddleware(), middleware.RequireRole(models.RoleAdmin))

	router.GET("/dashboard", GetDashboardStats)
	router.POST("/announcements", BroadcastAnnouncement(hub))
	router.GET("/users", GetAllUsers)
	router.GET("/users/:id", GetUserById)
	router.POST("/users/:id/ban", BanUser)
	router.POST("/users/:id/unban", UnbanUser)
	router.GET("/verifications", GetPendingVerifications)
	router.POST("/verifications/:id/review", ReviewVerification)
	router.GET("/complaints", GetComplaints)
	router.POST("/complaints/:id/resolve", ResolveComplaint)
	router.GET("/bookings", GetAllBookings)
}

// BroadcastAnnouncement pushes a system announcement to every connected
// client through the hub.
func BroadcastAnnouncement(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Title   string `json:"title" binding:"required"`
			Message string `json:"message" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": "Title and message are required",
			})
			return
		}

		hub.Broadcast <- &ws.Message{
			Type:      "announcement",
			Content:   middleware.SanitizeInput(req.Message),
			Timestamp: time.Now().UTC(),
			Data: gin.H{
				"title": middleware.SanitizeInput(req.Title),
			},
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// GetDashboardStats returns dashboard statistics, each headline number paired
// with its trend against the previous 30-day period.
func GetDashboardStats(c *gin.Context) {
	now := time.Now().UTC()
	periodStart := now.AddDate(0, 0, -30)
	prevPeriodStart := now.AddDate(0, 0, -60)

	var stats struct {
		TotalUsers           int64 `json:"total_users"`
		TotalCompanions      int64 `json:"total_companions"`
		VerifiedCompanions   int64 `json:"verified_companions"`
		PendingVerifications int64 `json:"pending_verifications"`
		OpenComplaints       int64 `json:"open_complaints"`
		TotalBookings        int64 `json:"total_bookings"`
		CompletedBookings    int64 `json:"completed_bookings"`
		DisputedPayments     int64 `json:"disputed_payments"`
	}

	database.DB.Model(&models.User{}).Where("role = ?", models.RoleUser).Count(&stats.TotalUsers)
	database.DB.Model(&models.User{}).Where("role = ?", models.RoleCompanion).Count(&stats.TotalCompanions)
	database.DB.Model(&models.CompanionProfile{}).Where("verification_status = ?", models.VerificationApproved).Count(&stats.VerifiedCompanions)
	database.DB.Model(&models.VerificationRequest{}).Where("status = ?", models.VerificationPending).Count(&stats.PendingVerifications)
	database.DB.Model(&models.Complaint{}).Where("status = ?", models.ComplaintOpen).Count(&stats.OpenComplaints)
	database.DB.Model(&models.Booking{}).Count(&stats.TotalBookings)
	database.DB.Model(&models.Booking{}).Where("status = ?", models.BookingStatusCompleted).Count(&stats.CompletedBookings)
	database.DB.Model(&models.Booking{}).Where("payment_status = ?", models.PaymentStatusDisputed).Count(&stats.DisputedPayments)

	var earnings, prevEarnings float64
	database.DB.Model(&models.Booking{}).
		Where("status = ? AND updated_at >= ?", models.BookingStatusCompleted, periodStart).
		Select("COALESCE(SUM(total_amount), 0)").Scan(&earnings)
	database.DB.Model(&models.Booking{}).
		Where("status = ? AND updated_at >= ? AND updated_at < ?", models.BookingStatusCompleted, prevPeriodStart, periodStart).
		Select("COALESCE(SUM(total_amount), 0)").Scan(&prevEarnings)

	var bookings, prevBookings int64
	database.DB.Model(&models.Booking{}).Where("created_at >= ?", periodStart).Count(&bookings)
	database.DB.Model(&models.Booking{}).Where("created_at >= ? AND created_at < ?", prevPeriodStart, periodStart).Count(&prevBookings)

	var newUsers, prevNewUsers int64
	database.DB.Model(&models.User{}).Where("created_at >= ?", periodStart).Count(&newUsers)
	database.DB.Model(&models.User{}).Where("created_at >= ? AND created_at < ?", prevPeriodStart, periodStart).Count(&prevNewUsers)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"stats": stats,
			"trends": gin.H{
				"earnings": gin.H{
					"current":       earnings,
					"previous":      prevEarnings,
					"trend_percent": services.TrendPercent(earnings, prevEarnings),
				},
				"bookings": gin.H{
					"current":       bookings,
					"previous":      prevBookings,
					"trend_percent": services.TrendPercent(float64(bookings), float64(prevBookings)),
				},
				"new_users": gin.H{
					"current":       newUsers,
					"previous":      prevNewUsers,
					"trend_percent": services.TrendPercent(float64(newUsers), float64(prevNewUsers)),
				},
			},
		},
	})
}

// GetAllUsers returns all users with pagination
func GetAllUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	role := c.Query("role")

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var users []models.User
	var total int64

	query := database.DB.Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
		return
	}

	if err := query.Offset((page - 1) * limit).Limit(limit).Order("created_at DESC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    users,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// GetUserById returns user by ID
func GetUserById(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	resp := gin.H{"user": user}
	if user.IsCompanion() {
		var profile models.CompanionProfile
		if err := database.DB.Where("user_id = ?", user.ID).First(&profile).Error; err == nil {
			resp["companion_profile"] = profile
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    resp,
	})
}

// BanUser bans a user account
func BanUser(c *gin.Context) {
	userID := c.Param("id")
	adminID := c.GetUint("user_id")

	var req struct {
		Reason string `json:"reason" binding:"required,min=4,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if user.ID == adminID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot ban your own account"})
		return
	}
	if user.IsAdmin() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot ban an admin account"})
		return
	}

	reason := middleware.SanitizeInput(req.Reason)
	user.IsBanned = true
	user.BanReason = &reason
	if err := database.DB.Save(&user).Error; err != nil {
		log.Printf("Failed to ban user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ban user"})
		return
	}

	log.Printf("User %d banned by admin %d", user.ID, adminID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User banned",
	})
}

// UnbanUser lifts a user ban
func UnbanUser(c *gin.Context) {
	userID := c.Param("id")
	adminID := c.GetUint("user_id")

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.IsBanned = false
	user.BanReason = nil
	if err := database.DB.Save(&user).Error; err != nil {
		log.Printf("Failed to unban user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unban user"})
		return
	}

	log.Printf("User %d unbanned by admin %d", user.ID, adminID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User unbanned",
	})
}

// GetPendingVerifications lists verification requests awaiting review
func GetPendingVerifications(c *gin.Context) {
	var requests []models.VerificationRequest
	if err := database.DB.Preload("Companion.User").
		Where("status = ?", models.VerificationPending).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch verification requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    requests,
	})
}

// ReviewVerification approves or rejects a verification request. Approval
// also flips the companion profile to verified so it appears in browsing.
func ReviewVerification(c *gin.Context) {
	adminID := c.GetUint("user_id")
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	var req struct {
		Approve *bool  `json:"approve" binding:"required"`
		Note    string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	var request models.VerificationRequest
	if err := database.DB.First(&request, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Verification request not found"})
		return
	}
	if request.Status != models.VerificationPending {
		c.JSON(http.StatusConflict, gin.H{"error": "Verification request already reviewed"})
		return
	}

	newStatus := models.VerificationRejected
	if *req.Approve {
		newStatus = models.VerificationApproved
	}

	now := time.Now().UTC()
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.VerificationRequest{}).
			Where("id = ?", request.ID).
			Updates(map[string]interface{}{
				"status":      newStatus,
				"reviewed_by": adminID,
				"review_note": middleware.SanitizeInput(req.Note),
				"reviewed_at": now,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&models.CompanionProfile{}).
			Where("id = ?", request.CompanionID).
			Update("verification_status", newStatus).Error
	})
	if err != nil {
		log.Printf("Verification review failed for request %d: %v", request.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to review verification request"})
		return
	}

	log.Printf("Verification request %d %s by admin %d", request.ID, newStatus, adminID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Verification request " + string(newStatus),
	})
}

// GetComplaints lists complaints, open ones first
func GetComplaints(c *gin.Context) {
	query := database.DB.Preload("Booking").Model(&models.Complaint{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var complaints []models.Complaint
	if err := query.Order("status ASC, created_at ASC").Limit(200).Find(&complaints).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch complaints"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    complaints,
	})
}

// ResolveComplaint closes a complaint as resolved or dismissed
func ResolveComplaint(c *gin.Context) {
	adminID := c.GetUint("user_id")
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid complaint ID"})
		return
	}

	var req struct {
		Status     string `json:"status" binding:"required,oneof=resolved dismissed"`
		Resolution string `json:"resolution" binding:"required,min=4,max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	res := database.DB.Model(&models.Complaint{}).
		Where("id = ? AND status = ?", uint(id), models.ComplaintOpen).
		Updates(map[string]interface{}{
			"status":      models.ComplaintStatus(req.Status),
			"resolved_by": adminID,
			"resolution":  middleware.SanitizeInput(req.Resolution),
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve complaint"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No open complaint with this ID"})
		return
	}

	log.Printf("Complaint %d closed as %s by admin %d", id, req.Status, adminID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Complaint " + req.Status,
	})
}

// GetAllBookings returns all bookings with pagination and filters
func GetAllBookings(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	query := database.DB.Model(&models.Booking{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentStatus := c.Query("payment_status"); paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count bookings"})
		return
	}

	var bookings []models.Booking
	if err := query.Offset((page - 1) * limit).Limit(limit).Order("created_at DESC").Find(&bookings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    bookings,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}
