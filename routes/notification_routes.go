package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"companion-booking-server/database"
	"companion-booking-server/models"
)

// RegisterNotificationRoutes registers notification routes
func RegisterNotificationRoutes(router *gin.RouterGroup) {
	// List notifications
	router.GET("", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 20
		}

		query := database.DB.Model(&models.Notification{}).Where("user_id = ?", userID)
		if c.Query("unread") == "true" {
			query = query.Where("read = ?", false)
		}

		var notifications []models.Notification
		if err := query.Order("created_at DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&notifications).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to fetch notifications",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"notifications": notifications,
			},
		})
	})

	// Unread count
	router.GET("/unread-count", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var count int64
		if err := database.DB.Model(&models.Notification{}).
			Where("user_id = ? AND read = ?", userID, false).
			Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to count notifications",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"count": count,
			},
		})
	})

	// Mark one read
	router.POST("/:id/read", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid ID",
				"message": "Notification ID must be a number",
			})
			return
		}

		res := database.DB.Model(&models.Notification{}).
			Where("id = ? AND user_id = ?", uint(id), userID).
			Update("read", true)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to update notification",
			})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not found",
				"message": "No notification with this ID",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Notification marked read",
		})
	})

	// Mark all read
	router.POST("/read-all", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		res := database.DB.Model(&models.Notification{}).
			Where("user_id = ? AND read = ?", userID, false).
			Update("read", true)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to update notifications",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"marked_read": res.RowsAffected,
			},
		})
	})
}
