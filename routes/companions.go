package routes

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"companion-booking-server/database"
	"companion-booking-server/middleware"
	"companion-booking-server/models"
	"companion-booking-server/utils"
)

// RegisterCompanionRoutes registers companion browsing and profile routes
func RegisterCompanionRoutes(router *gin.RouterGroup) {
	// Browse verified companions. Public listing, filterable by city and
	// activity, paginated.
	router.GET("", func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 20
		}

		query := database.DB.Model(&models.CompanionProfile{}).
			Where("verification_status = ? AND is_available = ?", models.VerificationApproved, true)

		if city := c.Query("city"); city != "" {
			query = query.Where("city = ?", city)
		}
		if activity := c.Query("activity"); activity != "" {
			if !models.IsValidActivity(activity) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":   "Invalid activity",
					"message": "Unknown activity label",
					"details": models.ActivityLabels,
				})
				return
			}
			query = query.Where("activities LIKE ?", "%"+activity+"%")
		}

		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to count companions",
			})
			return
		}

		var profiles []models.CompanionProfile
		if err := query.Preload("User").
			Order("created_at DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&profiles).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to fetch companions",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"companions": profiles,
				"pagination": gin.H{
					"page":  page,
					"limit": limit,
					"total": total,
				},
			},
		})
	})

	// Activity catalog for client pickers
	router.GET("/activities", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"activities": models.ActivityLabels,
			},
		})
	})

	// Get a single companion profile
	router.GET("/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid ID",
				"message": "Companion ID must be a number",
			})
			return
		}

		var profile models.CompanionProfile
		if err := database.DB.Preload("User").First(&profile, uint(id)).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Companion not found",
				"message": "No companion with this ID",
			})
			return
		}

		if !profile.IsVerified() {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Companion not found",
				"message": "No companion with this ID",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"companion": profile,
			},
		})
	})
}

// RegisterCompanionProfileRoutes registers the authenticated companion's own
// profile management routes
func RegisterCompanionProfileRoutes(router *gin.RouterGroup) {
	router.Use(middleware.RequireRole(models.RoleCompanion))

	// Update own profile
	router.PUT("/profile", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var req struct {
			DisplayName *string  `json:"display_name"`
			Bio         *string  `json:"bio"`
			City        *string  `json:"city"`
			HourlyRate  *float64 `json:"hourly_rate"`
			Activities  *string  `json:"activities"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}

		var profile models.CompanionProfile
		if err := database.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Profile not found",
				"message": "No companion profile for this account",
			})
			return
		}

		if req.DisplayName != nil {
			profile.DisplayName = middleware.SanitizeInput(*req.DisplayName)
		}
		if req.Bio != nil {
			profile.Bio = middleware.SanitizeInput(*req.Bio)
		}
		if req.City != nil {
			profile.City = middleware.SanitizeInput(*req.City)
		}
		if req.HourlyRate != nil {
			if *req.HourlyRate <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":   "Invalid rate",
					"message": "Hourly rate must be positive",
				})
				return
			}
			profile.HourlyRate = *req.HourlyRate
		}
		if req.Activities != nil {
			profile.Activities = *req.Activities
			for _, a := range profile.ActivityList() {
				if !models.IsValidActivity(a) {
					c.JSON(http.StatusBadRequest, gin.H{
						"error":   "Invalid activity",
						"message": "Unknown activity label: " + a,
						"details": models.ActivityLabels,
					})
					return
				}
			}
		}

		if err := database.DB.Save(&profile).Error; err != nil {
			log.Printf("Profile update failed for user %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to update profile",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Profile updated",
			"data": gin.H{
				"companion": profile,
			},
		})
	})

	// Toggle availability
	router.PATCH("/availability", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var req struct {
			IsAvailable *bool `json:"is_available" binding:"required"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}

		res := database.DB.Model(&models.CompanionProfile{}).
			Where("user_id = ?", userID).
			Update("is_available", *req.IsAvailable)
		if res.Error != nil || res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Profile not found",
				"message": "No companion profile for this account",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Availability updated",
		})
	})

	// Upload profile photo
	router.POST("/profile/photo", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		file, header, err := c.Request.FormFile("photo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Missing file",
				"message": "A photo file is required",
			})
			return
		}
		defer file.Close()

		url, err := utils.UploadImage(file, header.Filename, "profiles")
		if err != nil {
			log.Printf("Photo upload failed for user %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Upload failed",
				"message": "Failed to upload photo",
			})
			return
		}

		res := database.DB.Model(&models.CompanionProfile{}).
			Where("user_id = ?", userID).
			Update("photo_url", url)
		if res.Error != nil || res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Profile not found",
				"message": "No companion profile for this account",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"photo_url": url,
			},
		})
	})

	// Submit verification documents
	router.POST("/verification", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var profile models.CompanionProfile
		if err := database.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Profile not found",
				"message": "No companion profile for this account",
			})
			return
		}

		if profile.IsVerified() {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Already verified",
				"message": "This profile has already been verified",
			})
			return
		}

		var pending int64
		database.DB.Model(&models.VerificationRequest{}).
			Where("companion_id = ? AND status = ?", profile.ID, models.VerificationPending).
			Count(&pending)
		if pending > 0 {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Verification pending",
				"message": "A verification request is already under review",
			})
			return
		}

		file, header, err := c.Request.FormFile("document")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Missing file",
				"message": "An identity document is required",
			})
			return
		}
		defer file.Close()

		url, err := utils.UploadImage(file, header.Filename, "verifications")
		if err != nil {
			log.Printf("Document upload failed for companion %d: %v", profile.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Upload failed",
				"message": "Failed to upload document",
			})
			return
		}

		request := models.VerificationRequest{
			CompanionID: profile.ID,
			DocumentURL: url,
			Status:      models.VerificationPending,
		}
		if err := database.DB.Create(&request).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to record verification request",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Verification request submitted",
			"data": gin.H{
				"request": request,
			},
		})
	})
}
