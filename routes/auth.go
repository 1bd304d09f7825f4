package routes

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"companion-booking-server/database"
	"companion-booking-server/middleware"
	"companion-booking-server/models"
	"companion-booking-server/services"
)

// RegisterAuthRoutes registers authentication routes
func RegisterAuthRoutes(router *gin.RouterGroup) {
	jwtService := services.NewJWTService()

	// Sign up endpoint
	router.POST("/signup", func(c *gin.Context) {
		var req struct {
			FullName        string  `json:"full_name" binding:"required,min=2,max=100"`
			PhoneNumber     string  `json:"phone_number" binding:"required"`
			Password        string  `json:"password" binding:"required,min=8,max=128"`
			ConfirmPassword string  `json:"confirm_password" binding:"required"`
			Role            string  `json:"role" binding:"omitempty,oneof=user companion"`
			DisplayName     string  `json:"display_name"`
			City            string  `json:"city"`
			HourlyRate      float64 `json:"hourly_rate"`
			Activities      string  `json:"activities"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}

		req.FullName = middleware.SanitizeInput(req.FullName)
		req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)

		isStrong, errors := middleware.ValidatePasswordStrength(req.Password)
		if !isStrong {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Weak password",
				"message": "Password does not meet security requirements",
				"details": errors,
			})
			return
		}

		if req.Password != req.ConfirmPassword {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Password mismatch",
				"message": "Passwords do not match",
			})
			return
		}

		var existingUser models.User
		if err := database.DB.Where("phone_number = ?", req.PhoneNumber).First(&existingUser).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "User already exists",
				"message": "An account with this phone number already exists",
			})
			return
		}

		hashedPassword, err := jwtService.HashPassword(req.Password)
		if err != nil {
			log.Printf("Password hashing failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to process password",
			})
			return
		}

		userRole := models.RoleUser
		if strings.ToLower(req.Role) == "companion" {
			userRole = models.RoleCompanion
		}

		user := models.User{
			FullName:     req.FullName,
			PhoneNumber:  req.PhoneNumber,
			PasswordHash: hashedPassword,
			Role:         userRole,
			IsActive:     true,
		}

		if err := database.DB.Create(&user).Error; err != nil {
			log.Printf("User creation failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to create account",
			})
			return
		}

		// Companions get a profile row immediately; it stays unverified and
		// hidden from browsing until an admin approves their documents.
		if userRole == models.RoleCompanion {
			displayName := req.DisplayName
			if displayName == "" {
				displayName = req.FullName
			}
			profile := models.CompanionProfile{
				UserID:             user.ID,
				DisplayName:        middleware.SanitizeInput(displayName),
				City:               middleware.SanitizeInput(req.City),
				HourlyRate:         req.HourlyRate,
				Activities:         req.Activities,
				IsAvailable:        true,
				VerificationStatus: models.VerificationPending,
			}
			if err := database.DB.Create(&profile).Error; err != nil {
				log.Printf("Companion profile creation failed for user %d: %v", user.ID, err)
			}
		}

		deviceID := c.GetHeader("X-Device-ID")
		userAgent := c.GetHeader("User-Agent")
		ipAddress := c.ClientIP()

		tokenPair, err := jwtService.GenerateTokenPair(&user, deviceID, userAgent, ipAddress)
		if err != nil {
			log.Printf("Token generation failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to generate authentication tokens",
			})
			return
		}

		log.Printf("User created successfully: %d", user.ID)

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Account created successfully",
			"data": gin.H{
				"user":   userResponse(&user),
				"tokens": tokenPair,
			},
		})
	})

	// Sign in endpoint
	router.POST("/signin", func(c *gin.Context) {
		var req struct {
			PhoneNumber string `json:"phone_number" binding:"required"`
			Password    string `json:"password" binding:"required"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}

		req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)

		var user models.User
		if err := database.DB.Where("phone_number = ?", req.PhoneNumber).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid credentials",
				"message": "Phone number or password is incorrect",
			})
			return
		}

		if !user.IsActive || user.IsBanned {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Account deactivated",
				"message": "Your account has been deactivated",
			})
			return
		}

		if !jwtService.CheckPasswordHash(req.Password, user.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid credentials",
				"message": "Phone number or password is incorrect",
			})
			return
		}

		if err := jwtService.RevokeAllUserTokens(user.ID); err != nil {
			log.Printf("Failed to revoke existing tokens for user %d: %v", user.ID, err)
		}

		deviceID := c.GetHeader("X-Device-ID")
		userAgent := c.GetHeader("User-Agent")
		ipAddress := c.ClientIP()

		tokenPair, err := jwtService.GenerateTokenPair(&user, deviceID, userAgent, ipAddress)
		if err != nil {
			log.Printf("Token generation failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to generate authentication tokens",
			})
			return
		}

		log.Printf("User signed in successfully: %d", user.ID)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Sign in successful",
			"data": gin.H{
				"user":   userResponse(&user),
				"tokens": tokenPair,
			},
		})
	})

	// Refresh token endpoint
	router.POST("/refresh", func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}

		tokenPair, err := jwtService.RefreshAccessToken(req.RefreshToken)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid refresh token",
				"message": "Refresh token is invalid or expired",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Token refreshed successfully",
			"data": gin.H{
				"tokens": tokenPair,
			},
		})
	})

	// Sign out endpoint
	router.POST("/signout", middleware.AuthMiddleware(), func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var req struct {
			RefreshToken string `json:"refresh_token"`
		}

		if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
			if err := jwtService.RevokeRefreshToken(req.RefreshToken); err != nil {
				log.Printf("Failed to revoke refresh token: %v", err)
			}
		} else {
			if err := jwtService.RevokeAllUserTokens(userID); err != nil {
				log.Printf("Failed to revoke all tokens for user %d: %v", userID, err)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Sign out successful",
		})
	})

	// Get current user endpoint
	router.GET("/me", middleware.AuthMiddleware(), func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var user models.User
		if err := database.DB.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "User not found",
				"message": "User not found",
			})
			return
		}

		resp := gin.H{"user": userResponse(&user)}

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
	})

	// Change password endpoint
	router.POST("/change-password", middleware.AuthMiddleware(), func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var req struct {
			CurrentPassword string `json:"current_password" binding:"required"`
			NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}

		var user models.User
		if err := database.DB.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "User not found",
				"message": "User not found",
			})
			return
		}

		if !jwtService.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid current password",
				"message": "Current password is incorrect",
			})
			return
		}

		isStrong, errors := middleware.ValidatePasswordStrength(req.NewPassword)
		if !isStrong {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Weak password",
				"message": "New password does not meet security requirements",
				"details": errors,
			})
			return
		}

		hashedPassword, err := jwtService.HashPassword(req.NewPassword)
		if err != nil {
			log.Printf("Password hashing failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to process new password",
			})
			return
		}

		user.PasswordHash = hashedPassword
		if err := database.DB.Save(&user).Error; err != nil {
			log.Printf("Password update failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to update password",
			})
			return
		}

		if err := jwtService.RevokeAllUserTokens(userID); err != nil {
			log.Printf("Failed to revoke tokens after password change: %v", err)
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Password changed successfully. Please sign in again.",
		})
	})
}

func userResponse(user *models.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"full_name":    user.FullName,
		"phone_number": user.PhoneNumber,
		"role":         user.Role,
		"is_active":    user.IsActive,
		"created_at":   user.CreatedAt,
	}
}
