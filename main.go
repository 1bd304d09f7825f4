package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"companion-booking-server/config"
	"companion-booking-server/database"
	"companion-booking-server/jobs"
	"companion-booking-server/middleware"
	"companion-booking-server/routes"
	"companion-booking-server/services"
	ws "companion-booking-server/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	config.Load()

	// Initialize database
	if err := database.Initialize(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	if err := seedAdminUser(); err != nil {
		log.Printf("Admin seed failed: %v", err)
	}

	// Set Gin mode
	if config.AppConfig.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Disable automatic redirects for trailing slashes
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	// Security middleware stack
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.InputValidationMiddleware())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:8081"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "User-Agent", "X-Requested-With", "X-Device-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Companion Booking Server is running",
			"time":    time.Now().UTC(),
		})
	})

	// Chat hub
	hub := ws.NewHub()
	go hub.Run()

	// Core services
	clock := services.SystemClock()
	notifier := services.NewDBNotifier(database.DB, hub)
	bookingService := services.NewBookingService(database.DB, clock, notifier)

	// API routes
	api := router.Group("/api/v1")
	{
		// Auth routes, with strict rate limiting
		authRoutes := api.Group("/auth")
		authRoutes.Use(middleware.AuthRateLimitMiddleware())
		routes.RegisterAuthRoutes(authRoutes)

		// Public companion browsing
		companionRoutes := api.Group("/companions")
		routes.RegisterCompanionRoutes(companionRoutes)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Companion's own profile management
			companionProfile := protected.Group("/companion")
			routes.RegisterCompanionProfileRoutes(companionProfile)

			// Booking lifecycle
			bookingRoutes := protected.Group("/bookings")
			routes.RegisterBookingRoutes(bookingRoutes, bookingService)

			// Chat windows and messaging
			chatRoutes := protected.Group("/chat")
			routes.RegisterChatRoutes(chatRoutes, hub, clock)

			// Notifications
			notificationRoutes := protected.Group("/notifications")
			routes.RegisterNotificationRoutes(notificationRoutes)
		}

		// WebSocket upgrade authenticates via query-param token, so it
		// cannot sit behind the header-auth group
		chatStream := api.Group("/chat")
		routes.RegisterChatStreamRoute(chatStream, hub, clock)

		// Admin back office
		adminRoutes := api.Group("/admin")
		routes.RegisterAdminRoutes(adminRoutes, hub)
	}

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = config.AppConfig.Server.Port
	}

	// Start background jobs
	sessionJob := jobs.NewSessionJob(bookingService)
	sessionJob.Start()
	defer sessionJob.Stop()

	// Hourly sweep of idle rate limiters
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			middleware.CleanupRateLimiters()
		}
	}()

	// Daily refresh token cleanup
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		jwtService := services.NewJWTService()
		for range ticker.C {
			if err := jwtService.CleanupExpiredTokens(); err != nil {
				log.Printf("Token cleanup failed: %v", err)
			}
		}
	}()

	log.Printf("Server starting on port %s", port)
	if err := router.Run("0.0.0.0:" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
