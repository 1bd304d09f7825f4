package routes

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"companion-booking-server/database"
	"companion-booking-server/middleware"
	"companion-booking-server/models"
	"companion-booking-server/services"
	ws "companion-booking-server/websocket"
)

// chatAccess resolves a chat window, checks that the actor is one of the
// booking's two parties, and evaluates reachability at the current instant.
func chatAccess(clock services.Clock, windowID, actorID uint) (*models.ChatWindow, *models.Booking, bool, string, error) {
	var window models.ChatWindow
	if err := database.DB.First(&window, windowID).Error; err != nil {
		return nil, nil, false, "", err
	}

	var booking models.Booking
	if err := database.DB.First(&booking, window.BookingID).Error; err != nil {
		return nil, nil, false, "", err
	}

	var companion models.CompanionProfile
	if err := database.DB.First(&companion, booking.CompanionID).Error; err != nil {
		return nil, nil, false, "", err
	}

	role := ""
	switch actorID {
	case booking.UserID:
		role = "user"
	case companion.UserID:
		role = "companion"
	default:
		return nil, nil, false, "", nil
	}

	reachable := services.IsChatReachable(&window, booking.Status, clock.Now())
	return &window, &booking, reachable, role, nil
}

// RegisterChatRoutes registers chat window and messaging routes
func RegisterChatRoutes(router *gin.RouterGroup, hub *ws.Hub, clock services.Clock) {
	// List the actor's chat windows with their current reachability
	router.GET("/windows", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		role := models.UserRole(c.GetString("user_role"))

		bookingQuery := database.DB.Model(&models.Booking{}).Select("id")
		if role == models.RoleCompanion {
			var profile models.CompanionProfile
			if err := database.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{
					"error":   "Profile not found",
					"message": "No companion profile for this account",
				})
				return
			}
			bookingQuery = bookingQuery.Where("companion_id = ?", profile.ID)
		} else {
			bookingQuery = bookingQuery.Where("user_id = ?", userID)
		}

		var windows []models.ChatWindow
		if err := database.DB.Preload("Booking").
			Where("booking_id IN (?)", bookingQuery).
			Order("starts_at DESC").
			Limit(100).
			Find(&windows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to fetch chat windows",
			})
			return
		}

		now := clock.Now()
		out := make([]gin.H, 0, len(windows))
		for i := range windows {
			out = append(out, gin.H{
				"window":    windows[i],
				"reachable": services.IsChatReachable(&windows[i], windows[i].Booking.Status, now),
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"windows": out,
			},
		})
	})

	// Reachability check for one window
	router.GET("/windows/:id/reachability", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid ID",
				"message": "Window ID must be a number",
			})
			return
		}

		window, booking, reachable, role, err := chatAccess(clock, uint(id), userID)
		if err != nil || window == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not found",
				"message": "No chat window with this ID",
			})
			return
		}
		if role == "" {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "You are not a party to this booking",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"reachable":            reachable,
				"booking_status":       booking.Status,
				"starts_at":            window.StartsAt,
				"grace_period_ends_at": window.GracePeriodEndsAt,
			},
		})
	})

	// Message history. Readable by either party while the window is reachable.
	router.GET("/windows/:id/messages", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid ID",
				"message": "Window ID must be a number",
			})
			return
		}

		window, _, reachable, role, err := chatAccess(clock, uint(id), userID)
		if err != nil || window == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not found",
				"message": "No chat window with this ID",
			})
			return
		}
		if role == "" {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "You are not a party to this booking",
			})
			return
		}
		if !reachable {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Chat unavailable",
				"message": "The chat window for this booking is not currently open",
			})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if limit < 1 || limit > 200 {
			limit = 50
		}

		var messages []models.ChatMessage
		if err := database.DB.
			Where("chat_window_id = ?", window.ID).
			Order("created_at DESC").
			Limit(limit).
			Find(&messages).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to fetch messages",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"messages": messages,
			},
		})
	})

	// Send a message. Persists it, stamps the window's last-message fields,
	// and fans out to connected peers over the websocket hub.
	router.POST("/windows/:id/messages", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid ID",
				"message": "Window ID must be a number",
			})
			return
		}

		var req struct {
			Content string `json:"content" binding:"required,min=1,max=4000"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}

		window, _, reachable, role, err := chatAccess(clock, uint(id), userID)
		if err != nil || window == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not found",
				"message": "No chat window with this ID",
			})
			return
		}
		if role == "" {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "You are not a party to this booking",
			})
			return
		}
		if !reachable {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Chat unavailable",
				"message": "The chat window for this booking is not currently open",
			})
			return
		}

		content := middleware.SanitizeInput(req.Content)
		message := models.ChatMessage{
			ChatWindowID: window.ID,
			SenderID:     userID,
			SenderRole:   role,
			Content:      content,
		}

		now := clock.Now()
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&message).Error; err != nil {
				return err
			}
			return tx.Model(&models.ChatWindow{}).
				Where("id = ?", window.ID).
				Updates(map[string]interface{}{
					"last_message_at":   now,
					"last_message_text": content,
				}).Error
		})
		if err != nil {
			log.Printf("Message persistence failed for window %d: %v", window.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to send message",
			})
			return
		}

		hub.SendToWindow(window.ID, &ws.Message{
			Type:         "chat_message",
			ChatWindowID: window.ID,
			SenderID:     userID,
			SenderRole:   role,
			Content:      content,
			Timestamp:    now,
			Data:         gin.H{"message_id": message.ID},
		}, userID)

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"data": gin.H{
				"message": message,
			},
		})
	})

	// Mark the counterparty's messages as read
	router.POST("/windows/:id/read", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid ID",
				"message": "Window ID must be a number",
			})
			return
		}

		window, _, _, role, err := chatAccess(clock, uint(id), userID)
		if err != nil || window == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not found",
				"message": "No chat window with this ID",
			})
			return
		}
		if role == "" {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "You are not a party to this booking",
			})
			return
		}

		now := clock.Now()
		res := database.DB.Model(&models.ChatMessage{}).
			Where("chat_window_id = ? AND sender_id <> ? AND is_read = ?", window.ID, userID, false).
			Updates(map[string]interface{}{
				"is_read": true,
				"read_at": now,
			})
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"message": "Failed to mark messages read",
			})
			return
		}

		hub.SendToWindow(window.ID, &ws.Message{
			Type:         "read_receipt",
			ChatWindowID: window.ID,
			SenderID:     userID,
			SenderRole:   role,
			Timestamp:    now,
		}, userID)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"marked_read": res.RowsAffected,
			},
		})
	})
}

// RegisterChatStreamRoute registers the WebSocket entry point. It lives
// outside the header-auth group because browser WebSocket clients cannot set
// an Authorization header; the token arrives as a query parameter instead.
func RegisterChatStreamRoute(router *gin.RouterGroup, hub *ws.Hub, clock services.Clock) {
	// Joins the caller to the window's member set so hub fan-out reaches
	// them, provided the window is currently reachable.
	router.GET("/ws/:id", middleware.WebSocketAuthMiddleware(), func(c *gin.Context) {
		userID := c.GetUint("user_id")
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid ID",
				"message": "Window ID must be a number",
			})
			return
		}

		window, _, reachable, role, err := chatAccess(clock, uint(id), userID)
		if err != nil || window == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not found",
				"message": "No chat window with this ID",
			})
			return
		}
		if role == "" {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "You are not a party to this booking",
			})
			return
		}
		if !reachable {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Chat unavailable",
				"message": "The chat window for this booking is not currently open",
			})
			return
		}

		hub.AddUserToWindow(userID, window.ID)
		ws.ServeWebSocket(hub, c.Writer, c.Request, userID, role)
	})
}
