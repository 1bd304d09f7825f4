package services

import (
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"

	"companion-booking-server/models"
	ws "companion-booking-server/websocket"
)

// Notifier delivers notifications to booking parties. Delivery is
// fire-and-forget: a failed notification never rolls back the booking
// transition that triggered it.
type Notifier interface {
	Notify(recipientID uint, ntype, title, message string, data map[string]interface{})
}

// DBNotifier persists notifications and pushes them over the websocket hub
// when the recipient is connected.
type DBNotifier struct {
	db  *gorm.DB
	hub *ws.Hub
}

// NewDBNotifier creates a notifier. hub may be nil (e.g. in tests).
func NewDBNotifier(db *gorm.DB, hub *ws.Hub) *DBNotifier {
	return &DBNotifier{db: db, hub: hub}
}

func (n *DBNotifier) Notify(recipientID uint, ntype, title, message string, data map[string]interface{}) {
	payload := ""
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			payload = string(raw)
		}
	}

	notification := models.Notification{
		UserID: recipientID,
		Title:  title,
		Body:   message,
		Type:   ntype,
		Data:   payload,
	}

	if err := n.db.Create(&notification).Error; err != nil {
		log.Printf("Failed to persist notification for user %d: %v", recipientID, err)
		return
	}

	if n.hub != nil && n.hub.IsUserConnected(recipientID) {
		n.hub.SendToUser(recipientID, &ws.Message{
			Type:      "notification",
			Content:   message,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"id":    notification.ID,
				"title": title,
				"type":  ntype,
				"data":  data,
			},
		})
	}
}

// NopNotifier discards all notifications. Used in tests.
type NopNotifier struct{}

func (NopNotifier) Notify(uint, string, string, string, map[string]interface{}) {}
