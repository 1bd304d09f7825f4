package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Hub manages all WebSocket connections and chat-window membership.
type Hub struct {
	// Registered clients by user ID
	Clients map[uint]*Client

	// Chat window members: window ID -> set of user IDs
	WindowMembers map[uint]map[uint]bool

	// Broadcast channel for messages to all clients
	Broadcast chan *Message

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Message handlers by message type
	MessageHandlers map[string]MessageHandler

	mu sync.RWMutex
}

// Message is the wire format for realtime events.
type Message struct {
	Type         string      `json:"type"`
	ChatWindowID uint        `json:"chat_window_id,omitempty"`
	SenderID     uint        `json:"sender_id,omitempty"`
	SenderRole   string      `json:"sender_role,omitempty"`
	Content      string      `json:"content,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Data         interface{} `json:"data,omitempty"`
}

// MessageHandler handles different types of messages
type MessageHandler func(*Client, *Message) error

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	hub := &Hub{
		Clients:         make(map[uint]*Client),
		WindowMembers:   make(map[uint]map[uint]bool),
		Broadcast:       make(chan *Message),
		Register:        make(chan *Client),
		Unregister:      make(chan *Client),
		MessageHandlers: make(map[string]MessageHandler),
	}

	hub.registerDefaultHandlers()

	return hub
}

func (h *Hub) registerDefaultHandlers() {
	h.MessageHandlers["chat"] = h.handleChatMessage
	h.MessageHandlers["typing"] = h.handleTypingIndicator
	h.MessageHandlers["read"] = h.handleReadReceipt
	h.MessageHandlers["ping"] = h.handlePing
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("Client registered: user=%d role=%s", client.ID, client.Role)

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.Clients[client.ID]; ok {
				for windowID := range h.WindowMembers {
					delete(h.WindowMembers[windowID], client.ID)
				}
				delete(h.Clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			log.Printf("Client unregistered: user=%d", client.ID)

		case message := <-h.Broadcast:
			h.broadcastMessage(message)
		}
	}
}

// broadcastMessage sends a message to all connected clients. Takes the write
// lock because stalled clients are evicted from the map here.
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	for _, client := range h.Clients {
		select {
		case client.Send <- data:
		default:
			close(client.Send)
			delete(h.Clients, client.ID)
		}
	}
}

// SendToUser sends a message to a specific user if connected.
func (h *Hub) SendToUser(userID uint, message *Message) {
	h.mu.RLock()
	client, exists := h.Clients[userID]
	h.mu.RUnlock()

	if !exists {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	select {
	case client.Send <- data:
	default:
		log.Printf("User %d's send buffer is full", userID)
	}
}

// AddUserToWindow adds a user to a chat window's member set.
func (h *Hub) AddUserToWindow(userID uint, windowID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.WindowMembers[windowID] == nil {
		h.WindowMembers[windowID] = make(map[uint]bool)
	}
	h.WindowMembers[windowID][userID] = true
}

// SendToWindow sends a message to all members of a chat window, excluding
// the sender.
func (h *Hub) SendToWindow(windowID uint, message *Message, excludeUserID uint) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	members := h.WindowMembers[windowID]
	for userID := range members {
		if userID == excludeUserID {
			continue
		}

		client, exists := h.Clients[userID]
		if !exists {
			continue
		}

		select {
		case client.Send <- data:
		default:
			log.Printf("User %d's send buffer is full", userID)
		}
	}
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.Clients[userID]
	return exists
}

func (h *Hub) handleChatMessage(client *Client, message *Message) error {
	h.SendToWindow(message.ChatWindowID, message, client.ID)
	return nil
}

func (h *Hub) handleTypingIndicator(client *Client, message *Message) error {
	h.SendToWindow(message.ChatWindowID, message, client.ID)
	return nil
}

func (h *Hub) handleReadReceipt(client *Client, message *Message) error {
	h.SendToWindow(message.ChatWindowID, message, client.ID)
	return nil
}

func (h *Hub) handlePing(client *Client, message *Message) error {
	return client.SendMessage(&Message{
		Type:      "pong",
		Timestamp: time.Now(),
	})
}
