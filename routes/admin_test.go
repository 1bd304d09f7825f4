package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "companion-booking-server/websocket"
)

func TestBroadcastAnnouncement(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hub := ws.NewHub()
	go hub.Run()

	client := &ws.Client{Hub: hub, ID: 1, Role: "user", Send: make(chan []byte, 1)}
	hub.Register <- client
	require.Eventually(t, func() bool {
		return hub.IsUserConnected(client.ID)
	}, time.Second, 5*time.Millisecond)

	router := gin.New()
	router.POST("/announcements", BroadcastAnnouncement(hub))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/announcements",
		strings.NewReader(`{"title":"Maintenance","message":"Back at noon"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	select {
	case data := <-client.Send:
		assert.Contains(t, string(data), "Back at noon")
	case <-time.After(time.Second):
		t.Fatal("announcement never reached the connected client")
	}
}

func TestBroadcastAnnouncementRequiresBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hub := ws.NewHub()
	go hub.Run()

	router := gin.New()
	router.POST("/announcements", BroadcastAnnouncement(hub))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/announcements", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
