package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"companion-booking-server/config"
	"companion-booking-server/database"
	"companion-booking-server/models"
	"companion-booking-server/types"
)

const testSecret = "test-secret"

func setupAuthTest(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:middleware_auth_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	prevDB := database.DB
	prevConfig := config.AppConfig
	database.DB = db
	config.AppConfig = &config.Config{JWT: config.JWTConfig{Secret: testSecret, ExpiryHours: 1}}
	t.Cleanup(func() {
		database.DB = prevDB
		config.AppConfig = prevConfig
	})

	return db
}

func signTestToken(t *testing.T, userID uint, role string) string {
	t.Helper()
	claims := &types.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newWSAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", WebSocketAuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("user_id")})
	})
	return router
}

func TestWebSocketAuthMiddlewareQueryToken(t *testing.T) {
	db := setupAuthTest(t)

	user := models.User{
		FullName:     "Connected User",
		PhoneNumber:  "100001",
		PasswordHash: "x",
		Role:         models.RoleUser,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)

	router := newWSAuthRouter()
	token := signTestToken(t, user.ID, string(models.RoleUser))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":`)
}

func TestWebSocketAuthMiddlewareMissingToken(t *testing.T) {
	setupAuthTest(t)

	router := newWSAuthRouter()

	// No Authorization header and no query token
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebSocketAuthMiddlewareInvalidToken(t *testing.T) {
	setupAuthTest(t)

	router := newWSAuthRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?token=not-a-jwt", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebSocketAuthMiddlewareBannedUser(t *testing.T) {
	db := setupAuthTest(t)

	user := models.User{
		FullName:     "Banned User",
		PhoneNumber:  "100002",
		PasswordHash: "x",
		Role:         models.RoleUser,
		IsActive:     true,
		IsBanned:     true,
	}
	require.NoError(t, db.Create(&user).Error)

	router := newWSAuthRouter()
	token := signTestToken(t, user.ID, string(models.RoleUser))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
