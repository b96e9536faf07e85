package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/internal/config"
	"github.com/pushp314/hackarena-backend/internal/database"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
	"github.com/pushp314/hackarena-backend/pkg/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withSecret(t *testing.T) {
	t.Helper()
	prev := config.AppConfig
	cfg := *prev
	cfg.JWTSecret = "test-secret"
	config.AppConfig = &cfg
	t.Cleanup(func() { config.AppConfig = prev })
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandlerMiddleware())
	r.GET("/", handlers...)
	return r
}

func do(r http.Handler, header string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"userId": c.GetString("userId"), "role": c.GetString("role")})
}

func TestAuthMiddleware(t *testing.T) {
	withSecret(t)
	r := newEngine(AuthMiddleware(), whoami)

	w, body := do(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", body["reason"])

	w, _ = do(r, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(r, "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateToken("user-1", "ADMIN")
	require.NoError(t, err)
	w, body = do(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", body["userId"])
	assert.Equal(t, "ADMIN", body["role"])
}

func TestOptionalAuthMiddleware(t *testing.T) {
	withSecret(t)
	r := newEngine(OptionalAuthMiddleware(), whoami)

	w, body := do(r, "Bearer garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", body["userId"])

	token, _ := utils.GenerateToken("user-2", "USER")
	_, body = do(r, "Bearer "+token)
	assert.Equal(t, "user-2", body["userId"])
}

func TestAdminOnly(t *testing.T) {
	withSecret(t)
	r := newEngine(AuthMiddleware(), AdminOnly(), whoami)

	userToken, _ := utils.GenerateToken("user-1", "USER")
	w, body := do(r, "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", body["reason"])

	adminToken, _ := utils.GenerateToken("admin-1", "ADMIN")
	w, _ = do(r, "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorHandlerMiddleware(t *testing.T) {
	t.Run("app error", func(t *testing.T) {
		r := newEngine(func(c *gin.Context) { _ = c.Error(apperrors.ErrContestClosed) })
		w, body := do(r, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "CONTEST_CLOSED", body["reason"])
		assert.Equal(t, false, body["retryable"])
	})

	t.Run("retryable", func(t *testing.T) {
		r := newEngine(func(c *gin.Context) {
			_ = c.Error(apperrors.Unavailable("Database unavailable", errors.New("dial tcp: refused")))
		})
		w, body := do(r, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, true, body["retryable"])
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.NotContains(t, w.Body.String(), "dial tcp", "causes stay in the logs")
	})

	t.Run("plain error", func(t *testing.T) {
		r := newEngine(func(c *gin.Context) { _ = c.Error(errors.New("boom")) })
		w, body := do(r, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "INTERNAL", body["reason"])
	})

	t.Run("panic", func(t *testing.T) {
		r := newEngine(func(c *gin.Context) { panic("oops") })
		w, _ := do(r, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(0.001), 2)
	r := newEngine(RateLimitMiddleware(limiter), whoami)

	for i := 0; i < 2; i++ {
		w, _ := do(r, "")
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w, body := do(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", body["reason"])
}

func TestMaintenanceMode(t *testing.T) {
	withSecret(t)
	config.AppConfig.MaintenanceMode = true
	r := newEngine(AuthMiddleware(), MaintenanceMode(), whoami)

	userToken, _ := utils.GenerateToken("user-1", "USER")
	w, body := do(r, "Bearer "+userToken)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, true, body["retryable"])

	adminToken, _ := utils.GenerateToken("admin-1", "ADMIN")
	w, _ = do(r, "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQuotaPerMinute(t *testing.T) {
	withSecret(t)
	mr := miniredis.RunT(t)
	database.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		database.Redis.Close()
		database.Redis = nil
	})

	r := newEngine(AuthMiddleware(), QuotaPerMinute("run", 2), whoami)
	ada, _ := utils.GenerateToken("ada", "USER")
	bob, _ := utils.GenerateToken("bob", "USER")

	for i := 0; i < 2; i++ {
		w, _ := do(r, "Bearer "+ada)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w, _ := do(r, "Bearer "+ada)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w, _ = do(r, "Bearer "+bob)
	assert.Equal(t, http.StatusOK, w.Code, "quota is per user")

	mr.FastForward(time.Minute)
	w, _ = do(r, "Bearer "+ada)
	assert.Equal(t, http.StatusOK, w.Code)
}
