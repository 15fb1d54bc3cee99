package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rosterbot/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewHTTPRateLimitMiddleware(cfg))
	router.POST("/api/v1/callback", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func post(router http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/callback", nil)
	req.RemoteAddr = remoteAddr
	router.ServeHTTP(w, req)
	return w
}

func TestHTTPRateLimitMiddleware_Disabled_AllowsRequests(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimiting.Enabled = false
	router := newRouter(cfg)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, post(router, "10.0.0.1:1234").Code)
	}
}

func TestHTTPRateLimitMiddleware_Enabled_RateLimited(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.HTTP.RequestsPerSecond = 1
	cfg.RateLimiting.HTTP.Burst = 1
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	router := newRouter(cfg)

	assert.Equal(t, http.StatusOK, post(router, "10.0.0.1:1234").Code)

	w := post(router, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")

	// another client has its own bucket
	assert.Equal(t, http.StatusOK, post(router, "10.0.0.2:1234").Code)
}

func TestRateLimiterStore_PrunesIdleLimiters(t *testing.T) {
	store := newRateLimiterStore(1, 1)
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	assert.True(t, store.allow("a"))
	assert.False(t, store.allow("a"))

	now = now.Add(limiterIdleTTL + time.Minute)
	assert.True(t, store.allow("b"))
	_, kept := store.limiters["a"]
	assert.False(t, kept)
}
