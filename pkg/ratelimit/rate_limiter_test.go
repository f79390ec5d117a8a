package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/pkg/logger"
)

func TestGetRateLimitType(t *testing.T) {
	tests := []struct {
		path string
		want RateLimitType
	}{
		{"/health", RateLimitTypeHealth},
		{"/ping", RateLimitTypeHealth},
		{"/status", RateLimitTypeHealth},
		{"/api/v1/catalog/reload", RateLimitTypeAdmin},
		{"/api/v1/pricing/:fileId", RateLimitTypePricing},
		{"/api/v1/sessions/:id/refetch", RateLimitTypePricing},
		{"/api/v1/sessions", RateLimitTypeSession},
		{"/api/v1/sessions/:id/country", RateLimitTypeSession},
		{"/api/v1/catalog", RateLimitTypePublic},
		{"/api/v1/offers/:fileId", RateLimitTypePublic},
		{"", RateLimitTypeDefault},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, getRateLimitType(tt.path))
		})
	}
}

func TestIsAllowed_SkipsRedis(t *testing.T) {
	cfg := &Config{
		Enabled:         true,
		WindowDuration:  time.Minute,
		SessionRequests: 7,
		WhitelistedIPs:  []string{"10.0.0.1"},
	}
	// A nil client panics if it is ever reached.
	rl := NewRateLimiter(nil, cfg)
	assert.Equal(t, "ratelimit:", cfg.KeyPrefix)

	res, err := rl.IsAllowed(context.Background(), "10.0.0.1", RateLimitTypeSession)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 7, res.Limit)

	cfg.Enabled = false
	res, err = rl.IsAllowed(context.Background(), "192.168.1.1", RateLimitTypeSession)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMiddleware_SetsHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(nil, &Config{Enabled: false, WindowDuration: time.Minute, PublicRequests: 100})

	r := gin.New()
	r.Use(Middleware(rl, logger.Discard()))
	r.GET("/api/v1/catalog", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))
}

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded for", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.2:1234", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "203.0.113.9"}, remote: "10.0.0.2:1234", want: "203.0.113.9"},
		{name: "invalid header", headers: map[string]string{"X-Forwarded-For": "nope"}, remote: "10.0.0.2:1234", want: "10.0.0.2"},
		{name: "remote addr", remote: "10.0.0.3:80", want: "10.0.0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(c))
		})
	}
}
