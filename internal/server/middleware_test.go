package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okRouter(mw ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw...)
	router.GET("/test", func(c *gin.Context) {
		method, _ := c.Get(authMethodKey)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "auth": method})
	})
	return router
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	auth := NewAuthService("test-api-key", "test-secret")
	token, err := auth.GenerateToken("viewer", time.Hour)
	assert.NoError(t, err)
	foreign, err := NewAuthService("other", "other-secret").GenerateToken("viewer", time.Hour)
	assert.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
		method string
	}{
		{name: "api key", header: "Bearer test-api-key", want: http.StatusOK, method: "api_key"},
		{name: "jwt", header: "Bearer " + token, want: http.StatusOK, method: "jwt"},
		{name: "query token", query: "?token=" + token, want: http.StatusOK, method: "jwt"},
		{name: "missing", want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer invalid-token", want: http.StatusUnauthorized},
		{name: "foreign secret", header: "Bearer " + foreign, want: http.StatusUnauthorized},
	}

	router := okRouter(AuthMiddleware(auth))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(router, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.method != "" {
				assert.Contains(t, w.Body.String(), tt.method)
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router := okRouter(AuthMiddleware(NewAuthService("", "")))

	w := serve(router, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"auth":"none"`)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(5)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow("test-client"))
	}
	assert.False(t, limiter.Allow("test-client"))
	assert.True(t, limiter.Allow("another-client"))
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	limiter := NewRateLimiter(1)
	limiter.window = 20 * time.Millisecond

	assert.True(t, limiter.Allow("c"))
	assert.False(t, limiter.Allow("c"))
	time.Sleep(40 * time.Millisecond)
	assert.True(t, limiter.Allow("c"))
}

func TestRateLimiter_ForgetsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(1)
	limiter.window = 20 * time.Millisecond

	for i := 0; i < 50; i++ {
		assert.True(t, limiter.Allow(fmt.Sprintf("10.0.0.%d", i)))
	}
	assert.Len(t, limiter.requests, 50)

	time.Sleep(40 * time.Millisecond)
	assert.True(t, limiter.Allow("10.0.1.1"))

	assert.Len(t, limiter.requests, 1)
	assert.Contains(t, limiter.requests, "10.0.1.1")
}

func TestRateLimiter_SweepKeepsActiveClients(t *testing.T) {
	limiter := NewRateLimiter(1)
	limiter.window = 200 * time.Millisecond

	assert.True(t, limiter.Allow("idle"))
	time.Sleep(120 * time.Millisecond)
	assert.True(t, limiter.Allow("active"))
	time.Sleep(120 * time.Millisecond)

	// idle is past the window, active is not
	assert.False(t, limiter.Allow("active"))
	assert.NotContains(t, limiter.requests, "idle")
	assert.Contains(t, limiter.requests, "active")
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(0)
	for i := 0; i < 1000; i++ {
		assert.True(t, limiter.Allow("c"))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	router := okRouter(RateLimitMiddleware(NewRateLimiter(2)))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "192.168.1.1:1234"
		codes = append(codes, serve(router, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORSMiddleware(t *testing.T) {
	router := okRouter(CORSMiddleware([]string{"*"}))

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "http://example.com")
	w := serve(router, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_SpecificOrigins(t *testing.T) {
	router := okRouter(CORSMiddleware([]string{"http://allowed.com", "http://also-allowed.com"}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://also-allowed.com")
	w := serve(router, req)
	assert.Equal(t, "http://also-allowed.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://not-allowed.com")
	w = serve(router, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(LoggerMiddleware(), RecoveryMiddleware())
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
