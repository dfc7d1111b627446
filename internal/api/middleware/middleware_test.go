package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/trees", ok)
	r.GET("/ipc", ok)
	r.POST("/trees", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too large")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	return r
}

func get(r *gin.Engine, path string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:4000"
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitPerClient(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.RequestsPerSecond = 1
	cfg.Burst = 2
	r := newRouter(RateLimit(cfg))

	assert.Equal(t, http.StatusOK, get(r, "/trees"))
	assert.Equal(t, http.StatusOK, get(r, "/trees"))
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/trees"))

	// attach traffic is never limited
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/ipc"))
	}
}

func TestGlobalRateLimit(t *testing.T) {
	r := newRouter(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	assert.Equal(t, http.StatusOK, get(r, "/trees"))
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/trees"))
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(CORS(DefaultCORSConfig("https://embedder.example")))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/trees", nil)
	req.Header.Set("Origin", "https://embedder.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://embedder.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestDefaultCORSConfigWildcard(t *testing.T) {
	cfg := DefaultCORSConfig()
	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
	assert.False(t, cfg.AllowCredentials)
}

func TestBodyLimit(t *testing.T) {
	r := newRouter(BodyLimit(16))
	post := func(body string, chunked bool) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/trees", strings.NewReader(body))
		if chunked {
			req.ContentLength = -1
		}
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, post(`{"url":"a"}`, false))
	assert.Equal(t, http.StatusRequestEntityTooLarge, post(strings.Repeat("x", 64), false))
	assert.Equal(t, http.StatusRequestEntityTooLarge, post(strings.Repeat("x", 64), true))
}
