package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "dreamui/backend/pkg/errors"
	"dreamui/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

func TestRateLimiterRejectsAfterBurst(t *testing.T) {
	opts := DefaultRateLimiterOptions()
	opts.Limit = 0.001
	opts.Burst = 2
	opts.Skip = func(c *gin.Context) bool { return c.Request.URL.Path == "/health" }
	rl := NewRateLimiter(logger.Discard(), opts)
	defer rl.Close()

	r := gin.New()
	r.Use(apperrors.ErrorHandler(), rl.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Contains(t, w.Body.String(), apperrors.CodeRateLimit)
			assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	opts := DefaultRateLimiterOptions()
	opts.Limit = 0.001
	opts.Burst = 1
	opts.KeyFunc = func(c *gin.Context) string { return c.GetHeader("X-Client") }
	rl := NewRateLimiter(logger.Discard(), opts)
	defer rl.Close()

	r := gin.New()
	r.Use(apperrors.ErrorHandler(), rl.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, client := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Client", client)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code, client)
	}
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		require.NoError(t, err)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("short")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("far too long for the cap")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
