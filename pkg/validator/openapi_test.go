package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"

	apperrors "dreamui/backend/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schemaPath(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "api", "openapi.yaml")
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	v, err := NewOpenAPIValidator(schemaPath(t))
	require.NoError(t, err)

	r := gin.New()
	r.Use(apperrors.ErrorHandler(), v.Middleware())
	r.POST("/chat", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/unlisted", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestValidRequestPasses(t *testing.T) {
	w := post(newRouter(t), "/chat", `{"prompt":"hi","mode":"roleplay"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInvalidRequestRejected(t *testing.T) {
	r := newRouter(t)

	w := post(r, "/chat", `{"model":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.CodeValidation)

	w = post(r, "/chat", `{"prompt":"hi","mode":"narrator"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnlistedRoutePasses(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unlisted", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReloadSchema(t *testing.T) {
	v, err := NewOpenAPIValidator(schemaPath(t))
	require.NoError(t, err)
	assert.NoError(t, v.ReloadSchema())
	assert.Equal(t, schemaPath(t), v.SchemaPath())
}
