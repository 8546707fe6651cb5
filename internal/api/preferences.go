package api

import (
	"net/http"

	"dreamui/backend/internal/models"
	"dreamui/backend/internal/preferences"

	"github.com/gin-gonic/gin"
)

// PreferencesHandler reads and merges the client settings document
type PreferencesHandler struct {
	store *preferences.Store
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(store *preferences.Store) *PreferencesHandler {
	return &PreferencesHandler{store: store}
}

// RegisterRoutes registers the preferences routes
func (h *PreferencesHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/preferences", h.Get)
	router.POST("/preferences", h.Update)
}

// Get returns the stored preferences
func (h *PreferencesHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Get(c.Request.Context()))
}

// Update merges the posted fields into the stored preferences
func (h *PreferencesHandler) Update(c *gin.Context) {
	var req models.Preferences
	if !bindJSON(c, &req) {
		return
	}
	prefs, err := h.store.Update(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}
