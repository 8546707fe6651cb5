package api

import (
	"net/http"

	"dreamui/backend/internal/models"
	"dreamui/backend/internal/world"

	"github.com/gin-gonic/gin"
)

// WorldHandler manages world-info entries
type WorldHandler struct {
	store *world.Store
}

// NewWorldHandler creates a new world-info handler
func NewWorldHandler(store *world.Store) *WorldHandler {
	return &WorldHandler{store: store}
}

// RegisterRoutes registers the world-info routes
func (h *WorldHandler) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/world")
	{
		group.GET("", h.List)
		group.POST("", h.Save)
		group.GET("/:slug", h.Get)
		group.DELETE("/:slug", h.Delete)
	}
}

// List returns every entry, oldest first
func (h *WorldHandler) List(c *gin.Context) {
	entries, err := h.store.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if entries == nil {
		entries = []models.WorldEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// Get returns one entry
func (h *WorldHandler) Get(c *gin.Context) {
	entry, err := h.store.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Save creates, replaces or renames an entry
func (h *WorldHandler) Save(c *gin.Context) {
	var req models.SaveWorldEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.store.Save(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Delete removes one entry
func (h *WorldHandler) Delete(c *gin.Context) {
	slug := world.Slugify(c.Param("slug"))
	if err := h.store.Delete(c.Request.Context(), slug); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "slug": slug})
}
