package api

import (
	"net/http"

	"dreamui/backend/internal/archive"
	"dreamui/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// ArchiveHandler exposes the archive for browsing and manual edits
type ArchiveHandler struct {
	reconciler *archive.Reconciler
}

// NewArchiveHandler creates a new archive handler
func NewArchiveHandler(reconciler *archive.Reconciler) *ArchiveHandler {
	return &ArchiveHandler{reconciler: reconciler}
}

// RegisterRoutes registers the archive routes
func (h *ArchiveHandler) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/archive")
	{
		group.GET("", h.List)
		group.POST("", h.Save)
		group.GET("/:id", h.Get)
		group.DELETE("/:id", h.Delete)
	}
}

// List returns every entry, most recently updated first
func (h *ArchiveHandler) List(c *gin.Context) {
	entries, err := h.reconciler.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if entries == nil {
		entries = []models.ArchiveEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// Get returns one entry
func (h *ArchiveHandler) Get(c *gin.Context) {
	entry, err := h.reconciler.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Save creates or updates an entry from the posted document
func (h *ArchiveHandler) Save(c *gin.Context) {
	var in models.ArchiveEntry
	if !bindJSON(c, &in) {
		return
	}
	entry, err := h.reconciler.Save(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Delete removes one entry
func (h *ArchiveHandler) Delete(c *gin.Context) {
	id, err := h.reconciler.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}
