package api

import (
	"context"
	"net/http"

	"dreamui/backend/internal/inference"

	"github.com/gin-gonic/gin"
)

// ModelLister reports the models the inference backend serves
type ModelLister interface {
	Models(ctx context.Context) ([]inference.Model, error)
}

// ModelsHandler proxies the upstream model listing
type ModelsHandler struct {
	lister ModelLister
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(lister ModelLister) *ModelsHandler {
	return &ModelsHandler{lister: lister}
}

// RegisterRoutes registers the model listing route
func (h *ModelsHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/models", h.List)
}

// List returns the upstream model list
func (h *ModelsHandler) List(c *gin.Context) {
	list, err := h.lister.Models(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": list})
}
