package api

import (
	"net/http"

	"dreamui/backend/internal/models"
	"dreamui/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// NotebookHandler serves the story-writing endpoints
type NotebookHandler struct {
	service *service.NotebookService
}

// NewNotebookHandler creates a new notebook handler
func NewNotebookHandler(service *service.NotebookService) *NotebookHandler {
	return &NotebookHandler{service: service}
}

// RegisterRoutes registers the notebook routes
func (h *NotebookHandler) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/notebook")
	{
		group.POST("/continue", h.Continue)
		group.POST("/rewrite", h.Rewrite)
		group.POST("/summarize", h.Summarize)
	}
}

// Continue streams a continuation of the posted story
func (h *NotebookHandler) Continue(c *gin.Context) {
	var req models.NotebookContinueRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.service.Continue(c.Request.Context(), req, newHTTPStream(c))
	finishStream(c, res, err)
}

// Rewrite returns a reworked passage
func (h *NotebookHandler) Rewrite(c *gin.Context) {
	var req models.NotebookRewriteRequest
	if !bindJSON(c, &req) {
		return
	}
	text, err := h.service.Rewrite(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NotebookResponse{Text: text})
}

// Summarize returns a summary of the posted story
func (h *NotebookHandler) Summarize(c *gin.Context) {
	var req models.NotebookSummarizeRequest
	if !bindJSON(c, &req) {
		return
	}
	text, err := h.service.Summarize(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NotebookResponse{Text: text})
}
