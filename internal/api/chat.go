package api

import (
	"net/http"

	"dreamui/backend/internal/models"
	"dreamui/backend/internal/service"
	apperrors "dreamui/backend/pkg/errors"
	"dreamui/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatHandler serves buffered and streamed chat turns
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service *service.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// RegisterRoutes registers the chat routes
func (h *ChatHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/chat", h.Chat)
	router.POST("/chat/stream", h.Stream)
}

// Chat answers one turn and returns the whole reply
func (h *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.service.Reply(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ChatResponse{Reply: res.Text, ArchiveID: res.ArchiveID})
}

// Stream answers one turn by forwarding upstream frames as they arrive
func (h *ChatHandler) Stream(c *gin.Context) {
	var req models.ChatRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.service.Stream(c.Request.Context(), req, newHTTPStream(c))
	finishStream(c, res, err)
}

// finishStream reports a stream failure. Once frames went out the status is
// committed, so the failure is only logged.
func finishStream(c *gin.Context, res service.Result, err error) {
	if err == nil {
		return
	}
	if c.Writer.Written() {
		// The status line is gone; record what the client would have been told
		appErr := ToAppError(err)
		logger.FromContext(c).Warn("Stream interrupted",
			"archive_id", res.ArchiveID,
			"partial", res.Partial,
			"status_code", apperrors.GetStatusCode(appErr),
			"error_code", apperrors.GetErrorCode(appErr),
			"error", err.Error(),
		)
		return
	}
	fail(c, err)
}
