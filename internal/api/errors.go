package api

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"dreamui/backend/internal/archive"
	"dreamui/backend/internal/character"
	"dreamui/backend/internal/inference"
	"dreamui/backend/internal/service"
	"dreamui/backend/internal/storage"
	"dreamui/backend/internal/world"
	apperrors "dreamui/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ToAppError maps domain errors onto the error envelope shared by HTTP and websocket replies
func ToAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var upstream *inference.UpstreamError
	var pathErr *fs.PathError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return apperrors.NewBadRequestError(err.Error()).WithCause(err)
	case errors.Is(err, service.ErrCharacterNotFound),
		errors.Is(err, character.ErrNotFound):
		return apperrors.NewNotFoundError("Character not found").WithCause(err)
	case errors.Is(err, archive.ErrNotFound):
		return apperrors.NewNotFoundError("Archive entry not found").WithCause(err)
	case errors.Is(err, world.ErrNotFound):
		return apperrors.NewNotFoundError("World entry not found").WithCause(err)
	case errors.As(err, &maxBytes):
		return apperrors.NewError(http.StatusRequestEntityTooLarge, apperrors.CodeBodyTooLarge,
			fmt.Sprintf("Request body exceeds %d bytes", maxBytes.Limit))
	case errors.As(err, &upstream):
		e := apperrors.NewUpstreamError("Inference backend request failed").WithCause(err)
		if upstream.StatusCode > 0 {
			e.WithDetails(gin.H{"upstream_status": upstream.StatusCode, "upstream_message": upstream.Message})
		} else {
			e.WithDetails(gin.H{"upstream_message": upstream.Message})
		}
		return e
	case errors.Is(err, storage.ErrCorrupt),
		errors.Is(err, archive.ErrCorrupt),
		errors.As(err, &pathErr):
		return apperrors.NewStorageError("Failed to access stored data").WithCause(err)
	default:
		return apperrors.FromError(err)
	}
}

// fail records err for the error middleware and stops the handler chain
func fail(c *gin.Context, err error) {
	_ = c.Error(ToAppError(err))
	c.Abort()
}

// bindJSON decodes the body into v, reporting a 400 on failure
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			fail(c, err)
			return false
		}
		fail(c, apperrors.NewBadRequestError("Invalid request body").WithDetails(err.Error()).WithCause(err))
		return false
	}
	return true
}
