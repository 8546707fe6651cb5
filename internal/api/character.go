package api

import (
	"net/http"
	"strconv"

	"dreamui/backend/internal/character"
	"dreamui/backend/internal/models"
	apperrors "dreamui/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// CharacterHandler manages persona files
type CharacterHandler struct {
	store *character.Store
}

// NewCharacterHandler creates a new character handler
func NewCharacterHandler(store *character.Store) *CharacterHandler {
	return &CharacterHandler{store: store}
}

// RegisterRoutes registers the character routes
func (h *CharacterHandler) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/characters")
	{
		group.GET("", h.ListCharacters)
		group.POST("", h.SaveCharacter)
		group.GET("/:id", h.GetCharacter)
		group.DELETE("/:id", h.DeleteCharacter)
	}
}

func characterID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, apperrors.NewBadRequestError("Invalid character ID"))
		return 0, false
	}
	return id, true
}

// ListCharacters returns every stored character
func (h *CharacterHandler) ListCharacters(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []models.Character{}
	}
	c.JSON(http.StatusOK, list)
}

// GetCharacter returns one character
func (h *CharacterHandler) GetCharacter(c *gin.Context) {
	id, ok := characterID(c)
	if !ok {
		return
	}
	ch, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// SaveCharacter creates a character, or replaces it when the body carries an id
func (h *CharacterHandler) SaveCharacter(c *gin.Context) {
	var req models.Character
	if !bindJSON(c, &req) {
		return
	}
	if req.Name == "" {
		fail(c, apperrors.NewBadRequestError("Character name is required"))
		return
	}
	ch, err := h.store.Save(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// DeleteCharacter removes one character
func (h *CharacterHandler) DeleteCharacter(c *gin.Context) {
	id, ok := characterID(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}
