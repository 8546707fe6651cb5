// Package preferences persists the client's settings document.
package preferences

import (
	"context"
	"fmt"
	"sync"

	"dreamui/backend/internal/models"
	"dreamui/backend/internal/storage"
	"dreamui/backend/pkg/logger"
)

// Store reads and merges a single JSON document. Unknown keys already in the
// file are preserved on update.
type Store struct {
	path string
	log  *logger.Logger
	mu   sync.Mutex
}

// NewStore creates a Store backed by the file at path
func NewStore(path string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Store{path: path, log: log.WithComponent("preferences")}
}

func (s *Store) read() map[string]any {
	doc := map[string]any{}
	if err := storage.ReadJSON(s.path, &doc); err != nil {
		if !storage.IsNotExist(err) {
			s.log.Warn("Ignoring unreadable preferences", "path", s.path, "error", err.Error())
		}
		return map[string]any{}
	}
	return doc
}

func fromDoc(doc map[string]any) models.Preferences {
	var p models.Preferences
	if v, ok := doc["theme"].(string); ok {
		p.Theme = &v
	}
	if v, ok := doc["language"].(string); ok {
		p.Language = &v
	}
	switch v := doc["character_id"].(type) {
	case float64:
		id := int64(v)
		p.CharacterID = &id
	case int64:
		p.CharacterID = &v
	}
	return p
}

// Get returns the stored preferences. A missing or corrupt file reads as empty.
func (s *Store) Get(ctx context.Context) models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fromDoc(s.read())
}

// Update merges the non-nil fields of update into the document and returns the result
func (s *Store) Update(ctx context.Context, update models.Preferences) (models.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.read()
	if update.Theme != nil {
		doc["theme"] = *update.Theme
	}
	if update.Language != nil {
		doc["language"] = *update.Language
	}
	if update.CharacterID != nil {
		doc["character_id"] = *update.CharacterID
	}
	if err := storage.WriteJSON(s.path, doc); err != nil {
		return models.Preferences{}, fmt.Errorf("save preferences: %w", err)
	}
	return fromDoc(doc), nil
}
