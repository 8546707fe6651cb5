// Package character stores the personas chats can be held with.
package character

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"dreamui/backend/internal/models"
	"dreamui/backend/internal/storage"
	"dreamui/backend/pkg/cache"
	"dreamui/backend/pkg/logger"
)

// ErrNotFound is returned for unknown character ids
var ErrNotFound = errors.New("character not found")

// Store keeps one "<id>.json" file per character
type Store struct {
	dir   string
	log   *logger.Logger
	cache *cache.Cache[models.Character]
	mu    sync.Mutex
	now   func() time.Time
}

// NewStore creates a Store over dir; lookups are cached for ttl
func NewStore(dir string, ttl time.Duration, log *logger.Logger) *Store {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Store{
		dir:   dir,
		log:   log.WithComponent("character"),
		cache: cache.New[models.Character](cache.Options{TTL: ttl}),
		now:   time.Now,
	}
}

// Dir returns the backing directory
func (s *Store) Dir() string {
	return s.dir
}

// Invalidate drops every cached lookup
func (s *Store) Invalidate() {
	s.cache.Flush()
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (s *Store) path(id int64) string {
	return filepath.Join(s.dir, key(id)+".json")
}

// List returns every readable character ordered by id
func (s *Store) List(ctx context.Context) ([]models.Character, error) {
	paths, err := storage.JSONFiles(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}

	out := make([]models.Character, 0, len(paths))
	for _, path := range paths {
		var c models.Character
		if err := storage.ReadJSON(path, &c); err != nil {
			if errors.Is(err, storage.ErrCorrupt) {
				s.log.Warn("Skipping corrupt character file", "file", filepath.Base(path), "error", err.Error())
				continue
			}
			if storage.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read character %s: %w", filepath.Base(path), err)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns the character with id. Files not named after their id are
// found by scanning the directory.
func (s *Store) Get(ctx context.Context, id int64) (models.Character, error) {
	if c, ok := s.cache.Get(key(id)); ok {
		return c, nil
	}

	var c models.Character
	err := storage.ReadJSON(s.path(id), &c)
	switch {
	case err == nil && c.ID == id:
		s.cache.Set(key(id), c)
		return c, nil
	case err != nil && !storage.IsNotExist(err) && !errors.Is(err, storage.ErrCorrupt):
		return models.Character{}, fmt.Errorf("read character %d: %w", id, err)
	}

	all, err := s.List(ctx)
	if err != nil {
		return models.Character{}, err
	}
	for _, c := range all {
		if c.ID == id {
			s.cache.Set(key(id), c)
			return c, nil
		}
	}
	return models.Character{}, ErrNotFound
}

// Save writes c, assigning an id from the current time when it has none
func (s *Store) Save(ctx context.Context, c models.Character) (models.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		c.ID = s.now().UnixMilli()
	}
	if c.Mode != models.ModeRoleplay {
		c.Mode = models.ModeChat
	}
	if err := storage.WriteJSON(s.path(c.ID), c); err != nil {
		return models.Character{}, err
	}
	s.cache.Delete(key(c.ID))
	return c, nil
}

// Delete removes the character file for id
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cache.Delete(key(id))

	if err := os.Remove(s.path(id)); err != nil {
		if storage.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete character %d: %w", id, err)
	}
	return nil
}

// Close releases the cache
func (s *Store) Close() {
	s.cache.Close()
}
