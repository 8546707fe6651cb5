// Package world stores world-info entries, the lore snippets injected into prompts.
package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"dreamui/backend/internal/models"
	"dreamui/backend/internal/storage"
	"dreamui/backend/pkg/cache"
	"dreamui/backend/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned for unknown slugs
var ErrNotFound = errors.New("world entry not found")

const (
	enabledKey    = "enabled"
	defaultSlug   = "entry"
	untitledEntry = "Untitled entry"
	charsPerToken = 4
)

// Slugify derives the file-safe identity of an entry from its name
func Slugify(name string) string {
	if s := strings.ToLower(storage.SafeName(name)); s != "" {
		return s
	}
	return defaultSlug
}

// EstimateTokens approximates the token count of text as one token per four characters, rounded up
func EstimateTokens(text string) int {
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / charsPerToken))
}

// Store keeps one "<slug>.json" file per entry
type Store struct {
	dir   string
	log   *logger.Logger
	cache *cache.Cache[[]models.WorldEntry]
	group singleflight.Group
	mu    sync.Mutex
	now   func() time.Time
}

// NewStore creates a Store over dir. ttl bounds how long the enabled-entry list is reused.
func NewStore(dir string, ttl time.Duration, log *logger.Logger) *Store {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Store{
		dir:   dir,
		log:   log.WithComponent("world"),
		cache: cache.New[[]models.WorldEntry](cache.Options{TTL: ttl}),
		now:   time.Now,
	}
}

// Dir returns the backing directory
func (s *Store) Dir() string {
	return s.dir
}

// Invalidate drops the cached enabled-entry list
func (s *Store) Invalidate() {
	s.cache.Delete(enabledKey)
}

type record struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     *bool  `json:"enabled"`
	Tokens      *int   `json:"tokens"`
	CreatedAt   *int64 `json:"created_at"`
	UpdatedAt   *int64 `json:"updated_at"`
}

func (s *Store) path(slug string) string {
	return filepath.Join(s.dir, Slugify(slug)+".json")
}

func (s *Store) load(path string) (models.WorldEntry, error) {
	var rec record
	if err := storage.ReadJSON(path, &rec); err != nil {
		if storage.IsNotExist(err) {
			return models.WorldEntry{}, ErrNotFound
		}
		return models.WorldEntry{}, err
	}

	entry := models.WorldEntry{
		Slug:        rec.Slug,
		Name:        rec.Name,
		Description: rec.Description,
		Enabled:     rec.Enabled == nil || *rec.Enabled,
	}
	if entry.Slug == "" {
		entry.Slug = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	if rec.Tokens != nil {
		entry.Tokens = *rec.Tokens
	} else {
		entry.Tokens = EstimateTokens(rec.Description)
	}

	if rec.UpdatedAt != nil {
		entry.UpdatedAt = storage.NormalizeMillis(*rec.UpdatedAt)
	}
	switch {
	case rec.CreatedAt != nil && *rec.CreatedAt > 0:
		entry.CreatedAt = storage.NormalizeMillis(*rec.CreatedAt)
	case entry.UpdatedAt > 0:
		entry.CreatedAt = entry.UpdatedAt
	default:
		info, err := os.Stat(path)
		if err != nil {
			return models.WorldEntry{}, err
		}
		entry.CreatedAt = info.ModTime().UnixMilli()
	}
	if entry.UpdatedAt == 0 {
		entry.UpdatedAt = entry.CreatedAt
	}
	return entry, nil
}

// List returns every readable entry, oldest first. Corrupt files are skipped.
func (s *Store) List(ctx context.Context) ([]models.WorldEntry, error) {
	paths, err := storage.JSONFiles(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list world entries: %w", err)
	}

	entries := make([]models.WorldEntry, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := s.load(path)
		switch {
		case err == nil:
			entries = append(entries, entry)
		case errors.Is(err, ErrNotFound):
		case errors.Is(err, storage.ErrCorrupt):
			s.log.Warn("Skipping corrupt world entry", "file", filepath.Base(path), "error", err.Error())
		default:
			return nil, fmt.Errorf("load world entry %s: %w", filepath.Base(path), err)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt != entries[j].CreatedAt {
			return entries[i].CreatedAt < entries[j].CreatedAt
		}
		return entries[i].Slug < entries[j].Slug
	})
	return entries, nil
}

// ListEnabled returns the entries that feed prompt composition. Results are cached
// and concurrent cache misses share one directory scan.
func (s *Store) ListEnabled(ctx context.Context) ([]models.WorldEntry, error) {
	if entries, ok := s.cache.Get(enabledKey); ok {
		return entries, nil
	}

	v, err, _ := s.group.Do(enabledKey, func() (any, error) {
		all, err := s.List(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		enabled := make([]models.WorldEntry, 0, len(all))
		for _, e := range all {
			if e.Enabled {
				enabled = append(enabled, e)
			}
		}
		s.cache.Set(enabledKey, enabled)
		return enabled, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.WorldEntry), nil
}

// Get returns the entry for slug
func (s *Store) Get(ctx context.Context, slug string) (models.WorldEntry, error) {
	return s.load(s.path(slug))
}

// Save creates or replaces the entry named by req. When PreviousSlug names a
// different existing entry, that entry is renamed: its created_at carries over
// and its file is removed.
func (s *Store) Save(ctx context.Context, req models.SaveWorldEntryRequest) (models.WorldEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.Invalidate()

	slug := Slugify(req.Name)
	target := s.path(slug)

	var (
		createdAt  int64
		renameFrom string
	)
	if req.PreviousSlug != "" {
		prevSlug := Slugify(req.PreviousSlug)
		if prevSlug != slug {
			prev, err := s.load(s.path(prevSlug))
			switch {
			case err == nil:
				createdAt = prev.CreatedAt
				renameFrom = s.path(prevSlug)
			case errors.Is(err, ErrNotFound):
			case errors.Is(err, storage.ErrCorrupt):
				renameFrom = s.path(prevSlug)
			default:
				return models.WorldEntry{}, err
			}
		}
	}
	if createdAt == 0 {
		existing, err := s.load(target)
		switch {
		case err == nil:
			createdAt = existing.CreatedAt
		case errors.Is(err, ErrNotFound), errors.Is(err, storage.ErrCorrupt):
		default:
			return models.WorldEntry{}, err
		}
	}

	now := s.now().UnixMilli()
	if createdAt == 0 {
		createdAt = now
	}

	entry := models.WorldEntry{
		Slug:        slug,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Enabled:     req.Enabled == nil || *req.Enabled,
		CreatedAt:   createdAt,
		UpdatedAt:   max(now, createdAt),
	}
	if entry.Name == "" {
		entry.Name = untitledEntry
	}
	if req.Tokens != nil {
		entry.Tokens = *req.Tokens
	} else {
		entry.Tokens = EstimateTokens(req.Description)
	}

	if err := storage.WriteJSON(target, entry); err != nil {
		return models.WorldEntry{}, err
	}
	if renameFrom != "" {
		if err := os.Remove(renameFrom); err != nil && !storage.IsNotExist(err) {
			return models.WorldEntry{}, fmt.Errorf("remove renamed world entry: %w", err)
		}
		s.log.Info("World entry renamed", "from", req.PreviousSlug, "slug", slug)
	}
	return entry, nil
}

// Delete removes the entry for slug
func (s *Store) Delete(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(slug)); err != nil {
		if storage.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete world entry %s: %w", slug, err)
	}
	s.Invalidate()
	return nil
}

// Close releases the cache
func (s *Store) Close() {
	s.cache.Close()
}
