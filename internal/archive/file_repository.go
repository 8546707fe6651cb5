package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dreamui/backend/internal/models"
	"dreamui/backend/internal/storage"
	"dreamui/backend/pkg/logger"
)

// FileRepository keeps one "<id>.json" file per entry in a directory
type FileRepository struct {
	dir string
	log *logger.Logger
}

// NewFileRepository creates a repository rooted at dir. The directory is created on first write.
func NewFileRepository(dir string, log *logger.Logger) *FileRepository {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &FileRepository{dir: dir, log: log.WithComponent("archive.file")}
}

// Dir returns the directory backing the repository
func (r *FileRepository) Dir() string {
	return r.dir
}

func (r *FileRepository) path(id string) string {
	return filepath.Join(r.dir, SafeID(id)+".json")
}

// record mirrors the on-disk layout. Timestamps are pointers so absent
// values can fall back to the file's modification time.
type record struct {
	ID          string               `json:"id"`
	Type        string               `json:"type"`
	Name        string               `json:"name"`
	Preview     string               `json:"preview"`
	Model       string               `json:"model"`
	UpdatedAt   *int64               `json:"updated_at"`
	CreatedAt   *int64               `json:"created_at"`
	Messages    []models.ChatMessage `json:"messages,omitempty"`
	Text        string               `json:"text,omitempty"`
	CharacterID *int64               `json:"character_id"`
}

func (r *FileRepository) load(path string) (models.ArchiveEntry, error) {
	var rec record
	if err := storage.ReadJSON(path, &rec); err != nil {
		switch {
		case storage.IsNotExist(err):
			return models.ArchiveEntry{}, ErrNotFound
		case errors.Is(err, storage.ErrCorrupt):
			return models.ArchiveEntry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return models.ArchiveEntry{}, fmt.Errorf("read %s: %w", path, err)
	}

	entry := models.ArchiveEntry{
		ID:          rec.ID,
		Type:        rec.Type,
		Name:        rec.Name,
		Preview:     rec.Preview,
		Model:       rec.Model,
		Messages:    rec.Messages,
		Text:        rec.Text,
		CharacterID: rec.CharacterID,
	}
	if entry.ID == "" {
		entry.ID = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	if entry.Type == "" {
		entry.Type = models.ArchiveChat
	}

	if rec.UpdatedAt != nil && *rec.UpdatedAt > 0 {
		entry.UpdatedAt = NormalizeMillis(*rec.UpdatedAt)
	} else {
		info, err := os.Stat(path)
		if err != nil {
			return models.ArchiveEntry{}, fmt.Errorf("stat %s: %w", path, err)
		}
		entry.UpdatedAt = info.ModTime().UnixMilli()
	}
	if rec.CreatedAt != nil && *rec.CreatedAt > 0 {
		entry.CreatedAt = NormalizeMillis(*rec.CreatedAt)
	} else {
		entry.CreatedAt = entry.UpdatedAt
	}

	return entry, nil
}

// List implements Repository. A missing directory is an empty archive.
func (r *FileRepository) List(ctx context.Context) ([]models.ArchiveEntry, error) {
	paths, err := storage.JSONFiles(r.dir)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}

	entries := make([]models.ArchiveEntry, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, err := r.load(path)
		switch {
		case err == nil:
			entries = append(entries, entry)
		case errors.Is(err, ErrCorrupt):
			r.log.Warn("Skipping corrupt archive entry", "file", filepath.Base(path), "error", err.Error())
		case errors.Is(err, ErrNotFound):
			// removed between listing and load
		default:
			return nil, err
		}
	}
	return entries, nil
}

// Get implements Repository
func (r *FileRepository) Get(ctx context.Context, id string) (models.ArchiveEntry, error) {
	if SafeID(id) == "" {
		return models.ArchiveEntry{}, ErrNotFound
	}
	return r.load(r.path(id))
}

// Put implements Repository. The file is written to a temporary name and renamed
// into place so readers never see a half-written entry.
func (r *FileRepository) Put(ctx context.Context, entry models.ArchiveEntry) error {
	if SafeID(entry.ID) == "" {
		return fmt.Errorf("archive entry has no id")
	}
	return storage.WriteJSON(r.path(entry.ID), entry)
}

// Delete implements Repository
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	if SafeID(id) == "" {
		return ErrNotFound
	}
	if err := os.Remove(r.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete archive entry %s: %w", id, err)
	}
	return nil
}
