// Package archive persists conversations and stories and reconciles new turns into them.
package archive

import (
	"context"
	"errors"

	"dreamui/backend/internal/models"
)

var (
	// ErrNotFound is returned when no entry exists for an id
	ErrNotFound = errors.New("archive entry not found")
	// ErrCorrupt is returned when a stored entry exists but cannot be decoded
	ErrCorrupt = errors.New("archive entry is corrupt")
)

// Repository stores archive entries by id. Implementations return ErrNotFound and
// ErrCorrupt (possibly wrapped) for absent and undecodable entries; any other error
// is an I/O failure.
type Repository interface {
	// List returns every readable entry. Corrupt entries are skipped.
	List(ctx context.Context) ([]models.ArchiveEntry, error)
	Get(ctx context.Context, id string) (models.ArchiveEntry, error)
	// Put replaces the entry with the same id as a whole
	Put(ctx context.Context, entry models.ArchiveEntry) error
	Delete(ctx context.Context, id string) error
}
