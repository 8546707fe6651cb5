// Package service orchestrates chat and notebook requests: it composes prompts,
// calls the inference backend and reconciles the result into the archive.
package service

import (
	"context"
	"errors"

	"dreamui/backend/internal/inference"
	"dreamui/backend/internal/models"
	"dreamui/backend/internal/relay"
)

var (
	// ErrCharacterNotFound is returned when a request names a character that does not exist
	ErrCharacterNotFound = errors.New("character not found")
	// ErrInvalidRequest marks requests rejected before any upstream call
	ErrInvalidRequest = errors.New("invalid request")
)

// Backend is the inference backend as seen by the services
type Backend interface {
	Complete(ctx context.Context, req inference.Request) (string, error)
	OpenStream(ctx context.Context, req inference.Request) (relay.FrameSource, error)
	DefaultModel() string
}

// Characters resolves persona ids
type Characters interface {
	Get(ctx context.Context, id int64) (models.Character, error)
}

// World supplies enabled world-info entries
type World interface {
	ListEnabled(ctx context.Context) ([]models.WorldEntry, error)
}

// Preferences supplies the stored client settings
type Preferences interface {
	Get(ctx context.Context) models.Preferences
}

// StreamTarget receives a streamed reply
type StreamTarget interface {
	relay.Sink
	// Begin is called once the upstream accepted the request, before the first frame
	Begin(archiveID string)
}

// Result is the outcome of a chat or notebook request
type Result struct {
	Text      string
	ArchiveID string
	// Partial is set when a stream ended early and only part of the reply was archived
	Partial bool
}
