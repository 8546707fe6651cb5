package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"dreamui/backend/internal/models"
	"dreamui/backend/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ChatUpsert is a full conversation transcript to merge into an entry
type ChatUpsert struct {
	// ID may be empty to create a new entry
	ID          string
	Type        string
	Messages    []models.ChatMessage
	Model       string
	CharacterID *int64
}

// StoryUpsert is the full text of a story to merge into an entry
type StoryUpsert struct {
	ID    string
	Text  string
	Model string
}

// Reconciler merges new state into archive entries, one writer per id at a time
type Reconciler struct {
	repo   Repository
	locker Locker
	now    func() time.Time
	log    *logger.Logger
	tracer trace.Tracer
}

// NewReconciler creates a Reconciler. A nil locker selects a MemoryLocker.
func NewReconciler(repo Repository, locker Locker, log *logger.Logger) *Reconciler {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Reconciler{
		repo:   repo,
		locker: locker,
		now:    time.Now,
		log:    log.WithComponent("archive"),
		tracer: otel.Tracer("dreamui/backend/internal/archive"),
	}
}

// NewID synthesizes a fresh id for an entry of the given type
func (r *Reconciler) NewID(entryType string) string {
	return newID(entryType, r.now())
}

// ResolveID returns the id an upsert with raw would write to
func (r *Reconciler) ResolveID(raw, entryType string) string {
	return resolveID(raw, entryType, r.now())
}

// loadExisting returns the stored entry, or a zero entry when there is none.
// A corrupt entry is overwritten rather than blocking new writes.
func (r *Reconciler) loadExisting(ctx context.Context, id string) (models.ArchiveEntry, error) {
	existing, err := r.repo.Get(ctx, id)
	switch {
	case err == nil:
		return existing, nil
	case errors.Is(err, ErrNotFound):
		return models.ArchiveEntry{}, nil
	case errors.Is(err, ErrCorrupt):
		r.log.Warn("Replacing corrupt archive entry", "archive_id", id, "error", err.Error())
		return models.ArchiveEntry{}, nil
	default:
		return models.ArchiveEntry{}, err
	}
}

// stamp sets created_at once and moves updated_at forward, never back
func (r *Reconciler) stamp(entry *models.ArchiveEntry, existing models.ArchiveEntry) {
	now := millis(r.now())
	switch {
	case existing.CreatedAt > 0:
		entry.CreatedAt = existing.CreatedAt
	case entry.CreatedAt <= 0:
		entry.CreatedAt = now
	}
	entry.UpdatedAt = max(now, existing.UpdatedAt, entry.CreatedAt)
}

func (r *Reconciler) write(ctx context.Context, id string, build func(existing models.ArchiveEntry) models.ArchiveEntry) (models.ArchiveEntry, error) {
	ctx, span := r.tracer.Start(ctx, "archive.upsert", trace.WithAttributes(attribute.String("archive_id", id)))
	defer span.End()

	unlock, err := r.locker.Lock(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return models.ArchiveEntry{}, fmt.Errorf("lock archive entry %s: %w", id, err)
	}
	defer unlock()

	existing, err := r.loadExisting(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return models.ArchiveEntry{}, err
	}

	entry := build(existing)
	entry.ID = id
	r.stamp(&entry, existing)

	if err := r.repo.Put(ctx, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.ArchiveEntry{}, err
	}

	r.log.Debug("Archive entry written", "archive_id", id, "type", entry.Type, "created", existing.CreatedAt == 0)
	return entry, nil
}

// UpsertChat writes a chat or roleplay transcript and returns the entry id
func (r *Reconciler) UpsertChat(ctx context.Context, req ChatUpsert) (string, error) {
	entryType := req.Type
	if entryType == "" {
		entryType = models.ArchiveChat
	}
	id := r.ResolveID(req.ID, entryType)

	entry, err := r.write(ctx, id, func(existing models.ArchiveEntry) models.ArchiveEntry {
		e := existing
		e.Type = entryType
		e.Messages = req.Messages
		if e.Name == "" {
			e.Name = ChatName(req.Messages)
		}
		if len(req.Messages) > 0 {
			e.Preview = ChatPreview(req.Messages)
		}
		if req.Model != "" {
			e.Model = req.Model
		}
		if req.CharacterID != nil {
			e.CharacterID = req.CharacterID
		}
		return e
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// UpsertStory writes the full text of a story and returns the entry id
func (r *Reconciler) UpsertStory(ctx context.Context, req StoryUpsert) (string, error) {
	id := r.ResolveID(req.ID, models.ArchiveStory)

	entry, err := r.write(ctx, id, func(existing models.ArchiveEntry) models.ArchiveEntry {
		e := existing
		e.Type = models.ArchiveStory
		e.Text = req.Text
		e.Messages = nil
		if e.Name == "" {
			e.Name = StoryName(req.Text)
		}
		e.Preview = StoryPreview(req.Text)
		if req.Model != "" {
			e.Model = req.Model
		}
		return e
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// Save stores a client-supplied entry. Supplied fields win over stored ones, so a
// different name renames the entry; created_at is still preserved.
func (r *Reconciler) Save(ctx context.Context, in models.ArchiveEntry) (models.ArchiveEntry, error) {
	id := r.ResolveID(in.ID, "arch")

	return r.write(ctx, id, func(existing models.ArchiveEntry) models.ArchiveEntry {
		e := existing
		e.Type = firstNonEmpty(in.Type, existing.Type, models.ArchiveChat)
		e.Name = firstNonEmpty(in.Name, existing.Name, DefaultEntryName)
		e.Preview = firstNonEmpty(in.Preview, existing.Preview)
		e.Model = firstNonEmpty(in.Model, existing.Model)
		e.Text = firstNonEmpty(in.Text, existing.Text)
		if len(in.Messages) > 0 {
			e.Messages = in.Messages
		}
		if in.CharacterID != nil {
			e.CharacterID = in.CharacterID
		}
		if existing.CreatedAt == 0 && in.CreatedAt > 0 {
			e.CreatedAt = NormalizeMillis(in.CreatedAt)
		}
		return e
	})
}

// List returns every entry, most recently updated first
func (r *Reconciler) List(ctx context.Context) ([]models.ArchiveEntry, error) {
	entries, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].UpdatedAt != entries[j].UpdatedAt {
			return entries[i].UpdatedAt > entries[j].UpdatedAt
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// Get returns one entry or ErrNotFound
func (r *Reconciler) Get(ctx context.Context, id string) (models.ArchiveEntry, error) {
	return r.repo.Get(ctx, SafeID(id))
}

// Delete removes one entry or returns ErrNotFound
func (r *Reconciler) Delete(ctx context.Context, id string) (string, error) {
	safe := SafeID(id)
	if safe == "" {
		return "", ErrNotFound
	}
	unlock, err := r.locker.Lock(ctx, safe)
	if err != nil {
		return "", fmt.Errorf("lock archive entry %s: %w", safe, err)
	}
	defer unlock()

	if err := r.repo.Delete(ctx, safe); err != nil {
		return "", err
	}
	r.log.Info("Archive entry deleted", "archive_id", safe)
	return safe, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
