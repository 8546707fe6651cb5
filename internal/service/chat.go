package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dreamui/backend/internal/archive"
	"dreamui/backend/internal/character"
	"dreamui/backend/internal/inference"
	"dreamui/backend/internal/models"
	"dreamui/backend/internal/prompt"
	"dreamui/backend/internal/relay"
	"dreamui/backend/pkg/logger"
)

// ChatService answers chat and roleplay turns
type ChatService struct {
	backend    Backend
	characters Characters
	world      World
	prefs      Preferences
	archive    *archive.Reconciler
	relay      *relay.Relay
	log        *logger.Logger
}

// NewChatService wires a ChatService
func NewChatService(backend Backend, characters Characters, world World, prefs Preferences,
	reconciler *archive.Reconciler, rl *relay.Relay, log *logger.Logger) *ChatService {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &ChatService{
		backend:    backend,
		characters: characters,
		world:      world,
		prefs:      prefs,
		archive:    reconciler,
		relay:      rl,
		log:        log.WithComponent("chat"),
	}
}

// turn is a request resolved into everything the upstream call and the archive need
type turn struct {
	req       models.ChatRequest
	character *models.Character
	mode      string
	model     string
	messages  []models.ChatMessage
}

func (t *turn) archiveType() string {
	if t.mode == models.ModeRoleplay {
		return models.ArchiveRoleplay
	}
	return models.ArchiveChat
}

func (t *turn) characterID() *int64 {
	if t.character == nil {
		return nil
	}
	id := t.character.ID
	return &id
}

// transcript is the normalized history plus this turn's prompt and reply
func (t *turn) transcript(reply string) []models.ChatMessage {
	out := prompt.NormalizeHistory(t.req.History)
	out = append(out, models.ChatMessage{Role: models.RoleUser, Content: t.req.Prompt})
	if reply != "" {
		out = append(out, models.ChatMessage{Role: models.RoleAssistant, Content: reply})
	}
	return out
}

func (s *ChatService) resolveCharacter(ctx context.Context, explicit *int64) (*models.Character, error) {
	if explicit != nil {
		c, err := s.characters.Get(ctx, *explicit)
		if errors.Is(err, character.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrCharacterNotFound, *explicit)
		}
		if err != nil {
			return nil, err
		}
		return &c, nil
	}

	pref := s.prefs.Get(ctx).CharacterID
	if pref == nil {
		return nil, nil
	}
	c, err := s.characters.Get(ctx, *pref)
	if errors.Is(err, character.ErrNotFound) {
		s.log.Warn("Preferred character no longer exists", "character_id", *pref)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ChatService) prepare(ctx context.Context, req models.ChatRequest) (*turn, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	switch req.Mode {
	case "", models.ModeChat, models.ModeRoleplay:
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}

	c, err := s.resolveCharacter(ctx, req.CharacterID)
	if err != nil {
		return nil, err
	}

	mode := req.Mode
	if mode == "" {
		mode = c.EffectiveMode()
	}

	world, err := s.world.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("load world info: %w", err)
	}

	model := req.Model
	if model == "" {
		model = s.backend.DefaultModel()
	}

	system := prompt.Compose(c, mode, req.Language, world)
	return &turn{
		req:       req,
		character: c,
		mode:      mode,
		model:     model,
		messages:  prompt.BuildMessages(system, req.History, req.Prompt),
	}, nil
}

// Reply answers one turn with a buffered upstream call and archives the exchange
func (s *ChatService) Reply(ctx context.Context, req models.ChatRequest) (Result, error) {
	t, err := s.prepare(ctx, req)
	if err != nil {
		return Result{}, err
	}

	reply, err := s.backend.Complete(ctx, inference.Request{Model: t.model, Messages: t.messages})
	if err != nil {
		return Result{}, err
	}

	id, err := s.archive.UpsertChat(ctx, archive.ChatUpsert{
		ID:          req.ArchiveID,
		Type:        t.archiveType(),
		Messages:    t.transcript(reply),
		Model:       t.model,
		CharacterID: t.characterID(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("archive chat: %w", err)
	}

	s.log.Info("Chat turn completed", "archive_id", id, "model", t.model, "mode", t.mode)
	return Result{Text: reply, ArchiveID: id}, nil
}

// Stream answers one turn by relaying upstream frames to target as they arrive.
// The archive id is fixed before the upstream call and passed to target.Begin.
// If the stream breaks after frames were relayed, the partial reply is archived
// and the relay error is returned alongside the Result.
func (s *ChatService) Stream(ctx context.Context, req models.ChatRequest, target StreamTarget) (Result, error) {
	t, err := s.prepare(ctx, req)
	if err != nil {
		return Result{}, err
	}
	archiveID := s.archive.ResolveID(req.ArchiveID, t.archiveType())

	src, err := s.backend.OpenStream(ctx, inference.Request{Model: t.model, Messages: t.messages})
	if err != nil {
		return Result{}, err
	}
	defer src.Close()

	target.Begin(archiveID)
	res, runErr := s.relay.Run(ctx, src, target)
	if runErr != nil && res.Frames == 0 {
		return Result{ArchiveID: archiveID, Partial: true}, runErr
	}

	// The client may be gone; the archive write must still happen.
	id, err := s.archive.UpsertChat(context.WithoutCancel(ctx), archive.ChatUpsert{
		ID:          archiveID,
		Type:        t.archiveType(),
		Messages:    t.transcript(res.Text),
		Model:       t.model,
		CharacterID: t.characterID(),
	})
	if err != nil {
		s.log.LogError(err, "Failed to archive streamed chat", "archive_id", archiveID)
		if runErr == nil {
			runErr = fmt.Errorf("archive chat: %w", err)
		}
	}

	if runErr != nil {
		s.log.Warn("Chat stream ended early", "archive_id", archiveID, "frames", res.Frames, "error", runErr.Error())
	} else {
		s.log.Info("Chat stream completed", "archive_id", id, "model", t.model, "frames", res.Frames)
	}
	return Result{Text: res.Text, ArchiveID: archiveID, Partial: runErr != nil}, runErr
}
