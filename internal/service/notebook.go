package service

import (
	"context"
	"fmt"
	"strings"

	"dreamui/backend/internal/archive"
	"dreamui/backend/internal/inference"
	"dreamui/backend/internal/models"
	"dreamui/backend/internal/prompt"
	"dreamui/backend/internal/relay"
	"dreamui/backend/pkg/logger"
)

// NotebookService serves the long-form writing tools
type NotebookService struct {
	backend Backend
	archive *archive.Reconciler
	relay   *relay.Relay
	log     *logger.Logger
}

// NewNotebookService wires a NotebookService
func NewNotebookService(backend Backend, reconciler *archive.Reconciler, rl *relay.Relay, log *logger.Logger) *NotebookService {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &NotebookService{
		backend: backend,
		archive: reconciler,
		relay:   rl,
		log:     log.WithComponent("notebook"),
	}
}

func (s *NotebookService) model(requested string) string {
	if requested != "" {
		return requested
	}
	return s.backend.DefaultModel()
}

func temperature(requested *float32, fallback float32) *float32 {
	if requested != nil {
		return requested
	}
	return &fallback
}

// Continue streams a continuation of req.Text to target and archives the story
// as the original text followed by whatever was generated.
func (s *NotebookService) Continue(ctx context.Context, req models.NotebookContinueRequest, target StreamTarget) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}
	model := s.model(req.Model)
	archiveID := s.archive.ResolveID(req.ArchiveID, models.ArchiveStory)

	src, err := s.backend.OpenStream(ctx, inference.Request{
		Model:       model,
		Messages:    prompt.ContinuePrompt(req.Text, req.Style),
		Temperature: temperature(req.Temperature, prompt.ContinueTemperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Result{}, err
	}
	defer src.Close()

	target.Begin(archiveID)
	res, runErr := s.relay.Run(ctx, src, target)
	if runErr != nil && res.Frames == 0 {
		return Result{ArchiveID: archiveID, Partial: true}, runErr
	}

	_, err = s.archive.UpsertStory(context.WithoutCancel(ctx), archive.StoryUpsert{
		ID:    archiveID,
		Text:  req.Text + res.Text,
		Model: model,
	})
	if err != nil {
		s.log.LogError(err, "Failed to archive story", "archive_id", archiveID)
		if runErr == nil {
			runErr = fmt.Errorf("archive story: %w", err)
		}
	}
	return Result{Text: res.Text, ArchiveID: archiveID, Partial: runErr != nil}, runErr
}

// Rewrite returns a reworked version of the selected passage
func (s *NotebookService) Rewrite(ctx context.Context, req models.NotebookRewriteRequest) (string, error) {
	if strings.TrimSpace(req.Selection) == "" {
		return "", fmt.Errorf("%w: selection is required", ErrInvalidRequest)
	}
	return s.backend.Complete(ctx, inference.Request{
		Model:       s.model(req.Model),
		Messages:    prompt.RewritePrompt(req.Selection, req.Style),
		Temperature: temperature(req.Temperature, prompt.RewriteTemperature),
		MaxTokens:   req.MaxTokens,
	})
}

// Summarize returns bullet points and a short paragraph describing the text
func (s *NotebookService) Summarize(ctx context.Context, req models.NotebookSummarizeRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}
	return s.backend.Complete(ctx, inference.Request{
		Model:       s.model(req.Model),
		Messages:    prompt.SummarizePrompt(req.Text),
		Temperature: temperature(nil, prompt.SummarizeTemperature),
		MaxTokens:   req.MaxTokens,
	})
}
