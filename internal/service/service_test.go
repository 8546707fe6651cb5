package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dreamui/backend/internal/archive"
	"dreamui/backend/internal/character"
	"dreamui/backend/internal/inference"
	"dreamui/backend/internal/models"
	"dreamui/backend/internal/preferences"
	"dreamui/backend/internal/relay"
	"dreamui/backend/internal/world"
	"dreamui/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu       sync.Mutex
	reply    string
	err      error
	frames   [][]byte
	frameErr error
	requests []inference.Request
}

func (b *fakeBackend) DefaultModel() string { return "default-model" }

func (b *fakeBackend) Complete(ctx context.Context, req inference.Request) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	return b.reply, b.err
}

func (b *fakeBackend) OpenStream(ctx context.Context, req inference.Request) (relay.FrameSource, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if b.err != nil {
		return nil, b.err
	}
	return &frameSource{frames: append([][]byte(nil), b.frames...), err: b.frameErr}, nil
}

func (b *fakeBackend) last() inference.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1]
}

type frameSource struct {
	frames [][]byte
	err    error
}

func (s *frameSource) Next() ([]byte, error) {
	if len(s.frames) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func (s *frameSource) Close() error { return nil }

type recordTarget struct {
	archiveID string
	frames    []string
	failAfter int
}

func (t *recordTarget) Begin(archiveID string) { t.archiveID = archiveID }

func (t *recordTarget) WriteFrame(frame []byte) error {
	if t.failAfter > 0 && len(t.frames) >= t.failAfter {
		return errors.New("client gone")
	}
	t.frames = append(t.frames, string(frame))
	return nil
}

func delta(text string) []byte {
	return []byte(fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":%q}}]}`, text))
}

type fixture struct {
	backend    *fakeBackend
	characters *character.Store
	world      *world.Store
	prefs      *preferences.Store
	reconciler *archive.Reconciler
	chat       *ChatService
	notebook   *NotebookService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	log := logger.Discard()

	f := &fixture{
		backend:    &fakeBackend{},
		characters: character.NewStore(filepath.Join(dir, "characters"), time.Minute, log),
		world:      world.NewStore(filepath.Join(dir, "world_info"), time.Minute, log),
		prefs:      preferences.NewStore(filepath.Join(dir, "config.json"), log),
	}
	t.Cleanup(f.characters.Close)
	t.Cleanup(f.world.Close)

	f.reconciler = archive.NewReconciler(archive.NewFileRepository(filepath.Join(dir, "archive"), log), nil, log)
	rl := relay.New(nil, log)
	f.chat = NewChatService(f.backend, f.characters, f.world, f.prefs, f.reconciler, rl, log)
	f.notebook = NewNotebookService(f.backend, f.reconciler, rl, log)
	return f
}

func TestReplyArchivesTranscript(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.reply = "Hello there."

	res, err := f.chat.Reply(ctx, models.ChatRequest{
		Prompt:  "Hi",
		History: []models.ChatMessage{{Role: models.RoleAssistant, Content: "Welcome"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", res.Text)
	require.NotEmpty(t, res.ArchiveID)

	entry, err := f.reconciler.Get(ctx, res.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveChat, entry.Type)
	assert.Equal(t, "default-model", entry.Model)
	require.Len(t, entry.Messages, 3)
	assert.Equal(t, "Hi", entry.Messages[1].Content)
	assert.Equal(t, "Hello there.", entry.Messages[2].Content)

	sent := f.backend.last()
	assert.Equal(t, "default-model", sent.Model)
	assert.Equal(t, models.RoleSystem, sent.Messages[0].Role)
	assert.Equal(t, models.RoleUser, sent.Messages[len(sent.Messages)-1].Role)
}

func TestReplyContinuesExistingArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.reply = "one"

	first, err := f.chat.Reply(ctx, models.ChatRequest{Prompt: "a"})
	require.NoError(t, err)

	f.backend.reply = "two"
	second, err := f.chat.Reply(ctx, models.ChatRequest{
		Prompt:    "b",
		ArchiveID: first.ArchiveID,
		History: []models.ChatMessage{
			{Role: models.RoleUser, Content: "a"},
			{Role: models.RoleAssistant, Content: "one"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ArchiveID, second.ArchiveID)

	entries, err := f.reconciler.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Messages, 4)
}

func TestReplyUsesCharacterAndWorld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.reply = "*waves*"

	c, err := f.characters.Save(ctx, models.Character{Name: "Ada", Mode: models.ModeRoleplay})
	require.NoError(t, err)
	_, err = f.world.Save(ctx, models.SaveWorldEntryRequest{Name: "Harbor", Description: "A foggy port."})
	require.NoError(t, err)

	res, err := f.chat.Reply(ctx, models.ChatRequest{Prompt: "Hi", CharacterID: &c.ID, Language: "French"})
	require.NoError(t, err)

	sent := f.backend.last()
	require.Len(t, sent.Messages, 4)
	assert.Contains(t, sent.Messages[0].Content, "You are Ada.")
	assert.Equal(t, "Respond in French.", sent.Messages[1].Content)
	assert.Contains(t, sent.Messages[2].Content, "Harbor: A foggy port.")

	entry, err := f.reconciler.Get(ctx, res.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveRoleplay, entry.Type)
	require.NotNil(t, entry.CharacterID)
	assert.Equal(t, c.ID, *entry.CharacterID)
}

func TestReplyFallsBackToPreferredCharacter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.reply = "ok"

	c, err := f.characters.Save(ctx, models.Character{Name: "Bram"})
	require.NoError(t, err)
	_, err = f.prefs.Update(ctx, models.Preferences{CharacterID: &c.ID})
	require.NoError(t, err)

	_, err = f.chat.Reply(ctx, models.ChatRequest{Prompt: "Hi"})
	require.NoError(t, err)
	assert.Contains(t, f.backend.last().Messages[0].Content, "You are Bram.")

	missing := int64(42)
	_, err = f.prefs.Update(ctx, models.Preferences{CharacterID: &missing})
	require.NoError(t, err)

	_, err = f.chat.Reply(ctx, models.ChatRequest{Prompt: "Hi"})
	require.NoError(t, err)
	assert.NotContains(t, f.backend.last().Messages[0].Content, "You are")
}

func TestReplyRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.chat.Reply(ctx, models.ChatRequest{Prompt: "  "})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.chat.Reply(ctx, models.ChatRequest{Prompt: "hi", Mode: "narrator"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	missing := int64(7)
	_, err = f.chat.Reply(ctx, models.ChatRequest{Prompt: "hi", CharacterID: &missing})
	assert.ErrorIs(t, err, ErrCharacterNotFound)
}

func TestReplyUpstreamFailureArchivesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.err = &inference.UpstreamError{StatusCode: 500, Message: "boom"}

	_, err := f.chat.Reply(ctx, models.ChatRequest{Prompt: "hi"})
	assert.True(t, inference.IsUpstream(err))

	entries, err := f.reconciler.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStreamRelaysAndArchives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.frames = [][]byte{delta("Hel"), delta("lo")}

	target := &recordTarget{}
	res, err := f.chat.Stream(ctx, models.ChatRequest{Prompt: "hi"}, target)
	require.NoError(t, err)
	assert.False(t, res.Partial)
	assert.Equal(t, "Hello", res.Text)
	assert.Equal(t, res.ArchiveID, target.archiveID)
	assert.Len(t, target.frames, 2)

	entry, err := f.reconciler.Get(ctx, res.ArchiveID)
	require.NoError(t, err)
	require.Len(t, entry.Messages, 2)
	assert.Equal(t, "Hello", entry.Messages[1].Content)
}

func TestStreamArchivesPartialReplyOnDisconnect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.frames = [][]byte{delta("one "), delta("two "), delta("three")}

	target := &recordTarget{failAfter: 1}
	res, err := f.chat.Stream(ctx, models.ChatRequest{Prompt: "count"}, target)
	var sinkErr *relay.SinkError
	require.ErrorAs(t, err, &sinkErr)
	assert.True(t, res.Partial)

	entry, err := f.reconciler.Get(ctx, res.ArchiveID)
	require.NoError(t, err)
	require.Len(t, entry.Messages, 2)
	assert.Equal(t, "one ", entry.Messages[1].Content)
}

func TestStreamOpenFailureSkipsBeginAndArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.err = &inference.UpstreamError{StatusCode: 503, Message: "loading"}

	target := &recordTarget{}
	_, err := f.chat.Stream(ctx, models.ChatRequest{Prompt: "hi"}, target)
	assert.True(t, inference.IsUpstream(err))
	assert.Empty(t, target.archiveID)

	entries, err := f.reconciler.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNotebookContinueArchivesStory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.frames = [][]byte{delta(" The end.")}

	target := &recordTarget{}
	res, err := f.notebook.Continue(ctx, models.NotebookContinueRequest{Text: "Once upon a time."}, target)
	require.NoError(t, err)
	assert.Equal(t, " The end.", res.Text)

	entry, err := f.reconciler.Get(ctx, target.archiveID)
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveStory, entry.Type)
	assert.Equal(t, "Once upon a time. The end.", entry.Text)

	sent := f.backend.last()
	require.NotNil(t, sent.Temperature)
	assert.InDelta(t, 0.8, *sent.Temperature, 1e-6)
}

func TestNotebookBufferedOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.reply = "better"

	out, err := f.notebook.Rewrite(ctx, models.NotebookRewriteRequest{Selection: "bad prose", Style: "terse"})
	require.NoError(t, err)
	assert.Equal(t, "better", out)
	assert.Contains(t, f.backend.last().Messages[0].Content, "bad prose")
	assert.InDelta(t, 0.7, *f.backend.last().Temperature, 1e-6)

	_, err = f.notebook.Summarize(ctx, models.NotebookSummarizeRequest{Text: "long story"})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, *f.backend.last().Temperature, 1e-6)

	_, err = f.notebook.Summarize(ctx, models.NotebookSummarizeRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	entries, err := f.reconciler.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
