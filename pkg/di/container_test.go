package di

import (
	"context"
	"path/filepath"
	"testing"

	"dreamui/backend/internal/archive"
	"dreamui/backend/internal/models"
	"dreamui/backend/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("ARCHIVE_BACKEND", backend)
	t.Setenv("ARCHIVE_DSN", filepath.Join(dir, "archive.db"))
	t.Setenv("CACHE_WATCH_FILES", "false")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNewFileBackend(t *testing.T) {
	c, err := New(testConfig(t, config.BackendFile))
	require.NoError(t, err)
	defer c.Close(context.Background())

	assert.IsType(t, &archive.FileRepository{}, c.Archive)
	assert.Nil(t, c.DB)
	assert.Nil(t, c.Redis)
	for _, component := range []any{c.Reconciler, c.Characters, c.World, c.Preferences, c.Inference, c.ChatService, c.NotebookService, c.Hub, c.Health} {
		assert.NotNil(t, component)
	}
	assert.Contains(t, c.Health.GetStatus(), "storage")
	assert.NotContains(t, c.Health.GetStatus(), "database")
}

func TestNewSQLiteBackend(t *testing.T) {
	c, err := New(testConfig(t, config.BackendSQLite))
	require.NoError(t, err)
	defer c.Close(context.Background())

	require.NotNil(t, c.DB)
	assert.Contains(t, c.Health.GetStatus(), "database")

	ctx := context.Background()
	id, err := c.Reconciler.UpsertChat(ctx, archive.ChatUpsert{
		Messages: []models.ChatMessage{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
	})
	require.NoError(t, err)

	entry, err := c.Reconciler.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveChat, entry.Type)
	assert.Len(t, entry.Messages, 2)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(testConfig(t, "mongo"))
	assert.ErrorContains(t, err, "unknown archive backend")
}
