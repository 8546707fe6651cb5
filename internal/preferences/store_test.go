package preferences

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dreamui/backend/internal/models"
	"dreamui/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestGetMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "config.json"), logger.Discard())
	p := s.Get(context.Background())
	assert.Nil(t, p.Theme)
	assert.Nil(t, p.Language)
	assert.Nil(t, p.CharacterID)
}

func TestUpdateMerges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark","extra":"kept"}`), 0o644))
	s := NewStore(path, logger.Discard())
	ctx := context.Background()
	id := int64(1700000000000)

	got, err := s.Update(ctx, models.Preferences{Language: strPtr("de"), CharacterID: &id})
	require.NoError(t, err)
	require.NotNil(t, got.Theme)
	assert.Equal(t, "dark", *got.Theme)
	assert.Equal(t, "de", *got.Language)
	assert.Equal(t, id, *got.CharacterID)

	reread := s.Get(ctx)
	assert.Equal(t, got, reread)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"extra": "kept"`)
}

func TestCorruptFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	s := NewStore(path, logger.Discard())

	assert.Nil(t, s.Get(context.Background()).Theme)

	got, err := s.Update(context.Background(), models.Preferences{Theme: strPtr("light")})
	require.NoError(t, err)
	assert.Equal(t, "light", *got.Theme)
}
