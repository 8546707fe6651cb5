package character

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dreamui/backend/internal/models"
	"dreamui/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "characters")
	s := NewStore(dir, time.Minute, logger.Discard())
	t.Cleanup(s.Close)
	return s, dir
}

func TestSaveAssignsIDAndDefaultsMode(t *testing.T) {
	s, dir := newStore(t)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	c, err := s.Save(context.Background(), models.Character{Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), c.ID)
	assert.Equal(t, models.ModeChat, c.Mode)

	_, err = os.Stat(filepath.Join(dir, "1700000000000.json"))
	assert.NoError(t, err)
}

func TestGetByFileNameAndByScan(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, models.Character{ID: 1, Name: "Ada", Mode: models.ModeRoleplay})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bram.json"), []byte(`{"id":2,"name":"Bram"}`), 0o644))

	ada, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ada", ada.Name)
	assert.Equal(t, models.ModeRoleplay, ada.Mode)

	bram, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Bram", bram.Name)

	_, err = s.Get(ctx, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveInvalidatesCache(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, models.Character{ID: 5, Name: "Before"})
	require.NoError(t, err)
	_, err = s.Get(ctx, 5)
	require.NoError(t, err)

	_, err = s.Save(ctx, models.Character{ID: 5, Name: "After"})
	require.NoError(t, err)
	got, err := s.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)
}

func TestListSkipsCorrupt(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, models.Character{ID: 2, Name: "Two"})
	require.NoError(t, err)
	_, err = s.Save(ctx, models.Character{ID: 1, Name: "One"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json"), []byte("nope"), 0o644))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "One", list[0].Name)
}

func TestDelete(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, models.Character{ID: 9, Name: "Gone"})
	require.NoError(t, err)
	_, err = s.Get(ctx, 9)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, 9))
	_, err = s.Get(ctx, 9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, 9), ErrNotFound)
}
