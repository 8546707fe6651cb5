package archive

import (
	"testing"
	"time"

	"dreamui/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestSafeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"chat_1700000000000", "chat_1700000000000"},
		{"  my chat  ", "my_chat"},
		{"../../etc/passwd", "_etc_passwd"},
		{"a!!!b???c", "a_b_c"},
		{"héllo wörld", "h_llo_w_rld"},
		{"keep-dash_and_underscore", "keep-dash_and_underscore"},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeID(tt.in), "SafeID(%q)", tt.in)
	}
}

func TestNormalizeMillis(t *testing.T) {
	assert.Equal(t, int64(1700000000000), NormalizeMillis(1700000000))
	assert.Equal(t, int64(1700000000000), NormalizeMillis(1700000000000))
	assert.Equal(t, int64(999999999999000), NormalizeMillis(999999999999))
	assert.Equal(t, int64(1e12), NormalizeMillis(1e12))
	assert.Equal(t, int64(0), NormalizeMillis(0))
}

func TestResolveID(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	assert.Equal(t, "chat_1700000000123", resolveID("", models.ArchiveChat, now))
	assert.Equal(t, "story_1700000000123", resolveID("  ", models.ArchiveStory, now))
	assert.Equal(t, "my_id", resolveID("my id", models.ArchiveChat, now))
	assert.Equal(t, "_", resolveID("!!", models.ArchiveChat, now))
	assert.Equal(t, "arch_1700000000123", fallbackID(now))
	assert.Equal(t, "_1700000000123", newID("", now))
}
