package models

// Archive entry types
const (
	ArchiveChat     = "chat"
	ArchiveRoleplay = "roleplay"
	ArchiveStory    = "story"
)

// ArchiveEntry is a persisted conversation or story. Timestamps are unix milliseconds.
type ArchiveEntry struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	Name        string        `json:"name"`
	Preview     string        `json:"preview"`
	Model       string        `json:"model"`
	CreatedAt   int64         `json:"created_at"`
	UpdatedAt   int64         `json:"updated_at"`
	Messages    []ChatMessage `json:"messages,omitempty"`
	Text        string        `json:"text,omitempty"`
	CharacterID *int64        `json:"character_id,omitempty"`
}
