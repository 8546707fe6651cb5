package archive

import (
	"strings"

	"dreamui/backend/internal/models"
)

const (
	chatNameLimit     = 64
	storyNameLimit    = 72
	storyPreviewLimit = 200
	ellipsis          = "…"

	// DefaultChatName labels conversations without a user turn
	DefaultChatName = "Chat"
	// DefaultStoryName labels empty stories
	DefaultStoryName = "Story"
	// DefaultEntryName labels generic saves that carry no name
	DefaultEntryName = "Untitled"
)

// truncate cuts s to limit runes and appends an ellipsis when anything was cut
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit])) + ellipsis
}

// ChatName derives a display name from the first user turn
func ChatName(messages []models.ChatMessage) string {
	for _, m := range messages {
		if m.Role != models.RoleUser {
			continue
		}
		clean := strings.TrimSpace(m.Content)
		if clean == "" {
			break
		}
		return truncate(clean, chatNameLimit)
	}
	return DefaultChatName
}

// ChatPreview is the content of the latest message, untruncated
func ChatPreview(messages []models.ChatMessage) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}

// StoryName derives a display name from the first line of text
func StoryName(text string) string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return DefaultStoryName
	}
	first, _, _ := strings.Cut(clean, "\n")
	return truncate(strings.TrimSpace(first), storyNameLimit)
}

// StoryPreview is the opening of text
func StoryPreview(text string) string {
	return truncate(strings.TrimSpace(text), storyPreviewLimit)
}
