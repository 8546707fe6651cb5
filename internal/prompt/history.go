package prompt

import "dreamui/backend/internal/models"

// NormalizeHistory keeps user and assistant turns with non-empty content, in order.
// Anything else is dropped without error.
func NormalizeHistory(history []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role != models.RoleUser && m.Role != models.RoleAssistant {
			continue
		}
		if m.Content == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// BuildMessages appends normalized history and the new user turn to the system messages
func BuildMessages(system, history []models.ChatMessage, userPrompt string) []models.ChatMessage {
	hist := NormalizeHistory(history)
	out := make([]models.ChatMessage, 0, len(system)+len(hist)+1)
	out = append(out, system...)
	out = append(out, hist...)
	out = append(out, models.ChatMessage{Role: models.RoleUser, Content: userPrompt})
	return out
}
