package prompt

import (
	"fmt"
	"strings"

	"dreamui/backend/internal/models"
)

// Sampling temperatures used by notebook operations when the request sets none
const (
	ContinueTemperature  float32 = 0.8
	RewriteTemperature   float32 = 0.7
	SummarizeTemperature float32 = 0.3
)

const writingAssistant = "You are a writing assistant for long-form fiction.\n"

func styleLine(style string) string {
	if style = strings.TrimSpace(style); style == "" {
		return ""
	}
	return fmt.Sprintf("Follow these style instructions: %q.\n", style)
}

// ContinuePrompt asks the model to carry on from the end of text
func ContinuePrompt(text, style string) []models.ChatMessage {
	content := writingAssistant + styleLine(style) +
		"Continue the story below in the same style. " +
		"Do not repeat existing text, only continue from where it stops.\n\n" +
		"[STORY START]\n" + text + "\n[STORY END]\n"
	return userOnly(content)
}

// RewritePrompt asks the model to rework a passage while keeping its meaning
func RewritePrompt(selection, style string) []models.ChatMessage {
	content := writingAssistant + styleLine(style) +
		"Rewrite the following passage. Keep the meaning, but improve flow, wording, and style.\n\n" +
		"[PASSAGE]\n" + selection + "\n[END OF PASSAGE]\n"
	return userOnly(content)
}

// SummarizePrompt asks for bullet points followed by a short paragraph
func SummarizePrompt(text string) []models.ChatMessage {
	content := "Summarize the following story in concise bullet points and then in one short paragraph:\n\n" + text
	return userOnly(content)
}

func userOnly(content string) []models.ChatMessage {
	return []models.ChatMessage{{Role: models.RoleUser, Content: content}}
}
