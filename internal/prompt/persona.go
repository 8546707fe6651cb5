// Package prompt assembles the message lists sent to the inference backend.
package prompt

import (
	"fmt"
	"strings"

	"dreamui/backend/internal/models"
)

// LanguageInstruction is appended after the persona when the request names no language
const LanguageInstruction = "Respond in the same language the user used."

// WorldHeader prefixes the world-info system message
const WorldHeader = "World info:"

const chatRules = "Talk with the user as yourself in a natural conversation. " +
	"Do not narrate, do not describe actions, and do not use roleplay formatting such as asterisks. " +
	"Reply in plain prose."

const roleplayRules = "You are taking part in an interactive roleplay with the user. Stay in character at all times. " +
	"Write actions and narration in *italics* using single asterisks and put spoken dialogue in \"double quotes\". " +
	"Never speak or act for the user's character."

// Persona renders the system prompt for character in the given mode.
// An empty mode falls back to the character's own mode.
func Persona(character *models.Character, mode string) string {
	if character == nil {
		return ""
	}
	if mode == "" {
		mode = character.EffectiveMode()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.", strings.TrimSpace(character.Name))
	if v := strings.TrimSpace(character.Gender); v != "" {
		fmt.Fprintf(&b, " Gender: %s.", v)
	}
	if v := strings.TrimSpace(character.Personality); v != "" {
		fmt.Fprintf(&b, " Persona: %s", v)
		if !strings.HasSuffix(v, ".") {
			b.WriteString(".")
		}
	}
	if v := strings.TrimSpace(character.Greeting); v != "" {
		fmt.Fprintf(&b, " Your usual greeting is: %q.", v)
	}
	b.WriteString("\n\n")
	if mode == models.ModeRoleplay {
		b.WriteString(roleplayRules)
	} else {
		b.WriteString(chatRules)
	}
	return b.String()
}

// Language renders the reply-language instruction
func Language(language string) string {
	if language = strings.TrimSpace(language); language != "" {
		return fmt.Sprintf("Respond in %s.", language)
	}
	return LanguageInstruction
}

// World renders enabled entries as one block, or "" when none are enabled
func World(entries []models.WorldEntry) string {
	var blocks []string
	for _, e := range entries {
		if !e.Enabled {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("%s: %s", e.Name, e.Description))
	}
	if len(blocks) == 0 {
		return ""
	}
	return WorldHeader + "\n" + strings.Join(blocks, "\n\n")
}

// Compose returns the system messages in order: persona, language, world context.
// The persona is omitted when character is nil and the world message when no entry is enabled.
func Compose(character *models.Character, mode, language string, world []models.WorldEntry) []models.ChatMessage {
	var out []models.ChatMessage
	if p := Persona(character, mode); p != "" {
		out = append(out, system(p))
	}
	out = append(out, system(Language(language)))
	if w := World(world); w != "" {
		out = append(out, system(w))
	}
	return out
}

func system(content string) models.ChatMessage {
	return models.ChatMessage{Role: models.RoleSystem, Content: content}
}
