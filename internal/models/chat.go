package models

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single role/content turn
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body accepted by the chat endpoints and the websocket transport
type ChatRequest struct {
	Prompt      string        `json:"prompt" binding:"required"`
	Model       string        `json:"model,omitempty"`
	CharacterID *int64        `json:"character_id,omitempty"`
	Mode        string        `json:"mode,omitempty"`
	Language    string        `json:"language,omitempty"`
	History     []ChatMessage `json:"history,omitempty"`
	ArchiveID   string        `json:"archive_id,omitempty"`
}

// ChatResponse is returned by the buffered chat endpoint
type ChatResponse struct {
	Reply     string `json:"reply"`
	ArchiveID string `json:"archive_id"`
}
