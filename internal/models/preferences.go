package models

// Preferences is the client's persisted settings document
type Preferences struct {
	Theme       *string `json:"theme"`
	Language    *string `json:"language"`
	CharacterID *int64  `json:"character_id"`
}
