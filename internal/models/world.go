package models

// WorldEntry is a lore snippet that can be injected into prompts.
// Timestamps are unix milliseconds.
type WorldEntry struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
	Tokens      int    `json:"tokens"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// SaveWorldEntryRequest creates or updates a world entry, optionally renaming it
type SaveWorldEntryRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	Enabled      *bool  `json:"enabled,omitempty"`
	Tokens       *int   `json:"tokens,omitempty"`
	PreviousSlug string `json:"previous_slug,omitempty"`
}
