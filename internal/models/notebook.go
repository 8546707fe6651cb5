package models

// NotebookContinueRequest asks for a streamed continuation of a story
type NotebookContinueRequest struct {
	Text        string   `json:"text" binding:"required"`
	Style       string   `json:"style,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	ArchiveID   string   `json:"archive_id,omitempty"`
}

// NotebookRewriteRequest asks for a rewrite of a selected passage
type NotebookRewriteRequest struct {
	Selection   string   `json:"selection" binding:"required"`
	Style       string   `json:"style,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

// NotebookSummarizeRequest asks for a summary of a story
type NotebookSummarizeRequest struct {
	Text      string `json:"text" binding:"required"`
	Model     string `json:"model,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

// NotebookResponse carries generated text
type NotebookResponse struct {
	Text string `json:"text"`
}
