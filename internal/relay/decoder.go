package relay

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"
)

// DeltaDecoder extracts the text fragment carried by one frame.
// ok is false when the frame cannot be parsed or carries no text.
type DeltaDecoder interface {
	Delta(frame []byte) (text string, ok bool)
}

// DecoderFunc adapts a function to DeltaDecoder
type DecoderFunc func(frame []byte) (string, bool)

// Delta calls f(frame)
func (f DecoderFunc) Delta(frame []byte) (string, bool) {
	return f(frame)
}

// OpenAIDecoder reads choices[0].delta.content from chat-completion chunks
type OpenAIDecoder struct{}

// Delta implements DeltaDecoder
func (OpenAIDecoder) Delta(frame []byte) (string, bool) {
	var chunk openai.ChatCompletionStreamResponse
	if err := json.Unmarshal(frame, &chunk); err != nil {
		return "", false
	}
	if len(chunk.Choices) == 0 {
		return "", false
	}
	content := chunk.Choices[0].Delta.Content
	return content, content != ""
}
