package inference

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// completionShape is the minimum a buffered reply must carry. Pointers tell a
// missing message or content apart from an empty string.
type completionShape struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// shapeChecker rejects successful chat-completion bodies whose first choice has
// no message content before go-openai decodes them into zero values.
type shapeChecker struct {
	next openai.HTTPDoer
}

func (s shapeChecker) Do(req *http.Request) (*http.Response, error) {
	resp, err := s.next.Do(req)
	if err != nil || !strings.HasSuffix(req.URL.Path, "/chat/completions") ||
		resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp, err
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: "read response body", Err: err}
	}
	if err := checkShape(data); err != nil {
		err.StatusCode = resp.StatusCode
		return nil, err
	}

	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}

func checkShape(data []byte) *UpstreamError {
	var shape completionShape
	if err := json.Unmarshal(data, &shape); err != nil {
		return &UpstreamError{Message: "malformed response body", Err: err}
	}
	if len(shape.Choices) == 0 {
		return &UpstreamError{Message: "response has no choices"}
	}
	if m := shape.Choices[0].Message; m == nil || m.Content == nil {
		return &UpstreamError{Message: "response has no message content"}
	}
	return nil
}
