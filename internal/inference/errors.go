package inference

import (
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// UpstreamError reports a failed or malformed exchange with the inference backend.
// StatusCode is 0 when no HTTP response was received.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("inference backend returned %d: %s", e.StatusCode, e.Message)
	}
	return "inference backend: " + e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstream reports whether err is, or wraps, an UpstreamError
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

func upstreamError(err error) *UpstreamError {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := strings.TrimSpace(string(reqErr.Body))
		if msg == "" {
			msg = reqErr.HTTPStatus
		}
		return &UpstreamError{StatusCode: reqErr.HTTPStatusCode, Message: msg, Err: err}
	}
	return &UpstreamError{Message: err.Error(), Err: err}
}
