package inference

import (
	"encoding/json"
	"errors"
	"io"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stream yields the payload of each "data:" frame of a streamed completion
type Stream struct {
	raw    *openai.ChatCompletionStream
	span   trace.Span
	frames int
	once   sync.Once

	// pending is returned by the call after an error frame was yielded
	pending error
}

// Next returns the next frame payload with the "data: " marker removed.
// It returns io.EOF once the [DONE] sentinel arrives or the upstream closes.
// An {"error":...} frame is yielded as a frame and its error is returned by the
// following call.
func (s *Stream) Next() ([]byte, error) {
	if s.pending != nil {
		return nil, s.pending
	}

	frame, err := s.raw.RecvRaw()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		ue := upstreamError(err)
		s.span.RecordError(ue)
		s.span.SetStatus(codes.Error, ue.Message)

		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			if payload, merr := json.Marshal(errorFrame{Error: apiErr}); merr == nil {
				s.pending = ue
				s.frames++
				return payload, nil
			}
		}
		return nil, ue
	}
	s.frames++
	return frame, nil
}

// errorFrame rebuilds the error payload go-openai consumes while reading the stream
type errorFrame struct {
	Error *openai.APIError `json:"error"`
}

// Close releases the upstream connection. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.raw.Close()
		s.span.SetAttributes(attribute.Int("frames", s.frames))
		s.span.End()
	})
	return err
}
