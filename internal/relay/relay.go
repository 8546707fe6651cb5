// Package relay re-emits an upstream completion stream to a client while
// collecting the assistant text it carries.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"dreamui/backend/pkg/logger"
)

// FrameSource yields raw frame payloads. Next returns io.EOF at the end of the stream.
type FrameSource interface {
	Next() ([]byte, error)
	Close() error
}

// Sink receives frames in upstream order
type Sink interface {
	WriteFrame(frame []byte) error
}

// Result is what a relay run produced, complete or partial
type Result struct {
	// Text is the concatenation of every decoded delta
	Text string
	// Frames counts frames written to the sink
	Frames int
	// Decoded counts frames the decoder extracted a delta from
	Decoded int
}

// SinkError wraps a failure to deliver a frame downstream, usually a client disconnect
type SinkError struct {
	Err error
}

func (e *SinkError) Error() string { return "relay: write frame: " + e.Err.Error() }

func (e *SinkError) Unwrap() error { return e.Err }

// Relay forwards frames one at a time and never reorders or batches them
type Relay struct {
	decoder DeltaDecoder
	log     *logger.Logger
}

// New creates a Relay. A nil decoder selects OpenAIDecoder.
func New(decoder DeltaDecoder, log *logger.Logger) *Relay {
	if decoder == nil {
		decoder = OpenAIDecoder{}
	}
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Relay{decoder: decoder, log: log.WithComponent("relay")}
}

// Run copies frames from src to sink until src is exhausted.
// It returns a nil error on io.EOF. On upstream failure, sink failure or
// cancellation the partial Result is returned together with the error.
// Run does not close src.
func (r *Relay) Run(ctx context.Context, src FrameSource, sink Sink) (Result, error) {
	var (
		res  Result
		text strings.Builder
	)
	finish := func(err error) (Result, error) {
		res.Text = text.String()
		return res, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			return finish(nil)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish(ctxErr)
			}
			return finish(fmt.Errorf("relay: read frame: %w", err))
		}
		if len(frame) == 0 {
			continue
		}

		if err := sink.WriteFrame(frame); err != nil {
			return finish(&SinkError{Err: err})
		}
		res.Frames++

		if delta, ok := r.decoder.Delta(frame); ok {
			text.WriteString(delta)
			res.Decoded++
		} else {
			r.log.Debug("Frame carried no delta", "frame", res.Frames)
		}
	}
}
