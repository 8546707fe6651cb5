package relay

import (
	"io"
	"net/http"
)

// WriterSink writes each frame followed by a newline and flushes when it can
type WriterSink struct {
	w   io.Writer
	buf []byte
}

// NewWriterSink wraps w
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// WriteFrame implements Sink
func (s *WriterSink) WriteFrame(frame []byte) error {
	s.buf = append(append(s.buf[:0], frame...), '\n')
	if _, err := s.w.Write(s.buf); err != nil {
		return err
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// SinkFunc adapts a function to Sink
type SinkFunc func(frame []byte) error

// WriteFrame calls f(frame)
func (f SinkFunc) WriteFrame(frame []byte) error {
	return f(frame)
}
