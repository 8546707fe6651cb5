package api

import (
	"net/http"

	"dreamui/backend/internal/relay"

	"github.com/gin-gonic/gin"
)

// ArchiveIDHeader announces the archive entry a streamed reply is written to
const ArchiveIDHeader = "X-Archive-ID"

// httpStream writes relayed frames straight into the gin response
type httpStream struct {
	*relay.WriterSink
	c *gin.Context
}

func newHTTPStream(c *gin.Context) *httpStream {
	return &httpStream{WriterSink: relay.NewWriterSink(c.Writer), c: c}
}

// Begin commits the response headers once the upstream accepted the request
func (s *httpStream) Begin(archiveID string) {
	h := s.c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	h.Set(ArchiveIDHeader, archiveID)
	s.c.Status(http.StatusOK)
	s.c.Writer.WriteHeaderNow()
	s.c.Writer.Flush()
}
