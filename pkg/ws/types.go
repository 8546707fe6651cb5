// Package ws holds the message envelope shared by the websocket server and its clients.
package ws

import "encoding/json"

// Message types sent over /ws/chat
const (
	TypeChunk = "chunk"
	TypeDone  = "done"
	TypeError = "error"
	TypePing  = "ping"
	TypePong  = "pong"
)

// Message is one websocket text frame
type Message struct {
	Type    string `json:"type"`
	Content any    `json:"content,omitempty"`
}

// Inbound is a raw client message. Content stays undecoded until Type is known.
type Inbound struct {
	Type string `json:"type,omitempty"`
}

// Chunk carries one upstream frame verbatim
type Chunk struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// Done closes a reply
type Done struct {
	ArchiveID string `json:"archive_id"`
	Reply     string `json:"reply"`
}

// Error reports a failed request; the connection stays open
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
