package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"dreamui/backend/internal/models"
	"dreamui/backend/internal/service"
	apperrors "dreamui/backend/pkg/errors"
	"dreamui/backend/pkg/logger"
	wsmsg "dreamui/backend/pkg/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512KB

	// Requests waiting behind the one being answered
	queueSize = 8
)

var errClientClosed = errors.New("websocket client closed")

// ChatStreamer answers a chat turn by streaming frames into target
type ChatStreamer interface {
	Stream(ctx context.Context, req models.ChatRequest, target service.StreamTarget) (service.Result, error)
}

// ErrorMapper turns a request failure into the envelope sent to the client
type ErrorMapper func(err error) *apperrors.AppError

// Handler upgrades /ws/chat requests
type Handler struct {
	hub      *Hub
	chat     ChatStreamer
	mapError ErrorMapper
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewHandler creates a websocket chat handler. An empty origins list or "*" accepts any origin.
func NewHandler(hub *Hub, chat ChatStreamer, mapError ErrorMapper, origins []string, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.GetGlobal()
	}
	if mapError == nil {
		mapError = apperrors.FromError
	}
	return &Handler{
		hub:      hub,
		chat:     chat,
		mapError: mapError,
		upgrader: websocket.Upgrader{
			CheckOrigin:      originChecker(origins),
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		log: log.WithComponent("ws"),
	}
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// Client is one websocket connection. Requests are answered one at a time, in order.
type Client struct {
	ID       string
	conn     *websocket.Conn
	send     chan []byte
	requests chan models.ChatRequest
	hub      *Hub
	handler  *Handler
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// ServeWs upgrades the connection and starts the client pumps
func (h *Handler) ServeWs(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		h.log.Warn("Websocket upgrade failed", "error", err.Error())
		return
	}
	conn.EnableWriteCompression(true)

	id := c.Query("clientId")
	if id == "" {
		id = uuid.New().String()
	}
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		ID:       id,
		conn:     conn,
		send:     make(chan []byte, 256),
		requests: make(chan models.ChatRequest, queueSize),
		hub:      h.hub,
		handler:  h,
		log:      &logger.Logger{Logger: h.log.With("client_id", id)},
		ctx:      ctx,
		cancel:   cancel,
	}

	if !h.hub.add(client) {
		cancel()
		conn.Close()
		return
	}
	h.log.Info("Websocket connection established", "client_id", id)

	go client.writePump()
	go client.serve()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.hub.remove(c)
		c.conn.Close()
		c.log.Debug("Read pump ended")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("Websocket closed unexpectedly", "error", err.Error())
			}
			return
		}

		var kind wsmsg.Inbound
		if err := json.Unmarshal(data, &kind); err != nil {
			c.sendError(apperrors.NewBadRequestError("Message is not valid JSON"))
			continue
		}
		if kind.Type == wsmsg.TypePing {
			c.enqueue(wsmsg.Message{Type: wsmsg.TypePong})
			continue
		}

		var req models.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.sendError(apperrors.NewBadRequestError("Message is not a chat request"))
			continue
		}

		// Never block here: the pong handler only runs while this loop reads
		select {
		case c.requests <- req:
		default:
			c.sendError(apperrors.NewRateLimitError("Too many queued requests"))
		}
	}
}

// serve answers queued requests until the connection closes
func (c *Client) serve() {
	for {
		select {
		case req := <-c.requests:
			c.answer(req)
		case <-c.ctx.Done():
			return
		}
	}
}

// answer streams one reply as chunk messages closed by done, or by error on failure
func (c *Client) answer(req models.ChatRequest) {
	res, err := c.handler.chat.Stream(c.ctx, req, &target{client: c})
	if c.ctx.Err() != nil {
		return
	}
	if err != nil {
		c.log.Warn("Websocket chat failed", "archive_id", res.ArchiveID, "error", err.Error())
		c.sendError(c.handler.mapError(err))
		return
	}
	c.enqueue(wsmsg.Message{Type: wsmsg.TypeDone, Content: wsmsg.Done{
		ArchiveID: res.ArchiveID,
		Reply:     res.Text,
	}})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.cancel()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// push queues an encoded frame. It blocks while the send buffer is full.
func (c *Client) push(data []byte) error {
	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return errClientClosed
	}
}

func (c *Client) enqueue(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.LogError(err, "Failed to encode websocket message")
		return
	}
	_ = c.push(data)
}

func (c *Client) sendError(appErr *apperrors.AppError) {
	c.enqueue(wsmsg.Message{Type: wsmsg.TypeError, Content: wsmsg.Error{
		Code:    appErr.Code,
		Message: appErr.Message,
	}})
}

// target adapts a client to service.StreamTarget
type target struct {
	client *Client
}

func (t *target) Begin(archiveID string) {
	t.client.log.Debug("Websocket stream started", "archive_id", archiveID)
}

func (t *target) WriteFrame(frame []byte) error {
	content := json.RawMessage(frame)
	if !json.Valid(frame) {
		quoted, _ := json.Marshal(string(frame))
		content = quoted
	}
	data, err := json.Marshal(wsmsg.Chunk{Type: wsmsg.TypeChunk, Content: content})
	if err != nil {
		return err
	}
	return t.client.push(data)
}
