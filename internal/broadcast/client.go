package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 120 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024

	// sendBuffer is the per-client queue length.
	sendBuffer = 64
)

// Handler processes one inbound envelope from c. Replies go through c.Send.
type Handler func(ctx context.Context, c *Client, env Envelope)

// Client is one websocket connection. Outbound messages pass through a
// bounded queue drained by the write pump.
type Client struct {
	id      uuid.UUID
	hub     *Hub
	conn    *websocket.Conn
	handler Handler
	logger  *slog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient wraps conn. The client is registered with hub once Serve runs.
func NewClient(hub *Hub, conn *websocket.Conn, handler Handler, logger *slog.Logger) *Client {
	id := uuid.New()
	return &Client{
		id:      id,
		hub:     hub,
		conn:    conn,
		handler: handler,
		logger:  logger.With("client_id", id.String()),
		send:    make(chan []byte, sendBuffer),
	}
}

// ID returns the client's connection id.
func (c *Client) ID() uuid.UUID { return c.id }

// Send queues one event for this client only. It reports false when the
// message was dropped.
func (c *Client) Send(event string, data any) bool {
	msg, err := Encode(event, data)
	if err != nil {
		c.logger.Error("encoding reply", "event", event, "error", err)
		return false
	}
	if !c.enqueue(msg) {
		c.logger.Warn("client queue full or closed, dropping reply", "event", event)
		return false
	}
	return true
}

func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) closeQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Serve registers the client and pumps messages until the connection closes.
// Inbound events are handled on the calling goroutine, in order.
func (c *Client) Serve(ctx context.Context) {
	c.hub.Register(c)
	go c.writePump()
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.Send(EventError, ErrorPayload{Message: "invalid message"})
			continue
		}
		c.handler(ctx, c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
