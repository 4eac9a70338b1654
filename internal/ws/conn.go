// Package ws carries page traffic over a websocket.
package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 20 // captured images arrive as data URLs
	sendBuffer     = 256
)

var (
	// ErrClosed is returned when sending on a closed connection.
	ErrClosed = errors.New("websocket connection closed")
	// ErrSendBufferFull is returned when the peer is not draining messages.
	ErrSendBufferFull = errors.New("websocket send buffer full")
)

// Message is the envelope for every frame in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Handler processes one inbound message. It runs on the read goroutine.
type Handler func(Message)

// Conn pumps JSON messages between a websocket and the page session.
type Conn struct {
	conn   *websocket.Conn
	logger zerolog.Logger
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

// NewConn wraps an upgraded websocket.
func NewConn(conn *websocket.Conn, logger zerolog.Logger) *Conn {
	return &Conn{
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBuffer),
	}
}

// Send queues a message without blocking.
func (c *Conn) Send(msgType string, data any) error {
	payload, err := json.Marshal(outbound{Type: msgType, Data: data})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Run starts the write pump and reads until the peer goes away. It closes the
// connection before returning.
func (c *Conn) Run(handler Handler) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump()
	}()

	c.readPump(handler)
	c.Close()
	<-done
}

// Close stops the write pump. Safe to call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Conn) readPump(handler Handler) {
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("Unexpected websocket close")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Type == "" {
			c.logger.Warn().Err(err).Msg("Discarding malformed page message")
			continue
		}
		handler(msg)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to write page message")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
