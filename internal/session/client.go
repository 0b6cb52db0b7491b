package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4096
	sendQueue  = 256
)

// Client is one websocket connection bound to a Session.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session *Session
	logger  hclog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, logger hclog.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendQueue),
	}
}

// Session returns the client's session.
func (c *Client) Session() *Session {
	return c.session
}

// Emit queues evt for the client. Events are dropped if the queue is full.
func (c *Client) Emit(evt Event) {
	b, err := json.Marshal(evt)
	if err != nil {
		c.logger.Error("failed to marshal event", "error", err)
		return
	}
	c.enqueue(b)
}

func (c *Client) enqueue(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		c.logger.Warn("client send queue full, dropping event")
	}
}

// Close stops the write pump, which closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump decodes client messages and applies them to the session until the
// connection fails. It owns the session's picker.
func (c *Client) ReadPump() {
	defer func() {
		if c.hub != nil {
			c.hub.Unregister(c)
		}
		if err := c.session.Close(); err != nil {
			c.logger.Warn("failed to close session", "error", err)
		}
		c.Close()
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.Emit(Event{Type: EventError, Message: "malformed message: " + err.Error()})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("connection closed", "error", err)
			}
			return
		}
		if err := c.session.Handle(msg); err != nil {
			c.logger.Debug("message rejected", "type", msg.Type, "error", err)
			c.Emit(Event{Type: EventError, Message: err.Error()})
		}
	}
}

// WritePump delivers queued events and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
