package hub

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer = 256
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 1024
)

// allSlots is the filter of a client that receives every slot.
const allSlots = -1

// Client is one connected websocket.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	slot   atomic.Int64
	logger *slog.Logger
}

// NewClient creates a new Client attached to the hub.
func NewClient(h *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: h.logger.With("remote", conn.RemoteAddr().String()),
	}
	c.slot.Store(allSlots)
	return c
}

// wants reports whether state messages of slot go to this client.
func (c *Client) wants(slot int) bool {
	s := c.slot.Load()
	return s == allSlots || s == int64(slot)
}

// WritePump sends queued messages and keepalive pings until the send
// channel is closed by the hub.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
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
				c.logger.Debug("websocket write failed", "error", err)
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

// ReadPump handles client commands until the connection fails, then
// unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Warn("invalid client message", "error", err)
			continue
		}
		switch msg.Type {
		case "select":
			slot := allSlots
			if msg.Slot != nil && *msg.Slot >= 0 {
				slot = *msg.Slot
			}
			c.slot.Store(int64(slot))
			c.hub.sendTo(c, newSelectedMessage(slot))
			c.logger.Info("client selected slot", "slot", slot)
		default:
			c.logger.Debug("unknown client message", "type", msg.Type)
		}
	}
}
