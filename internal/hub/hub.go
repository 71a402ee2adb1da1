// Package hub pushes calibration events and device states to websocket
// clients.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Alia5/padmap/calibration"
	"github.com/Alia5/padmap/semantic"
)

// Hub manages websocket clients and broadcasts messages. It implements
// engine.Sink.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	seq        atomic.Int64
	logger     *slog.Logger

	// replayed to new clients
	lastMu    sync.Mutex
	lastEvent *calibration.Event
	states    map[int]semantic.State
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
		states:     make(map[int]semantic.State),
	}
}

// Register adds a new client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run serves registrations until ctx is done, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
	}()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("websocket client connected", "total", n)
			h.replay(c)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("websocket client disconnected", "total", n)
		}
	}
}

// replay sends the last calibration event and the current device states.
func (h *Hub) replay(c *Client) {
	h.lastMu.Lock()
	ev := h.lastEvent
	slots := make([]int, 0, len(h.states))
	for s := range h.states {
		slots = append(slots, s)
	}
	sort.Ints(slots)
	var msgs []*Message
	if ev != nil {
		msgs = append(msgs, newCalibrationMessage(h.seq.Add(1), *ev))
	}
	for _, s := range slots {
		if c.wants(s) {
			msgs = append(msgs, newStateMessage(h.seq.Add(1), s, h.states[s]))
		}
	}
	h.lastMu.Unlock()
	for _, m := range msgs {
		h.sendTo(c, m)
	}
}

// PublishEvent broadcasts a calibration event to every client.
func (h *Hub) PublishEvent(ev calibration.Event) {
	h.lastMu.Lock()
	h.lastEvent = &ev
	h.lastMu.Unlock()
	h.broadcast(newCalibrationMessage(h.seq.Add(1), ev), -1)
}

// PublishState broadcasts a device state to the clients following slot.
// A state that is no longer live is forgotten after being sent.
func (h *Hub) PublishState(slot int, st semantic.State) {
	h.lastMu.Lock()
	if st.Live {
		h.states[slot] = st
	} else {
		delete(h.states, slot)
	}
	h.lastMu.Unlock()
	h.broadcast(newStateMessage(h.seq.Add(1), slot, st), slot)
}

// broadcast sends msg to all clients, or for slot >= 0 to the clients
// following that slot. Clients with a full buffer are dropped.
func (h *Hub) broadcast(msg *Message, slot int) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal websocket message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if slot >= 0 && !c.wants(slot) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("websocket client too slow, dropping")
			go h.Unregister(c)
		}
	}
}

func (h *Hub) sendTo(c *Client, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal websocket message", "type", msg.Type, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
