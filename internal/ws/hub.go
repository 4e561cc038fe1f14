package ws

import (
	"encoding/json"
	"sync"
)

// Client is one WebSocket subscriber watching a single payment attempt.
type Client struct {
	Reference string // external reference being watched
	Send      chan []byte
	hub       *PaymentHub
	mu        sync.Mutex
	closed    bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.hub != nil {
		c.hub.unregister(c)
	}
}

// PaymentHub fans payment state transitions out to the subscribers of each
// external reference, so the UI does not have to poll the backend.
type PaymentHub struct {
	mu    sync.RWMutex
	byRef map[string]map[*Client]struct{}
}

func NewPaymentHub() *PaymentHub {
	return &PaymentHub{byRef: make(map[string]map[*Client]struct{})}
}

func (h *PaymentHub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	if h.byRef[c.Reference] == nil {
		h.byRef[c.Reference] = make(map[*Client]struct{})
	}
	h.byRef[c.Reference][c] = struct{}{}
}

func (h *PaymentHub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byRef[c.Reference]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byRef, c.Reference)
		}
	}
}

// PaymentUpdate broadcasts a state transition to everyone watching ref.
// Slow subscribers are skipped rather than blocking the engine.
func (h *PaymentHub) PaymentUpdate(ref string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.mu.RLock()
	m := h.byRef[ref]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}

func (h *PaymentHub) SubscriberCount(ref string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byRef[ref])
}
