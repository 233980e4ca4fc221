// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/scribe/internal/events"
	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/metrics"
	"github.com/tomtom215/scribe/internal/models"
)

// Message types.
const (
	MessageTypeEntry = "entry"
	MessageTypePing  = "ping"
	MessageTypePong  = "pong"
)

// Message is one websocket frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// EntryData is the payload of an entry message.
type EntryData struct {
	Action     string    `json:"action"`
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Title      string    `json:"title,omitempty"`
	Excerpt    string    `json:"excerpt,omitempty"`
	Published  time.Time `json:"published,omitempty"`
	Categories []string  `json:"categories,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients      map[*Client]bool
	broadcast    chan Message
	register     chan *Client
	unregisterCh chan *Client
	mu           sync.RWMutex
}

// NewHub creates a hub. It does nothing until RunWithContext is called.
func NewHub() *Hub {
	return &Hub{
		clients:      make(map[*Client]bool),
		broadcast:    make(chan Message, 256),
		register:     make(chan *Client),
		unregisterCh: make(chan *Client, 16),
	}
}

// Register adds c to the hub. It blocks until the hub loop accepts it.
func (h *Hub) Register(ctx context.Context, c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// unregister gives up after writeWait so read pumps exit once the hub stops.
func (h *Hub) unregister(c *Client) {
	select {
	case h.unregisterCh <- c:
	case <-time.After(writeWait):
	}
}

// RunWithContext runs the hub loop until ctx is canceled, then closes every
// client. Lifecycle events are handled before broadcasts.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.register:
			h.add(c)
			continue
		case c := <-h.unregisterCh:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregisterCh:
			h.remove(c)
		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
	logging.Info().Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
	logging.Info().Int("total_clients", n).Msg("websocket client disconnected")
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	n := len(h.clients)
	for _, c := range h.sortedClients() {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	metrics.WSConnections.Set(0)

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", reason).
		Int("clients_closed", n).
		Msg("websocket hub stopped")
}

// sortedClients returns clients in id order. Callers hold mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients drops clients whose send buffer is full.
func (h *Hub) broadcastToClients(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.sortedClients() {
		select {
		case c.send <- msg:
			metrics.WSMessagesSent.Inc()
		default:
			close(c.send)
			delete(h.clients, c)
			metrics.WSErrors.WithLabelValues("slow_client").Inc()
			logging.Warn().Uint64("client_id", c.id).Msg("websocket client too slow, dropped")
		}
	}
}

// Broadcast queues msg for every client. It never blocks.
func (h *Hub) Broadcast(msg Message) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		logging.Warn().Str("message_type", msg.Type).Msg("broadcast channel full, dropping message")
		return false
	}
}

// HandleEvent is an events.Handler that forwards entry changes to clients.
func (h *Hub) HandleEvent(_ context.Context, ev *events.EntryEvent) error {
	if !feedVisible(ev) {
		return nil
	}
	data := EntryData{
		Action:     ev.Action,
		ID:         ev.EntryID,
		URL:        ev.URL,
		OccurredAt: ev.OccurredAt,
	}
	if ev.Entry != nil && ev.Action != "delete" {
		data.Title = ev.Entry.Title
		data.Excerpt = ev.Entry.Excerpt
		data.Published = ev.Entry.Published
		data.Categories = ev.Entry.Categories
		data.Tags = ev.Entry.Tags
	}
	h.Broadcast(Message{Type: MessageTypeEntry, Data: data})
	return nil
}

func feedVisible(ev *events.EntryEvent) bool {
	switch ev.Action {
	case "delete":
		return true
	default:
		return ev.Entry != nil && ev.Entry.Status == models.StatusPublish
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
