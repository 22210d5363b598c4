package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/linemk/gogol-pizza/internal/lib/metrics"
)

// Client is one connected subscriber. Frames queued for it are read from Send.
type Client struct {
	id     string
	send   chan []byte
	groups map[string]struct{}
}

func (c *Client) ID() string {
	return c.id
}

// Send is closed when the client is unregistered.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Hub fans events out to groups and to everyone. Delivery is best effort:
// a subscriber whose buffer is full misses the event, and nothing is replayed.
type Hub struct {
	log        *slog.Logger
	metrics    *metrics.Metrics
	bufferSize int

	mu      sync.RWMutex
	clients map[*Client]struct{}
	groups  map[string]map[*Client]struct{}
}

func NewHub(log *slog.Logger, m *metrics.Metrics, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Hub{
		log:        log.With(slog.String("component", "realtime.Hub")),
		metrics:    m,
		bufferSize: bufferSize,
		clients:    make(map[*Client]struct{}),
		groups:     make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register() *Client {
	c := &Client{
		id:     uuid.NewString(),
		send:   make(chan []byte, h.bufferSize),
		groups: make(map[string]struct{}),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.RealtimeClients.Inc()
	}
	return c
}

// Unregister drops the client from every group and closes its Send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	for group := range c.groups {
		h.removeFromGroup(c, group)
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.RealtimeClients.Dec()
	}
}

func (h *Hub) Join(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Client]struct{})
		h.groups[group] = members
	}
	members[c] = struct{}{}
	c.groups[group] = struct{}{}
}

func (h *Hub) Leave(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromGroup(c, group)
}

// removeFromGroup expects h.mu to be held for writing.
func (h *Hub) removeFromGroup(c *Client, group string) {
	delete(c.groups, group)
	members, ok := h.groups[group]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// Publish delivers ev to the current members of group and reports how many got it.
func (h *Hub) Publish(group string, ev Event) int {
	frame, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("failed to encode event", slog.String("event", ev.Name), slog.Any("error", err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.deliver(h.groups[group], frame, ev.Name)
}

// Broadcast delivers ev to every connected client.
func (h *Hub) Broadcast(ev Event) int {
	frame, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("failed to encode event", slog.String("event", ev.Name), slog.Any("error", err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.deliver(h.clients, frame, ev.Name)
}

func (h *Hub) deliver(targets map[*Client]struct{}, frame []byte, name string) int {
	delivered := 0
	for c := range targets {
		select {
		case c.send <- frame:
			delivered++
		default:
			h.log.Warn("subscriber buffer full, dropping event",
				slog.String("client", c.id),
				slog.String("event", name),
			)
			if h.metrics != nil {
				h.metrics.RealtimeDropped.Inc()
			}
		}
	}
	return delivered
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
