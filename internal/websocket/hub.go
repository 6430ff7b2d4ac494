// Package websocket pushes live slot and booking changes to connected
// dashboard clients.
package websocket

import (
	"log"
	"sync"
)

// outbound is a queued broadcast. An empty date reaches every client.
type outbound struct {
	date string
	data []byte
}

// Hub tracks connected dashboard clients and delivers events to the ones
// watching the affected date.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	events     chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

// NewHub creates a hub. Call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		events:     make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Dashboard connected (total: %d)", n)

		case c := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(c)
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Dashboard disconnected (total: %d)", n)

		case ev := <-h.events:
			h.deliver(ev)

		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				h.dropLocked(c)
			}
			h.mu.Unlock()
			log.Println("WebSocket hub stopped")
			return
		}
	}
}

func (h *Hub) deliver(ev outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.watches(ev.date) {
			continue
		}
		if !c.offer(ev.data) {
			log.Println("Dashboard client too slow, disconnecting")
			h.dropLocked(c)
		}
	}
}

// dropLocked removes c and closes its queue. Callers hold h.mu.
func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
}

// Stop closes every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// BroadcastFor queues message for clients watching date, plus clients that
// watch every date.
func (h *Hub) BroadcastFor(date string, message []byte) {
	select {
	case h.events <- outbound{date: date, data: message}:
	default:
		log.Printf("Event queue full, dropping message for %q", date)
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.close()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one dashboard connection's outbound queue and date filter.
type Client struct {
	// mu guards closed; sends hold it shared and close holds it exclusively.
	mu     sync.RWMutex
	send   chan []byte
	closed bool

	dateMu sync.RWMutex
	date   string
}

// NewClient creates a client that watches every date.
func NewClient() *Client {
	return &Client{send: make(chan []byte, 64)}
}

// Send returns the client's outbound channel. It is closed when the hub drops
// the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Watch limits the client to events for date. An empty date watches all.
func (c *Client) Watch(date string) {
	c.dateMu.Lock()
	c.date = date
	c.dateMu.Unlock()
}

func (c *Client) watches(date string) bool {
	c.dateMu.RLock()
	defer c.dateMu.RUnlock()
	return c.date == "" || date == "" || c.date == date
}

// Reply queues a message for this client only. It reports false if the queue
// is full or the client is gone.
func (c *Client) Reply(msg Message) bool {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return false
	}
	return c.offer(data)
}

// offer queues data without blocking.
func (c *Client) offer(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
