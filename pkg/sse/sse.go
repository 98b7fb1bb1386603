package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

type Client struct {
	id      string
	ch      chan string
	changed chan struct{}
	done    chan struct{}
}

func (c *Client) ID() string { return c.id }

// Changed fires (coalesced) after every Hub.Notify.
func (c *Client) Changed() <-chan struct{} { return c.changed }

type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	interval time.Duration
	retryMs  int
	seq      uint64
}

// NewHub keeps idle connections alive with a ping every interval.
func NewHub(interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Hub{clients: make(map[string]*Client), interval: interval, retryMs: 5000}
}

func (h *Hub) AddClient(id string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := &Client{id: id, ch: make(chan string, 64), changed: make(chan struct{}, 1), done: make(chan struct{})}
	h.clients[id] = c
	return c
}

func (h *Hub) RemoveClient(id string) {
	h.mu.Lock()
	if c, ok := h.clients[id]; ok {
		close(c.done)
		delete(h.clients, id)
	}
	h.mu.Unlock()
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send queues an event for one client. It drops the event when the client
// is unknown or its buffer is full.
func (h *Hub) Send(id, event string, v any) bool {
	msg, err := h.format(event, v)
	if err != nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c := h.clients[id]
	if c == nil {
		return false
	}
	select {
	case c.ch <- msg:
		return true
	default:
		return false
	}
}

func (h *Hub) Broadcast(event string, v any) {
	msg, err := h.format(event, v)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.ch <- msg:
		default:
		}
	}
}

// Notify signals every client's Changed channel.
func (h *Hub) Notify() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.changed <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) format(event string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	id := atomic.AddUint64(&h.seq, 1)
	return fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, event, b), nil
}

// Serve streams events to the client until the request ends. When start is
// not nil it runs on its own goroutine with a context cancelled on return.
func (h *Hub) Serve(c *gin.Context, clientID string, start func(ctx context.Context, client *Client)) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	fmt.Fprintf(c.Writer, "retry: %d\n\n", h.retryMs)
	flusher.Flush()

	client := h.AddClient(clientID)
	defer h.RemoveClient(clientID)

	ctx, cancel := context.WithCancel(c.Request.Context())
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()
	if start != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start(ctx, client)
		}()
	}

	ping := time.NewTicker(h.interval)
	defer ping.Stop()

	for {
		select {
		case <-client.done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			fmt.Fprintf(c.Writer, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case msg := <-client.ch:
			_, _ = c.Writer.Write([]byte(msg))
			flusher.Flush()
		}
	}
}
