// Package feed fans committed board/project changes out to websocket subscribers
package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/iudanet/shotsync/internal/models"
)

// SubscriberGauge принимает текущее число подписчиков (реализуется metrics.Metrics)
type SubscriberGauge interface {
	SetFeedSubscribers(n int)
}

// Hub maintains subscribers per project and broadcasts change events
type Hub struct {
	clients    map[string]map[*Client]struct{} // projectID -> subscribers
	register   chan *Client
	unregister chan *Client
	broadcast  chan models.ChangeEvent
	done       chan struct{}
	logger     *slog.Logger
	gauge      SubscriberGauge
	mu         sync.RWMutex
}

// NewHub creates a new change feed hub. gauge may be nil.
func NewHub(logger *slog.Logger, gauge SubscriberGauge) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.ChangeEvent, 256),
		done:       make(chan struct{}),
		logger:     logger,
		gauge:      gauge,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
// On exit every subscriber's send channel is closed.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		h.mu.Lock()
		for projectID, clients := range h.clients {
			for c := range clients {
				close(c.send)
			}
			delete(h.clients, projectID)
		}
		h.mu.Unlock()
		h.updateGauge()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.projectID] == nil {
				h.clients[c.projectID] = make(map[*Client]struct{})
			}
			h.clients[c.projectID][c] = struct{}{}
			h.mu.Unlock()
			h.updateGauge()

		case c := <-h.unregister:
			h.remove(c)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// Publish queues an event for subscribers of event.ProjectID.
// The call never blocks; when the queue is full the event is dropped.
func (h *Hub) Publish(event models.ChangeEvent) {
	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("feed queue full, dropping event",
			slog.String("project_id", event.ProjectID),
			slog.String("id", event.ID))
	}
}

// Subscribers returns the number of subscribers of a project
func (h *Hub) Subscribers(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[projectID])
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if clients, ok := h.clients[c.projectID]; ok {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
			if len(clients) == 0 {
				delete(h.clients, c.projectID)
			}
		}
	}
	h.mu.Unlock()
	h.updateGauge()
}

func (h *Hub) deliver(event models.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[event.ProjectID]
	for c := range clients {
		select {
		case c.send <- event:
		default:
			// Медленный подписчик: отключаем, он перезагрузит данные при переподключении
			h.logger.Warn("feed subscriber too slow, disconnecting", slog.String("project_id", event.ProjectID))
			close(c.send)
			delete(clients, c)
		}
	}
	if len(clients) == 0 {
		delete(h.clients, event.ProjectID)
	}
}

func (h *Hub) updateGauge() {
	if h.gauge == nil {
		return
	}
	h.mu.RLock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	h.mu.RUnlock()
	h.gauge.SetFeedSubscribers(n)
}
