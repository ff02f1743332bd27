// Package stream pushes thread lifecycle events to connected WebSocket
// clients so operators can watch the watchdog act in real time.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/threadwarden/threadwarden/internal/common/logger"
	"github.com/threadwarden/threadwarden/internal/events/bus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The admin API is not exposed publicly; origin checks are left to the
	// reverse proxy in front of it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans bus events out to connected clients.
type Hub struct {
	eventBus bus.EventBus
	logger   *logger.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}

	subscription bus.Subscription
}

// NewHub creates a hub and subscribes it to all thread lifecycle subjects.
func NewHub(eventBus bus.EventBus, log *logger.Logger) (*Hub, error) {
	h := &Hub{
		eventBus: eventBus,
		logger:   log.WithFields(zap.String("component", "event-stream")),
		clients:  make(map[*Client]struct{}),
	}

	sub, err := eventBus.Subscribe("thread.*", func(_ context.Context, event *bus.Event) error {
		h.broadcast(event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.subscription = sub
	return h, nil
}

// HandleWS upgrades the request and attaches the client to the hub.
// GET /ws/events
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h, conn, h.logger)
	h.register(client)

	go client.writePump()
	go client.readPump()
}

// Close detaches from the bus and disconnects every client.
func (h *Hub) Close() {
	if h.subscription != nil {
		_ = h.subscription.Unsubscribe()
	}

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

func (h *Hub) broadcast(event *bus.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to marshal event for streaming", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.send(payload) {
			h.logger.Debug("dropping event for slow client",
				zap.String("event", event.Type))
		}
	}
}
