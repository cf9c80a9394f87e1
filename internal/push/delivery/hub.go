package delivery

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Event is one server-sent event for a user.
type Event struct {
	Name string
	Data []byte
}

// Hub fans in-app events out to users' open SSE streams. A user with at
// least one open stream has the app in the foreground.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[chan Event]struct{}
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]map[chan Event]struct{}), log: log}
}

// Send delivers to every stream of userID without blocking. It reports
// whether any stream accepted the event.
func (h *Hub) Send(userID, event string, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("Failed to encode event", zap.String("event", event), zap.Error(err))
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := false
	for ch := range h.clients[userID] {
		select {
		case ch <- Event{Name: event, Data: data}:
			delivered = true
		default:
			h.log.Warn("Slow SSE client, event dropped", zap.String("userID", userID), zap.String("event", event))
		}
	}
	return delivered
}

func (h *Hub) subscribe(userID string) chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[chan Event]struct{})
	}
	h.clients[userID][ch] = struct{}{}
	return ch
}

func (h *Hub) unsubscribe(userID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[userID], ch)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// ServeHTTP streams events for userID until the client goes away.
func (h *Hub) ServeHTTP(c *gin.Context, userID string) {
	ch := h.subscribe(userID)
	defer h.unsubscribe(userID, ch)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	c.SSEvent("ready", "{}")
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-keepAlive.C:
			c.SSEvent("ping", "{}")
			return true
		case ev := <-ch:
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		}
	})
}
