package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/metrics"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// InvalidatePayload lists the query keys a dashboard should refetch.
type InvalidatePayload struct {
	Keys []string `json:"keys"`
}

type topicEvent struct {
	Topic string
	Event Event
}

// Hub fans invalidation events out to dashboards subscribed to a topic.
type Hub struct {
	// Registered clients by topic
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *topicEvent
	done       chan struct{}

	mu     sync.RWMutex
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *topicEvent, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			seen := make(map[*Client]bool)
			for topic, clients := range h.rooms {
				for c := range clients {
					if !seen[c] {
						seen[c] = true
						close(c.send)
						metrics.WSClientDisconnected()
					}
				}
				delete(h.rooms, topic)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			for _, topic := range client.topics {
				if h.rooms[topic] == nil {
					h.rooms[topic] = make(map[*Client]bool)
				}
				h.rooms[topic][client] = true
			}
			h.mu.Unlock()
			metrics.WSClientConnected()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.logger.Error("marshal ws event", zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.Topic] {
				select {
				case client.send <- message:
				default:
					// Send buffer full: drop the client, it will refetch on reconnect.
					h.logger.Warn("dropping slow ws client", zap.String("client", client.id.String()))
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove detaches client from every room and closes its send channel once.
// Callers hold h.mu.
func (h *Hub) remove(client *Client) {
	registered := false
	for _, topic := range client.topics {
		clients, ok := h.rooms[topic]
		if !ok || !clients[client] {
			continue
		}
		registered = true
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, topic)
		}
	}
	if registered {
		close(client.send)
		metrics.WSClientDisconnected()
	}
}

// Publish queues an invalidation of keys for subscribers of topic. It never
// blocks; when the queue is full the event is dropped and logged.
func (h *Hub) Publish(topic string, keys []string) {
	payload, err := json.Marshal(InvalidatePayload{Keys: keys})
	if err != nil {
		h.logger.Error("marshal invalidate payload", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- &topicEvent{Topic: topic, Event: Event{Type: "invalidate", Payload: payload}}:
	default:
		h.logger.Warn("ws broadcast queue full, dropping event", zap.String("topic", topic))
	}
}

// Subscribers reports how many clients listen on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[topic])
}
