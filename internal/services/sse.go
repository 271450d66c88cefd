package services

import (
	"sync"
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/logger"
	"github.com/rs/zerolog"
)

// CallEvent is pushed to SSE subscribers after each call settles.
type CallEvent struct {
	CallID     string  `json:"callId"`
	SessionID  string  `json:"sessionId"`
	Provider   string  `json:"provider"`
	Model      string  `json:"model"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	FossilID   string  `json:"fossilId,omitempty"`
	CostUSD    float64 `json:"costUsd"`
	DurationMS int64   `json:"durationMs"`
	Timestamp  string  `json:"timestamp"`
}

// EventHub fans call events out to connected SSE clients. Slow clients
// drop events instead of blocking the orchestrator.
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]chan CallEvent
	log     zerolog.Logger
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]chan CallEvent),
		log:     logger.Component("events"),
	}
}

// Subscribe registers a client and returns its event channel.
func (h *EventHub) Subscribe(clientID string) chan CallEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan CallEvent, 10)
	h.clients[clientID] = ch
	h.log.Debug().Str("client", clientID).Int("total", len(h.clients)).Msg("sse client subscribed")
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (h *EventHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
		h.log.Debug().Str("client", clientID).Int("total", len(h.clients)).Msg("sse client unsubscribed")
	}
}

// Publish delivers the event to every subscriber without blocking.
func (h *EventHub) Publish(event CallEvent) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for clientID, ch := range h.clients {
		select {
		case ch <- event:
		default:
			h.log.Warn().Str("client", clientID).Msg("sse client buffer full, event dropped")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
