package websocket

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// Topic names a stream of events clients can subscribe to
type Topic string

const (
	TopicSeries    Topic = "series"
	TopicDonations Topic = "donations"
)

// AllTopics lists every topic, used when a client does not choose
var AllTopics = []Topic{TopicSeries, TopicDonations}

// ParseTopics parses a comma-separated topic list. An empty list subscribes to every topic.
func ParseTopics(raw string) ([]Topic, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]Topic(nil), AllTopics...), nil
	}

	seen := make(map[Topic]bool)
	var topics []Topic
	for _, part := range strings.Split(raw, ",") {
		t := Topic(strings.ToLower(strings.TrimSpace(part)))
		if t == "" || seen[t] {
			continue
		}
		if t != TopicSeries && t != TopicDonations {
			return nil, fmt.Errorf("unknown topic %q", t)
		}
		seen[t] = true
		topics = append(topics, t)
	}
	return topics, nil
}

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	Topics() []Topic
	Send(data []byte) error
	Close() error
}

// Hub manages WebSocket connections organized by topic
// It is safe for concurrent use
type Hub struct {
	// topics maps topic to a map of client ID to client
	topics map[Topic]map[string]ClientInterface
	mu     sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		topics: make(map[Topic]map[string]ClientInterface),
	}
}

// Register adds a client under each of its topics
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientID := client.ID()
	for _, topic := range client.Topics() {
		if h.topics[topic] == nil {
			h.topics[topic] = make(map[string]ClientInterface)
		}
		h.topics[topic][clientID] = client
	}

	log.Debug().
		Str("client_id", clientID).
		Interface("topics", client.Topics()).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientID := client.ID()
	removed := false
	for _, topic := range client.Topics() {
		clients, ok := h.topics[topic]
		if !ok {
			continue
		}
		if _, exists := clients[clientID]; exists {
			delete(clients, clientID)
			removed = true
		}
		if len(clients) == 0 {
			delete(h.topics, topic)
		}
	}

	if removed {
		log.Debug().Str("client_id", clientID).Msg("WebSocket client unregistered")
	}
}

// Broadcast sends an event to all clients subscribed to topic
func (h *Hub) Broadcast(topic Topic, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("topic", string(topic)).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	clients, ok := h.topics[topic]
	if !ok || len(clients) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy clients to avoid holding lock during send
	clientsCopy := make([]ClientInterface, 0, len(clients))
	for _, client := range clients {
		clientsCopy = append(clientsCopy, client)
	}
	h.mu.RUnlock()

	for _, client := range clientsCopy {
		go func(c ClientInterface) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Str("topic", string(topic)).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}

	log.Debug().
		Str("topic", string(topic)).
		Str("event_type", event.Type).
		Int("client_count", len(clientsCopy)).
		Msg("Broadcast event")
}

// ClientCount returns the number of clients subscribed to a topic
func (h *Hub) ClientCount(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.topics[topic])
}

// TotalClientCount returns the number of distinct connected clients
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, clients := range h.topics {
		for id := range clients {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}
