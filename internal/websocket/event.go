package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to an entity
type EventType string

const (
	EventTypeRefreshed EventType = "refreshed"
	EventTypeFailed    EventType = "failed"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeSeries    EntityType = "series"
	EntityTypeDonations EntityType = "donations"
)

// Topic returns the hub topic events of this entity are published on
func (e EntityType) Topic() Topic {
	return Topic(e)
}

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // e.g. "series.refreshed"
	Entity    EntityType  `json:"entity"`    // e.g. "series"
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SeriesRefreshed creates a series.refreshed event
func SeriesRefreshed(payload interface{}) Event {
	return NewEvent(EventTypeRefreshed, EntityTypeSeries, payload)
}

// SeriesFailed creates a series.failed event
func SeriesFailed(payload interface{}) Event {
	return NewEvent(EventTypeFailed, EntityTypeSeries, payload)
}

// DonationsRefreshed creates a donations.refreshed event
func DonationsRefreshed(payload interface{}) Event {
	return NewEvent(EventTypeRefreshed, EntityTypeDonations, payload)
}
