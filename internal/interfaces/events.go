package interfaces

import (
	"context"
	"time"
)

// EventType identifies a category of session lifecycle event
type EventType string

const (
	EventSessionCreated  EventType = "session_created"
	EventSessionCleared  EventType = "session_cleared"
	EventSessionRenewed  EventType = "session_renewed"
	EventProfileAssigned EventType = "profile_assigned"
)

// Event represents a session lifecycle event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// EventHandler processes an event
type EventHandler func(ctx context.Context, event Event) error

// EventService provides in-process pub/sub for session lifecycle events
type EventService interface {
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler) error
	Close() error
}
