// Package realtime hides the pub/sub transport used for chat fan-out behind a
// small subscription API, with a polling fallback for when subscribing fails.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrClosed is returned when publishing or subscribing on a closed bus.
var ErrClosed = errors.New("realtime bus closed")

// EventType names a change notification.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
)

// Event is a single notification delivered on a topic.
type Event struct {
	Topic string          `json:"topic"`
	Type  EventType       `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Subscription is an active topic listener.
type Subscription interface {
	Close() error
}

// Bus publishes events and delivers them to topic subscribers.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, topic string, onEvent func(Event)) (Subscription, error)
	Close() error
}

// NewEvent marshals data into an event payload.
func NewEvent(topic string, typ EventType, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Topic: topic, Type: typ, Data: raw}, nil
}

// Poll calls fetch immediately and then every interval until ctx is done.
// Fetch errors are passed to onError and polling continues.
func Poll(ctx context.Context, interval time.Duration, fetch func(context.Context) error, onError func(error)) {
	if interval <= 0 {
		interval = 6 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fetch(ctx); err != nil && onError != nil && ctx.Err() == nil {
			onError(err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
