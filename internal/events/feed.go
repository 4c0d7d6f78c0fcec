// Package events pushes content-change notifications to connected admin
// dashboards so an edit made in one browser shows up in the others without a
// refresh.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Event is one content-change notification.
type Event struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     int64  `json:"id,omitempty"`
}

// ContentChanged builds the event for a lesson or calculator mutation.
func ContentChanged(entity, action string, id int64) Event {
	return Event{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
	}
}

// Feed maintains the set of subscribed WebSocket connections.
type Feed struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	logger      *slog.Logger
}

func NewFeed(logger *slog.Logger) *Feed {
	return &Feed{
		subscribers: make(map[*subscriber]struct{}),
		logger:      logger,
	}
}

func (f *Feed) register(s *subscriber) {
	f.mu.Lock()
	f.subscribers[s] = struct{}{}
	f.mu.Unlock()
}

func (f *Feed) unregister(s *subscriber) {
	f.mu.Lock()
	if _, ok := f.subscribers[s]; ok {
		delete(f.subscribers, s)
		close(s.send)
	}
	f.mu.Unlock()
}

// Publish sends the event to every subscriber. Subscribers with a full buffer
// miss the event rather than blocking the publisher.
func (f *Feed) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		f.logger.Error("marshal event", "error", err)
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for s := range f.subscribers {
		select {
		case s.send <- data:
		default:
		}
	}
}

// SubscriberCount returns the number of connected dashboards.
func (f *Feed) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}
