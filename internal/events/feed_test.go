package events

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testSubscriber builds a subscriber with no live connection; Publish only
// touches the send channel.
func testSubscriber(f *Feed) *subscriber {
	return &subscriber{feed: f, send: make(chan []byte, sendBufferSize)}
}

func TestPublishReachesSubscribers(t *testing.T) {
	f := NewFeed(testLogger())
	s := testSubscriber(f)
	f.register(s)
	defer f.unregister(s)

	f.Publish(ContentChanged("lesson", "created", 7))

	select {
	case data := <-s.send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if ev.Type != "lesson_created" || ev.Entity != "lesson" || ev.Action != "created" || ev.ID != 7 {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Fatal("subscriber received nothing")
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	f := NewFeed(testLogger())
	s := &subscriber{feed: f, send: make(chan []byte)} // unbuffered, no reader
	f.register(s)
	defer f.unregister(s)

	// Must not block.
	f.Publish(ContentChanged("calculator", "updated", 1))
}

func TestUnregisterIdempotent(t *testing.T) {
	f := NewFeed(testLogger())
	s := testSubscriber(f)
	f.register(s)

	if f.SubscriberCount() != 1 {
		t.Fatalf("count = %d, want 1", f.SubscriberCount())
	}
	f.unregister(s)
	f.unregister(s) // second call must not close the channel twice
	if f.SubscriberCount() != 0 {
		t.Errorf("count = %d, want 0", f.SubscriberCount())
	}
}
