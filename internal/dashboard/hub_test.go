package dashboard

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	if h.ClientCount() != 1 {
		t.Fatalf("Expected 1 client, got %d", h.ClientCount())
	}

	h.Broadcast(&Event{Type: "schema.refreshed", Schema: "kdm_v03", Timestamp: time.Now()})

	select {
	case data := <-ch:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("Failed to decode event: %v", err)
		}
		if ev.Type != "schema.refreshed" {
			t.Errorf("Expected schema.refreshed, got %s", ev.Type)
		}
		if ev.Schema != "kdm_v03" {
			t.Errorf("Expected kdm_v03, got %s", ev.Schema)
		}
	default:
		t.Fatal("Expected a buffered event")
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()

	h.Unsubscribe(ch)
	if h.ClientCount() != 0 {
		t.Fatalf("Expected 0 clients, got %d", h.ClientCount())
	}

	if _, open := <-ch; open {
		t.Error("Expected channel to be closed")
	}

	// Second unsubscribe is a no-op, not a double close.
	h.Unsubscribe(ch)
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	for i := 0; i < subscriberBuffer+10; i++ {
		h.Broadcast(&Event{Type: "graph.rendered", Timestamp: time.Now()})
	}

	if len(ch) != subscriberBuffer {
		t.Errorf("Expected %d buffered events, got %d", subscriberBuffer, len(ch))
	}
}

func TestEmitter_CacheCleared(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	NewEmitter(h).CacheCleared(7)

	data := <-ch
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if ev.Type != "cache.cleared" {
		t.Errorf("Expected cache.cleared, got %s", ev.Type)
	}
}
