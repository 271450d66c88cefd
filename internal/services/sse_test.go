package services

import (
	"testing"
	"time"
)

func TestEventHub_PublishToSubscribers(t *testing.T) {
	hub := NewEventHub()
	a := hub.Subscribe("client-a")
	b := hub.Subscribe("client-b")
	defer hub.Unsubscribe("client-a")
	defer hub.Unsubscribe("client-b")

	if hub.ClientCount() != 2 {
		t.Fatalf("ClientCount() = %d, expected 2", hub.ClientCount())
	}

	hub.Publish(CallEvent{CallID: "call_1", Provider: "openai", Status: "completed"})

	for name, ch := range map[string]chan CallEvent{"a": a, "b": b} {
		select {
		case ev := <-ch:
			if ev.CallID != "call_1" || ev.Status != "completed" {
				t.Errorf("client %s received %+v", name, ev)
			}
			if ev.Timestamp == "" {
				t.Errorf("client %s: timestamp not defaulted", name)
			}
			if _, err := time.Parse(time.RFC3339, ev.Timestamp); err != nil {
				t.Errorf("client %s: timestamp %q not RFC3339", name, ev.Timestamp)
			}
		default:
			t.Errorf("client %s received nothing", name)
		}
	}
}

func TestEventHub_KeepsExplicitTimestamp(t *testing.T) {
	hub := NewEventHub()
	ch := hub.Subscribe("client")
	defer hub.Unsubscribe("client")

	hub.Publish(CallEvent{CallID: "call_1", Timestamp: "2026-05-01T10:00:00Z"})

	ev := <-ch
	if ev.Timestamp != "2026-05-01T10:00:00Z" {
		t.Errorf("Timestamp = %q, expected the explicit value", ev.Timestamp)
	}
}

func TestEventHub_SlowClientDropsEvents(t *testing.T) {
	hub := NewEventHub()
	ch := hub.Subscribe("slow")
	defer hub.Unsubscribe("slow")

	// Fill the buffer and then some; the hub must never block.
	for i := 0; i < 15; i++ {
		hub.Publish(CallEvent{CallID: "call", Status: "completed"})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	if received != 10 {
		t.Errorf("received %d events, expected the buffer size of 10", received)
	}
}

func TestEventHub_Unsubscribe(t *testing.T) {
	hub := NewEventHub()
	ch := hub.Subscribe("client")

	hub.Unsubscribe("client")
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, expected 0", hub.ClientCount())
	}

	// The channel is closed so range loops in handlers terminate.
	if _, open := <-ch; open {
		t.Error("channel still open after Unsubscribe")
	}

	// Unsubscribing twice must not panic.
	hub.Unsubscribe("client")

	// Publishing with no subscribers is a no-op.
	hub.Publish(CallEvent{CallID: "call_1"})
}
