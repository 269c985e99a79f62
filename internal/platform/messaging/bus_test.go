package messaging

import (
	"context"
	"testing"
	"time"

	"quorum/contexts/governance/ballot-service/ports"
)

func TestBusDeliversToSubscribedTopic(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.EventEnvelope, 1)
	err := bus.Subscribe(ctx, "vote.cast", "test-cg", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	event := ports.EventEnvelope{EventID: "evt-1", EventType: "vote.cast"}
	if err := bus.Publish(context.Background(), "vote.cast", event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case got := <-received:
		if got.EventID != "evt-1" {
			t.Fatalf("unexpected event %q", got.EventID)
		}
	case <-time.After(time.Second):
		t.Fatal("expected event delivery within a second")
	}
}

func TestBusIgnoresUnsubscribedTopic(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.EventEnvelope, 1)
	if err := bus.Subscribe(ctx, "proposal.created", "test-cg", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := bus.Publish(context.Background(), "credits.granted", ports.EventEnvelope{EventID: "evt-2"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case <-received:
		t.Fatal("expected no delivery for a different topic")
	case <-time.After(50 * time.Millisecond):
	}
}
