package events

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestPublishAndWait(t *testing.T) {
	bus := NewBus()
	bus.CoalesceWindow = 10 * time.Millisecond

	sub := bus.Subscribe()
	defer sub.Close()

	bus.Publish("items")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	tables, err := sub.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !reflect.DeepEqual(tables, []string{"items"}) {
		t.Errorf("expected [items], got %v", tables)
	}
}

func TestCoalescing(t *testing.T) {
	bus := NewBus()
	bus.CoalesceWindow = 50 * time.Millisecond

	sub := bus.Subscribe()
	defer sub.Close()

	// A posting publishes several tables row by row; all of them must
	// arrive as one batch.
	bus.Publish("transactions")
	bus.Publish("transaction_items")
	bus.Publish("items", "notifications")
	bus.Publish("items")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	tables, err := sub.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	expected := []string{"items", "notifications", "transaction_items", "transactions"}
	if !reflect.DeepEqual(tables, expected) {
		t.Errorf("expected %v, got %v", expected, tables)
	}
}

func TestWaitContextCancelled(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sub.Wait(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	sub.Close()

	// Must not panic or block.
	bus.Publish("items")
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus()
	bus.CoalesceWindow = 10 * time.Millisecond

	a := bus.Subscribe()
	defer a.Close()
	b := bus.Subscribe()
	defer b.Close()

	bus.Publish("profiles")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, sub := range []*Subscriber{a, b} {
		tables, err := sub.Wait(ctx)
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if !reflect.DeepEqual(tables, []string{"profiles"}) {
			t.Errorf("expected [profiles], got %v", tables)
		}
	}
}
