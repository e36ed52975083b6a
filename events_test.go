package burnstone

import (
	"strconv"
	"testing"
	"time"
)

func TestEventBusOrderedNonBlockingPublish(t *testing.T) {
	bus := NewEventBus()
	events, cancel := bus.Subscribe()
	defer cancel()

	// Nobody is reading yet: all publishes must return immediately.
	published := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			bus.Publish(ProgressEvent{Status: strconv.Itoa(i), Running: true})
		}
		close(published)
	}()
	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// Per-producer order must survive the buffering.
	for i := 0; i < 500; i++ {
		select {
		case ev := <-events:
			if ev.Status != strconv.Itoa(i) {
				t.Fatalf("event %d delivered out of order: got %q", i, ev.Status)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d never delivered", i)
		}
	}
}

func TestEventBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus()
	events, cancel := bus.Subscribe()
	bus.Publish(ProgressEvent{Status: "one"})
	cancel()
	cancel() // safe to call twice

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after unsubscribe")
		}
	}
}

func TestEventBusCloseDrains(t *testing.T) {
	bus := NewEventBus()
	events, cancel := bus.Subscribe()
	defer cancel()

	for i := 0; i < 10; i++ {
		bus.Publish(ProgressEvent{Status: strconv.Itoa(i)})
	}
	bus.Close()

	got := 0
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if got != 10 {
					t.Fatalf("drained %d of 10 events before close", got)
				}
				return
			}
			if ev.Status != strconv.Itoa(got) {
				t.Fatalf("event %d out of order: %q", got, ev.Status)
			}
			got++
		case <-deadline:
			t.Fatal("subscriber channel never closed after bus Close")
		}
	}
}

func TestEventBusSubscribeAfterClose(t *testing.T) {
	bus := NewEventBus()
	bus.Close()
	events, cancel := bus.Subscribe()
	defer cancel()
	if _, ok := <-events; ok {
		t.Error("subscription on a closed bus must yield a closed channel")
	}
}
