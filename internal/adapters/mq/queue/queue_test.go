package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/classroom/internal/domain/model"
)

func pickEvent(id string) model.PickEvent {
	return model.PickEvent{EventID: id, ClassID: "default", Day: "2026-03-09", Student: "Alice", TS: time.Now()}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if !q.Enqueue(ctx, pickEvent("event1")) {
		t.Fatal("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	event := <-q.Dequeue(ctx)
	if event.EventID != "event1" {
		t.Errorf("expected event1, got %v", event.EventID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Backpressure(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, pickEvent("event1")) || !q.Enqueue(ctx, pickEvent("event2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, pickEvent("event3")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, pickEvent("event1")) {
		t.Error("expected enqueue to fail with a cancelled context")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	q.Enqueue(ctx, pickEvent("event1"))
	q.Enqueue(ctx, pickEvent("event2"))
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, pickEvent("event3")) {
		t.Error("expected enqueue to fail after close")
	}

	var got []string
	for e := range q.Dequeue(ctx) {
		got = append(got, e.EventID)
	}
	if len(got) != 2 || got[0] != "event1" || got[1] != "event2" {
		t.Errorf("expected buffered events to drain in order, got %v", got)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	const producers, perProducer = 10, 50
	q := NewInMemoryQueue(WithCapacity(producers * perProducer))
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if !q.Enqueue(ctx, pickEvent(fmt.Sprintf("p%d-e%d", id, j))) {
					t.Errorf("unexpected rejection")
				}
			}
		}(p)
	}
	wg.Wait()
	_ = q.Close()

	seen := make(map[string]bool)
	for e := range q.Dequeue(ctx) {
		seen[e.EventID] = true
	}
	if len(seen) != producers*perProducer {
		t.Errorf("expected %d events, got %d", producers*perProducer, len(seen))
	}
}
