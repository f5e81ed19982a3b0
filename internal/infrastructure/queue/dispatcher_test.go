package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/order-platform/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stub
// ---------------------------------------------------------------------------

type stubAudit struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
	block  chan struct{}
}

func (s *stubAudit) Record(_ context.Context, e domain.OrderEvent) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *stubAudit) recorded() []domain.OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OrderEvent, len(s.events))
	copy(out, s.events)
	return out
}

func event(orderID string, from, to domain.OrderStatus) domain.OrderEvent {
	return domain.OrderEvent{OrderID: orderID, OwnerID: "u-1", ActorID: "u-1", From: from, To: to, Timestamp: time.Now()}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestDispatcher_StopDrainsQueuedEvents(t *testing.T) {
	audit := &stubAudit{}
	d := NewDispatcher(2, audit, zerolog.Nop())
	d.Start(context.Background())

	d.Publish(event("o-1", "", domain.StatusCreated))
	d.Publish(event("o-1", domain.StatusCreated, domain.StatusInProgress))
	d.Publish(event("o-2", "", domain.StatusCreated))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}

	if got := len(audit.recorded()); got != 3 {
		t.Fatalf("expected 3 recorded events, got %d", got)
	}
}

func TestDispatcher_PreservesPerOrderOrdering(t *testing.T) {
	audit := &stubAudit{}
	d := NewDispatcher(4, audit, zerolog.Nop())
	d.Start(context.Background())

	d.Publish(event("o-42", "", domain.StatusCreated))
	d.Publish(event("o-42", domain.StatusCreated, domain.StatusInProgress))
	d.Publish(event("o-42", domain.StatusInProgress, domain.StatusCompleted))

	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}

	want := []domain.OrderStatus{domain.StatusCreated, domain.StatusInProgress, domain.StatusCompleted}
	got := audit.recorded()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, e := range got {
		if e.To != want[i] {
			t.Fatalf("expected event %d to be %s, got %s", i, want[i], e.To)
		}
	}
}

func TestDispatcher_PublishNeverBlocksWhenFull(t *testing.T) {
	audit := &stubAudit{block: make(chan struct{})}
	d := NewDispatcher(1, audit, zerolog.Nop())
	d.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer*2; i++ {
			d.Publish(event("o-1", "", domain.StatusCreated))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Publish to return when the queue is full")
	}

	close(audit.block)
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}

func TestDispatcher_RecordFailureDoesNotStopWorker(t *testing.T) {
	audit := &stubAudit{err: errors.New("mongo down")}
	d := NewDispatcher(1, audit, zerolog.Nop())
	d.Start(context.Background())

	d.Publish(event("o-1", "", domain.StatusCreated))
	d.Publish(event("o-2", "", domain.StatusCreated))

	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("expected clean stop after failures, got %v", err)
	}
}

func TestDispatcher_PublishAfterStopIsDropped(t *testing.T) {
	audit := &stubAudit{}
	d := NewDispatcher(1, audit, zerolog.Nop())
	d.Start(context.Background())
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}

	d.Publish(event("o-1", "", domain.StatusCreated))

	if got := len(audit.recorded()); got != 0 {
		t.Fatalf("expected no recorded events, got %d", got)
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, &stubAudit{}, zerolog.Nop())

	first := d.shardIndex("order-abc")
	for i := 0; i < 10; i++ {
		if got := d.shardIndex("order-abc"); got != first {
			t.Fatalf("expected shard %d, got %d", first, got)
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("expected shard within [0,8), got %d", first)
	}
}
