package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (p *recordingPublisher) Publish(ctx context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestDispatcherDeliversQueuedEvents(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, 16)
	d.Start()

	for i := 0; i < 5; i++ {
		d.Emit(NewEvent(AssignmentApproved, "p-1"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Failed to close dispatcher: %v", err)
	}

	if len(pub.events) != 5 {
		t.Errorf("Expected 5 published events, got %d", len(pub.events))
	}
	if !pub.closed {
		t.Error("Expected publisher to be closed")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, 1)

	d.Emit(NewEvent(DocumentRejected, "p-1"))
	d.Emit(NewEvent(DocumentRejected, "p-1"))

	d.Start()
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Failed to close dispatcher: %v", err)
	}

	if len(pub.events) != 1 {
		t.Errorf("Expected the overflow event to be dropped, got %d events", len(pub.events))
	}

	// emitting after close must not panic
	d.Emit(NewEvent(DocumentRejected, "p-1"))
}

func TestNewEventHasUniqueIDs(t *testing.T) {
	a := NewEvent(AssignmentPublished, "p-1")
	b := NewEvent(AssignmentPublished, "p-1")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("Expected distinct event ids, got %q and %q", a.ID, b.ID)
	}
}

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer sub.Close()
	ps := sub.Subscribe(ctx, "review-events")
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	pub, err := NewRedisPublisher("redis://"+mr.Addr(), "review-events")
	if err != nil {
		t.Fatalf("Failed to create publisher: %v", err)
	}
	defer pub.Close()

	if err := pub.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	event := NewEvent(AssignmentApproved, "p-42")
	event.AssignmentID = 7
	if err := pub.Publish(ctx, event); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	msg, err := ps.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("Failed to receive message: %v", err)
	}

	var got Event
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if got.ID != event.ID || got.Type != AssignmentApproved || got.AssignmentID != 7 {
		t.Errorf("Unexpected event: %+v", got)
	}

	mr.Close()
	if err := pub.Ping(ctx); err == nil {
		t.Error("Expected ping to fail once the server is gone")
	}
}

func TestRedisPublisherRejectsBadURL(t *testing.T) {
	if _, err := NewRedisPublisher("not a url", "events"); err == nil {
		t.Error("Expected error for invalid url")
	}
}
