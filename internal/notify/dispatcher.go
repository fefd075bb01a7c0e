package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const publishTimeout = 5 * time.Second

// Dispatcher queues events in a bounded buffer and publishes them in the background
type Dispatcher struct {
	publisher Publisher
	queue     chan Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher creates a dispatcher; call Start to begin delivery
func NewDispatcher(publisher Publisher, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		publisher: publisher,
		queue:     make(chan Event, buffer),
		done:      make(chan struct{}),
	}
}

// Start delivers queued events until Close is called
func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		for e := range d.queue {
			d.publish(e)
		}
	}()
}

// Emit queues an event without blocking. A full queue drops the event.
func (d *Dispatcher) Emit(e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		slog.Warn("Event dropped, dispatcher closed", "event_id", e.ID, "type", e.Type)
		return
	}

	select {
	case d.queue <- e:
	default:
		slog.Warn("Event dropped, queue full", "event_id", e.ID, "type", e.Type, "project_id", e.ProjectID)
	}
}

// Close stops accepting events, drains the queue and closes the publisher
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-ctx.Done():
		slog.Warn("Event queue not drained before shutdown", "remaining", len(d.queue))
	}
	return d.publisher.Close()
}

func (d *Dispatcher) publish(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, e); err != nil {
		slog.Error("Failed to publish event", "error", err, "event_id", e.ID, "type", e.Type)
		return
	}
	slog.Debug("Event published", "event_id", e.ID, "type", e.Type)
}
