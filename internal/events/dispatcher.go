package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// EventHandler handles a delivered event. A non-nil error asks the
// transport to deliver the event again later, where it supports that.
type EventHandler func(context.Context, Event) error

// Dispatcher publishes events and delivers them to subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
	// Run delivers events until ctx is cancelled.
	Run(ctx context.Context) error
}

type registry struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

func (r *registry) Subscribe(eventType EventType, handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners == nil {
		r.listeners = make(map[EventType][]EventHandler)
	}
	r.listeners[eventType] = append(r.listeners[eventType], handler)
}

// deliver runs every handler for the event and joins their errors.
func (r *registry) deliver(ctx context.Context, event Event) error {
	r.mu.RLock()
	handlers := append([]EventHandler{}, r.listeners[event.Type]...)
	r.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InMemoryDispatcher queues events on a buffered channel and delivers them
// from Run. Failed deliveries are logged and dropped.
type InMemoryDispatcher struct {
	registry
	queue  chan Event
	logger *zap.Logger
}

// NewInMemoryDispatcher creates a dispatcher with the given queue size.
func NewInMemoryDispatcher(buffer int, logger *zap.Logger) *InMemoryDispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &InMemoryDispatcher{queue: make(chan Event, buffer), logger: logger}
}

// Publish enqueues the event, waiting for room until ctx is done.
func (d *InMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	select {
	case d.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run delivers queued events one at a time.
func (d *InMemoryDispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-d.queue:
			if err := d.deliver(ctx, event); err != nil {
				d.logger.Error("event handler failed",
					zap.String("event_id", event.ID),
					zap.String("event_type", string(event.Type)),
					zap.Error(err),
				)
			}
		}
	}
}
