package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/pkg/logger"
	"travelguide.io/guestbook/internal/pkg/metrics"
)

// EventHandler processes a domain event.
type EventHandler func(ctx context.Context, event *DomainEvent) error

// EventPublisher is what the pipeline depends on to emit events.
type EventPublisher interface {
	Dispatch(ctx context.Context, event *DomainEvent) error
}

type subscription struct {
	name    string
	handler EventHandler
}

// EventDispatcher fans events out to named in-process subscribers.
// Subscribers run synchronously in subscription order; slow work belongs in
// a worker pool behind the handler.
type EventDispatcher struct {
	mu   sync.RWMutex
	subs map[EventType][]subscription
}

func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{subs: make(map[EventType][]subscription)}
}

// Subscribe attaches handler to each of eventTypes. name labels logs and metrics.
func (d *EventDispatcher) Subscribe(name string, handler EventHandler, eventTypes ...EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range eventTypes {
		d.subs[t] = append(d.subs[t], subscription{name: name, handler: handler})
	}
}

// Subscribers returns the subscriber names for t.
func (d *EventDispatcher) Subscribers(t EventType) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.subs[t]))
	for _, s := range d.subs[t] {
		names = append(names, s.name)
	}
	return names
}

// Dispatch delivers event to every subscriber. A failing subscriber does not
// stop delivery to the rest; all failures are joined into the returned error.
func (d *EventDispatcher) Dispatch(ctx context.Context, event *DomainEvent) error {
	if event == nil {
		return nil
	}

	d.mu.RLock()
	subs := d.subs[event.EventType]
	d.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		err := s.handler(ctx, event)
		if err == nil {
			continue
		}
		metrics.EventHandlerFailures.WithLabelValues(string(event.EventType), s.name).Inc()
		logger.Error("Event subscriber failed",
			zap.String("subscriber", s.name),
			zap.String("event_type", string(event.EventType)),
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	return errors.Join(errs...)
}
