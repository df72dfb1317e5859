package infrastructure

import (
	"context"
	"sync"

	"raffle/domain/events"

	log "github.com/sirupsen/logrus"
)

// LocalHandler handles an event inside the publishing process
type LocalHandler = func(ctx context.Context, event events.Event) error

// localHandlers dispatches events to in-process handlers. Handler errors are
// logged and never stop the remaining handlers.
type localHandlers struct {
	mu       sync.RWMutex
	handlers map[events.EventType][]LocalHandler
}

// RegisterLocalHandler registers a handler that will be invoked locally for events
func (l *localHandlers) RegisterLocalHandler(eventType events.EventType, handler LocalHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handlers == nil {
		l.handlers = make(map[events.EventType][]LocalHandler)
	}
	l.handlers[eventType] = append(l.handlers[eventType], handler)
	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(l.handlers[eventType]),
	}).Info("Registered local event handler")
}

func (l *localHandlers) dispatch(ctx context.Context, event events.Event) {
	l.mu.RLock()
	handlers := l.handlers[event.Type()]
	l.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Local event handler failed")
		}
	}
}

// LocalEventPublisher delivers events to local handlers only. It serves the
// in-memory deployment where no message bus is configured.
type LocalEventPublisher struct {
	localHandlers
}

// NewLocalEventPublisher creates a publisher without a message bus
func NewLocalEventPublisher() *LocalEventPublisher {
	return &LocalEventPublisher{}
}

// Publish invokes the local handlers for the event
func (p *LocalEventPublisher) Publish(event events.Event) error {
	p.dispatch(context.Background(), event)
	return nil
}
