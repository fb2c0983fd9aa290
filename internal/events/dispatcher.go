package events

import (
	"context"
	"sync"
)

// EventHandler consumes one published event. A returned error is the
// handler's own problem; publication never fails because a consumer did.
type EventHandler func(context.Context, Event) error

// Dispatcher fans events out to subscribed handlers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type memoryBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

// NewInMemoryDispatcher returns a synchronous in-process dispatcher.
// Handlers run on the publisher's goroutine in subscription order.
func NewInMemoryDispatcher() Dispatcher {
	return &memoryBus{handlers: map[EventType][]EventHandler{}}
}

func (b *memoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subscribed := b.handlers[event.Type]
	snapshot := make([]EventHandler, len(subscribed))
	copy(snapshot, subscribed)
	b.mu.RUnlock()

	for _, handle := range snapshot {
		_ = handle(ctx, event) // handlers log their own failures
	}
	return nil
}

func (b *memoryBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}
