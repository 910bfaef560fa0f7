package events

import (
	"sync"

	"github.com/quotelab/kalshi-avellaneda/internal/telemetry"
)

// Handler processes an event. Returning an error logs it but does not
// stop dispatch to later handlers.
type Handler func(Event) error

// Bus is a synchronous in-process event bus. Subscribers run in
// registration order on the publisher's goroutine, so handlers must be
// cheap; anything slow should hand off to its own goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish dispatches an event to all registered handlers for its type.
// A nil Bus is a valid no-op publisher.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	handlers := b.handlers[e.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(e); err != nil {
			telemetry.Warnf("events: %s handler: %v", e.Type, err)
		}
	}
}
