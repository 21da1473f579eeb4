package events

import "sync"

// Handler receives published events on the publisher's goroutine.
type Handler func(Event)

// Bus is a synchronous in-process publish/subscribe hub. Handlers run in
// registration order on the caller's goroutine, so a tick's events are
// fully consumed before the tick returns. Handlers must not call back
// into the tick driver.
type Bus struct {
	mu       sync.Mutex
	handlers []Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for every subsequent publish.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers ev to every handler in registration order. The handler
// list is copied under the lock so a handler may subscribe without
// deadlocking.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	hs := make([]Handler, len(b.handlers))
	copy(hs, b.handlers)
	b.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

// Collector accumulates events for tests and metrics consumers.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Handle appends ev to the collector. It satisfies Handler.
func (c *Collector) Handle(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Drain returns the collected events and clears the collector.
func (c *Collector) Drain() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}

// Len reports how many events are waiting.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
