package events

import (
	"sync"
)

// Handler consumes one event. Handlers run on the publishing goroutine.
type Handler func(Event)

// Bus dispatches events to handlers registered per kind, in registration
// order. Dispatch is serialized: each table runs one logical publishing
// goroutine, and on it a Publish call returns only after every handler
// for the event (and any events those handlers published) has run. A
// Publish landing from another goroutine while a drain is in progress
// queues the event for that drain and returns at once. The bus is
// injected into every component that needs it; there is no
// package-level instance.
type Bus struct {
	regMu    sync.RWMutex
	handlers map[Kind][]Handler
	taps     []Handler

	qmu     sync.Mutex
	queue   []Event
	pumping bool
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Kind][]Handler),
	}
}

// Subscribe registers a handler for one event kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	if h == nil {
		return
	}
	b.regMu.Lock()
	defer b.regMu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Tap registers a handler for every event; taps run after the per-kind
// handlers. Used by monitors and the operator feed.
func (b *Bus) Tap(h Handler) {
	if h == nil {
		return
	}
	b.regMu.Lock()
	defer b.regMu.Unlock()
	b.taps = append(b.taps, h)
}

// Publish delivers an event. Handlers may publish further events; those
// are queued and drained in order before the outermost Publish returns.
func (b *Bus) Publish(e Event) {
	if e == nil {
		return
	}
	b.qmu.Lock()
	b.queue = append(b.queue, e)
	if b.pumping {
		b.qmu.Unlock()
		return
	}
	b.pumping = true
	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue = b.queue[1:]
		b.qmu.Unlock()
		b.dispatch(next)
		b.qmu.Lock()
	}
	b.pumping = false
	b.qmu.Unlock()
}

func (b *Bus) dispatch(e Event) {
	b.regMu.RLock()
	hs := make([]Handler, 0, len(b.handlers[e.EventKind()])+len(b.taps))
	hs = append(hs, b.handlers[e.EventKind()]...)
	hs = append(hs, b.taps...)
	b.regMu.RUnlock()
	for _, h := range hs {
		h(e)
	}
}
