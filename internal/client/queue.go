package client

import (
	"context"
	"sync"
	"time"

	"github.com/danmuck/bridgectl/internal/transport"
)

// TimedMessage is one received wire line with its arrival timestamp,
// used downstream for think-time accounting.
type TimedMessage struct {
	Text string
	At   time.Time
}

// fifo is a producer/consumer queue shared between a transport callback
// and a single consumer loop; the lock is the only synchronization, the
// slice is never iterated unguarded.
type fifo[T any] struct {
	mu    sync.Mutex
	items []T
}

func (q *fifo[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

func (q *fifo[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *fifo[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// idleWait sleeps the consumer between empty polls: doubling from the
// minimum up to the cap, so an idle loop stays cheap while responses
// still land well under 100ms.
type idleWait struct {
	backoff transport.Backoff
	attempt int
}

func newIdleWait() *idleWait {
	return &idleWait{
		backoff: transport.Backoff{
			Min:    2 * time.Millisecond,
			Max:    50 * time.Millisecond,
			Factor: 2.0,
		},
	}
}

// Sleep waits one idle interval; returns false when ctx ends.
func (w *idleWait) Sleep(ctx context.Context) bool {
	w.attempt++
	select {
	case <-ctx.Done():
		return false
	case <-time.After(w.backoff.Delay(w.attempt)):
		return true
	}
}

// Reset marks that work was found, restoring the minimum interval.
func (w *idleWait) Reset() {
	w.attempt = 0
}

// gate pauses a consumer loop until another loop releases it: the
// channel-based replacement for the polled pause flags. The zero-ish
// value from newGate starts open.
type gate struct {
	mu     sync.Mutex
	paused chan struct{}
}

func newGate() *gate {
	return &gate{}
}

// Pause closes the gate; Wait blocks until Resume.
func (g *gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused == nil {
		g.paused = make(chan struct{})
	}
}

// Resume reopens the gate and releases all waiters.
func (g *gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused != nil {
		close(g.paused)
		g.paused = nil
	}
}

// Wait blocks while the gate is paused; returns false when ctx ends.
func (g *gate) Wait(ctx context.Context) bool {
	for {
		g.mu.Lock()
		ch := g.paused
		g.mu.Unlock()
		if ch == nil {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ch:
		}
	}
}
