package host

import (
	"sync"
	"time"

	"github.com/danmuck/bridgectl/internal/bridge"
)

// thinkClock accumulates per-partnership think time: started when the
// host releases a prompt, stopped at the receipt timestamp of the
// answering line, so transport latency inside the host never counts.
type thinkClock struct {
	mu      sync.Mutex
	started map[bridge.Direction]time.Time
	board   map[bridge.Direction]time.Duration
	total   map[bridge.Direction]time.Duration
}

func (c *thinkClock) init() {
	c.started = make(map[bridge.Direction]time.Time, 2)
	c.board = make(map[bridge.Direction]time.Duration, 2)
	c.total = make(map[bridge.Direction]time.Duration, 2)
}

func (c *thinkClock) start(d bridge.Direction, at time.Time) {
	c.mu.Lock()
	c.started[d] = at
	c.mu.Unlock()
}

func (c *thinkClock) stop(d bridge.Direction, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	began, ok := c.started[d]
	if !ok || began.IsZero() {
		return
	}
	delete(c.started, d)
	if elapsed := at.Sub(began); elapsed > 0 {
		c.board[d] += elapsed
		c.total[d] += elapsed
	}
}

func (c *thinkClock) resetBoard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.board = make(map[bridge.Direction]time.Duration, 2)
	c.started = make(map[bridge.Direction]time.Time, 2)
}

func (c *thinkClock) snapshot() (nsBoard, nsTotal, ewBoard, ewTotal time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board[bridge.NorthSouth], c.total[bridge.NorthSouth],
		c.board[bridge.EastWest], c.total[bridge.EastWest]
}
