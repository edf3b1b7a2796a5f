package transport

import (
	"sync"

	"github.com/google/uuid"
)

// inprocConn is one end of an in-process pair. Useful for robot seats
// living in the host process and for tests without sockets.
type inprocConn struct {
	id   string
	peer *inprocConn

	lines chan string
	done  chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// Pair returns two connected in-process ends; lines sent on one arrive
// on the other in order.
func Pair() (Conn, Conn) {
	a := &inprocConn{id: uuid.NewString(), lines: make(chan string, 256), done: make(chan struct{})}
	b := &inprocConn{id: uuid.NewString(), lines: make(chan string, 256), done: make(chan struct{})}
	a.peer = b
	b.peer = a
	return a, b
}

func (c *inprocConn) ID() string {
	return c.id
}

func (c *inprocConn) Send(line string) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrConnClosed
	}
	p := c.peer
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrConnClosed
	}
	// The done case keeps a sender blocked on a full buffer from
	// pinning the lock a concurrent shutdown needs.
	select {
	case p.lines <- line:
		return nil
	case <-p.done:
		return ErrConnClosed
	}
}

func (c *inprocConn) Lines() <-chan string {
	return c.lines
}

func (c *inprocConn) Err() error {
	return nil
}

// Close tears down both ends, so the peer's reader sees end of stream
// the way a socket close would deliver EOF.
func (c *inprocConn) Close() error {
	c.shutdown()
	c.peer.shutdown()
	return nil
}

func (c *inprocConn) shutdown() {
	// Wake any sender blocked on this end's buffer before taking the
	// lock it holds.
	c.closeOnce.Do(func() { close(c.done) })
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.lines)
}
