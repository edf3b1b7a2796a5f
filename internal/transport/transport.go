// Package transport delivers CRLF-terminated text lines over TCP,
// WebSocket, or an in-process pair, hiding the medium behind Conn.
package transport

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	lineTerminator = "\r\n"
	// maxLineBytes caps one buffered wire line; a compliant peer never
	// comes close to this.
	maxLineBytes = 64 * 1024
)

var (
	ErrConnClosed    = errors.New("transport: connection closed")
	ErrLineTooLong   = errors.New("transport: line exceeds maximum length")
	ErrDialExhausted = errors.New("transport: dial attempts exhausted")
)

// Conn is one line-framed connection. Lines are delivered in arrival
// order on Lines(), which closes when the connection dies; Err reports
// the terminal failure afterwards (nil for an orderly close).
type Conn interface {
	ID() string
	Send(line string) error
	Lines() <-chan string
	Err() error
	Close() error
}

// netConn adapts a net.Conn (or anything stream-like) to Conn.
type netConn struct {
	id    string
	raw   io.ReadWriteCloser
	lines chan string

	wmu sync.Mutex

	mu     sync.Mutex
	err    error
	closed bool
}

// NewConn wraps a stream connection and starts its reader. Every
// received line is passed through unmodified, including WebSocket
// handshake text arriving on a raw socket.
func NewConn(raw io.ReadWriteCloser) Conn {
	c := &netConn{
		id:    uuid.NewString(),
		raw:   raw,
		lines: make(chan string, 64),
	}
	go c.readLoop()
	return c
}

func (c *netConn) ID() string {
	return c.id
}

func (c *netConn) Send(line string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnClosed
	}
	c.mu.Unlock()

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := io.WriteString(c.raw, line+lineTerminator); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

func (c *netConn) Lines() <-chan string {
	return c.lines
}

func (c *netConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.err
}

func (c *netConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.raw.Close()
}

func (c *netConn) fail(err error) {
	c.mu.Lock()
	if c.err == nil && !c.closed {
		c.err = err
	}
	c.mu.Unlock()
}

func (c *netConn) readLoop() {
	defer close(c.lines)
	r := bufio.NewReaderSize(c.raw, 4096)
	var partial strings.Builder
	for {
		chunk, err := r.ReadString('\n')
		if len(chunk) > 0 {
			partial.WriteString(chunk)
			if partial.Len() > maxLineBytes {
				c.fail(ErrLineTooLong)
				_ = c.raw.Close()
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !isClosedConn(err) {
				c.fail(err)
			}
			return
		}
		line := strings.TrimRight(partial.String(), "\r\n")
		partial.Reset()
		c.lines <- line
	}
}

func isClosedConn(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}
