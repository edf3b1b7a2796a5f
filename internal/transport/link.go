package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LinkState is the reconnection state machine for one logical peer.
type LinkState int

const (
	LinkConnected LinkState = iota
	LinkReconnecting
	LinkClosed
)

func (s LinkState) String() string {
	switch s {
	case LinkConnected:
		return "connected"
	case LinkReconnecting:
		return "reconnecting"
	case LinkClosed:
		return "closed"
	}
	return "unknown"
}

var ErrLinkClosed = errors.New("transport: link closed")

// Link keeps a logical connection alive across physical reconnects. The
// host owns one Link per seated client: when the socket dies the link
// suspends sends and keeps the merged line stream open until a new
// physical connection attaches under the same logical identity. All
// state transitions happen here, under one lock, so a failed send and a
// failed read cannot race each other into two reconnections.
type Link struct {
	id    string
	lines chan string
	done  chan struct{}

	mu      sync.Mutex
	resumed *sync.Cond
	state   LinkState
	conn    Conn
	gen     int

	onState func(LinkState)
}

// NewLink wraps the first physical connection of a logical peer; onState
// observes every state transition (called off the link's lock).
func NewLink(conn Conn, onState func(LinkState)) *Link {
	l := &Link{
		id:      uuid.NewString(),
		lines:   make(chan string, 64),
		done:    make(chan struct{}),
		state:   LinkConnected,
		conn:    conn,
		onState: onState,
	}
	l.resumed = sync.NewCond(&l.mu)
	go l.pump(conn, 0)
	return l
}

func (l *Link) ID() string {
	return l.id
}

// Lines is the merged inbound stream across all physical connections.
// It never closes; readers select against Done or their own context.
func (l *Link) Lines() <-chan string {
	return l.lines
}

// Done is closed when the link shuts down for good.
func (l *Link) Done() <-chan struct{} {
	return l.done
}

func (l *Link) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Send writes one line, blocking while the link is reconnecting. A
// cancelled context abandons the wait without failing the link.
func (l *Link) Send(ctx context.Context, line string) error {
	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.resumed.Broadcast()
		l.mu.Unlock()
	})
	defer stop()

	for {
		l.mu.Lock()
		for l.state == LinkReconnecting && ctx.Err() == nil {
			l.resumed.Wait()
		}
		if err := ctx.Err(); err != nil {
			l.mu.Unlock()
			return err
		}
		if l.state == LinkClosed {
			l.mu.Unlock()
			return ErrLinkClosed
		}
		conn := l.conn
		l.mu.Unlock()

		if err := conn.Send(line); err != nil {
			l.lost(conn)
			continue
		}
		return nil
	}
}

// Attach resumes a reconnecting link with a fresh physical connection.
func (l *Link) Attach(conn Conn) error {
	l.mu.Lock()
	if l.state == LinkClosed {
		l.mu.Unlock()
		return ErrLinkClosed
	}
	if old := l.conn; old != nil && old != conn {
		_ = old.Close()
	}
	l.conn = conn
	l.gen++
	gen := l.gen
	l.setStateLocked(LinkConnected)
	l.mu.Unlock()

	go l.pump(conn, gen)
	return nil
}

// Drop discards the current physical connection as if the socket had
// died: the link suspends sends and waits for a reattach. The logical
// peer keeps its identity.
func (l *Link) Drop() {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn != nil {
		l.lost(conn)
	}
}

// Close tears the link down; pending Sends fail and Done closes.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.state == LinkClosed {
		l.mu.Unlock()
		return nil
	}
	conn := l.conn
	l.setStateLocked(LinkClosed)
	close(l.done)
	l.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// lost moves Connected -> Reconnecting exactly once per physical conn;
// later failures of the same conn, from either the send or the read
// path, are no-ops.
func (l *Link) lost(conn Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != LinkConnected || l.conn != conn {
		return
	}
	_ = conn.Close()
	l.setStateLocked(LinkReconnecting)
	log.Warn().Str("link", l.id).Msg("peer connection lost, awaiting reconnect")
}

func (l *Link) setStateLocked(s LinkState) {
	if l.state == s {
		return
	}
	l.state = s
	l.resumed.Broadcast()
	if l.onState != nil {
		handler := l.onState
		go handler(s)
	}
}

func (l *Link) pump(conn Conn, gen int) {
	for line := range conn.Lines() {
		l.mu.Lock()
		stale := l.state == LinkClosed || l.gen != gen
		l.mu.Unlock()
		if stale {
			return
		}
		select {
		case l.lines <- line:
		case <-l.done:
			return
		}
	}
	l.mu.Lock()
	stale := l.gen != gen || l.state == LinkClosed
	l.mu.Unlock()
	if !stale {
		l.lost(conn)
	}
}
