package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// DialConfig bounds the client connect retry loop.
type DialConfig struct {
	// Attempts is the maximum number of connect tries; 0 means one try.
	Attempts int
	// RetryDelay is the fixed wait between refused attempts.
	RetryDelay time.Duration
}

func DefaultDialConfig() DialConfig {
	return DialConfig{
		Attempts:   10,
		RetryDelay: 2 * time.Second,
	}
}

// DialTCP connects to a host, retrying connection-refused failures up to
// the configured attempt count, then failing permanently.
func DialTCP(ctx context.Context, addr string, cfg DialConfig) (Conn, error) {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	backoff := Backoff{Min: cfg.RetryDelay, Factor: 1.0}
	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		var d net.Dialer
		raw, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			if tc, ok := raw.(*net.TCPConn); ok {
				_ = tc.SetNoDelay(true)
			}
			return NewConn(raw), nil
		}
		lastErr = err
		if !errors.Is(err, syscall.ECONNREFUSED) {
			return nil, err
		}
		log.Debug().Str("addr", addr).Int("attempt", attempt).Msg("connect refused, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff.Delay(attempt)):
		}
	}
	return nil, errors.Join(ErrDialExhausted, lastErr)
}

// AcceptHandler receives each inbound connection on its own goroutine.
type AcceptHandler func(Conn)

// TCPListener accepts raw-socket table connections.
type TCPListener struct {
	ln net.Listener

	mu     sync.Mutex
	closed bool
}

func ListenTCP(addr string) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPListener{ln: ln}, nil
}

func (l *TCPListener) Addr() string {
	return l.ln.Addr().String()
}

// Serve accepts until the listener closes or ctx is cancelled.
func (l *TCPListener) Serve(ctx context.Context, onConn AcceptHandler) {
	for {
		raw, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if l.isClosed() || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn().Err(err).Msg("accept failed")
			continue
		}
		if tc, ok := raw.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}
		go onConn(NewConn(raw))
	}
}

// Close is idempotent and unblocks Serve.
func (l *TCPListener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	return l.ln.Close()
}

func (l *TCPListener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
