package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// wsConn adapts a gorilla websocket connection to Conn. Each text
// message is one wire line; the browser-side framing already removes the
// need for CRLF scanning, but a trailing terminator is tolerated.
type wsConn struct {
	id    string
	ws    *websocket.Conn
	lines chan string

	wmu sync.Mutex

	mu     sync.Mutex
	err    error
	closed bool
}

func newWSConn(ws *websocket.Conn) *wsConn {
	c := &wsConn{
		id:    uuid.NewString(),
		ws:    ws,
		lines: make(chan string, 64),
	}
	go c.readLoop()
	return c
}

// DialWS connects to a table host over WebSocket, with the same bounded
// retry schedule as the TCP dialer.
func DialWS(ctx context.Context, url string, cfg DialConfig) (Conn, error) {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	backoff := Backoff{Min: cfg.RetryDelay, Factor: 1.0}
	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err == nil {
			return newWSConn(ws), nil
		}
		lastErr = err
		log.Debug().Str("url", url).Int("attempt", attempt).Err(err).Msg("websocket dial failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff.Delay(attempt)):
		}
	}
	return nil, errors.Join(ErrDialExhausted, lastErr)
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The monitor server fronting this handler applies its own CORS
	// policy; table clients are not browsers by default.
	CheckOrigin: func(*http.Request) bool { return true },
}

// UpgradeHandler turns HTTP requests into table connections and hands
// them to the same accept path as raw sockets.
func UpgradeHandler(onConn AcceptHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		go onConn(newWSConn(ws))
	}
}

func (c *wsConn) ID() string {
	return c.id
}

func (c *wsConn) Send(line string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnClosed
	}
	c.mu.Unlock()

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(line+lineTerminator)); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

func (c *wsConn) Lines() <-chan string {
	return c.lines
}

func (c *wsConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.err
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.ws.Close()
}

func (c *wsConn) fail(err error) {
	c.mu.Lock()
	if c.err == nil && !c.closed {
		c.err = err
	}
	c.mu.Unlock()
}

func (c *wsConn) readLoop() {
	defer close(c.lines)
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !isClosedConn(err) {
				c.fail(err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}
			c.lines <- line
		}
	}
}
