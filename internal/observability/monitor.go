package observability

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/bridgectl/internal/events"
	"github.com/danmuck/bridgectl/internal/transport"
)

const feedCapacity = 256

type feedEntry struct {
	Seq   uint64    `json:"seq"`
	At    time.Time `json:"at"`
	Kind  string    `json:"kind"`
	Event string    `json:"event"`
}

// Monitor is the operator surface of a running table: health, readiness,
// Prometheus metrics, a ring buffer of recent table events, and the
// WebSocket seat endpoint.
type Monitor struct {
	name     string
	addr     string
	appeared time.Time
	router   *gin.Engine

	mu   sync.Mutex
	seq  uint64
	feed []feedEntry
}

// NewMonitor wires the admin router and taps the table bus for the
// event feed. onSeat receives each upgraded /table WebSocket connection.
func NewMonitor(name, addr string, corsOrigins []string, bus *events.Bus, onSeat transport.AcceptHandler) *Monitor {
	RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	m := &Monitor{
		name:     name,
		addr:     addr,
		appeared: time.Now(),
		router:   r,
	}
	if bus != nil {
		bus.Tap(m.record)
	}
	m.registerRoutes(onSeat)
	return m
}

func (m *Monitor) record(e events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.feed = append(m.feed, feedEntry{
		Seq:   m.seq,
		At:    time.Now(),
		Kind:  e.EventKind().String(),
		Event: fmt.Sprintf("%+v", e),
	})
	if len(m.feed) > feedCapacity {
		m.feed = m.feed[len(m.feed)-feedCapacity:]
	}
}

func (m *Monitor) recent() []feedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]feedEntry, len(m.feed))
	copy(out, m.feed)
	return out
}

func (m *Monitor) registerRoutes(onSeat transport.AcceptHandler) {
	m.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(m.appeared).String(),
			"service": m.name,
			"version": "0.0.1",
		})
	})

	m.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(m.appeared).String(),
			"service": m.name,
			"version": "0.0.1",
		})
	})

	m.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	m.router.GET("/events", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"events": m.recent(),
		})
	})

	if onSeat != nil {
		m.router.GET("/table", gin.WrapH(transport.UpgradeHandler(onSeat)))
	}
}

// Serve blocks on the admin listener.
func (m *Monitor) Serve() error {
	return m.router.Run(m.addr)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
