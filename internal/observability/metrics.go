package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	wireLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridgectl",
			Subsystem: "wire",
			Name:      "lines_total",
			Help:      "Wire lines exchanged with seat clients.",
		},
		[]string{"seat", "direction"},
	)
	reconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridgectl",
			Subsystem: "wire",
			Name:      "reconnects_total",
			Help:      "Seat links that entered the reconnecting state.",
		},
		[]string{"seat"},
	)
	boardsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bridgectl",
			Subsystem: "table",
			Name:      "boards_completed_total",
			Help:      "Boards played to completion.",
		},
	)
	barrierWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bridgectl",
			Subsystem: "table",
			Name:      "barrier_wait_seconds",
			Help:      "Time spent waiting for all seats to answer a phase.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(wireLines, reconnects, boardsCompleted, barrierWait)
	})
}

func RecordWireLine(seat, direction string) {
	RegisterMetrics()
	wireLines.WithLabelValues(seat, direction).Inc()
}

func RecordReconnect(seat string) {
	RegisterMetrics()
	reconnects.WithLabelValues(seat).Inc()
}

func RecordBoardCompleted() {
	RegisterMetrics()
	boardsCompleted.Inc()
}

func ObserveBarrierWait(phase string, d time.Duration) {
	RegisterMetrics()
	barrierWait.WithLabelValues(phase).Observe(d.Seconds())
}
