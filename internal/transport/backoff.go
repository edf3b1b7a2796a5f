package transport

import (
	"math"
	"time"
)

// Backoff computes retry delays. With Factor 1.0 it is a fixed-interval
// schedule (the dialer's connect retry); with Factor 2.0 it is the idle
// doubling used by queue consumers.
type Backoff struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
}

// Delay returns the wait before attempt n (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Min <= 0 {
		return 0
	}
	factor := b.Factor
	if factor < 1.0 {
		factor = 1.0
	}
	if attempt <= 1 || factor == 1.0 {
		return b.clamp(b.Min)
	}
	d := float64(b.Min) * math.Pow(factor, float64(attempt-1))
	return b.clamp(time.Duration(d))
}

func (b Backoff) clamp(d time.Duration) time.Duration {
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}
