package host

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/bridgectl/internal/bridge"
	"github.com/danmuck/bridgectl/internal/observability"
)

// noSeat marks a barrier with no excluded seat.
const noSeat = bridge.Seat(-1)

// awaitReady collects "<seat> <suffix>" from every seat and only then
// returns. Each seat's queue is independent, so the seats are drained in
// play order; a seat that answered early is simply read later.
func (h *Host) awaitReady(ctx context.Context, phase, suffix, alt string) error {
	return h.awaitReadyExcept(ctx, phase, suffix, alt, noSeat)
}

// awaitReadyExcept is awaitReady with one seat exempted (the seat about
// to act, or dummy during its own disclosure). The alternate suffix,
// when set, is accepted interchangeably from any seat.
func (h *Host) awaitReadyExcept(ctx context.Context, phase, suffix, alt string, except bridge.Seat) error {
	start := time.Now()
	for _, seat := range bridge.Seats() {
		if seat == except {
			continue
		}
		for {
			tl, err := h.recv(ctx, seat)
			if err != nil {
				return err
			}
			if readinessMatches(tl.Text, seat, suffix, alt) {
				break
			}
			h.violation(ctx, seat, tl.Text, fmt.Sprintf("%s %s", seat, suffix))
		}
	}
	observability.ObserveBarrierWait(phase, time.Since(start))
	return nil
}

// readinessMatches checks one announcement case-insensitively against
// the canonical and alternate phrasings.
func readinessMatches(line string, seat bridge.Seat, suffix, alt string) bool {
	got := strings.TrimSpace(line)
	if strings.EqualFold(got, fmt.Sprintf("%s %s", seat, suffix)) {
		return true
	}
	return alt != "" && strings.EqualFold(got, fmt.Sprintf("%s %s", seat, alt))
}
