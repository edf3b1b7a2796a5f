// Package host implements the table orchestrator: it seats the four
// clients, runs the readiness barriers, relays calls and plays, keeps
// the think clocks, and records the session results. The host is the single
// authority on sequencing; clients only ever answer its prompts.
package host

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/bridgectl/internal/bridge"
	"github.com/danmuck/bridgectl/internal/events"
	"github.com/danmuck/bridgectl/internal/observability"
	"github.com/danmuck/bridgectl/internal/protocol"
	"github.com/danmuck/bridgectl/internal/transport"
)

var ErrSeatLost = errors.New("host: seat connection lost")

// Mode selects how the board set is replayed across the session.
type Mode int

const (
	// TwoRounds plays the whole set once, then again with the hands
	// rotated one seat so the other pair holds each deal.
	TwoRounds Mode = iota
	// InstantReplay rotates and replays each board immediately after it
	// is first played.
	InstantReplay
	// TwoTables serves each board exactly once, unrotated: the paired
	// table in the other room plays the same set, and scores are
	// compared across the two tables.
	TwoTables
)

func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "two-rounds":
		return TwoRounds, nil
	case "instant-replay":
		return InstantReplay, nil
	case "two-tables":
		return TwoTables, nil
	}
	return TwoRounds, fmt.Errorf("host: unknown mode %q", name)
}

// ScoringMethod selects the comparison scoring for the session.
type ScoringMethod int

const (
	ScoringIMP ScoringMethod = iota
	ScoringMatchpoints
)

func ParseScoring(name string) (ScoringMethod, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "imp":
		return ScoringIMP, nil
	case "matchpoints":
		return ScoringMatchpoints, nil
	}
	return ScoringIMP, fmt.Errorf("host: unknown scoring %q", name)
}

// Config describes one hosted table.
type Config struct {
	Name    string
	Mode    Mode
	Alert   protocol.AlertMode
	Scoring ScoringMethod

	// Expected team names per partnership; empty means the first
	// connecting client of each pair binds the name.
	Teams map[bridge.Direction]string
}

// Host drives one table through a full session.
type Host struct {
	cfg    Config
	bus    *events.Bus
	source BoardSource
	log    zerolog.Logger

	mu       sync.Mutex
	sessions bridge.SeatMap[*seatSession]
	teams    map[bridge.Direction]string
	seated   int
	rotation int

	clock   thinkClock
	results []bridge.BoardResult

	allSeated  chan struct{}
	seatedOnce sync.Once

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

func New(cfg Config, source BoardSource, bus *events.Bus, log zerolog.Logger) *Host {
	h := &Host{
		cfg:       cfg,
		bus:       bus,
		source:    source,
		log:       log.With().Str("table", cfg.Name).Logger(),
		teams:     make(map[bridge.Direction]string, 2),
		allSeated: make(chan struct{}),
	}
	for d, name := range cfg.Teams {
		h.teams[d] = name
	}
	h.clock.init()
	return h
}

// Run plays the session to completion: wait for four seats, announce
// teams, then deal boards from the source until it is exhausted or the
// context is cancelled. Cancellation is the orderly stop; the session
// still ends with the end-of-session broadcast.
func (h *Host) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	h.setCancel(cancel)
	defer cancel()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.allSeated:
	}

	ns, ew := h.teamNames()
	h.publish(events.TournamentStarted{
		HostName: h.cfg.Name,
		Teams:    map[bridge.Direction]string{bridge.NorthSouth: ns, bridge.EastWest: ew},
	})

	if err := h.awaitReady(ctx, "teams", protocol.ReadyForTeams, ""); err != nil {
		return h.finish(ctx, err)
	}
	if err := h.broadcast(ctx, protocol.RenderTeams(ns, ew)); err != nil {
		return h.finish(ctx, err)
	}
	if err := h.awaitReady(ctx, "start", protocol.ReadyToStart, ""); err != nil {
		return h.finish(ctx, err)
	}
	h.publish(events.RoundStarted{
		Teams: map[bridge.Direction]string{bridge.NorthSouth: ns, bridge.EastWest: ew},
	})

	for {
		board, ok := h.source.NextBoard()
		if !ok {
			break
		}
		if err := h.playBoard(ctx, board); err != nil {
			return h.finish(ctx, err)
		}
	}
	return h.finish(ctx, nil)
}

// Stop requests an orderly end of session after the current exchange.
func (h *Host) Stop() {
	h.cancelMu.Lock()
	cancel := h.cancel
	h.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Results lists the boards completed so far.
func (h *Host) Results() []bridge.BoardResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]bridge.BoardResult, len(h.results))
	copy(out, h.results)
	return out
}

func (h *Host) setCancel(cancel context.CancelFunc) {
	h.cancelMu.Lock()
	h.cancel = cancel
	h.cancelMu.Unlock()
}

// finish ends the session: every still-connected seat gets the
// end-of-session line, links close, and the result set is published. A
// cancelled context reaching this point is the operator stop, not a
// failure.
func (h *Host) finish(ctx context.Context, cause error) error {
	if errors.Is(cause, context.Canceled) {
		cause = nil
	}

	// Best effort on a background context; the run context may already
	// be cancelled.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for _, seat := range bridge.Seats() {
		sess := h.sessionAt(seat)
		if sess == nil {
			continue
		}
		_ = sess.link.Send(sendCtx, protocol.EndOfSession)
		_ = sess.link.Close()
	}

	h.publish(events.TournamentFinished{Results: h.Results()})
	if cause != nil {
		h.log.Error().Err(cause).Msg("session ended abnormally")
	} else {
		h.log.Info().Int("boards", len(h.Results())).Msg("session complete")
	}
	return cause
}

func (h *Host) playBoard(ctx context.Context, board bridge.Board) error {
	if err := board.Validate(); err != nil {
		return err
	}
	h.setRotation(boardRotation(board))
	h.clock.resetBoard()

	if err := h.broadcast(ctx, protocol.StartOfBoard); err != nil {
		return err
	}
	if err := h.awaitReady(ctx, "deal", protocol.ReadyForDeal, ""); err != nil {
		return err
	}
	if err := h.broadcast(ctx, protocol.RenderBoardInfo(board.Number, board.Dealer, board.Vulnerable)); err != nil {
		return err
	}
	h.publish(events.BoardStarted{
		BoardNumber: board.Number,
		Dealer:      board.Dealer,
		Vulnerable:  board.Vulnerable,
	})
	if err := h.awaitReady(ctx, "cards", protocol.ReadyForCards, ""); err != nil {
		return err
	}
	for _, seat := range bridge.Seats() {
		if err := h.sendTo(ctx, seat, protocol.RenderCards(seat, board.Deal.Get(seat))); err != nil {
			return err
		}
		for _, card := range board.Deal.Get(seat) {
			h.publish(events.CardPosition{Seat: seat, Card: card})
		}
	}
	h.publish(events.CardDealingEnded{})

	auction, err := h.runAuction(ctx, board)
	if err != nil {
		return err
	}

	result := bridge.BoardResult{
		BoardNumber:   board.Number,
		NorthTeam:     h.teamOf(bridge.NorthSouth),
		EastTeam:      h.teamOf(bridge.EastWest),
		RotatedReplay: board.RotateHands,
	}
	if auction.passedOut {
		result.PassedOut = true
	} else {
		result.Contract = auction.contract
		tricks, err := h.runPlay(ctx, board, auction.contract)
		if err != nil {
			return err
		}
		result.TricksTaken = tricks
	}
	h.publish(events.PlayFinished{BoardNumber: board.Number, Result: result})

	nsBoard, nsTotal, ewBoard, ewTotal := h.clock.snapshot()
	if err := h.broadcast(ctx, protocol.RenderTiming(nsBoard, nsTotal, ewBoard, ewTotal)); err != nil {
		return err
	}

	h.recordResult(result)
	h.source.SaveResult(result)
	h.publish(events.BoardFinished{Result: result})
	observability.RecordBoardCompleted()
	h.log.Info().
		Int("board", board.Number).
		Bool("replay", board.RotateHands).
		Str("result", describeResult(result)).
		Msg("board complete")
	return nil
}

func describeResult(r bridge.BoardResult) string {
	if r.PassedOut {
		return "passed out"
	}
	return fmt.Sprintf("%s, %d tricks", r.Contract, r.TricksTaken)
}

func (h *Host) recordResult(r bridge.BoardResult) {
	h.mu.Lock()
	h.results = append(h.results, r)
	h.mu.Unlock()
}

func boardRotation(board bridge.Board) int {
	if board.RotateHands {
		return 1
	}
	return 0
}

func (h *Host) setRotation(steps int) {
	h.mu.Lock()
	h.rotation = steps
	h.mu.Unlock()
}

func (h *Host) rotationSteps() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rotation
}

// session maps a logical seat onto the physical client playing it. On a
// rotated replay the client one position along holds the seat's cards.
func (h *Host) session(seat bridge.Seat) *seatSession {
	return h.sessionAt(seat.Rotated(h.rotationSteps()))
}

func (h *Host) sessionAt(physical bridge.Seat) *seatSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions.Get(physical)
}

// sendTo delivers one line to the client playing a logical seat. Seat
// names in the text are rewritten so the client sees its own physical
// identity.
func (h *Host) sendTo(ctx context.Context, seat bridge.Seat, line string) error {
	sess := h.session(seat)
	if sess == nil {
		return fmt.Errorf("%w: %s not seated", ErrSeatLost, seat)
	}
	wire := protocol.RotateSeats(line, h.rotationSteps())
	h.log.Debug().Str("seat", sess.physical.String()).Str("send", wire).Msg("wire out")
	observability.RecordWireLine(sess.physical.String(), "out")
	if err := sess.link.Send(ctx, wire); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSeatLost, seat, err)
	}
	return nil
}

func (h *Host) broadcast(ctx context.Context, line string) error {
	for _, seat := range bridge.Seats() {
		if err := h.sendTo(ctx, seat, line); err != nil {
			return err
		}
	}
	return nil
}

// recv pops the next line from a logical seat, with seat names mapped
// back into logical identities.
func (h *Host) recv(ctx context.Context, seat bridge.Seat) (protocol.TimedLine, error) {
	sess := h.session(seat)
	if sess == nil {
		return protocol.TimedLine{}, fmt.Errorf("%w: %s not seated", ErrSeatLost, seat)
	}
	select {
	case <-ctx.Done():
		return protocol.TimedLine{}, ctx.Err()
	case <-sess.link.Done():
		return protocol.TimedLine{}, fmt.Errorf("%w: %s", ErrSeatLost, seat)
	case tl := <-sess.lines:
		tl.Text = protocol.UnrotateSeats(tl.Text, h.rotationSteps())
		h.log.Debug().Str("seat", sess.physical.String()).Str("recv", tl.Text).Msg("wire in")
		return tl, nil
	}
}

// violation fails a seat that broke the protocol sequence: the seat is
// told what was expected and its connection is dropped. The seat keeps
// its place at the table, and the exchange resumes on the same queue
// once it reconnects.
func (h *Host) violation(ctx context.Context, seat bridge.Seat, got, want string) {
	h.reject(ctx, seat, got, want)
	if sess := h.session(seat); sess != nil {
		sess.link.Drop()
	}
}

// reject refuses a line the rules do not allow. The connection stays up
// and the table waits on the seat's queue for a corrected line.
func (h *Host) reject(ctx context.Context, seat bridge.Seat, got, want string) {
	_ = h.sendTo(ctx, seat, fmt.Sprintf("Unexpected '%s' received; expected '%s'", got, want))
	h.log.Warn().
		Str("seat", seat.String()).
		Str("got", got).
		Str("want", want).
		Msg("seat violation")
	h.publish(events.SeatDisconnected{Seat: seat, Reason: fmt.Sprintf("sent %q, expected %q", got, want)})
}

func (h *Host) teamNames() (ns, ew string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.teams[bridge.NorthSouth], h.teams[bridge.EastWest]
}

func (h *Host) teamOf(d bridge.Direction) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.teams[d]
}

func (h *Host) publish(e events.Event) {
	if h.bus != nil {
		h.bus.Publish(e)
	}
}

var _ transport.AcceptHandler = (*Host)(nil).AcceptConn
