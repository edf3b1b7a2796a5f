// Package client implements the seat-side protocol state machine: it
// consumes the host's lines in strict sequence, validates each against
// the current state's expected set, emits the correctly-ordered
// responses, and exchanges table events with the local rules engine so
// the wire and the engine never race.
package client

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
	"github.com/danmuck/bridgectl/internal/protocol"
	"github.com/danmuck/bridgectl/internal/transport"
)

var (
	ErrSequenceViolation = errors.New("client: protocol sequence violation")
	ErrPeerReportedError = errors.New("client: peer reported a protocol error")
	ErrConnectionLost    = errors.New("client: connection lost")
)

// Config identifies one seat connection.
type Config struct {
	Seat       bridge.Seat
	Team       string
	Version    int
	SystemInfo string
	Alert      protocol.AlertMode

	// Explainer answers the host's Explain round trip for partner's
	// alerted calls. Optional; defaults to an empty explanation.
	Explainer func(bid bridge.Bid) string
}

// stateChange is one queued protocol step: lines to emit plus the next
// state and its expected-response prefixes (lowercase). An empty
// expected set leaves the message loop suspended until a later step
// arms it again.
type stateChange struct {
	send     []string
	state    ProtocolState
	expected []string
	// keepState leaves the current state untouched (send-only step).
	keepState bool
}

// Client drives one seat through the protocol.
type Client struct {
	cfg  Config
	conn transport.Conn
	bus  *events.Bus
	log  zerolog.Logger

	msgs    fifo[TimedMessage]
	changes fifo[stateChange]

	// protoSync suspends the message loop between completed steps;
	// bridgeEvents suspends the change loop while the rules engine is
	// still digesting a published event.
	protoSync    *gate
	bridgeEvents *gate
	needChange   chan struct{}

	mu       sync.Mutex
	state    ProtocolState
	expected []string

	table tableState

	fatal    chan error
	done     chan struct{}
	doneOnce sync.Once
}

// tableState is the client's view of the deal in progress; only the
// message and change loops touch it through the client mutex.
type tableState struct {
	boardNumber int
	dealer      bridge.Seat
	hand        bridge.Hand

	callsMade   int
	awaitOwnBid bool

	haveContract bool
	declarer     bridge.Seat
	dummy        bridge.Seat

	trick        int
	whoseTurn    bridge.Seat
	controller   bridge.Seat
	awaitOwnPlay bool
}

func New(cfg Config, conn transport.Conn, bus *events.Bus, log zerolog.Logger) *Client {
	if cfg.Explainer == nil {
		cfg.Explainer = func(bridge.Bid) string { return "" }
	}
	c := &Client{
		cfg:          cfg,
		conn:         conn,
		bus:          bus,
		log:          log.With().Str("seat", cfg.Seat.String()).Logger(),
		protoSync:    newGate(),
		bridgeEvents: newGate(),
		needChange:   make(chan struct{}, 1),
		fatal:        make(chan error, 4),
		done:         make(chan struct{}),
	}
	c.subscribe()
	return c
}

// State reports the current protocol state.
func (c *Client) State() ProtocolState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run connects the seat and drives the protocol until the session ends.
// Transport failure is fatal on the client side.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.pump()

	c.protoSync.Pause()
	c.push(stateChange{
		send: []string{protocol.RenderConnecting(protocol.Connecting{
			Team:       c.cfg.Team,
			Seat:       c.cfg.Seat,
			Version:    c.cfg.Version,
			SystemInfo: c.cfg.SystemInfo,
		})},
		state:    WaitForSeated,
		expected: []string{strings.ToLower(fmt.Sprintf("%s (", c.cfg.Seat))},
	})
	c.signalNeedChange()

	go c.changeLoop(ctx)
	go c.messageLoop(ctx)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.fatal:
		c.setState(Finished, nil)
		_ = c.conn.Close()
		return err
	case <-c.done:
		c.setState(Finished, nil)
		_ = c.conn.Close()
		return nil
	}
}

// pump moves transport lines into the message queue with their receipt
// timestamps. A closed stream is the orderly end of a session only when
// the state machine already reached WaitForDisconnect.
func (c *Client) pump() {
	for line := range c.conn.Lines() {
		c.msgs.Push(TimedMessage{Text: line, At: time.Now()})
	}
	if err := c.conn.Err(); err != nil {
		c.fail(fmt.Errorf("%w: %v", ErrConnectionLost, err))
		return
	}
	// The host may close right behind "End of session"; give the state
	// machine a moment to drain what already arrived.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.State() == WaitForDisconnect {
			c.finish()
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	c.fail(ErrConnectionLost)
}

func (c *Client) messageLoop(ctx context.Context) {
	idle := newIdleWait()
	for {
		if !c.protoSync.Wait(ctx) {
			return
		}
		msg, ok := c.msgs.Pop()
		if !ok {
			if !idle.Sleep(ctx) {
				return
			}
			continue
		}
		idle.Reset()
		if c.processMessage(msg) {
			c.protoSync.Pause()
			c.signalNeedChange()
		}
	}
}

func (c *Client) changeLoop(ctx context.Context) {
	idle := newIdleWait()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.needChange:
		}
		var change stateChange
		for {
			if v, ok := c.changes.Pop(); ok {
				change = v
				break
			}
			if !idle.Sleep(ctx) {
				return
			}
		}
		idle.Reset()
		if !c.bridgeEvents.Wait(ctx) {
			return
		}
		c.apply(ctx, change)
	}
}

func (c *Client) apply(_ context.Context, change stateChange) {
	c.mu.Lock()
	if !change.keepState {
		c.state = change.state
	}
	c.expected = change.expected
	c.mu.Unlock()

	for _, line := range change.send {
		c.log.Debug().Str("send", line).Msg("wire out")
		if err := c.conn.Send(line); err != nil {
			c.fail(fmt.Errorf("%w: %v", ErrConnectionLost, err))
			return
		}
	}

	if len(change.expected) > 0 {
		c.protoSync.Resume()
	} else {
		// Send-only step: stay suspended and take the next change as
		// soon as the rules engine supplies one.
		c.signalNeedChange()
	}
}

// processMessage validates one line against the expected set and
// dispatches it; the return value reports a completed protocol step.
func (c *Client) processMessage(msg TimedMessage) bool {
	text := strings.TrimSpace(msg.Text)
	lower := strings.ToLower(text)
	c.log.Debug().Str("recv", text).Msg("wire in")

	// The peer telling us *we* broke the protocol is always fatal.
	if strings.HasPrefix(lower, "unexpected ") {
		c.fail(fmt.Errorf("%w: %s", ErrPeerReportedError, text))
		return false
	}
	if strings.HasPrefix(lower, "disconnect") {
		c.push(stateChange{state: WaitForDisconnect})
		return true
	}

	c.mu.Lock()
	state := c.state
	expected := c.expected
	c.mu.Unlock()

	// Known peer quirk: stray "Teams" echoes between boards.
	if state == WaitForStartOfBoard && strings.HasPrefix(lower, "teams") {
		return false
	}

	matched := ""
	for _, prefix := range expected {
		if strings.HasPrefix(lower, prefix) {
			matched = prefix
			break
		}
	}
	if matched == "" {
		c.fail(fmt.Errorf("%w: state %s got %q", ErrSequenceViolation, state, text))
		return false
	}

	return c.dispatch(state, msg, lower)
}

func (c *Client) dispatch(state ProtocolState, msg TimedMessage, lower string) bool {
	switch state {
	case WaitForSeated:
		return c.onSeated()
	case WaitForTeams:
		return c.onTeams(msg.Text)
	case WaitForStartOfBoard:
		return c.onStartOfBoard(lower)
	case WaitForBoardInfo:
		return c.onBoardInfo(msg.Text)
	case WaitForMyCards:
		return c.onMyCards(msg.Text)
	case WaitForOtherBid:
		return c.onAuctionLine(msg)
	case WaitForDummiesCards:
		return c.onDummyCards(msg.Text)
	case WaitForLead:
		// The host granted the lead; the play itself comes from the
		// rules engine as a CardPlayed event.
		return true
	case WaitForCardPlay:
		return c.onPlayLine(msg)
	}
	c.fail(fmt.Errorf("%w: state %s got %q", ErrSequenceViolation, state, msg.Text))
	return false
}

func (c *Client) onSeated() bool {
	c.push(stateChange{
		send:     []string{fmt.Sprintf("%s %s", c.cfg.Seat, protocol.ReadyForTeams)},
		state:    WaitForTeams,
		expected: []string{"teams"},
	})
	return true
}

func (c *Client) onTeams(line string) bool {
	ns, ew, err := protocol.ParseTeams(line)
	if err != nil {
		c.fail(err)
		return false
	}
	c.publish(events.RoundStarted{Teams: map[bridge.Direction]string{
		bridge.NorthSouth: ns,
		bridge.EastWest:   ew,
	}})
	c.push(stateChange{
		send:     []string{fmt.Sprintf("%s %s", c.cfg.Seat, protocol.ReadyToStart)},
		state:    WaitForStartOfBoard,
		expected: betweenBoardsExpected(),
	})
	return true
}

func betweenBoardsExpected() []string {
	return []string{"start of board", "end of session", "timing"}
}

func (c *Client) onStartOfBoard(lower string) bool {
	switch {
	case strings.HasPrefix(lower, "timing"):
		// Informational; stays in the same step.
		return false
	case strings.HasPrefix(lower, "end of session"):
		c.publish(events.TournamentStopped{})
		c.push(stateChange{state: WaitForDisconnect})
		return true
	}
	c.mu.Lock()
	c.table = tableState{}
	c.mu.Unlock()
	c.push(stateChange{
		send:     []string{fmt.Sprintf("%s %s", c.cfg.Seat, protocol.ReadyForDeal)},
		state:    WaitForBoardInfo,
		expected: []string{"board number"},
	})
	return true
}

func (c *Client) onBoardInfo(line string) bool {
	number, dealer, vul, err := protocol.ParseBoardInfo(line)
	if err != nil {
		c.fail(err)
		return false
	}
	c.mu.Lock()
	c.table.boardNumber = number
	c.table.dealer = dealer
	c.mu.Unlock()
	c.publish(events.BoardStarted{BoardNumber: number, Dealer: dealer, Vulnerable: vul})
	c.push(stateChange{
		send:     []string{fmt.Sprintf("%s %s", c.cfg.Seat, protocol.ReadyForCards)},
		state:    WaitForMyCards,
		expected: []string{strings.ToLower(fmt.Sprintf("%s's cards", c.cfg.Seat))},
	})
	return true
}

func (c *Client) onMyCards(line string) bool {
	owner, isDummy, hand, err := protocol.ParseCards(line)
	if err != nil {
		c.fail(err)
		return false
	}
	if isDummy || owner != c.cfg.Seat {
		c.fail(fmt.Errorf("%w: cards for %s", ErrSequenceViolation, owner))
		return false
	}
	c.mu.Lock()
	c.table.hand = hand
	c.mu.Unlock()
	for _, card := range hand {
		c.publish(events.CardPosition{Seat: c.cfg.Seat, Card: card})
	}
	// The rules engine answers with BidNeeded for the dealer, which
	// arms the next step; until then the message loop stays suspended.
	c.publish(events.CardDealingEnded{})
	return true
}

// onAuctionLine handles an opponent's relayed call or an Explain
// interjection while waiting for one.
func (c *Client) onAuctionLine(msg TimedMessage) bool {
	lower := strings.ToLower(strings.TrimSpace(msg.Text))
	if strings.HasPrefix(lower, "explain ") {
		bid, err := parseExplainRequest(msg.Text)
		if err != nil {
			c.fail(err)
			return false
		}
		reply := c.cfg.Explainer(bid)
		if reply == "" {
			reply = "no agreement"
		}
		if err := c.conn.Send(reply); err != nil {
			c.fail(fmt.Errorf("%w: %v", ErrConnectionLost, err))
		}
		return false
	}

	seat, bid, err := protocol.ParseBid(msg.Text)
	if err != nil {
		c.fail(err)
		return false
	}
	c.mu.Lock()
	c.table.callsMade++
	c.mu.Unlock()
	c.publish(events.BidDone{Seat: seat, Bid: bid, At: msg.At})
	return true
}

// parseExplainRequest extracts the call from "Explain <SEAT>'s <bid>".
func parseExplainRequest(line string) (bridge.Bid, error) {
	idx := strings.LastIndex(line, " ")
	if idx < 0 {
		return bridge.Bid{}, fmt.Errorf("%w: %q", protocol.ErrMalformedLine, line)
	}
	return protocol.ParseCall(line[idx+1:])
}

func (c *Client) onDummyCards(line string) bool {
	_, isDummy, hand, err := protocol.ParseCards(line)
	if err != nil || !isDummy {
		c.fail(fmt.Errorf("%w: %q", ErrSequenceViolation, line))
		return false
	}
	c.mu.Lock()
	dummy := c.table.dummy
	c.mu.Unlock()
	for _, card := range hand {
		c.publish(events.CardPosition{Seat: dummy, Card: card})
	}
	return true
}

func (c *Client) onPlayLine(msg TimedMessage) bool {
	seat, card, signal, err := protocol.ParsePlay(msg.Text)
	if err != nil {
		c.fail(err)
		return false
	}
	c.mu.Lock()
	turn := c.table.whoseTurn
	c.mu.Unlock()
	if seat != turn {
		c.fail(fmt.Errorf("%w: play by %s, expected %s", ErrSequenceViolation, seat, turn))
		return false
	}
	c.publish(events.CardPlayed{Seat: seat, Card: card, Signal: signal, At: msg.At})
	return true
}

// subscribe wires the rules-engine events that drive outgoing lines.
func (c *Client) subscribe() {
	c.bus.Subscribe(events.KindBidNeeded, func(e events.Event) {
		c.onBidNeeded(e.(events.BidNeeded))
	})
	c.bus.Subscribe(events.KindBidDone, func(e events.Event) {
		c.onBidDone(e.(events.BidDone))
	})
	c.bus.Subscribe(events.KindAuctionFinished, func(e events.Event) {
		c.onAuctionFinished(e.(events.AuctionFinished))
	})
	c.bus.Subscribe(events.KindCardNeeded, func(e events.Event) {
		c.onCardNeeded(e.(events.CardNeeded))
	})
	c.bus.Subscribe(events.KindCardPlayed, func(e events.Event) {
		c.onCardPlayed(e.(events.CardPlayed))
	})
	c.bus.Subscribe(events.KindShowDummy, func(e events.Event) {
		c.onShowDummy(e.(events.ShowDummy))
	})
	c.bus.Subscribe(events.KindPlayFinished, func(e events.Event) {
		c.onPlayFinished(e.(events.PlayFinished))
	})
}

func (c *Client) onBidNeeded(e events.BidNeeded) {
	if e.WhoseTurn == c.cfg.Seat {
		c.mu.Lock()
		c.table.awaitOwnBid = true
		c.mu.Unlock()
		c.push(stateChange{state: WaitForOwnBid})
		return
	}
	c.push(stateChange{
		send:  []string{fmt.Sprintf("%s %s", c.cfg.Seat, protocol.ReadyForBidSuffix(e.WhoseTurn))},
		state: WaitForOtherBid,
		expected: []string{
			strings.ToLower(e.WhoseTurn.String()) + " ",
			"explain ",
		},
	})
}

// onBidDone emits our own call once the rules engine has settled it.
// Calls parsed off the wire re-enter here too and are ignored.
func (c *Client) onBidDone(e events.BidDone) {
	c.mu.Lock()
	mine := e.Seat == c.cfg.Seat && c.table.awaitOwnBid
	if mine {
		c.table.awaitOwnBid = false
		c.table.callsMade++
	}
	c.mu.Unlock()
	if !mine {
		return
	}
	line := protocol.RenderBid(c.cfg.Seat, e.Bid, c.cfg.Alert.Decoration(e.Bid))
	c.push(stateChange{send: []string{line}, keepState: true})
}

func (c *Client) onAuctionFinished(e events.AuctionFinished) {
	c.mu.Lock()
	c.table.haveContract = true
	c.table.declarer = e.Declarer
	c.table.dummy = e.Declarer.Partner()
	c.mu.Unlock()
}

func (c *Client) onCardNeeded(e events.CardNeeded) {
	c.mu.Lock()
	c.table.trick = e.Trick
	c.table.whoseTurn = e.WhoseTurn
	c.table.controller = e.Controller
	dummy := c.table.dummy
	haveContract := c.table.haveContract
	c.mu.Unlock()

	leading := e.LeadSuitLength == 0

	if e.Controller == c.cfg.Seat {
		c.mu.Lock()
		c.table.awaitOwnPlay = true
		c.mu.Unlock()
		if leading {
			expect := []string{strings.ToLower(fmt.Sprintf("%s to lead", e.WhoseTurn))}
			if haveContract && e.WhoseTurn == dummy {
				expect = []string{"dummy to lead"}
			}
			c.push(stateChange{state: WaitForLead, expected: expect})
			return
		}
		c.push(stateChange{state: WaitForCardPlay})
		return
	}

	suffix := protocol.ReadyForCardSuffix(e.WhoseTurn, e.Trick)
	if haveContract && e.WhoseTurn == dummy {
		suffix = protocol.ReadyForDummyCardSuffix(e.Trick)
	}
	c.push(stateChange{
		send:     []string{fmt.Sprintf("%s %s", c.cfg.Seat, suffix)},
		state:    WaitForCardPlay,
		expected: []string{strings.ToLower(fmt.Sprintf("%s plays", e.WhoseTurn))},
	})
}

// onCardPlayed emits the play when this seat controls the hand on turn.
func (c *Client) onCardPlayed(e events.CardPlayed) {
	c.mu.Lock()
	mine := c.table.awaitOwnPlay && c.table.controller == c.cfg.Seat && e.Seat == c.table.whoseTurn
	if mine {
		c.table.awaitOwnPlay = false
	}
	c.mu.Unlock()
	if !mine {
		return
	}
	c.push(stateChange{
		send:      []string{protocol.RenderPlay(e.Seat, e.Card, e.Signal)},
		keepState: true,
	})
}

func (c *Client) onShowDummy(e events.ShowDummy) {
	c.mu.Lock()
	c.table.dummy = e.Dummy
	c.mu.Unlock()
	if e.Dummy == c.cfg.Seat {
		return
	}
	c.push(stateChange{
		send:     []string{fmt.Sprintf("%s %s", c.cfg.Seat, protocol.ReadyForDummy)},
		state:    WaitForDummiesCards,
		expected: []string{"dummy's cards"},
	})
}

func (c *Client) onPlayFinished(events.PlayFinished) {
	c.push(stateChange{
		state:    WaitForStartOfBoard,
		expected: betweenBoardsExpected(),
	})
}

func (c *Client) push(change stateChange) {
	c.changes.Push(change)
}

// publish hands an event to the rules engine; the change loop stays
// suspended until every synchronous side effect has landed.
func (c *Client) publish(e events.Event) {
	c.bridgeEvents.Pause()
	c.bus.Publish(e)
	c.bridgeEvents.Resume()
}

func (c *Client) setState(s ProtocolState, expected []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.expected = expected
}

func (c *Client) signalNeedChange() {
	select {
	case c.needChange <- struct{}{}:
	default:
	}
}

func (c *Client) fail(err error) {
	c.log.Error().Err(err).Msg("session failed")
	select {
	case c.fatal <- err:
	default:
	}
}

func (c *Client) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}
