// Package engine is a minimal rules-engine collaborator for a seat: it
// answers the protocol core's events with legal calls and plays and
// keeps the table bookkeeping (turn order, auction closure, trick
// winners) that tells the core whose action comes next. Its strategy is
// deliberately trivial; a real robot replaces this package behind the
// same bus contract.
package engine

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/danmuck/bridgectl/internal/bridge"
	"github.com/danmuck/bridgectl/internal/events"
)

// Engine tracks one seat's view of the table.
type Engine struct {
	seat bridge.Seat
	bus  *events.Bus
	log  zerolog.Logger

	dealer bridge.Seat
	hands  bridge.SeatMap[bridge.Hand]

	// Auction bookkeeping, mirroring the table's own.
	turn        bridge.Seat
	calls       int
	passStreak  int
	lastBid     bridge.Bid
	lastBidSeat bridge.Seat
	haveBid     bool
	doubled     bool
	redoubled   bool
	firstNamer  [2][5]*bridge.Seat

	// Play bookkeeping.
	boardNumber  int
	declarer     bridge.Seat
	dummy        bridge.Seat
	trump        bridge.Suit
	trumpSuited  bool
	playing      bool
	trick        int
	playsInTrick int
	leader       bridge.Seat
	leadSuit     bridge.Suit
	trickPlays   [bridge.NumSeats]bridge.Card
	tricksPlayed int

	// A play owed for a hand whose cards have not arrived yet; settled
	// when dummy's disclosure completes.
	dummyKnown  bool
	pendingPlay *events.CardNeeded
}

// Attach registers a new engine for one seat on the client's bus. It
// must run after the protocol core subscribes, so the core's handlers
// see each event first.
func Attach(seat bridge.Seat, bus *events.Bus, log zerolog.Logger) *Engine {
	e := &Engine{
		seat: seat,
		bus:  bus,
		log:  log.With().Str("engine", seat.String()).Logger(),
	}
	bus.Subscribe(events.KindBoardStarted, func(ev events.Event) {
		e.onBoardStarted(ev.(events.BoardStarted))
	})
	bus.Subscribe(events.KindCardPosition, func(ev events.Event) {
		e.onCardPosition(ev.(events.CardPosition))
	})
	bus.Subscribe(events.KindCardDealingEnded, func(events.Event) {
		e.onCardDealingEnded()
	})
	bus.Subscribe(events.KindBidNeeded, func(ev events.Event) {
		e.onBidNeeded(ev.(events.BidNeeded))
	})
	bus.Subscribe(events.KindBidDone, func(ev events.Event) {
		e.onBidDone(ev.(events.BidDone))
	})
	bus.Subscribe(events.KindCardNeeded, func(ev events.Event) {
		e.onCardNeeded(ev.(events.CardNeeded))
	})
	bus.Subscribe(events.KindCardPlayed, func(ev events.Event) {
		e.onCardPlayed(ev.(events.CardPlayed))
	})
	return e
}

func (e *Engine) onBoardStarted(ev events.BoardStarted) {
	*e = Engine{seat: e.seat, bus: e.bus, log: e.log, dealer: ev.Dealer, boardNumber: ev.BoardNumber}
}

func (e *Engine) onCardPosition(ev events.CardPosition) {
	hand := e.hands.Get(ev.Seat)
	if hand.Contains(ev.Card) {
		return
	}
	e.hands.Set(ev.Seat, append(hand, ev.Card))

	// Dummy's disclosure arrives card by card; a deferred play fires
	// once the thirteenth lands.
	if e.playing && ev.Seat == e.dummy && len(e.hands.Get(ev.Seat)) == 13 {
		e.dummyKnown = true
		if e.pendingPlay != nil {
			need := *e.pendingPlay
			e.pendingPlay = nil
			e.playCard(need)
		}
	}
}

func (e *Engine) onCardDealingEnded() {
	e.turn = e.dealer
	e.bus.Publish(e.bidNeeded())
}

func (e *Engine) bidNeeded() events.BidNeeded {
	return events.BidNeeded{
		WhoseTurn:      e.turn,
		LastRegularBid: e.lastBid,
		AllowDouble:    e.haveBid && !e.doubled && !e.redoubled && e.lastBidSeat.Direction() != e.turn.Direction(),
		AllowRedouble:  e.doubled && !e.redoubled && e.lastBidSeat.Direction() == e.turn.Direction(),
	}
}

// onBidNeeded answers for this seat only; the call is the simplest
// legal one. The dealer opens one club so every board reaches the play.
func (e *Engine) onBidNeeded(ev events.BidNeeded) {
	if ev.WhoseTurn != e.seat {
		return
	}
	call := bridge.Pass()
	if !e.haveBid && e.seat == e.dealer {
		call, _ = bridge.ContractBid(1, bridge.StrainClubs)
	}
	e.bus.Publish(events.BidDone{Seat: e.seat, Bid: call})
}

// onBidDone folds every call, own and relayed, into the auction and
// decides what the table needs next.
func (e *Engine) onBidDone(ev events.BidDone) {
	if e.playing {
		return
	}
	e.calls++
	if ev.Bid.IsPass() {
		e.passStreak++
	} else {
		e.passStreak = 1
		switch ev.Bid.Kind {
		case bridge.BidContract:
			e.lastBid, e.lastBidSeat, e.haveBid = ev.Bid, ev.Seat, true
			e.doubled, e.redoubled = false, false
			d := ev.Seat.Direction()
			if e.firstNamer[d][ev.Bid.Strain] == nil {
				s := ev.Seat
				e.firstNamer[d][ev.Bid.Strain] = &s
			}
		case bridge.BidDouble:
			e.doubled = true
		case bridge.BidRedouble:
			e.redoubled = true
		}
	}

	if e.calls >= bridge.NumSeats && e.passStreak >= bridge.NumSeats {
		e.closeAuction()
		return
	}
	e.turn = e.turn.Next()
	e.bus.Publish(e.bidNeeded())
}

func (e *Engine) closeAuction() {
	if !e.haveBid {
		e.bus.Publish(events.PlayFinished{
			BoardNumber: e.boardNumber,
			Result:      bridge.BoardResult{BoardNumber: e.boardNumber, PassedOut: true},
		})
		return
	}
	e.declarer = *e.firstNamer[e.lastBidSeat.Direction()][e.lastBid.Strain]
	e.dummy = e.declarer.Partner()
	e.trump, e.trumpSuited = e.lastBid.Strain.Suit()
	e.playing = true
	e.trick = 1
	e.leader = e.declarer.Next()

	e.bus.Publish(events.AuctionFinished{
		Declarer: e.declarer,
		Contract: bridge.Contract{
			Bid:       e.lastBid,
			Declarer:  e.declarer,
			Doubled:   e.doubled && !e.redoubled,
			Redoubled: e.redoubled,
		},
	})
	e.bus.Publish(e.cardNeeded(e.leader))
}

func (e *Engine) cardNeeded(whoseTurn bridge.Seat) events.CardNeeded {
	controller := whoseTurn
	if whoseTurn == e.dummy {
		controller = e.declarer
	}
	return events.CardNeeded{
		Controller:     controller,
		WhoseTurn:      whoseTurn,
		LeadSuit:       e.leadSuit,
		Trump:          e.lastBid.Strain,
		TrumpAllowed:   true,
		LeadSuitLength: e.playsInTrick,
		Trick:          e.trick,
	}
}

// onCardNeeded acts only when this seat controls the hand on turn.
// Dummy's first play may predate the disclosure; it is deferred until
// the hand is known.
func (e *Engine) onCardNeeded(ev events.CardNeeded) {
	if ev.Controller != e.seat {
		return
	}
	if ev.WhoseTurn == e.dummy && ev.WhoseTurn != e.seat && !e.dummyKnown {
		need := ev
		e.pendingPlay = &need
		return
	}
	e.playCard(ev)
}

// playCard picks the lowest legal card: follow suit low, else the
// lowest discard.
func (e *Engine) playCard(ev events.CardNeeded) {
	hand := e.hands.Get(ev.WhoseTurn)
	var candidates bridge.Hand
	if ev.LeadSuitLength > 0 {
		for _, c := range hand {
			if c.Suit == ev.LeadSuit {
				candidates = append(candidates, c)
			}
		}
	}
	if len(candidates) == 0 {
		candidates = hand
	}
	if len(candidates) == 0 {
		e.log.Error().Str("turn", ev.WhoseTurn.String()).Msg("no cards to play")
		return
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Rank != candidates[j].Rank {
			return candidates[i].Rank < candidates[j].Rank
		}
		return candidates[i].Suit < candidates[j].Suit
	})
	e.bus.Publish(events.CardPlayed{Seat: ev.WhoseTurn, Card: candidates[0]})
}

// onCardPlayed folds every play into the trick and prompts the next one.
func (e *Engine) onCardPlayed(ev events.CardPlayed) {
	if !e.playing {
		return
	}
	e.hands.Set(ev.Seat, e.hands.Get(ev.Seat).Remove(ev.Card))
	if e.playsInTrick == 0 {
		e.leadSuit = ev.Card.Suit
	}
	e.trickPlays[e.playsInTrick] = ev.Card
	e.playsInTrick++

	if e.trick == 1 && e.playsInTrick == 1 {
		e.bus.Publish(events.ShowDummy{Dummy: e.dummy})
	}

	if e.playsInTrick < bridge.NumSeats {
		e.bus.Publish(e.cardNeeded(e.leader.Rotated(e.playsInTrick)))
		return
	}

	winner := e.trickWinner()
	e.bus.Publish(events.TrickFinished{Trick: e.trick, Winner: winner})
	e.tricksPlayed++
	if e.tricksPlayed == 13 {
		e.playing = false
		e.bus.Publish(events.PlayFinished{
			BoardNumber: e.boardNumber,
			Result:      bridge.BoardResult{BoardNumber: e.boardNumber},
		})
		return
	}
	e.trick++
	e.playsInTrick = 0
	e.leader = winner
	e.bus.Publish(e.cardNeeded(winner))
}

func (e *Engine) trickWinner() bridge.Seat {
	best := 0
	for i := 1; i < bridge.NumSeats; i++ {
		if e.beats(e.trickPlays[i], e.trickPlays[best]) {
			best = i
		}
	}
	return e.leader.Rotated(best)
}

func (e *Engine) beats(card, over bridge.Card) bool {
	if e.trumpSuited {
		if card.Suit == e.trump && over.Suit != e.trump {
			return true
		}
		if card.Suit != e.trump && over.Suit == e.trump {
			return false
		}
	}
	if card.Suit != over.Suit {
		return card.Suit == e.leadSuit && over.Suit != e.leadSuit
	}
	return card.Rank > over.Rank
}
