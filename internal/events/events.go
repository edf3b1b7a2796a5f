// Package events carries the table event contract between the protocol
// engine and the bridge rules engine. Events are a closed set of typed
// payloads dispatched through a registration table rather than through
// handler inheritance.
package events

import (
	"time"

	"github.com/danmuck/bridgectl/internal/bridge"
)

// Kind discriminates the event union.
type Kind int

const (
	// Core -> rules engine.
	KindTournamentStarted Kind = iota
	KindRoundStarted
	KindBoardStarted
	KindCardPosition
	KindCardDealingEnded
	KindBidDone
	KindCardPlayed
	KindTrickFinished
	KindPlayFinished
	KindTournamentStopped

	// Rules engine -> core.
	KindBidNeeded
	KindCardNeeded
	KindAuctionFinished
	KindShowDummy

	// Host lifecycle, for operators and monitors.
	KindSeated
	KindReadyForTeams
	KindBoardFinished
	KindTournamentFinished
	KindSeatDisconnected
)

var kindNames = map[Kind]string{
	KindTournamentStarted:  "tournament_started",
	KindRoundStarted:       "round_started",
	KindBoardStarted:       "board_started",
	KindCardPosition:       "card_position",
	KindCardDealingEnded:   "card_dealing_ended",
	KindBidDone:            "bid_done",
	KindCardPlayed:         "card_played",
	KindTrickFinished:      "trick_finished",
	KindPlayFinished:       "play_finished",
	KindTournamentStopped:  "tournament_stopped",
	KindBidNeeded:          "bid_needed",
	KindCardNeeded:         "card_needed",
	KindAuctionFinished:    "auction_finished",
	KindShowDummy:          "show_dummy",
	KindSeated:             "seated",
	KindReadyForTeams:      "ready_for_teams",
	KindBoardFinished:      "board_finished",
	KindTournamentFinished: "tournament_finished",
	KindSeatDisconnected:   "seat_disconnected",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one table occurrence.
type Event interface {
	EventKind() Kind
}

type TournamentStarted struct {
	HostName string
	Teams    map[bridge.Direction]string
}

type RoundStarted struct {
	Teams map[bridge.Direction]string
}

type BoardStarted struct {
	BoardNumber int
	Dealer      bridge.Seat
	Vulnerable  bridge.Vulnerability
}

type CardPosition struct {
	Seat bridge.Seat
	Card bridge.Card
}

type CardDealingEnded struct{}

type BidDone struct {
	Seat bridge.Seat
	Bid  bridge.Bid
	At   time.Time
}

type CardPlayed struct {
	Seat bridge.Seat
	Card bridge.Card
	// Signal is the optional self-explaining suit signal carried on the
	// wire for peers entitled to see it.
	Signal string
	At     time.Time
}

type TrickFinished struct {
	Trick  int
	Winner bridge.Seat
}

type PlayFinished struct {
	BoardNumber int
	Result      bridge.BoardResult
}

type TournamentStopped struct{}

type BidNeeded struct {
	WhoseTurn      bridge.Seat
	LastRegularBid bridge.Bid
	AllowDouble    bool
	AllowRedouble  bool
}

type CardNeeded struct {
	Controller     bridge.Seat
	WhoseTurn      bridge.Seat
	LeadSuit       bridge.Suit
	Trump          bridge.Strain
	TrumpAllowed   bool
	LeadSuitLength int
	Trick          int
}

type AuctionFinished struct {
	Declarer bridge.Seat
	Contract bridge.Contract
}

type ShowDummy struct {
	Dummy bridge.Seat
}

type Seated struct {
	Seat bridge.Seat
	Team string
}

type ReadyForTeams struct {
	Seat bridge.Seat
}

type BoardFinished struct {
	Result bridge.BoardResult
}

type TournamentFinished struct {
	Results []bridge.BoardResult
}

type SeatDisconnected struct {
	Seat   bridge.Seat
	Reason string
}

func (TournamentStarted) EventKind() Kind  { return KindTournamentStarted }
func (RoundStarted) EventKind() Kind       { return KindRoundStarted }
func (BoardStarted) EventKind() Kind       { return KindBoardStarted }
func (CardPosition) EventKind() Kind       { return KindCardPosition }
func (CardDealingEnded) EventKind() Kind   { return KindCardDealingEnded }
func (BidDone) EventKind() Kind            { return KindBidDone }
func (CardPlayed) EventKind() Kind         { return KindCardPlayed }
func (TrickFinished) EventKind() Kind      { return KindTrickFinished }
func (PlayFinished) EventKind() Kind       { return KindPlayFinished }
func (TournamentStopped) EventKind() Kind  { return KindTournamentStopped }
func (BidNeeded) EventKind() Kind          { return KindBidNeeded }
func (CardNeeded) EventKind() Kind         { return KindCardNeeded }
func (AuctionFinished) EventKind() Kind    { return KindAuctionFinished }
func (ShowDummy) EventKind() Kind          { return KindShowDummy }
func (Seated) EventKind() Kind             { return KindSeated }
func (ReadyForTeams) EventKind() Kind      { return KindReadyForTeams }
func (BoardFinished) EventKind() Kind      { return KindBoardFinished }
func (TournamentFinished) EventKind() Kind { return KindTournamentFinished }
func (SeatDisconnected) EventKind() Kind   { return KindSeatDisconnected }
