package host

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/bridgectl/internal/bridge"
	"github.com/danmuck/bridgectl/internal/events"
	"github.com/danmuck/bridgectl/internal/protocol"
)

type auctionOutcome struct {
	passedOut bool
	contract  bridge.Contract
}

// runAuction collects calls from the dealer around the table until
// three passes close a contract, or four passes throw the board in.
func (h *Host) runAuction(ctx context.Context, board bridge.Board) (auctionOutcome, error) {
	turn := board.Dealer
	calls := 0
	passStreak := 0

	var lastBid bridge.Bid
	var lastBidSeat bridge.Seat
	haveBid := false
	doubled, redoubled := false, false

	// First seat of each side to name each strain; that seat declares.
	var firstNamer [2][5]*bridge.Seat

	for {
		if err := h.awaitReadyExcept(ctx, "bid", protocol.ReadyForBidSuffix(turn), "", turn); err != nil {
			return auctionOutcome{}, err
		}
		// A refused line is not the end of the table: an unparseable or
		// out-of-turn line fails the seat's connection, an illegal call
		// is bounced in place, and either way the seat's queue is read
		// again for the corrected call.
		var bid bridge.Bid
		var calledAt time.Time
		for {
			h.clock.start(turn.Direction(), time.Now())
			tl, err := h.recv(ctx, turn)
			if err != nil {
				return auctionOutcome{}, err
			}
			h.clock.stop(turn.Direction(), tl.At)

			seat, call, err := protocol.ParseBid(tl.Text)
			if err != nil || seat != turn {
				h.violation(ctx, turn, tl.Text, fmt.Sprintf("%s's call", turn))
				continue
			}
			if err := checkCallLegal(turn, call, haveBid, lastBid, lastBidSeat, doubled, redoubled); err != nil {
				h.reject(ctx, turn, tl.Text, err.Error())
				continue
			}
			bid, calledAt = call, tl.At
			break
		}

		// The explanation is collected before the relay so it can ride on
		// the decorated line to the opponents.
		if h.cfg.Alert == protocol.AlertManual && bid.Alert {
			explanation, err := h.explain(ctx, turn, bid)
			if err != nil {
				return auctionOutcome{}, err
			}
			bid.Explanation = explanation
		}

		if err := h.relayCall(ctx, turn, bid); err != nil {
			return auctionOutcome{}, err
		}
		h.publish(events.BidDone{Seat: turn, Bid: bid, At: calledAt})

		calls++
		if bid.IsPass() {
			passStreak++
		} else {
			passStreak = 1
			switch bid.Kind {
			case bridge.BidContract:
				lastBid, lastBidSeat, haveBid = bid, turn, true
				doubled, redoubled = false, false
				d := turn.Direction()
				if firstNamer[d][bid.Strain] == nil {
					s := turn
					firstNamer[d][bid.Strain] = &s
				}
			case bridge.BidDouble:
				doubled = true
			case bridge.BidRedouble:
				redoubled = true
			}
		}
		if calls >= bridge.NumSeats && passStreak >= bridge.NumSeats {
			break
		}
		turn = turn.Next()
	}

	if !haveBid {
		h.log.Info().Int("board", board.Number).Msg("board passed out")
		return auctionOutcome{passedOut: true}, nil
	}

	declarer := *firstNamer[lastBidSeat.Direction()][lastBid.Strain]
	contract := bridge.Contract{
		Bid:       lastBid,
		Declarer:  declarer,
		Doubled:   doubled && !redoubled,
		Redoubled: redoubled,
	}
	h.publish(events.AuctionFinished{Declarer: declarer, Contract: contract})
	h.log.Info().Int("board", board.Number).Str("contract", contract.String()).Msg("auction finished")
	return auctionOutcome{contract: contract}, nil
}

// explain runs the round trip for an alerted call: the bidder's partner
// is asked, and its free-text answer becomes the explanation.
func (h *Host) explain(ctx context.Context, bidder bridge.Seat, bid bridge.Bid) (string, error) {
	partner := bidder.Partner()
	if err := h.sendTo(ctx, partner, protocol.RenderExplain(bidder, bid)); err != nil {
		return "", err
	}
	reply, err := h.recv(ctx, partner)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply.Text), nil
}

// relayCall forwards one call to the other three seats. Only opponents
// see the alert decoration, and only clients whose protocol version can
// receive explanations get the text itself.
func (h *Host) relayCall(ctx context.Context, bidder bridge.Seat, bid bridge.Bid) error {
	for _, seat := range bridge.Seats() {
		if seat == bidder {
			continue
		}
		out := bid
		deco := protocol.DecorateNone
		if seat.Direction() != bidder.Direction() {
			deco = h.cfg.Alert.Decoration(bid)
		}
		if deco != protocol.DecorateNone && !h.canReceiveExplanations(seat) {
			if deco == protocol.DecorateInfos {
				deco = protocol.DecorateNone
			}
			out.Explanation = ""
		}
		if err := h.sendTo(ctx, seat, protocol.RenderBid(bidder, out, deco)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) canReceiveExplanations(seat bridge.Seat) bool {
	sess := h.session(seat)
	return sess != nil && sess.features.CanReceiveExplanations
}

func checkCallLegal(turn bridge.Seat, bid bridge.Bid, haveBid bool, lastBid bridge.Bid, lastBidSeat bridge.Seat, doubled, redoubled bool) error {
	switch bid.Kind {
	case bridge.BidPass:
		return nil
	case bridge.BidContract:
		if bid.Level < 1 || bid.Level > 7 {
			return fmt.Errorf("a call between 1C and 7NT")
		}
		if haveBid && !outbids(bid, lastBid) {
			return fmt.Errorf("a call above %s", lastBid)
		}
		return nil
	case bridge.BidDouble:
		if !haveBid || doubled || redoubled {
			return fmt.Errorf("a legal call, double not available")
		}
		if lastBidSeat.Direction() == turn.Direction() {
			return fmt.Errorf("a legal call, cannot double partner")
		}
		return nil
	case bridge.BidRedouble:
		if !doubled || redoubled {
			return fmt.Errorf("a legal call, redouble not available")
		}
		if lastBidSeat.Direction() != turn.Direction() {
			return fmt.Errorf("a legal call, redouble belongs to the doubled side")
		}
		return nil
	}
	return fmt.Errorf("a legal call")
}

func outbids(bid, last bridge.Bid) bool {
	if bid.Level != last.Level {
		return bid.Level > last.Level
	}
	return bid.Strain > last.Strain
}
