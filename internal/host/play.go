package host

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/bridgectl/internal/bridge"
	"github.com/danmuck/bridgectl/internal/events"
	"github.com/danmuck/bridgectl/internal/protocol"
)

// runPlay drives thirteen tricks and returns the declarer side's trick
// count. Dummy's cards are played by declarer; dummy's own client only
// ever acknowledges.
func (h *Host) runPlay(ctx context.Context, board bridge.Board, contract bridge.Contract) (int, error) {
	declarer := contract.Declarer
	dummy := declarer.Partner()
	trump, trumpSuited := contract.Bid.Strain.Suit()

	var hands bridge.SeatMap[bridge.Hand]
	for _, seat := range bridge.Seats() {
		hands.Set(seat, board.Deal.Get(seat))
	}

	leader := declarer.Next()
	declarerTricks := 0

	for trick := 1; trick <= 13; trick++ {
		var leadSuit bridge.Suit
		var plays [bridge.NumSeats]bridge.Card

		for i := 0; i < bridge.NumSeats; i++ {
			player := leader.Rotated(i)
			controller := player
			if player == dummy {
				controller = declarer
			}

			suffix := protocol.ReadyForCardSuffix(player, trick)
			alt := ""
			if player == dummy {
				alt = protocol.ReadyForDummyCardSuffix(trick)
			}
			if err := h.awaitReadyExcept(ctx, "play", suffix, alt, controller); err != nil {
				return 0, err
			}

			if i == 0 {
				prompt := protocol.RenderToLead(player)
				if player == dummy {
					prompt = protocol.DummyToLead
				}
				if err := h.sendTo(ctx, controller, prompt); err != nil {
					return 0, err
				}
			}

			// Same refusal discipline as the auction: a sequence break
			// drops the controller's connection, an illegal card is
			// bounced, and the queue is read again either way.
			var card bridge.Card
			var signal string
			var playedAt time.Time
			for {
				h.clock.start(player.Direction(), time.Now())
				tl, err := h.recv(ctx, controller)
				if err != nil {
					return 0, err
				}
				h.clock.stop(player.Direction(), tl.At)

				seat, played, sig, err := protocol.ParsePlay(tl.Text)
				if err != nil || seat != player {
					h.violation(ctx, controller, tl.Text, fmt.Sprintf("%s's card to trick %d", player, trick))
					continue
				}
				if err := checkPlayLegal(hands.Get(player), played, leadSuit, i > 0); err != nil {
					h.reject(ctx, controller, tl.Text, err.Error())
					continue
				}
				card, signal, playedAt = played, sig, tl.At
				break
			}

			hands.Set(player, hands.Get(player).Remove(card))
			if i == 0 {
				leadSuit = card.Suit
			}
			plays[i] = card

			if err := h.relayPlay(ctx, player, controller, card, signal); err != nil {
				return 0, err
			}
			h.publish(events.CardPlayed{Seat: player, Card: card, Signal: signal, At: playedAt})

			if trick == 1 && i == 0 {
				if err := h.discloseDummy(ctx, dummy, hands.Get(dummy)); err != nil {
					return 0, err
				}
			}
		}

		winner := trickWinner(leader, plays, leadSuit, trump, trumpSuited)
		h.publish(events.TrickFinished{Trick: trick, Winner: winner})
		if winner.Direction() == declarer.Direction() {
			declarerTricks++
		}
		leader = winner
	}
	return declarerTricks, nil
}

// relayPlay forwards one card to the three seats that acknowledged it.
// The suit signal travels only to the player's opponents, and only when
// their protocol version can carry it.
func (h *Host) relayPlay(ctx context.Context, player, controller bridge.Seat, card bridge.Card, signal string) error {
	for _, seat := range bridge.Seats() {
		if seat == controller {
			continue
		}
		sig := ""
		if signal != "" && seat.Direction() != player.Direction() && h.canReceiveExplanations(seat) {
			sig = signal
		}
		if err := h.sendTo(ctx, seat, protocol.RenderPlay(player, card, sig)); err != nil {
			return err
		}
	}
	return nil
}

// discloseDummy runs the reveal after the opening lead: every hand but
// dummy's acknowledges, then receives the full holding.
func (h *Host) discloseDummy(ctx context.Context, dummy bridge.Seat, hand bridge.Hand) error {
	h.publish(events.ShowDummy{Dummy: dummy})
	if err := h.awaitReadyExcept(ctx, "dummy", protocol.ReadyForDummy, "", dummy); err != nil {
		return err
	}
	for _, seat := range bridge.Seats() {
		if seat == dummy {
			continue
		}
		if err := h.sendTo(ctx, seat, protocol.RenderDummyCards(hand)); err != nil {
			return err
		}
	}
	return nil
}

func checkPlayLegal(hand bridge.Hand, card bridge.Card, leadSuit bridge.Suit, mustFollow bool) error {
	if !hand.Contains(card) {
		return fmt.Errorf("a card from the hand, not %s", card)
	}
	if mustFollow && card.Suit != leadSuit && len(hand.SuitRanks(leadSuit)) > 0 {
		return fmt.Errorf("a %s to follow suit", leadSuit)
	}
	return nil
}

// trickWinner applies the trump and lead-suit precedence over the four
// cards played from the leader around.
func trickWinner(leader bridge.Seat, plays [bridge.NumSeats]bridge.Card, leadSuit bridge.Suit, trump bridge.Suit, trumpSuited bool) bridge.Seat {
	best := 0
	for i := 1; i < bridge.NumSeats; i++ {
		if beats(plays[i], plays[best], leadSuit, trump, trumpSuited) {
			best = i
		}
	}
	return leader.Rotated(best)
}

func beats(card, over bridge.Card, leadSuit bridge.Suit, trump bridge.Suit, trumpSuited bool) bool {
	if trumpSuited {
		if card.Suit == trump && over.Suit != trump {
			return true
		}
		if card.Suit != trump && over.Suit == trump {
			return false
		}
	}
	if card.Suit != over.Suit {
		// Neither is trump; only the suit led can win.
		return card.Suit == leadSuit && over.Suit != leadSuit
	}
	return card.Rank > over.Rank
}
