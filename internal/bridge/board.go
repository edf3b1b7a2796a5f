package bridge

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownVulnerability = errors.New("bridge: unknown vulnerability")

// Vulnerability states which partnerships are vulnerable on a board.
type Vulnerability int

const (
	NotVulnerable Vulnerability = iota
	NSVulnerable
	EWVulnerable
	BothVulnerable
)

// String renders the wire word used in the board-info line.
func (v Vulnerability) String() string {
	switch v {
	case NotVulnerable:
		return "Neither"
	case NSVulnerable:
		return "N/S"
	case EWVulnerable:
		return "E/W"
	case BothVulnerable:
		return "Both"
	}
	return fmt.Sprintf("Vulnerability(%d)", int(v))
}

func ParseVulnerability(word string) (Vulnerability, error) {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "neither", "none", "-":
		return NotVulnerable, nil
	case "n/s", "ns":
		return NSVulnerable, nil
	case "e/w", "ew":
		return EWVulnerable, nil
	case "both", "all":
		return BothVulnerable, nil
	}
	return NotVulnerable, fmt.Errorf("%w: %q", ErrUnknownVulnerability, word)
}

func (v Vulnerability) Includes(d Direction) bool {
	switch v {
	case BothVulnerable:
		return true
	case NSVulnerable:
		return d == NorthSouth
	case EWVulnerable:
		return d == EastWest
	}
	return false
}

// Board is one deal to be played.
type Board struct {
	Number     int
	Dealer     Seat
	Vulnerable Vulnerability
	Deal       SeatMap[Hand]

	// RotateHands marks an instant-replay re-deal: the host presents the
	// board with all seat identities shifted one position.
	RotateHands bool
}

// Validate checks the deal covers all 52 cards across four legal hands.
func (b *Board) Validate() error {
	if b.Number < 1 {
		return fmt.Errorf("%w: board number %d", ErrInvalidHand, b.Number)
	}
	seen := make(map[Card]struct{}, 52)
	for _, seat := range Seats() {
		hand := b.Deal.Get(seat)
		if err := hand.Validate(); err != nil {
			return fmt.Errorf("%s: %w", seat, err)
		}
		for _, c := range hand {
			if _, dup := seen[c]; dup {
				return fmt.Errorf("%w: %s dealt twice", ErrInvalidHand, c)
			}
			seen[c] = struct{}{}
		}
	}
	return nil
}

// Contract is the final auction outcome.
type Contract struct {
	Bid       Bid
	Declarer  Seat
	Doubled   bool
	Redoubled bool
}

func (c Contract) String() string {
	out := c.Bid.String()
	if c.Redoubled {
		out += "xx"
	} else if c.Doubled {
		out += "x"
	}
	return fmt.Sprintf("%s by %s", out, c.Declarer)
}

// BoardResult records one completed play of a board.
type BoardResult struct {
	BoardNumber   int
	NorthTeam     string
	EastTeam      string
	Contract      Contract
	TricksTaken   int
	PassedOut     bool
	RotatedReplay bool
}
