package bridge

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownSuit = errors.New("bridge: unknown suit")
	ErrUnknownRank = errors.New("bridge: unknown rank")
	ErrInvalidHand = errors.New("bridge: invalid hand")
)

// Suit is a card suit, ranked low to high.
type Suit int

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

var suitLetters = [4]string{"C", "D", "H", "S"}

// Letter returns the single-letter wire code.
func (s Suit) Letter() string {
	if s < Clubs || s > Spades {
		return "?"
	}
	return suitLetters[s]
}

func (s Suit) String() string {
	switch s {
	case Clubs:
		return "Clubs"
	case Diamonds:
		return "Diamonds"
	case Hearts:
		return "Hearts"
	case Spades:
		return "Spades"
	}
	return fmt.Sprintf("Suit(%d)", int(s))
}

func ParseSuit(code string) (Suit, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "C":
		return Clubs, nil
	case "D":
		return Diamonds, nil
	case "H":
		return Hearts, nil
	case "S":
		return Spades, nil
	}
	return Clubs, fmt.Errorf("%w: %q", ErrUnknownSuit, code)
}

// SuitsHighToLow lists suits in wire listing order: S H D C.
func SuitsHighToLow() [4]Suit {
	return [4]Suit{Spades, Hearts, Diamonds, Clubs}
}

// Rank is a card rank; Two=2 through Ace=14.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// Letter returns the single-character wire code (T for ten).
func (r Rank) Letter() string {
	switch {
	case r >= Two && r <= Nine:
		return string(rune('0' + int(r)))
	case r == Ten:
		return "T"
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	}
	return "?"
}

func ParseRank(code string) (Rank, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	switch c {
	case "T", "10":
		return Ten, nil
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	case "A":
		return Ace, nil
	}
	if len(c) == 1 && c[0] >= '2' && c[0] <= '9' {
		return Rank(c[0] - '0'), nil
	}
	return Two, fmt.Errorf("%w: %q", ErrUnknownRank, code)
}

// Card is one playing card.
type Card struct {
	Suit Suit
	Rank Rank
}

func (c Card) String() string {
	return c.Rank.Letter() + c.Suit.Letter()
}

// ParseCard reads a <rank><suit> code such as "5H" or "TS".
func ParseCard(code string) (Card, error) {
	code = strings.TrimSpace(code)
	if len(code) < 2 {
		return Card{}, fmt.Errorf("%w: %q", ErrUnknownRank, code)
	}
	rank, err := ParseRank(code[:len(code)-1])
	if err != nil {
		return Card{}, err
	}
	suit, err := ParseSuit(code[len(code)-1:])
	if err != nil {
		return Card{}, err
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// Hand is a set of cards held by one seat.
type Hand []Card

// Suit returns the held ranks of one suit, descending.
func (h Hand) SuitRanks(s Suit) []Rank {
	var ranks []Rank
	for _, c := range h {
		if c.Suit == s {
			ranks = append(ranks, c.Rank)
		}
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] > ranks[j] })
	return ranks
}

func (h Hand) Contains(card Card) bool {
	for _, c := range h {
		if c == card {
			return true
		}
	}
	return false
}

// Remove returns a copy of the hand without the given card.
func (h Hand) Remove(card Card) Hand {
	out := make(Hand, 0, len(h))
	for _, c := range h {
		if c != card {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks a dealt hand: 13 cards, no duplicates.
func (h Hand) Validate() error {
	if len(h) != 13 {
		return fmt.Errorf("%w: %d cards", ErrInvalidHand, len(h))
	}
	seen := make(map[Card]struct{}, len(h))
	for _, c := range h {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: duplicate %s", ErrInvalidHand, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}
