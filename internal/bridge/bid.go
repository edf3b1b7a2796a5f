package bridge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownStrain = errors.New("bridge: unknown strain")
	ErrInvalidBid    = errors.New("bridge: invalid bid")
)

// Strain is the denomination of a contract bid, ranked low to high.
type Strain int

const (
	StrainClubs Strain = iota
	StrainDiamonds
	StrainHearts
	StrainSpades
	StrainNoTrump
)

var strainLetters = [5]string{"C", "D", "H", "S", "NT"}

func (s Strain) Letter() string {
	if s < StrainClubs || s > StrainNoTrump {
		return "?"
	}
	return strainLetters[s]
}

func ParseStrain(code string) (Strain, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "C":
		return StrainClubs, nil
	case "D":
		return StrainDiamonds, nil
	case "H":
		return StrainHearts, nil
	case "S":
		return StrainSpades, nil
	case "NT", "N":
		return StrainNoTrump, nil
	}
	return StrainClubs, fmt.Errorf("%w: %q", ErrUnknownStrain, code)
}

// Suit returns the trump suit for a suited strain; ok is false for no-trump.
func (s Strain) Suit() (Suit, bool) {
	if s == StrainNoTrump {
		return Clubs, false
	}
	return Suit(s), true
}

// BidKind distinguishes the four call types.
type BidKind int

const (
	BidPass BidKind = iota
	BidDouble
	BidRedouble
	BidContract
)

// Bid is one call in the auction, with the alert state attached by the
// explanation sub-protocol.
type Bid struct {
	Kind   BidKind
	Level  int
	Strain Strain

	Alert       bool
	Explanation string
}

func Pass() Bid     { return Bid{Kind: BidPass} }
func Double() Bid   { return Bid{Kind: BidDouble} }
func Redouble() Bid { return Bid{Kind: BidRedouble} }

// ContractBid builds a level/strain call; level must be 1..7.
func ContractBid(level int, strain Strain) (Bid, error) {
	if level < 1 || level > 7 {
		return Bid{}, fmt.Errorf("%w: level %d", ErrInvalidBid, level)
	}
	if strain < StrainClubs || strain > StrainNoTrump {
		return Bid{}, fmt.Errorf("%w: strain %d", ErrInvalidBid, int(strain))
	}
	return Bid{Kind: BidContract, Level: level, Strain: strain}, nil
}

func (b Bid) IsPass() bool { return b.Kind == BidPass }

// String renders the short call form used inside wire lines: "Pass",
// "Double", "Redouble" or "<level><strain>".
func (b Bid) String() string {
	switch b.Kind {
	case BidPass:
		return "Pass"
	case BidDouble:
		return "Double"
	case BidRedouble:
		return "Redouble"
	case BidContract:
		return fmt.Sprintf("%d%s", b.Level, b.Strain.Letter())
	}
	return "?"
}

// Equal compares the call itself, ignoring alert decoration.
func (b Bid) Equal(o Bid) bool {
	if b.Kind != o.Kind {
		return false
	}
	if b.Kind != BidContract {
		return true
	}
	return b.Level == o.Level && b.Strain == o.Strain
}
