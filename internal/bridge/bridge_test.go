package bridge

import (
	"errors"
	"testing"
)

func TestSeatOrderAndRelations(t *testing.T) {
	if North.Next() != East || West.Next() != North {
		t.Fatalf("play order broken")
	}
	if East.Previous() != North {
		t.Fatalf("previous broken")
	}
	if South.Partner() != North || East.Partner() != West {
		t.Fatalf("partner broken")
	}
	if North.Rotated(1) != East || North.Rotated(-1) != West || South.Rotated(4) != South {
		t.Fatalf("rotation broken")
	}
	if North.Direction() != NorthSouth || West.Direction() != EastWest {
		t.Fatalf("direction broken")
	}
}

func TestParseSeat(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Seat
	}{
		{"North", North}, {"north", North}, {"N", North},
		{"EAST", East}, {"s", South}, {" West ", West},
	} {
		got, err := ParseSeat(tc.in)
		if err != nil {
			t.Fatalf("ParseSeat(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseSeat(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
	if _, err := ParseSeat("anypl"); !errors.Is(err, ErrUnknownSeat) {
		t.Fatalf("expected ErrUnknownSeat, got %v", err)
	}
}

func TestCardRoundTrip(t *testing.T) {
	for _, code := range []string{"2C", "TS", "AH", "QD", "9S"} {
		card, err := ParseCard(code)
		if err != nil {
			t.Fatalf("ParseCard(%q): %v", code, err)
		}
		if card.String() != code {
			t.Fatalf("round trip %q -> %q", code, card)
		}
	}
	if _, err := ParseCard("1X"); err == nil {
		t.Fatalf("expected parse failure")
	}
	ten, err := ParseCard("10H")
	if err != nil || ten.Rank != Ten {
		t.Fatalf("10H should parse as ten of hearts: %v %v", ten, err)
	}
}

func TestHandSuitRanksDescending(t *testing.T) {
	hand := Hand{
		{Spades, Two}, {Spades, Ace}, {Spades, Ten},
		{Hearts, King},
	}
	ranks := hand.SuitRanks(Spades)
	if len(ranks) != 3 || ranks[0] != Ace || ranks[1] != Ten || ranks[2] != Two {
		t.Fatalf("ranks not descending: %v", ranks)
	}
	if len(hand.SuitRanks(Clubs)) != 0 {
		t.Fatalf("void suit should be empty")
	}
}

func TestHandValidate(t *testing.T) {
	hand := make(Hand, 0, 13)
	for r := Two; r <= Ace; r++ {
		hand = append(hand, Card{Suit: Clubs, Rank: r})
	}
	if err := hand.Validate(); err != nil {
		t.Fatalf("13-card hand should validate: %v", err)
	}
	if err := hand[:12].Validate(); !errors.Is(err, ErrInvalidHand) {
		t.Fatalf("expected ErrInvalidHand for 12 cards, got %v", err)
	}
	dup := append(Hand{}, hand...)
	dup[12] = dup[0]
	if err := dup.Validate(); !errors.Is(err, ErrInvalidHand) {
		t.Fatalf("expected ErrInvalidHand for duplicate, got %v", err)
	}
}

func TestBidStringAndLegality(t *testing.T) {
	bid, err := ContractBid(2, StrainSpades)
	if err != nil {
		t.Fatalf("ContractBid: %v", err)
	}
	if bid.String() != "2S" {
		t.Fatalf("got %q", bid.String())
	}
	if Pass().String() != "Pass" || Double().String() != "Double" || Redouble().String() != "Redouble" {
		t.Fatalf("call names broken")
	}
	if _, err := ContractBid(8, StrainClubs); !errors.Is(err, ErrInvalidBid) {
		t.Fatalf("level 8 should be invalid")
	}
	if !bid.Equal(Bid{Kind: BidContract, Level: 2, Strain: StrainSpades, Alert: true}) {
		t.Fatalf("Equal should ignore alert decoration")
	}
}

func TestVulnerabilityWireWords(t *testing.T) {
	for _, tc := range []struct {
		v    Vulnerability
		word string
	}{
		{NotVulnerable, "Neither"}, {NSVulnerable, "N/S"},
		{EWVulnerable, "E/W"}, {BothVulnerable, "Both"},
	} {
		if tc.v.String() != tc.word {
			t.Fatalf("%v renders %q", tc.v, tc.v.String())
		}
		parsed, err := ParseVulnerability(tc.word)
		if err != nil || parsed != tc.v {
			t.Fatalf("parse %q: %v %v", tc.word, parsed, err)
		}
	}
	if !NSVulnerable.Includes(NorthSouth) || NSVulnerable.Includes(EastWest) {
		t.Fatalf("Includes broken")
	}
}

func TestBoardValidate(t *testing.T) {
	board := fullBoard(1)
	if err := board.Validate(); err != nil {
		t.Fatalf("full deal should validate: %v", err)
	}

	bad := fullBoard(2)
	north := bad.Deal.Get(North)
	east := bad.Deal.Get(East)
	north[0] = east[0]
	bad.Deal.Set(North, north)
	if err := bad.Validate(); !errors.Is(err, ErrInvalidHand) {
		t.Fatalf("duplicated card across hands should fail: %v", err)
	}
}

func fullBoard(number int) Board {
	deck := make([]Card, 0, 52)
	for _, s := range SuitsHighToLow() {
		for r := Two; r <= Ace; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	b := Board{Number: number, Dealer: North}
	for i, seat := range Seats() {
		hand := make(Hand, 13)
		copy(hand, deck[i*13:(i+1)*13])
		b.Deal.Set(seat, hand)
	}
	return b
}
