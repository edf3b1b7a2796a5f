package host

import (
	"testing"
	"time"

	"github.com/danmuck/bridgectl/internal/bridge"
)

func TestInMemorySourceInstantReplay(t *testing.T) {
	boards := DealBoards(2, 42)
	source := NewInMemorySource(boards, InstantReplay)

	want := []struct {
		number  int
		rotated bool
	}{
		{1, false}, {1, true}, {2, false}, {2, true},
	}
	for i, w := range want {
		b, ok := source.NextBoard()
		if !ok {
			t.Fatalf("board %d: source exhausted early", i)
		}
		if b.Number != w.number || b.RotateHands != w.rotated {
			t.Fatalf("board %d: number %d rotated %v, want %d %v",
				i, b.Number, b.RotateHands, w.number, w.rotated)
		}
	}
	if _, ok := source.NextBoard(); ok {
		t.Fatalf("source should be exhausted")
	}
}

func TestInMemorySourceTwoRounds(t *testing.T) {
	boards := DealBoards(2, 42)
	source := NewInMemorySource(boards, TwoRounds)

	want := []struct {
		number  int
		rotated bool
	}{
		{1, false}, {2, false}, {1, true}, {2, true},
	}
	for i, w := range want {
		b, ok := source.NextBoard()
		if !ok {
			t.Fatalf("board %d: source exhausted early", i)
		}
		if b.Number != w.number || b.RotateHands != w.rotated {
			t.Fatalf("board %d: number %d rotated %v, want %d %v",
				i, b.Number, b.RotateHands, w.number, w.rotated)
		}
	}
	if _, ok := source.NextBoard(); ok {
		t.Fatalf("source should be exhausted")
	}
}

func TestInMemorySourceTwoTables(t *testing.T) {
	boards := DealBoards(2, 42)
	source := NewInMemorySource(boards, TwoTables)

	// The replay happens at the paired table, so this table sees every
	// deal exactly once and never rotated.
	for i := 1; i <= 2; i++ {
		b, ok := source.NextBoard()
		if !ok {
			t.Fatalf("board %d: source exhausted early", i)
		}
		if b.Number != i || b.RotateHands {
			t.Fatalf("board %d: number %d rotated %v", i, b.Number, b.RotateHands)
		}
	}
	if _, ok := source.NextBoard(); ok {
		t.Fatalf("source should be exhausted")
	}
}

func TestDealBoards(t *testing.T) {
	boards := DealBoards(16, 7)
	if len(boards) != 16 {
		t.Fatalf("got %d boards", len(boards))
	}
	for i := range boards {
		if err := boards[i].Validate(); err != nil {
			t.Fatalf("board %d invalid: %v", i+1, err)
		}
		if want := bridge.Seat(i % bridge.NumSeats); boards[i].Dealer != want {
			t.Fatalf("board %d dealer %s, want %s", i+1, boards[i].Dealer, want)
		}
		if boards[i].Vulnerable != vulnerabilityCycle[i] {
			t.Fatalf("board %d vulnerability %s", i+1, boards[i].Vulnerable)
		}
	}

	same := DealBoards(16, 7)
	if same[3].Deal.Get(bridge.West)[0] != boards[3].Deal.Get(bridge.West)[0] {
		t.Fatalf("same seed should reproduce the deal")
	}
}

func TestThinkClock(t *testing.T) {
	var clock thinkClock
	clock.init()

	base := time.Now()
	clock.start(bridge.NorthSouth, base)
	clock.stop(bridge.NorthSouth, base.Add(3*time.Second))
	clock.start(bridge.EastWest, base)
	clock.stop(bridge.EastWest, base.Add(time.Second))

	nsBoard, nsTotal, ewBoard, ewTotal := clock.snapshot()
	if nsBoard != 3*time.Second || nsTotal != 3*time.Second {
		t.Fatalf("ns: board %v total %v", nsBoard, nsTotal)
	}
	if ewBoard != time.Second || ewTotal != time.Second {
		t.Fatalf("ew: board %v total %v", ewBoard, ewTotal)
	}

	// A stop with no matching start is a no-op.
	clock.stop(bridge.NorthSouth, base.Add(time.Minute))
	if got, _, _, _ := clock.snapshot(); got != 3*time.Second {
		t.Fatalf("unmatched stop counted: %v", got)
	}

	clock.resetBoard()
	nsBoard, nsTotal, _, _ = clock.snapshot()
	if nsBoard != 0 || nsTotal != 3*time.Second {
		t.Fatalf("reset: board %v total %v", nsBoard, nsTotal)
	}
}

func TestCheckCallLegal(t *testing.T) {
	oneClub, _ := bridge.ContractBid(1, bridge.StrainClubs)
	oneHeart, _ := bridge.ContractBid(1, bridge.StrainHearts)
	twoClubs, _ := bridge.ContractBid(2, bridge.StrainClubs)

	cases := []struct {
		name               string
		turn               bridge.Seat
		bid                bridge.Bid
		haveBid            bool
		lastBid            bridge.Bid
		lastBidSeat        bridge.Seat
		doubled, redoubled bool
		wantErr            bool
	}{
		{name: "pass always legal", turn: bridge.North, bid: bridge.Pass()},
		{name: "opening bid", turn: bridge.North, bid: oneClub},
		{name: "higher strain outbids", turn: bridge.East, bid: oneHeart,
			haveBid: true, lastBid: oneClub, lastBidSeat: bridge.North},
		{name: "higher level outbids", turn: bridge.East, bid: twoClubs,
			haveBid: true, lastBid: oneHeart, lastBidSeat: bridge.North},
		{name: "insufficient bid", turn: bridge.East, bid: oneClub,
			haveBid: true, lastBid: oneHeart, lastBidSeat: bridge.North, wantErr: true},
		{name: "double of opponent", turn: bridge.East, bid: bridge.Double(),
			haveBid: true, lastBid: oneClub, lastBidSeat: bridge.North},
		{name: "double of partner", turn: bridge.South, bid: bridge.Double(),
			haveBid: true, lastBid: oneClub, lastBidSeat: bridge.North, wantErr: true},
		{name: "double with no bid", turn: bridge.North, bid: bridge.Double(), wantErr: true},
		{name: "double of a double", turn: bridge.West, bid: bridge.Double(),
			haveBid: true, lastBid: oneClub, lastBidSeat: bridge.North, doubled: true, wantErr: true},
		{name: "redouble by doubled side", turn: bridge.South, bid: bridge.Redouble(),
			haveBid: true, lastBid: oneClub, lastBidSeat: bridge.North, doubled: true},
		{name: "redouble by doubling side", turn: bridge.East, bid: bridge.Redouble(),
			haveBid: true, lastBid: oneClub, lastBidSeat: bridge.North, doubled: true, wantErr: true},
		{name: "redouble without double", turn: bridge.South, bid: bridge.Redouble(),
			haveBid: true, lastBid: oneClub, lastBidSeat: bridge.North, wantErr: true},
	}
	for _, tc := range cases {
		err := checkCallLegal(tc.turn, tc.bid, tc.haveBid, tc.lastBid, tc.lastBidSeat, tc.doubled, tc.redoubled)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err=%v, wantErr=%v", tc.name, err, tc.wantErr)
		}
	}
}

func card(t *testing.T, code string) bridge.Card {
	t.Helper()
	c, err := bridge.ParseCard(code)
	if err != nil {
		t.Fatalf("ParseCard(%q): %v", code, err)
	}
	return c
}

func TestTrickWinner(t *testing.T) {
	cases := []struct {
		name        string
		plays       [bridge.NumSeats]bridge.Card
		leadSuit    bridge.Suit
		trump       bridge.Suit
		trumpSuited bool
		want        int
	}{
		{
			name: "highest of suit led wins at no-trump",
			plays: [bridge.NumSeats]bridge.Card{
				card(t, "5H"), card(t, "KH"), card(t, "AS"), card(t, "AH"),
			},
			leadSuit: bridge.Hearts,
			want:     3,
		},
		{
			name: "small trump beats ace of suit led",
			plays: [bridge.NumSeats]bridge.Card{
				card(t, "AH"), card(t, "2C"), card(t, "KH"), card(t, "QH"),
			},
			leadSuit: bridge.Hearts, trump: bridge.Clubs, trumpSuited: true,
			want: 1,
		},
		{
			name: "higher trump wins the overruff",
			plays: [bridge.NumSeats]bridge.Card{
				card(t, "AH"), card(t, "2C"), card(t, "9C"), card(t, "QH"),
			},
			leadSuit: bridge.Hearts, trump: bridge.Clubs, trumpSuited: true,
			want: 2,
		},
		{
			name: "discard never wins",
			plays: [bridge.NumSeats]bridge.Card{
				card(t, "2H"), card(t, "AS"), card(t, "KD"), card(t, "QS"),
			},
			leadSuit: bridge.Hearts,
			want:     0,
		},
	}
	for _, tc := range cases {
		winner := trickWinner(bridge.North, tc.plays, tc.leadSuit, tc.trump, tc.trumpSuited)
		if winner != bridge.North.Rotated(tc.want) {
			t.Fatalf("%s: winner %s, want %s", tc.name, winner, bridge.North.Rotated(tc.want))
		}
	}
}

func TestParseModeAndScoring(t *testing.T) {
	if m, err := ParseMode("two-rounds"); err != nil || m != TwoRounds {
		t.Fatalf("two-rounds: %v %v", m, err)
	}
	if m, err := ParseMode("Instant-Replay"); err != nil || m != InstantReplay {
		t.Fatalf("instant-replay: %v %v", m, err)
	}
	if m, err := ParseMode("two-tables"); err != nil || m != TwoTables {
		t.Fatalf("two-tables: %v %v", m, err)
	}
	if _, err := ParseMode("round-robin"); err == nil {
		t.Fatalf("unknown mode should fail")
	}
	if s, err := ParseScoring("imp"); err != nil || s != ScoringIMP {
		t.Fatalf("imp: %v %v", s, err)
	}
	if s, err := ParseScoring("matchpoints"); err != nil || s != ScoringMatchpoints {
		t.Fatalf("matchpoints: %v %v", s, err)
	}
	if _, err := ParseScoring("rubber"); err == nil {
		t.Fatalf("unknown scoring should fail")
	}
}
