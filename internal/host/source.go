package host

import (
	"math/rand"
	"sync"

	"github.com/danmuck/bridgectl/internal/bridge"
)

// BoardSource supplies the boards to play and records their outcomes.
type BoardSource interface {
	// NextBoard returns the next deal; ok is false once the session's
	// board set is exhausted.
	NextBoard() (bridge.Board, bool)
	SaveResult(result bridge.BoardResult)
}

// InMemorySource serves a fixed board set per the session mode. The
// single-table modes replay each deal once with the hands rotated so
// the other pair holds the cards, immediately after the first play or
// as a full second round; a two-table session serves every deal exactly
// once, because the replay happens at the paired table.
type InMemorySource struct {
	mu      sync.Mutex
	boards  []bridge.Board
	mode    Mode
	next    int
	pending *bridge.Board
	round   int
	results []bridge.BoardResult
}

func NewInMemorySource(boards []bridge.Board, mode Mode) *InMemorySource {
	return &InMemorySource{boards: boards, mode: mode, round: 1}
}

func (s *InMemorySource) NextBoard() (bridge.Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		b := *s.pending
		s.pending = nil
		return b, true
	}
	if s.next >= len(s.boards) {
		if s.mode == TwoRounds && s.round == 1 {
			s.round = 2
			s.next = 0
		} else {
			return bridge.Board{}, false
		}
	}

	b := s.boards[s.next]
	s.next++
	switch {
	case s.mode == InstantReplay:
		replay := rotatedBoard(b)
		s.pending = &replay
	case s.mode == TwoRounds && s.round == 2:
		b = rotatedBoard(b)
	}
	return b, true
}

func (s *InMemorySource) SaveResult(result bridge.BoardResult) {
	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()
}

func (s *InMemorySource) Results() []bridge.BoardResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bridge.BoardResult, len(s.results))
	copy(out, s.results)
	return out
}

func rotatedBoard(b bridge.Board) bridge.Board {
	r := b
	r.RotateHands = true
	return r
}

// vulnerabilityCycle is the standard sixteen-board pattern.
var vulnerabilityCycle = [16]bridge.Vulnerability{
	bridge.NotVulnerable, bridge.NSVulnerable, bridge.EWVulnerable, bridge.BothVulnerable,
	bridge.NSVulnerable, bridge.EWVulnerable, bridge.BothVulnerable, bridge.NotVulnerable,
	bridge.EWVulnerable, bridge.BothVulnerable, bridge.NotVulnerable, bridge.NSVulnerable,
	bridge.BothVulnerable, bridge.NotVulnerable, bridge.NSVulnerable, bridge.EWVulnerable,
}

// DealBoards generates a reproducible random board set. Dealer and
// vulnerability follow the standard duplicate rotation.
func DealBoards(count int, seed int64) []bridge.Board {
	rng := rand.New(rand.NewSource(seed))
	boards := make([]bridge.Board, 0, count)
	for n := 1; n <= count; n++ {
		boards = append(boards, dealBoard(n, rng))
	}
	return boards
}

func dealBoard(number int, rng *rand.Rand) bridge.Board {
	deck := make([]bridge.Card, 0, 52)
	for _, suit := range bridge.SuitsHighToLow() {
		for rank := bridge.Two; rank <= bridge.Ace; rank++ {
			deck = append(deck, bridge.Card{Suit: suit, Rank: rank})
		}
	}
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	board := bridge.Board{
		Number:     number,
		Dealer:     bridge.Seat((number - 1) % bridge.NumSeats),
		Vulnerable: vulnerabilityCycle[(number-1)%len(vulnerabilityCycle)],
	}
	for i, seat := range bridge.Seats() {
		hand := make(bridge.Hand, 13)
		copy(hand, deck[i*13:(i+1)*13])
		board.Deal.Set(seat, hand)
	}
	return board
}
