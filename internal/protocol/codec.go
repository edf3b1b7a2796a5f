// Package protocol implements the table-manager wire codec: the mapping
// between CRLF text lines and domain values. Parsing is case-insensitive
// and tolerates the known peer quirks (trailing period on bid lines);
// rendering is case-exact.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/bridgectl/internal/bridge"
)

const (
	// LineTerminator ends every wire message.
	LineTerminator = "\r\n"

	StartOfBoard = "Start of board"
	EndOfSession = "End of session"
	DummyToLead  = "Dummy to lead"

	// Readiness suffixes matched by the host barrier as "<seat> <suffix>".
	ReadyForTeams = "ready for teams"
	ReadyToStart  = "ready to start"
	ReadyForDeal  = "ready for deal"
	ReadyForCards = "ready for cards"
	ReadyForDummy = "ready for dummy"
)

var (
	ErrMalformedLine      = errors.New("protocol: malformed line")
	ErrUnsupportedVersion = errors.New("protocol: unsupported protocol version")
)

// TimedLine is one wire line paired with its receipt time, the unit of
// think-time accounting.
type TimedLine struct {
	Text string
	At   time.Time
}

// IllegalSeatError reports a Connecting line naming a seat that does not
// exist; the offending token is echoed back in the refusal.
type IllegalSeatError struct {
	Name string
}

func (e *IllegalSeatError) Error() string {
	return fmt.Sprintf("protocol: illegal hand %q", e.Name)
}

// Connecting is the parsed client handshake line.
type Connecting struct {
	Team       string
	Seat       bridge.Seat
	Version    int
	SystemInfo string
}

// Features describes what the explanation sub-protocol may use for a
// given protocol version.
type Features struct {
	CanAskForExplanation   bool
	CanReceiveExplanations bool
}

// Features maps the negotiated version onto capability flags. Version 18
// supports neither side of the explanation exchange; 19 adds receiving.
func (c Connecting) Features() Features {
	return Features{
		CanAskForExplanation:   false,
		CanReceiveExplanations: c.Version >= 19,
	}
}

// CheckVersion rejects any version other than the two this codec speaks.
func (c Connecting) CheckVersion() error {
	if c.Version != 18 && c.Version != 19 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, c.Version)
	}
	return nil
}

// RenderConnecting produces the client handshake line.
func RenderConnecting(c Connecting) string {
	return fmt.Sprintf("Connecting %q as %s using protocol version %d %s",
		c.Team, c.Seat, c.Version, c.SystemInfo)
}

// ParseConnecting reads a handshake line. The seat token is validated
// strictly so the host can refuse with the offending name.
func ParseConnecting(line string) (Connecting, error) {
	rest, ok := cutPrefixFold(line, "connecting ")
	if !ok {
		return Connecting{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	team, rest, err := readQuoted(rest)
	if err != nil {
		return Connecting{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	rest, ok = cutPrefixFold(strings.TrimSpace(rest), "as ")
	if !ok {
		return Connecting{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	seatTok, rest, ok := strings.Cut(strings.TrimSpace(rest), " ")
	if !ok {
		return Connecting{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	seat, err := bridge.ParseSeat(seatTok)
	if err != nil {
		return Connecting{}, &IllegalSeatError{Name: strings.ToLower(seatTok)}
	}
	rest, ok = cutPrefixFold(strings.TrimSpace(rest), "using protocol version ")
	if !ok {
		return Connecting{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	verTok, sysInfo, _ := strings.Cut(strings.TrimSpace(rest), " ")
	version, err := strconv.Atoi(verTok)
	if err != nil {
		return Connecting{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	return Connecting{
		Team:       team,
		Seat:       seat,
		Version:    version,
		SystemInfo: strings.TrimSpace(sysInfo),
	}, nil
}

// RenderSeated confirms a successful seating.
func RenderSeated(seat bridge.Seat, team string) string {
	return fmt.Sprintf("%s (%q) seated", seat, team)
}

// RenderIllegalSeat is the refusal for an unknown seat token.
func RenderIllegalSeat(name string) string {
	return fmt.Sprintf("Illegal hand '%s' specified", name)
}

// RenderTeams announces both team bindings once all seats are filled.
func RenderTeams(ns, ew string) string {
	return fmt.Sprintf("Teams : N/S : %q E/W : %q", ns, ew)
}

// ParseTeams reads the team announcement line.
func ParseTeams(line string) (ns, ew string, err error) {
	rest, ok := cutPrefixFold(strings.TrimSpace(line), "teams :")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	rest, ok = cutPrefixFold(strings.TrimSpace(rest), "n/s :")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	ns, rest, err = readQuoted(rest)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	rest, ok = cutPrefixFold(strings.TrimSpace(rest), "e/w :")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	ew, _, err = readQuoted(rest)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	return ns, ew, nil
}

// RenderBoardInfo produces the board header line.
func RenderBoardInfo(number int, dealer bridge.Seat, vul bridge.Vulnerability) string {
	return fmt.Sprintf("Board number %d. Dealer %s. %s vulnerable.", number, dealer, vul)
}

// ParseBoardInfo reads a board header line.
func ParseBoardInfo(line string) (number int, dealer bridge.Seat, vul bridge.Vulnerability, err error) {
	rest, ok := cutPrefixFold(line, "board number ")
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	parts := strings.SplitN(rest, ".", 4)
	if len(parts) < 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	number, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	dealerTok, ok := cutPrefixFold(strings.TrimSpace(parts[1]), "dealer ")
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	dealer, err = bridge.ParseSeat(dealerTok)
	if err != nil {
		return 0, 0, 0, err
	}
	vulTok := strings.TrimSpace(parts[2])
	vulTok = strings.TrimSuffix(strings.ToLower(vulTok), " vulnerable")
	vul, err = bridge.ParseVulnerability(vulTok)
	if err != nil {
		return 0, 0, 0, err
	}
	return number, dealer, vul, nil
}

// RenderHolding lists a hand suit by suit: Spades, Hearts, Diamonds,
// Clubs, ranks descending, each suit closed by a period, voids as "-".
func RenderHolding(hand bridge.Hand) string {
	var b strings.Builder
	for i, suit := range bridge.SuitsHighToLow() {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(suit.Letter())
		ranks := hand.SuitRanks(suit)
		if len(ranks) == 0 {
			b.WriteString(" -")
		} else {
			for _, r := range ranks {
				b.WriteString(" ")
				b.WriteString(r.Letter())
			}
		}
		b.WriteString(".")
	}
	return b.String()
}

// RenderCards produces one seat's deal line.
func RenderCards(seat bridge.Seat, hand bridge.Hand) string {
	return fmt.Sprintf("%s's cards : %s", seat, RenderHolding(hand))
}

// RenderDummyCards produces the dummy disclosure line.
func RenderDummyCards(hand bridge.Hand) string {
	return fmt.Sprintf("Dummy's cards : %s", RenderHolding(hand))
}

// ParseCards reads a deal line. The owner is the seat name or "Dummy";
// dummy is reported with ok=false on the seat.
func ParseCards(line string) (owner bridge.Seat, isDummy bool, hand bridge.Hand, err error) {
	ownerTok, rest, found := strings.Cut(line, "'s cards :")
	if !found {
		return 0, false, nil, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	if strings.EqualFold(strings.TrimSpace(ownerTok), "dummy") {
		isDummy = true
	} else {
		owner, err = bridge.ParseSeat(ownerTok)
		if err != nil {
			return 0, false, nil, err
		}
	}
	hand, err = ParseHolding(rest)
	if err != nil {
		return 0, false, nil, err
	}
	return owner, isDummy, hand, nil
}

// ParseHolding reads the four period-terminated suit groups.
func ParseHolding(text string) (bridge.Hand, error) {
	groups := strings.Split(text, ".")
	var hand bridge.Hand
	suits := make(map[bridge.Suit]bool, 4)
	for _, group := range groups {
		fields := strings.Fields(group)
		if len(fields) == 0 {
			continue
		}
		suit, err := bridge.ParseSuit(fields[0])
		if err != nil {
			return nil, err
		}
		if suits[suit] {
			return nil, fmt.Errorf("%w: suit %s listed twice", ErrMalformedLine, suit)
		}
		suits[suit] = true
		for _, tok := range fields[1:] {
			if tok == "-" {
				continue
			}
			rank, err := bridge.ParseRank(tok)
			if err != nil {
				return nil, err
			}
			hand = append(hand, bridge.Card{Suit: suit, Rank: rank})
		}
	}
	if len(suits) != 4 {
		return nil, fmt.Errorf("%w: %d suit groups", ErrMalformedLine, len(suits))
	}
	return hand, nil
}

// ReadyForBidSuffix is the barrier suffix for another seat's call.
func ReadyForBidSuffix(bidder bridge.Seat) string {
	return fmt.Sprintf("ready for %s's bid", bidder)
}

// ReadyForCardSuffix is the barrier suffix for another seat's play.
func ReadyForCardSuffix(player bridge.Seat, trick int) string {
	return fmt.Sprintf("ready for %s's card to trick %d", player, trick)
}

// ReadyForDummyCardSuffix is the dummy-relative phrasing accepted
// interchangeably when dummy's hand is on play.
func ReadyForDummyCardSuffix(trick int) string {
	return fmt.Sprintf("ready for dummy's card to trick %d", trick)
}

// RenderToLead tells a seat it is on lead.
func RenderToLead(seat bridge.Seat) string {
	return fmt.Sprintf("%s to lead", seat)
}

// RenderExplain asks an opponent to explain its partner's call.
func RenderExplain(bidder bridge.Seat, bid bridge.Bid) string {
	return fmt.Sprintf("Explain %s's %s", bidder, bid)
}

// RenderTiming produces the per-board think-time broadcast.
func RenderTiming(nsBoard, nsTotal, ewBoard, ewTotal time.Duration) string {
	return fmt.Sprintf("Timing - N/S : this board %s, total %s. E/W : this board %s, total %s.",
		clockMS(nsBoard), clockHMS(nsTotal), clockMS(ewBoard), clockHMS(ewTotal))
}

func clockMS(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func clockHMS(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// readQuoted consumes a double-quoted token and returns the remainder.
func readQuoted(s string) (string, string, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || s[0] != '"' {
		return "", "", ErrMalformedLine
	}
	end := strings.IndexByte(s[1:], '"')
	if end < 0 {
		return "", "", ErrMalformedLine
	}
	return s[1 : 1+end], s[end+2:], nil
}
