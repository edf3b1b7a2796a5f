package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/bridgectl/internal/bridge"
)

// AlertMode selects how alerted calls are decorated and explained.
type AlertMode int

const (
	AlertNone AlertMode = iota
	// AlertManual marks alerts on the wire and collects explanations
	// through the Explain round trip.
	AlertManual
	// AlertSelfExplaining attaches each call's own explanation inline.
	AlertSelfExplaining
)

// ParseAlertMode reads the config spelling of an alert mode.
func ParseAlertMode(name string) (AlertMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none":
		return AlertNone, nil
	case "manual":
		return AlertManual, nil
	case "self-explaining":
		return AlertSelfExplaining, nil
	}
	return AlertNone, fmt.Errorf("protocol: unknown alert mode %q", name)
}

// Decoration maps an alert mode and call onto the wire suffix.
func (m AlertMode) Decoration(bid bridge.Bid) BidDecoration {
	switch m {
	case AlertManual:
		if bid.Alert {
			return DecorateAlert
		}
	case AlertSelfExplaining:
		if bid.Explanation != "" {
			return DecorateInfos
		}
	}
	return DecorateNone
}

// BidDecoration selects the alert suffix appended to a rendered call.
type BidDecoration int

const (
	DecorateNone BidDecoration = iota
	// DecorateAlert is the manual-alert marker; the explanation, when
	// present, was collected through the Explain round trip.
	DecorateAlert
	// DecorateInfos carries the self-explaining text inline.
	DecorateInfos
)

// RenderBid produces a call line: "<seat> passes|doubles|redoubles|bids
// <level><strain>", optionally decorated.
func RenderBid(seat bridge.Seat, bid bridge.Bid, deco BidDecoration) string {
	var verb string
	switch bid.Kind {
	case bridge.BidPass:
		verb = "passes"
	case bridge.BidDouble:
		verb = "doubles"
	case bridge.BidRedouble:
		verb = "redoubles"
	default:
		verb = fmt.Sprintf("bids %d%s", bid.Level, bid.Strain.Letter())
	}
	line := fmt.Sprintf("%s %s", seat, verb)
	switch deco {
	case DecorateAlert:
		line += " Alert."
		if bid.Explanation != "" {
			line += " " + bid.Explanation
		}
	case DecorateInfos:
		line += " Infos. " + bid.Explanation
	}
	return line
}

// ParseBid reads a call line. A trailing period on the bare call and an
// "Alert."/"Infos." suffix are both accepted; the suffix sets the alert
// flag and explanation on the returned bid.
func ParseBid(line string) (bridge.Seat, bridge.Bid, error) {
	seatTok, rest, found := strings.Cut(strings.TrimSpace(line), " ")
	if !found {
		return 0, bridge.Bid{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	seat, err := bridge.ParseSeat(seatTok)
	if err != nil {
		return 0, bridge.Bid{}, err
	}

	var bid bridge.Bid
	rest, bid.Alert, bid.Explanation = splitAlertSuffix(rest)
	// Some third-party clients terminate the bare call with a period.
	rest = strings.TrimSuffix(strings.TrimSpace(rest), ".")

	verb, arg, _ := strings.Cut(strings.TrimSpace(rest), " ")
	switch strings.ToLower(verb) {
	case "passes", "pass":
		bid.Kind = bridge.BidPass
	case "doubles", "double":
		bid.Kind = bridge.BidDouble
	case "redoubles", "redouble":
		bid.Kind = bridge.BidRedouble
	case "bids", "bid":
		level, strain, err := parseCall(arg)
		if err != nil {
			return 0, bridge.Bid{}, err
		}
		bid.Kind = bridge.BidContract
		bid.Level = level
		bid.Strain = strain
	default:
		return 0, bridge.Bid{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	return seat, bid, nil
}

// ParseCall reads a bare call token such as "2S", "pass" or "Double".
func ParseCall(token string) (bridge.Bid, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "pass", "passes":
		return bridge.Pass(), nil
	case "double", "doubles", "x":
		return bridge.Double(), nil
	case "redouble", "redoubles", "xx":
		return bridge.Redouble(), nil
	}
	level, strain, err := parseCall(token)
	if err != nil {
		return bridge.Bid{}, err
	}
	return bridge.ContractBid(level, strain)
}

func parseCall(token string) (int, bridge.Strain, error) {
	token = strings.TrimSpace(token)
	if len(token) < 2 {
		return 0, 0, fmt.Errorf("%w: bid %q", ErrMalformedLine, token)
	}
	level, err := strconv.Atoi(token[:1])
	if err != nil || level < 1 || level > 7 {
		return 0, 0, fmt.Errorf("%w: bid %q", ErrMalformedLine, token)
	}
	strain, err := bridge.ParseStrain(token[1:])
	if err != nil {
		return 0, 0, err
	}
	return level, strain, nil
}

// splitAlertSuffix strips an " Alert." or " Infos." decoration and the
// explanation text that follows it.
func splitAlertSuffix(s string) (rest string, alert bool, explanation string) {
	for _, marker := range []string{"alert.", "infos."} {
		idx := indexFold(s, marker)
		if idx < 0 {
			continue
		}
		return s[:idx], true, strings.TrimSpace(s[idx+len(marker):])
	}
	return s, false, ""
}

func indexFold(s, sub string) int {
	return strings.Index(strings.ToLower(s), sub)
}

// RenderPlay produces a card-play line, with an optional suit-signal
// suffix for peers entitled to see it.
func RenderPlay(seat bridge.Seat, card bridge.Card, signal string) string {
	line := fmt.Sprintf("%s plays %s", seat, card)
	if signal != "" {
		line += ". " + signal
	}
	return line
}

// ParsePlay reads a card-play line.
func ParsePlay(line string) (bridge.Seat, bridge.Card, string, error) {
	seatTok, rest, found := strings.Cut(strings.TrimSpace(line), " ")
	if !found {
		return 0, bridge.Card{}, "", fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	seat, err := bridge.ParseSeat(seatTok)
	if err != nil {
		return 0, bridge.Card{}, "", err
	}
	rest, ok := cutPrefixFold(strings.TrimSpace(rest), "plays ")
	if !ok {
		return 0, bridge.Card{}, "", fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	cardTok, signal, _ := strings.Cut(strings.TrimSpace(rest), ".")
	card, err := bridge.ParseCard(strings.TrimSpace(cardTok))
	if err != nil {
		return 0, bridge.Card{}, "", err
	}
	return seat, card, strings.TrimSpace(signal), nil
}
