package protocol

import (
	"regexp"

	"github.com/danmuck/bridgectl/internal/bridge"
)

var seatToken = regexp.MustCompile(`(?i)\b(north|east|south|west)\b`)

// RotateSeats rewrites every seat name in a wire line, shifting each by
// steps positions in play order. The instant-replay host applies +1 on
// every outgoing line and -1 on every incoming one, so neither the rules
// engine nor the opposing pair ever sees rotated identities.
func RotateSeats(line string, steps int) string {
	if steps%bridge.NumSeats == 0 {
		return line
	}
	return seatToken.ReplaceAllStringFunc(line, func(tok string) string {
		seat, err := bridge.ParseSeat(tok)
		if err != nil {
			return tok
		}
		return seat.Rotated(steps).String()
	})
}

// UnrotateSeats is the inverse of RotateSeats for the same step count.
func UnrotateSeats(line string, steps int) string {
	return RotateSeats(line, -steps)
}
