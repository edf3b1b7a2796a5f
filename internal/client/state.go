package client

import "fmt"

// ProtocolState says what a seat connection expects to receive next.
// Exactly one state is current per connection; transitions happen only
// when an accepted message arrives or the engine pushes a new required
// message.
type ProtocolState int

const (
	WaitForSeated ProtocolState = iota
	WaitForTeams
	WaitForStartOfBoard
	WaitForBoardInfo
	WaitForMyCards
	WaitForOtherBid
	WaitForOwnBid
	WaitForDummiesCards
	WaitForLead
	WaitForCardPlay
	WaitForDisconnect
	Finished
)

var stateNames = map[ProtocolState]string{
	WaitForSeated:       "WaitForSeated",
	WaitForTeams:        "WaitForTeams",
	WaitForStartOfBoard: "WaitForStartOfBoard",
	WaitForBoardInfo:    "WaitForBoardInfo",
	WaitForMyCards:      "WaitForMyCards",
	WaitForOtherBid:     "WaitForOtherBid",
	WaitForOwnBid:       "WaitForOwnBid",
	WaitForDummiesCards: "WaitForDummiesCards",
	WaitForLead:         "WaitForLead",
	WaitForCardPlay:     "WaitForCardPlay",
	WaitForDisconnect:   "WaitForDisconnect",
	Finished:            "Finished",
}

func (s ProtocolState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ProtocolState(%d)", int(s))
}
