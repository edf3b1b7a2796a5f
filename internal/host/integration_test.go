package host

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/bridgectl/internal/bridge"
	"github.com/danmuck/bridgectl/internal/client"
	"github.com/danmuck/bridgectl/internal/engine"
	"github.com/danmuck/bridgectl/internal/events"
	"github.com/danmuck/bridgectl/internal/protocol"
	"github.com/danmuck/bridgectl/internal/testutil/testlog"
	"github.com/danmuck/bridgectl/internal/transport"
)

// TestSessionEndToEnd runs a full session in process: the host on one
// side of four transport pairs, a protocol client with the minimal rules
// engine on the other. One deal in instant-replay mode plays out twice,
// the second time with the hands rotated.
func TestSessionEndToEnd(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	source := NewInMemorySource(DealBoards(1, 7), InstantReplay)
	table := New(Config{
		Name:  "itest",
		Mode:  InstantReplay,
		Alert: protocol.AlertNone,
	}, source, events.NewBus(), zerolog.Nop())

	teams := map[bridge.Direction]string{
		bridge.NorthSouth: "Acol",
		bridge.EastWest:   "Precision",
	}
	clientErrs := make(chan error, bridge.NumSeats)
	for _, seat := range bridge.Seats() {
		clientEnd, hostEnd := transport.Pair()
		go table.AcceptConn(hostEnd)

		bus := events.NewBus()
		c := client.New(client.Config{
			Seat:       seat,
			Team:       teams[seat.Direction()],
			Version:    18,
			SystemInfo: "bridgectl itest",
		}, clientEnd, bus, zerolog.Nop())
		engine.Attach(seat, bus, zerolog.Nop())
		go func() { clientErrs <- c.Run(ctx) }()
	}

	if err := table.Run(ctx); err != nil {
		t.Fatalf("host run: %v", err)
	}

	results := table.Results()
	if len(results) != 2 {
		t.Fatalf("boards played: %d", len(results))
	}
	if results[0].RotatedReplay || !results[1].RotatedReplay {
		t.Fatalf("replay flags wrong: %+v %+v", results[0], results[1])
	}
	for _, r := range results {
		if r.PassedOut {
			t.Fatalf("board %d passed out", r.BoardNumber)
		}
		// The minimal engine has the dealer open one club and play from
		// there, so every board ends in a club partscore.
		if r.Contract.Bid.Level != 1 || r.Contract.Bid.Strain != bridge.StrainClubs {
			t.Fatalf("board %d contract: %s", r.BoardNumber, r.Contract)
		}
		if r.TricksTaken < 0 || r.TricksTaken > 13 {
			t.Fatalf("board %d tricks: %d", r.BoardNumber, r.TricksTaken)
		}
		if r.NorthTeam != "Acol" || r.EastTeam != "Precision" {
			t.Fatalf("board %d teams: %q %q", r.BoardNumber, r.NorthTeam, r.EastTeam)
		}
	}
	// Both plays of the deal have the same dealer, so the same physical
	// pair never declares twice.
	if results[0].Contract.Declarer != results[1].Contract.Declarer {
		t.Fatalf("declarer should be the logical dealer both times: %s vs %s",
			results[0].Contract.Declarer, results[1].Contract.Declarer)
	}

	for i := 0; i < bridge.NumSeats; i++ {
		select {
		case err := <-clientErrs:
			if err != nil {
				t.Fatalf("client run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("client never finished")
		}
	}
}

// TestHandshakeRefusals exercises the seating refusals against a live
// host; every refusal but the version one keeps the connection open.
func TestHandshakeRefusals(t *testing.T) {
	testlog.Start(t)
	table := New(Config{Name: "refusals", Alert: protocol.AlertNone},
		NewInMemorySource(nil, TwoRounds), events.NewBus(), zerolog.Nop())

	northEnd, hostEnd := transport.Pair()
	go table.AcceptConn(hostEnd)
	defer northEnd.Close()

	send := func(line string) {
		t.Helper()
		if err := northEnd.Send(line); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	recv := func() string {
		t.Helper()
		select {
		case line, ok := <-northEnd.Lines():
			if !ok {
				t.Fatalf("connection closed unexpectedly")
			}
			return line
		case <-time.After(2 * time.Second):
			t.Fatalf("no reply")
		}
		return ""
	}

	send(`Connecting "A" as anypl using protocol version 18 x`)
	if got := recv(); got != "Illegal hand 'anypl' specified" {
		t.Fatalf("illegal seat refusal: %q", got)
	}

	// Same connection retries with a corrected line.
	send(`Connecting "A" as North using protocol version 18 x`)
	if got := recv(); got != `North ("A") seated` {
		t.Fatalf("seated: %q", got)
	}

	// Second claim on the seat.
	dupEnd, dupHost := transport.Pair()
	go table.AcceptConn(dupHost)
	defer dupEnd.Close()
	if err := dupEnd.Send(`Connecting "A" as North using protocol version 18 x`); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case got := <-dupEnd.Lines():
		if got != "Seat already taken" {
			t.Fatalf("duplicate seat refusal: %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no refusal")
	}

	// Partner with a mismatched team name.
	partnerEnd, partnerHost := transport.Pair()
	go table.AcceptConn(partnerHost)
	defer partnerEnd.Close()
	if err := partnerEnd.Send(`Connecting "B" as South using protocol version 18 x`); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case got := <-partnerEnd.Lines():
		if got != "Team name must match partner's" {
			t.Fatalf("team refusal: %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no refusal")
	}

	// Opponent reusing the same team name.
	oppEnd, oppHost := transport.Pair()
	go table.AcceptConn(oppHost)
	defer oppEnd.Close()
	if err := oppEnd.Send(`Connecting "A" as East using protocol version 18 x`); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case got := <-oppEnd.Lines():
		if got != "Team name must differ from opponents'" {
			t.Fatalf("opponent team refusal: %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no refusal")
	}

	// Unsupported version hangs up after the refusal.
	verEnd, verHost := transport.Pair()
	go table.AcceptConn(verHost)
	if err := verEnd.Send(`Connecting "C" as West using protocol version 20 x`); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case got := <-verEnd.Lines():
		if got != "Unsupported protocol version 20" {
			t.Fatalf("version refusal: %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no refusal")
	}
	select {
	case _, ok := <-verEnd.Lines():
		if ok {
			t.Fatalf("expected close after version refusal")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("connection stayed open after version refusal")
	}
}
