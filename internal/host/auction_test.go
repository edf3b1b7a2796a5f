package host

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/bridgectl/internal/bridge"
	"github.com/danmuck/bridgectl/internal/events"
	"github.com/danmuck/bridgectl/internal/protocol"
	"github.com/danmuck/bridgectl/internal/testutil/testlog"
	"github.com/danmuck/bridgectl/internal/transport"
)

// TestManualAlertRoundTrip scripts all four seats through one auction in
// manual alert mode: East alerts 2S, the host collects the explanation
// from East's partner, and the decorated call reaches only the
// opponents. Every host read pops a per-seat queue, so each seat's whole
// line sequence can be sent up front.
func TestManualAlertRoundTrip(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bus := events.NewBus()
	auctionDone := make(chan events.AuctionFinished, 1)
	bus.Subscribe(events.KindAuctionFinished, func(e events.Event) {
		auctionDone <- e.(events.AuctionFinished)
	})

	table := New(Config{Name: "alerts", Alert: protocol.AlertManual},
		NewInMemorySource(DealBoards(1, 1), TwoRounds), bus, zerolog.Nop())

	// Board 1 deals North; the auction runs N pass, E 2S Alert, S pass,
	// W pass, N pass.
	scripts := map[bridge.Seat][]string{
		bridge.North: {
			`Connecting "A" as North using protocol version 19 script`,
			"North ready for teams", "North ready to start",
			"North ready for deal", "North ready for cards",
			"North passes",
			"North ready for East's bid",
			"North ready for South's bid",
			"North ready for West's bid",
			"North passes",
		},
		bridge.East: {
			`Connecting "B" as East using protocol version 19 script`,
			"East ready for teams", "East ready to start",
			"East ready for deal", "East ready for cards",
			"East ready for North's bid",
			"East bids 2S Alert.",
			"East ready for South's bid",
			"East ready for West's bid",
			"East ready for North's bid",
		},
		bridge.South: {
			`Connecting "A" as South using protocol version 19 script`,
			"South ready for teams", "South ready to start",
			"South ready for deal", "South ready for cards",
			"South ready for North's bid",
			"South ready for East's bid",
			"South passes",
			"South ready for West's bid",
			"South ready for North's bid",
		},
		bridge.West: {
			`Connecting "B" as West using protocol version 19 script`,
			"West ready for teams", "West ready to start",
			"West ready for deal", "West ready for cards",
			"West ready for North's bid",
			"West ready for East's bid",
			"strong spade raise",
			"West ready for South's bid",
			"West passes",
			"West ready for North's bid",
		},
	}

	seatConns := make(map[bridge.Seat]transport.Conn, bridge.NumSeats)
	for _, seat := range bridge.Seats() {
		seatEnd, hostEnd := transport.Pair()
		go table.AcceptConn(hostEnd)
		seatConns[seat] = seatEnd
		defer seatEnd.Close()
		for _, line := range scripts[seat] {
			if err := seatEnd.Send(line); err != nil {
				t.Fatalf("%s send %q: %v", seat, line, err)
			}
		}
	}

	runErr := make(chan error, 1)
	go func() { runErr <- table.Run(ctx) }()

	select {
	case finished := <-auctionDone:
		if finished.Declarer != bridge.East {
			t.Fatalf("declarer: %s", finished.Declarer)
		}
		if got := finished.Contract.String(); got != "2S by East" {
			t.Fatalf("contract: %q", got)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("auction never finished")
	}
	// The scripts stop at the auction; cancelling here is the operator
	// stop, which still ends the session cleanly.
	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("host run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("host never returned")
	}

	// Opponents see the decorated call with the collected explanation.
	scanFor(t, seatConns[bridge.North], "East bids 2S Alert. strong spade raise")
	// The bidder's partner is asked to explain and sees the plain call.
	scanFor(t, seatConns[bridge.West], "Explain East's 2S")
	scanFor(t, seatConns[bridge.West], "East bids 2S")
}

// TestIllegalCallResubmitted scripts an insufficient bid: East answers
// North's 1H with 1C, is told what a legal call looks like, and passes
// instead. The table survives the refusal, finishes the auction, and
// reports the offence as a disconnect event.
func TestIllegalCallResubmitted(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bus := events.NewBus()
	auctionDone := make(chan events.AuctionFinished, 1)
	bus.Subscribe(events.KindAuctionFinished, func(e events.Event) {
		auctionDone <- e.(events.AuctionFinished)
	})
	offences := make(chan events.SeatDisconnected, 4)
	bus.Subscribe(events.KindSeatDisconnected, func(e events.Event) {
		offences <- e.(events.SeatDisconnected)
	})

	table := New(Config{Name: "refusals", Alert: protocol.AlertManual},
		NewInMemorySource(DealBoards(1, 1), TwoRounds), bus, zerolog.Nop())

	// Board 1 deals North; the auction runs N 1H, E 1C refused then
	// pass, S pass, W pass.
	scripts := map[bridge.Seat][]string{
		bridge.North: {
			`Connecting "A" as North using protocol version 19 script`,
			"North ready for teams", "North ready to start",
			"North ready for deal", "North ready for cards",
			"North bids 1H",
			"North ready for East's bid",
			"North ready for South's bid",
			"North ready for West's bid",
		},
		bridge.East: {
			`Connecting "B" as East using protocol version 19 script`,
			"East ready for teams", "East ready to start",
			"East ready for deal", "East ready for cards",
			"East ready for North's bid",
			"East bids 1C",
			"East passes",
			"East ready for South's bid",
			"East ready for West's bid",
		},
		bridge.South: {
			`Connecting "A" as South using protocol version 19 script`,
			"South ready for teams", "South ready to start",
			"South ready for deal", "South ready for cards",
			"South ready for North's bid",
			"South ready for East's bid",
			"South passes",
			"South ready for West's bid",
		},
		bridge.West: {
			`Connecting "B" as West using protocol version 19 script`,
			"West ready for teams", "West ready to start",
			"West ready for deal", "West ready for cards",
			"West ready for North's bid",
			"West ready for East's bid",
			"West ready for South's bid",
			"West passes",
		},
	}

	seatConns := make(map[bridge.Seat]transport.Conn, bridge.NumSeats)
	for _, seat := range bridge.Seats() {
		seatEnd, hostEnd := transport.Pair()
		go table.AcceptConn(hostEnd)
		seatConns[seat] = seatEnd
		defer seatEnd.Close()
		for _, line := range scripts[seat] {
			if err := seatEnd.Send(line); err != nil {
				t.Fatalf("%s send %q: %v", seat, line, err)
			}
		}
	}

	runErr := make(chan error, 1)
	go func() { runErr <- table.Run(ctx) }()

	select {
	case finished := <-auctionDone:
		if got := finished.Contract.String(); got != "1H by North" {
			t.Fatalf("contract: %q", got)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("auction never finished")
	}
	select {
	case d := <-offences:
		if d.Seat != bridge.East {
			t.Fatalf("offender: %+v", d)
		}
	default:
		t.Fatalf("refused call never became a disconnect event")
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("host run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("host never returned")
	}

	// East was told what would have been legal, on a connection that
	// stayed up for the resubmission.
	scanFor(t, seatConns[bridge.East], "Unexpected 'East bids 1C' received; expected 'a call above 1H'")
	scanFor(t, seatConns[bridge.East], "South passes")
}

// scanFor consumes a seat's received lines until the wanted one appears,
// so it also asserts relative order across successive calls.
func scanFor(t *testing.T, conn transport.Conn, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-conn.Lines():
			if !ok {
				t.Fatalf("stream ended before %q", want)
			}
			if strings.TrimSpace(line) == want {
				return
			}
		case <-deadline:
			t.Fatalf("never received %q", want)
		}
	}
}
