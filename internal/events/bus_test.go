package events

import (
	"testing"

	"github.com/danmuck/bridgectl/internal/bridge"
)

func TestSubscribeRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe(KindSeated, func(Event) { order = append(order, "first") })
	bus.Subscribe(KindSeated, func(Event) { order = append(order, "second") })
	bus.Subscribe(KindBoardStarted, func(Event) { order = append(order, "other") })

	bus.Publish(Seated{Seat: bridge.North, Team: "A"})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("handler order: %v", order)
	}
}

func TestPublishFromHandlerIsQueued(t *testing.T) {
	bus := NewBus()
	var got []Kind
	bus.Subscribe(KindBidNeeded, func(e Event) {
		got = append(got, e.EventKind())
		// A handler publishing must not recurse; the nested event runs
		// after this handler's siblings.
		bus.Publish(BidDone{Seat: bridge.North, Bid: bridge.Pass()})
		got = append(got, KindTournamentStopped) // marker: handler still running
	})
	bus.Subscribe(KindBidDone, func(e Event) {
		got = append(got, e.EventKind())
	})

	bus.Publish(BidNeeded{WhoseTurn: bridge.North})

	want := []Kind{KindBidNeeded, KindTournamentStopped, KindBidDone}
	if len(got) != len(want) {
		t.Fatalf("dispatch sequence: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dispatch sequence: %v, want %v", got, want)
		}
	}
}

func TestTapRunsAfterHandlers(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Tap(func(e Event) { order = append(order, "tap:"+e.EventKind().String()) })
	bus.Subscribe(KindSeated, func(Event) { order = append(order, "handler") })

	bus.Publish(Seated{Seat: bridge.East, Team: "B"})
	bus.Publish(TournamentStopped{})

	want := []string{"handler", "tap:seated", "tap:tournament_stopped"}
	if len(order) != len(want) {
		t.Fatalf("order: %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order: %v, want %v", order, want)
		}
	}
}

func TestPublishNilIsNoop(t *testing.T) {
	bus := NewBus()
	fired := false
	bus.Tap(func(Event) { fired = true })
	bus.Publish(nil)
	if fired {
		t.Fatalf("nil event dispatched")
	}
}

func TestKindNames(t *testing.T) {
	if KindCardNeeded.String() != "card_needed" {
		t.Fatalf("got %q", KindCardNeeded.String())
	}
	if Kind(99).String() != "unknown" {
		t.Fatalf("got %q", Kind(99).String())
	}
}
