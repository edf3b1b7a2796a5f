package bridge

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownSeat = errors.New("bridge: unknown seat")

// Seat identifies one of the four table positions, in play order.
type Seat int

const (
	North Seat = iota
	East
	South
	West
)

const NumSeats = 4

var seatNames = [NumSeats]string{"North", "East", "South", "West"}

func (s Seat) String() string {
	if s < North || s > West {
		return fmt.Sprintf("Seat(%d)", int(s))
	}
	return seatNames[s]
}

// ParseSeat accepts a seat name case-insensitively.
func ParseSeat(name string) (Seat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "north", "n":
		return North, nil
	case "east", "e":
		return East, nil
	case "south", "s":
		return South, nil
	case "west", "w":
		return West, nil
	}
	return North, fmt.Errorf("%w: %q", ErrUnknownSeat, name)
}

// Next returns the seat to this seat's left, in play order.
func (s Seat) Next() Seat {
	return (s + 1) % NumSeats
}

// Previous returns the seat to this seat's right.
func (s Seat) Previous() Seat {
	return (s + 3) % NumSeats
}

func (s Seat) Partner() Seat {
	return (s + 2) % NumSeats
}

// Rotated returns the seat shifted by steps positions in play order.
// Negative steps rotate backwards.
func (s Seat) Rotated(steps int) Seat {
	n := (int(s) + steps) % NumSeats
	if n < 0 {
		n += NumSeats
	}
	return Seat(n)
}

func (s Seat) Direction() Direction {
	if s == North || s == South {
		return NorthSouth
	}
	return EastWest
}

// Seats lists all seats in play order.
func Seats() [NumSeats]Seat {
	return [NumSeats]Seat{North, East, South, West}
}

// Direction groups the two partnerships.
type Direction int

const (
	NorthSouth Direction = iota
	EastWest
)

func (d Direction) String() string {
	if d == NorthSouth {
		return "N/S"
	}
	return "E/W"
}

func (d Direction) Other() Direction {
	if d == NorthSouth {
		return EastWest
	}
	return NorthSouth
}

// Directions lists both partnerships, N/S first.
func Directions() [2]Direction {
	return [2]Direction{NorthSouth, EastWest}
}

// SeatMap is a fixed-size seat-indexed table. The zero value is ready to
// use; indices are validated by construction of Seat itself.
type SeatMap[T any] struct {
	vals [NumSeats]T
}

func (m *SeatMap[T]) Get(s Seat) T {
	return m.vals[s.Rotated(0)]
}

func (m *SeatMap[T]) Set(s Seat, v T) {
	m.vals[s.Rotated(0)] = v
}

// At returns a pointer to the slot for in-place mutation.
func (m *SeatMap[T]) At(s Seat) *T {
	return &m.vals[s.Rotated(0)]
}
