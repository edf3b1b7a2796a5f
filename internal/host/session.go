package host

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/bridgectl/internal/bridge"
	"github.com/danmuck/bridgectl/internal/events"
	"github.com/danmuck/bridgectl/internal/observability"
	"github.com/danmuck/bridgectl/internal/protocol"
	"github.com/danmuck/bridgectl/internal/transport"
)

// handshakeTimeout bounds how long a fresh connection may sit silent
// before the host drops it.
const handshakeTimeout = 30 * time.Second

// seatSession is one seated client: the reconnectable link plus the
// host-side inbound queue of timestamped lines.
type seatSession struct {
	physical bridge.Seat
	team     string
	features protocol.Features
	link     *transport.Link
	lines    chan protocol.TimedLine
}

// AcceptConn performs the seating handshake on a fresh connection. A
// refused handshake keeps the connection open so the client can retry
// with a corrected line; only an unsupported version hangs up.
func (h *Host) AcceptConn(conn transport.Conn) {
	for {
		line, ok := awaitHandshake(conn)
		if !ok {
			_ = conn.Close()
			return
		}

		connecting, err := protocol.ParseConnecting(line)
		if err != nil {
			var illegal *protocol.IllegalSeatError
			if errors.As(err, &illegal) {
				refuse(conn, protocol.RenderIllegalSeat(illegal.Name))
				continue
			}
			refuse(conn, fmt.Sprintf("Unexpected '%s' received; expected 'Connecting'", line))
			continue
		}
		if err := connecting.CheckVersion(); err != nil {
			refuse(conn, fmt.Sprintf("Unsupported protocol version %d", connecting.Version))
			_ = conn.Close()
			return
		}

		if h.seat(conn, connecting) {
			return
		}
	}
}

// seat validates the team binding and either seats a new client,
// reattaches a reconnecting one, or refuses. A refusal returns false so
// the handshake loop keeps listening.
func (h *Host) seat(conn transport.Conn, connecting protocol.Connecting) bool {
	seat := connecting.Seat
	dir := seat.Direction()

	h.mu.Lock()
	if existing := h.sessions.Get(seat); existing != nil {
		if existing.link.State() == transport.LinkReconnecting && existing.team == connecting.Team {
			h.mu.Unlock()
			h.reattach(existing, conn)
			return true
		}
		h.mu.Unlock()
		refuse(conn, "Seat already taken")
		return false
	}

	if want, bound := h.teams[dir]; bound && want != connecting.Team {
		h.mu.Unlock()
		refuse(conn, "Team name must match partner's")
		return false
	}
	if other, bound := h.teams[dir.Other()]; bound && other == connecting.Team {
		h.mu.Unlock()
		refuse(conn, "Team name must differ from opponents'")
		return false
	}

	sess := &seatSession{
		physical: seat,
		team:     connecting.Team,
		features: connecting.Features(),
		lines:    make(chan protocol.TimedLine, 16),
	}
	sess.link = transport.NewLink(conn, func(s transport.LinkState) {
		if s == transport.LinkReconnecting {
			observability.RecordReconnect(seat.String())
			h.publish(events.SeatDisconnected{Seat: seat, Reason: "connection lost"})
		}
	})
	h.sessions.Set(seat, sess)
	h.teams[dir] = connecting.Team
	h.seated++
	seated := h.seated
	h.mu.Unlock()

	go h.pumpSession(sess)

	if err := conn.Send(protocol.RenderSeated(seat, connecting.Team)); err != nil {
		h.log.Warn().Err(err).Str("seat", seat.String()).Msg("seating confirmation failed")
		return true
	}
	h.log.Info().
		Str("seat", seat.String()).
		Str("team", connecting.Team).
		Int("version", connecting.Version).
		Str("system", connecting.SystemInfo).
		Msg("client seated")
	h.publish(events.Seated{Seat: seat, Team: connecting.Team})
	h.publish(events.ReadyForTeams{Seat: seat})

	if seated == bridge.NumSeats {
		h.seatedOnce.Do(func() { close(h.allSeated) })
	}
	return true
}

// reattach resumes a dropped seat on a fresh physical connection; the
// seating confirmation is repeated so the client can resynchronize.
func (h *Host) reattach(sess *seatSession, conn transport.Conn) {
	if err := sess.link.Attach(conn); err != nil {
		refuse(conn, "Seat already taken")
		return
	}
	if err := conn.Send(protocol.RenderSeated(sess.physical, sess.team)); err != nil {
		h.log.Warn().Err(err).Str("seat", sess.physical.String()).Msg("reseat confirmation failed")
		return
	}
	h.log.Info().Str("seat", sess.physical.String()).Msg("client reattached")
	h.publish(events.Seated{Seat: sess.physical, Team: sess.team})
}

// pumpSession stamps inbound lines and queues them for the orchestrator.
func (h *Host) pumpSession(sess *seatSession) {
	for {
		select {
		case <-sess.link.Done():
			return
		case line := <-sess.link.Lines():
			observability.RecordWireLine(sess.physical.String(), "in")
			select {
			case sess.lines <- protocol.TimedLine{Text: line, At: time.Now()}:
			case <-sess.link.Done():
				return
			}
		}
	}
}

func awaitHandshake(conn transport.Conn) (string, bool) {
	select {
	case line, ok := <-conn.Lines():
		return line, ok
	case <-time.After(handshakeTimeout):
		return "", false
	}
}

// refuse reports the reason and leaves the connection open; the caller
// decides whether the failure is retryable.
func refuse(conn transport.Conn, reason string) {
	_ = conn.Send(reason)
}
