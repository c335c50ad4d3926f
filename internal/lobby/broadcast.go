package lobby

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/doodlewhat-backend/internal/engine"
	"github.com/DoyleJ11/doodlewhat-backend/internal/results"
	"github.com/DoyleJ11/doodlewhat-backend/pkg/protocol"
)

// send never blocks. A member whose outbox is full is queued for removal;
// the transport is too slow to keep up with the room.
func (l *Lobby) send(m *member, event protocol.Event, payload any) {
	if m.dropped {
		return
	}
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		l.log.Errorw("encode event", "event", event, "err", err)
		return
	}
	select {
	case m.outbox <- env:
	default:
		l.log.Warnw("outbox full, dropping participant", "conn", m.ID)
		m.dropped = true
		l.pending = append(l.pending, m.ID)
	}
}

func (l *Lobby) broadcast(event protocol.Event, payload any) {
	l.broadcastExcept("", event, payload)
}

func (l *Lobby) broadcastExcept(skipID string, event protocol.Event, payload any) {
	for _, m := range l.members {
		if m.ID != skipID {
			l.send(m, event, payload)
		}
	}
}

// broadcastRoster sends the whole roster; clients never receive diffs.
func (l *Lobby) broadcastRoster() {
	users := make([]protocol.User, 0, len(l.members))
	for _, m := range l.members {
		users = append(users, protocol.User{ID: m.ID, Name: m.Name, Score: m.Score, IsHost: m.ID == l.hostID})
	}
	l.broadcast(protocol.EvtUserList, users)
}

func (l *Lobby) sendError(m *member, err error) {
	l.send(m, protocol.EvtError, protocol.Error{Message: err.Error()})
}

// flushDropped removes members whose outbox overflowed. Removing one can
// overflow another, hence the loop.
func (l *Lobby) flushDropped() {
	for len(l.pending) > 0 {
		id := l.pending[0]
		l.pending = l.pending[1:]
		l.remove(id)
	}
}

func (l *Lobby) find(id string) *member {
	for _, m := range l.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (l *Lobby) nameOf(id string) string {
	if m := l.find(id); m != nil {
		return m.Name
	}
	return ""
}

func (l *Lobby) participant(m *member) Participant {
	p := m.Participant
	p.IsHost = m.ID == l.hostID
	return p
}

func (l *Lobby) view() View {
	v := View{Code: l.code, HostID: l.hostID, Game: l.machine.Game()}
	for _, m := range l.members {
		v.Participants = append(v.Participants, l.participant(m))
	}
	return v
}

// seats lists connected members in join order for the machine.
func (l *Lobby) seats() []engine.Seat {
	out := make([]engine.Seat, 0, len(l.members))
	for _, m := range l.members {
		if m.dropped {
			continue
		}
		out = append(out, engine.Seat{ID: m.ID, Name: m.Name, Seq: m.Seq, Score: m.Score})
	}
	return out
}

func (l *Lobby) gameStarted(drawerID, hint, word string, roundsLeft, seconds int) protocol.GameStarted {
	return protocol.GameStarted{
		DrawerID:   drawerID,
		DrawerName: l.nameOf(drawerID),
		WordHint:   hint,
		RoundsLeft: roundsLeft,
		RealWord:   word,
		Seconds:    seconds,
	}
}

func gameOverMessage(winners []string, top int) string {
	switch len(winners) {
	case 0:
		return "Game over!"
	case 1:
		return fmt.Sprintf("Game over! %s wins with %d points.", winners[0], top)
	default:
		return fmt.Sprintf("Game over! It's a tie between %s with %d points.", strings.Join(winners, ", "), top)
	}
}

func (l *Lobby) startTicker() {
	l.stopTicker()
	l.ticker = l.opts.Ticker(time.Second)
	l.tick = l.ticker.C()
}

func (l *Lobby) stopTicker() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
	l.ticker = nil
	l.tick = nil
}

// record archives a finished game off the loop goroutine. Failures are
// only logged.
func (l *Lobby) record(e engine.Event) {
	if l.opts.Recorder == nil || len(l.members) == 0 {
		return
	}
	r := results.GameResult{
		RoomCode:   l.code,
		Rounds:     l.rounds,
		Winners:    e.Winners,
		TopScore:   e.TopScore,
		Scores:     make(map[string]int, len(l.members)),
		FinishedAt: time.Now().UTC(),
	}
	for _, m := range l.members {
		r.Scores[m.Name] = m.Score
	}

	rec, log := l.opts.Recorder, l.log
	ctx := context.WithoutCancel(l.ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, recordTimeout)
		defer cancel()
		if err := rec.Record(ctx, r); err != nil {
			log.Warnw("record game result", "err", err)
		}
	}()
}
