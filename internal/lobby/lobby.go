// Package lobby runs one goroutine per room. The goroutine owns the roster,
// the host and the game machine; everything else talks to it through Msg
// values on its inbox.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/doodlewhat-backend/internal/engine"
	"github.com/DoyleJ11/doodlewhat-backend/internal/logging"
	"github.com/DoyleJ11/doodlewhat-backend/internal/results"
	"github.com/DoyleJ11/doodlewhat-backend/internal/stroke"
	"github.com/DoyleJ11/doodlewhat-backend/pkg/protocol"
)

const (
	inboxSize     = 64
	recordTimeout = 5 * time.Second

	DefaultEmptyTimeout = 30 * time.Second
)

// Recorder archives finished games. results.Service implements it.
type Recorder interface {
	Record(ctx context.Context, r results.GameResult) error
}

type Options struct {
	Rules  engine.Rules
	Words  engine.Dictionary
	Scorer engine.Scorer
	Ticker TickerFunc
	// Optional.
	Recorder Recorder
	// How long a new lobby waits for its first join before stopping.
	EmptyTimeout time.Duration
	// Called from the lobby goroutine once the loop has stopped.
	OnStop func(*Lobby)
}

type member struct {
	Participant
	outbox  chan protocol.Envelope
	dropped bool
}

type Lobby struct {
	code    string
	inbox   chan Msg
	done    chan struct{}
	opts    Options
	machine *engine.Machine
	log     *zap.SugaredLogger

	members []*member // join order
	hostID  string
	nextSeq int
	pending []string // members whose outbox overflowed

	ticker Ticker
	tick   <-chan time.Time

	// Of the current or last game, for the final game-ended and the archive.
	rounds   int
	drawerID string
	lastWord string

	ctx    context.Context
	cancel context.CancelFunc
}

func NewLobby(parent context.Context, code string, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if opts.Ticker == nil {
		opts.Ticker = NewTicker
	}
	if opts.EmptyTimeout <= 0 {
		opts.EmptyTimeout = DefaultEmptyTimeout
	}
	if opts.Rules == (engine.Rules{}) {
		opts.Rules = engine.DefaultRules()
	}

	l := &Lobby{
		code:    code,
		inbox:   make(chan Msg, inboxSize),
		done:    make(chan struct{}),
		opts:    opts,
		machine: engine.NewMachine(opts.Rules, opts.Words, opts.Scorer),
		log:     logging.FromContext(parent).Named("lobby").With("room", code),
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) Code() string { return l.code }

// Inbox exposes the raw inbox. Prefer Send, which cannot block on a
// stopped lobby.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has stopped and will read no more messages.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Send delivers m unless the lobby has stopped or ctx ends first.
func (l *Lobby) Send(ctx context.Context, m Msg) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.inbox <- m:
		return true
	case <-l.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// State asks the loop for a View.
func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if !l.Send(ctx, GetState{Reply: reply}) {
		return View{}, errors.New("lobby stopped")
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		return View{}, errors.New("lobby stopped")
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (l *Lobby) loop() {
	defer l.shutdown()

	empty := time.NewTimer(l.opts.EmptyTimeout)
	defer empty.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return

		case <-empty.C:
			if l.nextSeq == 0 {
				l.log.Debug("nobody joined")
				return
			}

		case <-l.tick:
			_ = l.apply(engine.Command{Type: engine.CmdTick})

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.join(msg)
			case Leave:
				l.remove(msg.ConnID)
			case StartGame:
				l.startGame(msg)
			case Draw:
				l.draw(msg)
			case Clear:
				l.clear(msg.ConnID)
			case Chat:
				l.chat(msg)
			case GetState:
				msg.Reply <- l.view()
			case Shutdown:
				return
			}
		}

		l.flushDropped()
		if len(l.members) == 0 && l.nextSeq > 0 {
			l.log.Debug("last participant left")
			return
		}
	}
}

func (l *Lobby) shutdown() {
	l.stopTicker()
	for _, m := range l.members {
		close(m.outbox)
	}
	l.members = nil
	close(l.done)
	l.cancel()
	if l.opts.OnStop != nil {
		l.opts.OnStop(l)
	}
}

func (l *Lobby) join(msg Join) {
	if l.find(msg.ConnID) != nil {
		l.log.Warnw("duplicate join", "conn", msg.ConnID)
		return
	}

	l.nextSeq++
	m := &member{
		Participant: Participant{ID: msg.ConnID, Name: msg.Name, Seq: l.nextSeq},
		outbox:      msg.Outbox,
	}
	l.members = append(l.members, m)
	if l.hostID == "" {
		l.hostID = m.ID
	}
	l.log.Infow("participant joined", "conn", m.ID, "name", m.Name, "members", len(l.members))

	l.send(m, protocol.EvtWelcome, protocol.Welcome{ID: m.ID, Name: m.Name, RoomID: l.code})
	if m.ID == l.hostID {
		l.send(m, protocol.EvtSetHost, nil)
	}
	l.broadcastRoster()
	l.broadcastExcept(m.ID, protocol.EvtUserJoined, m.Name)
	l.catchUp(m)

	if msg.Reply != nil {
		msg.Reply <- l.participant(m)
	}
}

// catchUp brings a late joiner into the running round.
func (l *Lobby) catchUp(m *member) {
	g := l.machine.Game()
	if g == nil || g.Phase != engine.PhaseDrawing {
		return
	}
	l.send(m, protocol.EvtGameStarted, l.gameStarted(g.DrawerID, g.Hint, "", g.RoundsRemaining, g.TimerRemaining))
	l.send(m, protocol.EvtTimer, g.TimerRemaining)
}

func (l *Lobby) remove(id string) {
	idx := slices.IndexFunc(l.members, func(m *member) bool { return m.ID == id })
	if idx < 0 {
		return
	}
	m := l.members[idx]
	l.members = slices.Delete(l.members, idx, idx+1)
	close(m.outbox)
	l.log.Infow("participant left", "conn", m.ID, "name", m.Name, "members", len(l.members))

	if id == l.hostID {
		l.hostID = ""
		if len(l.members) > 0 {
			next := l.members[0]
			l.hostID = next.ID
			l.log.Infow("host reassigned", "conn", next.ID)
			l.send(next, protocol.EvtSetHost, nil)
		}
	}

	_ = l.apply(engine.Command{Type: engine.CmdLeave, By: id})
	l.broadcastRoster()
	l.broadcast(protocol.EvtUserLeft, m.Name)
}

func (l *Lobby) startGame(msg StartGame) {
	m := l.find(msg.ConnID)
	if m == nil {
		return
	}
	if msg.ConnID != l.hostID {
		l.log.Debugw("start from non-host ignored", "conn", msg.ConnID)
		return
	}
	if err := protocol.ValidateRounds(msg.Rounds); err != nil {
		l.sendError(m, err)
		return
	}

	if err := l.apply(engine.Command{Type: engine.CmdStart, By: msg.ConnID, Rounds: msg.Rounds}); err != nil {
		l.sendError(m, err)
	}
}

func (l *Lobby) draw(msg Draw) {
	if !l.machine.CanDraw(msg.ConnID) {
		l.log.Debugw("draw from non-drawer ignored", "conn", msg.ConnID)
		return
	}
	d := msg.Segment
	seg := stroke.Segment{X0: d.X0, Y0: d.Y0, X1: d.X1, Y1: d.Y1, Color: d.Color, Width: d.Size}
	if err := seg.Valid(); err != nil {
		l.log.Debugw("invalid segment dropped", "conn", msg.ConnID, "err", err)
		return
	}
	d.Room = l.code
	l.broadcastExcept(msg.ConnID, protocol.EvtDrawing, d)
}

func (l *Lobby) clear(id string) {
	if l.find(id) == nil {
		return
	}
	if l.machine.Active() && !l.machine.CanDraw(id) {
		l.log.Debugw("clear from non-drawer ignored", "conn", id)
		return
	}
	l.broadcast(protocol.EvtClear, l.code)
}

func (l *Lobby) chat(msg Chat) {
	m := l.find(msg.ConnID)
	if m == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	if l.machine.Phase() == engine.PhaseDrawing {
		_ = l.apply(engine.Command{Type: engine.CmdGuess, By: msg.ConnID, Text: msg.Text})
		return
	}
	l.broadcast(protocol.EvtReceiveMessage, protocol.ChatMessage{Room: l.code, Message: msg.Text, Name: m.Name})
}

// apply runs cmd through the machine and publishes the resulting events.
func (l *Lobby) apply(cmd engine.Command) error {
	events, err := l.machine.Apply(l.seats(), cmd)
	if err != nil {
		l.log.Debugw("command rejected", "cmd", cmd.Type, "conn", cmd.By, "err", err)
		return err
	}

	rosterChanged := false
	for _, e := range events {
		switch e.Type {
		case engine.EvtGameStarted:
			l.log.Infow("game started", "rounds", e.RoundsLeft)
			l.rounds = e.RoundsLeft
			l.startTicker()

		case engine.EvtScoresReset:
			for _, m := range l.members {
				m.Score = 0
			}
			rosterChanged = true

		case engine.EvtRoundStarted:
			l.drawerID = e.ParticipantID
			l.broadcast(protocol.EvtClear, l.code)
			for _, m := range l.members {
				word := ""
				if m.ID == e.ParticipantID {
					word = e.Word
				}
				l.send(m, protocol.EvtGameStarted, l.gameStarted(e.ParticipantID, e.Hint, word, e.RoundsLeft, e.Seconds))
				if word != "" {
					l.send(m, protocol.EvtYourWord, word)
				}
			}

		case engine.EvtTimerTicked:
			l.broadcast(protocol.EvtTimer, e.Seconds)

		case engine.EvtHintUpdated:
			l.broadcastExcept(l.drawerID, protocol.EvtHint, protocol.Hint{Hint: e.Hint})

		case engine.EvtCorrectGuess:
			l.broadcast(protocol.EvtCorrectGuess, protocol.CorrectGuess{Guesser: l.nameOf(e.ParticipantID)})

		case engine.EvtScoreAwarded:
			if m := l.find(e.ParticipantID); m != nil {
				m.Score += e.Points
				rosterChanged = true
			}

		case engine.EvtChatRelayed:
			l.broadcast(protocol.EvtReceiveMessage, protocol.ChatMessage{
				Room:    l.code,
				Message: e.Text,
				Name:    l.nameOf(e.ParticipantID),
			})

		case engine.EvtRoundEnded:
			// Scores must be on the roster before any end notice.
			if rosterChanged {
				l.broadcastRoster()
				rosterChanged = false
			}
			l.broadcast(protocol.EvtGameEnded, protocol.GameEnded{
				Message: fmt.Sprintf("Round over (%s). The word was %q.", e.Reason, e.Word),
				Reason:  e.Reason,
				Word:    e.Word,
			})
			l.lastWord = e.Word

		case engine.EvtGameEnded:
			l.stopTicker()
			if rosterChanged {
				l.broadcastRoster()
				rosterChanged = false
			}
			l.broadcast(protocol.EvtGameEnded, protocol.GameEnded{
				Message:  gameOverMessage(e.Winners, e.TopScore),
				Word:     l.lastWord,
				Final:    true,
				Winners:  e.Winners,
				TopScore: e.TopScore,
			})
			l.record(e)
		}
	}

	if rosterChanged {
		l.broadcastRoster()
	}
	return nil
}
