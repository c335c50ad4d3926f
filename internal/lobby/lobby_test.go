package lobby

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/doodlewhat-backend/internal/engine"
	"github.com/DoyleJ11/doodlewhat-backend/internal/results"
	"github.com/DoyleJ11/doodlewhat-backend/pkg/protocol"
)

type fixedWord string

func (w fixedWord) Pick() string { return string(w) }

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) last(t *testing.T) *fakeTicker {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.tickers, "no ticker started")
	return c.tickers[len(c.tickers)-1]
}

type recorder struct{ got chan results.GameResult }

func (r *recorder) Record(_ context.Context, g results.GameResult) error {
	r.got <- g
	return nil
}

type client struct {
	id  string
	out chan protocol.Envelope
}

// drain returns everything currently buffered for the client.
func (c *client) drain() []protocol.Envelope {
	var envs []protocol.Envelope
	for {
		select {
		case env, ok := <-c.out:
			if !ok {
				return envs
			}
			envs = append(envs, env)
		default:
			return envs
		}
	}
}

func events(envs []protocol.Envelope) []protocol.Event {
	out := make([]protocol.Event, len(envs))
	for i, e := range envs {
		out[i] = e.Event
	}
	return out
}

func find(t *testing.T, envs []protocol.Envelope, event protocol.Event, v any) bool {
	t.Helper()
	for _, e := range envs {
		if e.Event == event {
			if v != nil {
				require.NoError(t, e.Decode(v))
			}
			return true
		}
	}
	return false
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	l     *Lobby
	clock *fakeClock
	rec   *recorder
}

func newHarness(t *testing.T, rules engine.Rules) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &harness{t: t, ctx: ctx, clock: &fakeClock{}, rec: &recorder{got: make(chan results.GameResult, 4)}}
	h.l = NewLobby(ctx, "AB12CD", Options{
		Rules:    rules,
		Words:    fixedWord("cat"),
		Ticker:   h.clock.NewTicker,
		Recorder: h.rec,
	})
	return h
}

func (h *harness) join(id, name string, outboxSize int) *client {
	h.t.Helper()
	c := &client{id: id, out: make(chan protocol.Envelope, outboxSize)}
	reply := make(chan Participant, 1)
	require.True(h.t, h.l.Send(h.ctx, Join{ConnID: id, Name: name, Outbox: c.out, Reply: reply}))
	select {
	case <-reply:
	case <-time.After(time.Second):
		h.t.Fatalf("join %s timed out", name)
	}
	return c
}

func (h *harness) send(m Msg) {
	h.t.Helper()
	require.True(h.t, h.l.Send(h.ctx, m))
}

// state doubles as a barrier: every earlier message has been handled once
// it returns.
func (h *harness) state() View {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(h.ctx, time.Second)
	defer cancel()
	v, err := h.l.State(ctx)
	require.NoError(h.t, err)
	return v
}

func (h *harness) tick(n int) {
	h.t.Helper()
	for i := 0; i < n; i++ {
		select {
		case h.clock.last(h.t).ch <- time.Now():
		case <-time.After(time.Second):
			h.t.Fatalf("tick %d not consumed", i)
		}
	}
	h.state()
}

func TestLobby_JoinAssignsHostAndBroadcastsRoster(t *testing.T) {
	h := newHarness(t, engine.DefaultRules())

	alice := h.join("a", "Alice", 16)
	got := alice.drain()
	assert.Equal(t, []protocol.Event{protocol.EvtWelcome, protocol.EvtSetHost, protocol.EvtUserList}, events(got))

	var welcome protocol.Welcome
	require.True(t, find(t, got, protocol.EvtWelcome, &welcome))
	assert.Equal(t, protocol.Welcome{ID: "a", Name: "Alice", RoomID: "AB12CD"}, welcome)

	bob := h.join("b", "Bob", 16)
	assert.Equal(t, []protocol.Event{protocol.EvtWelcome, protocol.EvtUserList}, events(bob.drain()))

	got = alice.drain()
	assert.Equal(t, []protocol.Event{protocol.EvtUserList, protocol.EvtUserJoined}, events(got))
	var users []protocol.User
	require.True(t, find(t, got, protocol.EvtUserList, &users))
	assert.Equal(t, []protocol.User{
		{ID: "a", Name: "Alice", IsHost: true},
		{ID: "b", Name: "Bob"},
	}, users)

	v := h.state()
	assert.Equal(t, "a", v.HostID)
	assert.Len(t, v.Participants, 2)
}

func TestLobby_NonHostStartIgnored(t *testing.T) {
	h := newHarness(t, engine.DefaultRules())
	h.join("a", "Alice", 16)
	bob := h.join("b", "Bob", 16)
	bob.drain()

	h.send(StartGame{ConnID: "b", Rounds: 2})
	v := h.state()

	assert.Nil(t, v.Game)
	assert.Empty(t, bob.drain())
}

func TestLobby_InvalidRoundsErrorsRequesterOnly(t *testing.T) {
	h := newHarness(t, engine.DefaultRules())
	alice := h.join("a", "Alice", 16)
	bob := h.join("b", "Bob", 16)
	alice.drain()
	bob.drain()

	h.send(StartGame{ConnID: "a", Rounds: 0})
	h.state()

	var perr protocol.Error
	require.True(t, find(t, alice.drain(), protocol.EvtError, &perr))
	assert.Equal(t, protocol.ErrInvalidRounds.Error(), perr.Message)
	assert.Empty(t, bob.drain())
}

func TestLobby_StartSendsWordToDrawerOnly(t *testing.T) {
	h := newHarness(t, engine.DefaultRules())
	alice := h.join("a", "Alice", 16)
	bob := h.join("b", "Bob", 16)
	alice.drain()
	bob.drain()

	h.send(StartGame{ConnID: "a", Rounds: 2})
	v := h.state()
	require.NotNil(t, v.Game)
	assert.Equal(t, engine.PhaseDrawing, v.Game.Phase)
	assert.Equal(t, "a", v.Game.DrawerID)

	aliceGot := alice.drain()
	var gs protocol.GameStarted
	require.True(t, find(t, aliceGot, protocol.EvtGameStarted, &gs))
	assert.Equal(t, "cat", gs.RealWord)
	assert.Equal(t, "Alice", gs.DrawerName)
	var word string
	require.True(t, find(t, aliceGot, protocol.EvtYourWord, &word))
	assert.Equal(t, "cat", word)

	bobGot := bob.drain()
	gs = protocol.GameStarted{}
	require.True(t, find(t, bobGot, protocol.EvtGameStarted, &gs))
	assert.Empty(t, gs.RealWord)
	assert.Equal(t, "_ _ _", gs.WordHint)
	assert.Equal(t, 2, gs.RoundsLeft)
	assert.True(t, find(t, bobGot, protocol.EvtClear, nil))
	assert.False(t, find(t, bobGot, protocol.EvtYourWord, nil))

	h.send(StartGame{ConnID: "a", Rounds: 3})
	h.state()
	var perr protocol.Error
	require.True(t, find(t, alice.drain(), protocol.EvtError, &perr))
	assert.Equal(t, engine.ErrGameInProgress.Error(), perr.Message)
}

func TestLobby_DrawOnlyFromDrawerNotEchoed(t *testing.T) {
	h := newHarness(t, engine.DefaultRules())
	alice := h.join("a", "Alice", 16)
	bob := h.join("b", "Bob", 16)

	seg := protocol.Drawing{X0: 1, Y0: 1, X1: 10, Y1: 10, Color: "#000000", Size: 4}

	// nobody draws while idle
	h.send(Draw{ConnID: "a", Segment: seg})
	h.send(StartGame{ConnID: "a", Rounds: 1})
	h.state()
	alice.drain()
	bob.drain()

	h.send(Draw{ConnID: "b", Segment: seg})
	h.state()
	assert.Empty(t, alice.drain(), "non-drawer segment must not be relayed")

	h.send(Draw{ConnID: "a", Segment: seg})
	h.state()
	assert.Empty(t, alice.drain(), "segment must not echo to its sender")

	var relayed protocol.Drawing
	require.True(t, find(t, bob.drain(), protocol.EvtDrawing, &relayed))
	seg.Room = "AB12CD"
	assert.Equal(t, seg, relayed)

	h.send(Draw{ConnID: "a", Segment: protocol.Drawing{X1: 5, Y1: 5, Color: "red?", Size: 4}})
	h.state()
	assert.Empty(t, bob.drain(), "invalid segment must be dropped")
}

func TestLobby_ClearPermissions(t *testing.T) {
	h := newHarness(t, engine.DefaultRules())
	alice := h.join("a", "Alice", 16)
	bob := h.join("b", "Bob", 16)
	alice.drain()

	h.send(Clear{ConnID: "b"})
	h.state()
	assert.True(t, find(t, alice.drain(), protocol.EvtClear, nil), "anyone may clear while idle")

	h.send(StartGame{ConnID: "a", Rounds: 1})
	h.state()
	alice.drain()
	bob.drain()

	h.send(Clear{ConnID: "b"})
	h.state()
	assert.Empty(t, alice.drain())

	h.send(Clear{ConnID: "a"})
	h.state()
	assert.True(t, find(t, bob.drain(), protocol.EvtClear, nil))
}

func TestLobby_CorrectGuessEndsGameAndRecords(t *testing.T) {
	h := newHarness(t, engine.Rules{RoundSeconds: 30})
	alice := h.join("a", "Alice", 32)
	bob := h.join("b", "Bob", 32)

	h.send(StartGame{ConnID: "a", Rounds: 1})
	h.state()
	alice.drain()
	bob.drain()

	h.send(Chat{ConnID: "b", Text: "dog"})
	h.state()
	var msg protocol.ChatMessage
	require.True(t, find(t, alice.drain(), protocol.EvtReceiveMessage, &msg))
	assert.Equal(t, protocol.ChatMessage{Room: "AB12CD", Message: "dog", Name: "Bob"}, msg)
	bob.drain()

	h.send(Chat{ConnID: "b", Text: " CaT "})
	v := h.state()
	assert.Nil(t, v.Game, "single round with everyone guessed ends the game")

	got := alice.drain()
	var cg protocol.CorrectGuess
	require.True(t, find(t, got, protocol.EvtCorrectGuess, &cg))
	assert.Equal(t, "Bob", cg.Guesser)
	assert.False(t, find(t, got, protocol.EvtReceiveMessage, nil), "correct guess must not leak as chat")

	var ends []protocol.GameEnded
	for _, e := range got {
		if e.Event == protocol.EvtGameEnded {
			var ge protocol.GameEnded
			require.NoError(t, e.Decode(&ge))
			ends = append(ends, ge)
		}
	}
	require.Len(t, ends, 2)
	assert.False(t, ends[0].Final)
	assert.Equal(t, engine.ReasonAllGuessed, ends[0].Reason)
	assert.True(t, ends[1].Final)
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, ends[1].Winners)
	assert.Equal(t, "cat", ends[1].Word)

	select {
	case r := <-h.rec.got:
		assert.Equal(t, "AB12CD", r.RoomCode)
		assert.Equal(t, 1, r.Rounds)
		assert.Equal(t, ends[1].TopScore, r.TopScore)
		assert.Equal(t, r.TopScore, r.Scores["Bob"])
	case <-time.After(time.Second):
		t.Fatal("result not recorded")
	}
	assert.True(t, h.clock.last(t).stopped.Load(), "ticker must stop at game end")
}

func TestLobby_TimerExpiryEndsRound(t *testing.T) {
	h := newHarness(t, engine.Rules{RoundSeconds: 3, IntermissionSeconds: 1})
	alice := h.join("a", "Alice", 64)
	bob := h.join("b", "Bob", 64)

	h.send(StartGame{ConnID: "a", Rounds: 2})
	h.state()
	alice.drain()
	bob.drain()

	h.tick(3)
	got := bob.drain()
	var timers []int
	for _, e := range got {
		if e.Event == protocol.EvtTimer {
			var s int
			require.NoError(t, e.Decode(&s))
			timers = append(timers, s)
		}
	}
	assert.Equal(t, []int{2, 1, 0}, timers)

	var ge protocol.GameEnded
	require.True(t, find(t, got, protocol.EvtGameEnded, &ge))
	assert.Equal(t, engine.ReasonTimeExpired, ge.Reason)
	assert.False(t, ge.Final)
	assert.Equal(t, engine.PhaseRoundEnded, h.state().Game.Phase)

	h.tick(1)
	v := h.state()
	assert.Equal(t, engine.PhaseDrawing, v.Game.Phase)
	assert.Equal(t, "b", v.Game.DrawerID)

	var word string
	assert.True(t, find(t, bob.drain(), protocol.EvtYourWord, &word))
	assert.False(t, find(t, alice.drain(), protocol.EvtYourWord, nil))
}

func TestLobby_HostFailover(t *testing.T) {
	h := newHarness(t, engine.DefaultRules())
	h.join("a", "Alice", 16)
	bob := h.join("b", "Bob", 16)
	carol := h.join("c", "Carol", 16)
	bob.drain()
	carol.drain()

	h.send(Leave{ConnID: "a"})
	v := h.state()

	assert.Equal(t, "b", v.HostID)
	got := bob.drain()
	assert.True(t, find(t, got, protocol.EvtSetHost, nil))
	var name string
	require.True(t, find(t, got, protocol.EvtUserLeft, &name))
	assert.Equal(t, "Alice", name)
	assert.False(t, find(t, carol.drain(), protocol.EvtSetHost, nil))

	// unknown ids are a no-op
	h.send(Leave{ConnID: "zzz"})
	assert.Len(t, h.state().Participants, 2)
}

func TestLobby_DrawerLeavingAdvancesRound(t *testing.T) {
	h := newHarness(t, engine.Rules{RoundSeconds: 30})
	h.join("a", "Alice", 64)
	h.join("b", "Bob", 64)
	h.join("c", "Carol", 64)

	h.send(StartGame{ConnID: "a", Rounds: 3})
	h.state()
	h.send(Leave{ConnID: "a"})
	v := h.state()

	require.NotNil(t, v.Game)
	assert.Equal(t, "b", v.Game.DrawerID)
	assert.Equal(t, 2, v.Game.RoundsRemaining)
}

func TestLobby_LateJoinerCatchesUp(t *testing.T) {
	h := newHarness(t, engine.DefaultRules())
	h.join("a", "Alice", 16)
	h.send(StartGame{ConnID: "a", Rounds: 1})
	h.state()

	bob := h.join("b", "Bob", 16)
	got := bob.drain()
	var gs protocol.GameStarted
	require.True(t, find(t, got, protocol.EvtGameStarted, &gs))
	assert.Equal(t, "a", gs.DrawerID)
	assert.Empty(t, gs.RealWord)
	assert.True(t, find(t, got, protocol.EvtTimer, nil))
}

func TestLobby_SlowConsumerDropped(t *testing.T) {
	h := newHarness(t, engine.DefaultRules())
	alice := h.join("a", "Alice", 64)
	slow := h.join("s", "Slow", 1)

	h.join("c", "Carol", 64)
	v := h.state()

	assert.Len(t, v.Participants, 2)
	for _, p := range v.Participants {
		assert.NotEqual(t, "s", p.ID)
	}
	// outbox is closed once drained
	for range slow.out {
	}
	var name string
	assert.True(t, find(t, alice.drain(), protocol.EvtUserLeft, &name))
	assert.Equal(t, "Slow", name)
}

func TestLobby_StopsWhenEmpty(t *testing.T) {
	stopped := make(chan *Lobby, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewLobby(ctx, "ZZ99ZZ", Options{Words: fixedWord("cat"), OnStop: func(l *Lobby) { stopped <- l }})

	out := make(chan protocol.Envelope, 16)
	require.True(t, l.Send(ctx, Join{ConnID: "a", Name: "Alice", Outbox: out}))
	require.True(t, l.Send(ctx, Leave{ConnID: "a"}))

	select {
	case got := <-stopped:
		assert.Same(t, l, got)
	case <-time.After(time.Second):
		t.Fatal("lobby did not stop")
	}
	<-l.Done()
	assert.False(t, l.Send(ctx, Leave{ConnID: "a"}))
	_, err := l.State(ctx)
	assert.Error(t, err)
}

func TestLobby_StopsWhenNobodyJoins(t *testing.T) {
	stopped := make(chan *Lobby, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewLobby(ctx, "ZZ99ZZ", Options{
		Words:        fixedWord("cat"),
		EmptyTimeout: 20 * time.Millisecond,
		OnStop:       func(l *Lobby) { stopped <- l },
	})

	select {
	case got := <-stopped:
		assert.Same(t, l, got)
	case <-time.After(time.Second):
		t.Fatal("lobby without joins did not stop")
	}
	assert.False(t, l.Send(ctx, Join{ConnID: "a", Name: "Alice", Outbox: make(chan protocol.Envelope, 1)}))
}

func TestLobby_EmptyTimeoutIgnoredAfterJoin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewLobby(ctx, "ZZ99ZZ", Options{Words: fixedWord("cat"), EmptyTimeout: 20 * time.Millisecond})

	out := make(chan protocol.Envelope, 16)
	require.True(t, l.Send(ctx, Join{ConnID: "a", Name: "Alice", Outbox: out}))

	time.Sleep(60 * time.Millisecond)
	v, err := l.State(ctx)
	require.NoError(t, err)
	assert.Len(t, v.Participants, 1)
}

func TestLobby_ShutdownClosesOutboxes(t *testing.T) {
	h := newHarness(t, engine.DefaultRules())
	alice := h.join("a", "Alice", 16)

	h.send(Shutdown{})
	<-h.l.Done()
	for range alice.out {
	}
}
