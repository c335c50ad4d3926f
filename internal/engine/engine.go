package engine

import (
	"errors"
	"slices"
)

var ErrInvalidRounds = errors.New("rounds must be at least 1")
var ErrGameInProgress = errors.New("game already in progress")
var ErrNoPlayers = errors.New("no players in room")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseStarting   Phase = "starting"
	PhaseDrawing    Phase = "drawing"
	PhaseRoundEnded Phase = "round-ended"
	PhaseGameEnded  Phase = "game-ended"
)

const (
	ReasonTimeExpired = "time expired"
	ReasonAllGuessed  = "all guessed"
	ReasonDrawerLeft  = "drawer left"
)

// Seat is the engine's view of a connected participant. Seats are passed
// ordered by Seq (join order).
type Seat struct {
	ID    string
	Name  string
	Seq   int
	Score int
}

type Rules struct {
	RoundSeconds        int
	IntermissionSeconds int
}

func DefaultRules() Rules {
	return Rules{RoundSeconds: 30, IntermissionSeconds: 3}
}

// Game exists only while a game is in progress.
type Game struct {
	Phase           Phase
	DrawerID        string
	Word            string
	Hint            string
	RoundsTotal     int
	RoundsRemaining int
	TimerRemaining  int
	Intermission    int
	CorrectGuessers []string

	drawerSeq int
	revealed  int
}

type CommandType string

const (
	CmdStart CommandType = "Start"
	CmdTick  CommandType = "Tick"
	CmdGuess CommandType = "Guess"
	CmdLeave CommandType = "Leave"
)

/*
	CmdStart -> EvtGameStarted -> EvtScoresReset -> EvtRoundStarted
	CmdTick  -> EvtTimerTicked (-> EvtHintUpdated) (-> EvtRoundEnded ...)
	         in round-ended: counts the intermission down, then EvtRoundStarted
	CmdGuess -> EvtChatRelayed, or EvtCorrectGuess -> EvtScoreAwarded... (-> EvtRoundEnded)
	CmdLeave -> EvtRoundEnded when the drawer left or everyone left has guessed
	EvtRoundEnded -> EvtGameEnded once no rounds remain
*/

type Command struct {
	Type   CommandType
	By     string
	Rounds int
	Text   string
}

type EventType string

const (
	EvtGameStarted  EventType = "GameStarted"
	EvtScoresReset  EventType = "ScoresReset"
	EvtRoundStarted EventType = "RoundStarted"
	EvtTimerTicked  EventType = "TimerTicked"
	EvtHintUpdated  EventType = "HintUpdated"
	EvtCorrectGuess EventType = "CorrectGuess"
	EvtScoreAwarded EventType = "ScoreAwarded"
	EvtChatRelayed  EventType = "ChatRelayed"
	EvtRoundEnded   EventType = "RoundEnded"
	EvtGameEnded    EventType = "GameEnded"
)

// Event is a flat record; which fields are set depends on Type.
type Event struct {
	Type          EventType
	ParticipantID string
	Word          string
	Hint          string
	Text          string
	Reason        string
	Seconds       int
	RoundsLeft    int
	Points        int
	Winners       []string
	TopScore      int
}

// Dictionary supplies secret words.
type Dictionary interface {
	Pick() string
}

// Machine is the per-room game state machine. It performs no I/O and is
// driven only by Apply; the owner serializes calls.
type Machine struct {
	rules  Rules
	words  Dictionary
	scorer Scorer
	game   *Game
}

func NewMachine(rules Rules, words Dictionary, scorer Scorer) *Machine {
	if rules.RoundSeconds <= 0 {
		rules.RoundSeconds = DefaultRules().RoundSeconds
	}
	if rules.IntermissionSeconds < 0 {
		rules.IntermissionSeconds = 0
	}
	if scorer == nil {
		scorer = DefaultScorer{}
	}
	return &Machine{rules: rules, words: words, scorer: scorer}
}

func (m *Machine) Rules() Rules { return m.rules }

// Game returns a copy of the running game, or nil while idle.
func (m *Machine) Game() *Game {
	if m.game == nil {
		return nil
	}
	g := *m.game
	g.CorrectGuessers = slices.Clone(m.game.CorrectGuessers)
	return &g
}

func (m *Machine) Phase() Phase {
	if m.game == nil {
		return PhaseIdle
	}
	return m.game.Phase
}

func (m *Machine) Active() bool { return m.game != nil }

// CanDraw reports whether id currently holds drawing rights.
func (m *Machine) CanDraw(id string) bool {
	return m.game != nil && m.game.Phase == PhaseDrawing && m.game.DrawerID == id
}

// Apply runs one command against the current state. seats must be the
// connected participants in join order, already excluding anyone who left.
func (m *Machine) Apply(seats []Seat, cmd Command) ([]Event, error) {
	t := &transition{m: m, seats: seats, scores: make(map[string]int, len(seats))}
	for _, s := range seats {
		t.scores[s.ID] = s.Score
	}

	switch cmd.Type {
	case CmdStart:
		if err := t.start(cmd.Rounds); err != nil {
			return nil, err
		}
	case CmdTick:
		t.tick()
	case CmdGuess:
		t.guess(cmd.By, cmd.Text)
	case CmdLeave:
		t.leave(cmd.By)
	default:
		return nil, ErrUnsupportedCommand
	}
	return t.events, nil
}

// transition accumulates the events of a single Apply call. scores mirrors
// the seats' scores plus any awards made during this call.
type transition struct {
	m      *Machine
	seats  []Seat
	scores map[string]int
	events []Event
}

func (t *transition) emit(e Event) { t.events = append(t.events, e) }

func (t *transition) start(rounds int) error {
	if t.m.game != nil {
		return ErrGameInProgress
	}
	if rounds < 1 {
		return ErrInvalidRounds
	}
	if len(t.seats) == 0 {
		return ErrNoPlayers
	}

	t.m.game = &Game{Phase: PhaseStarting, RoundsTotal: rounds, RoundsRemaining: rounds}
	t.emit(Event{Type: EvtGameStarted, RoundsLeft: rounds})
	for id := range t.scores {
		t.scores[id] = 0
	}
	t.emit(Event{Type: EvtScoresReset})

	t.beginRound(t.seats[0])
	return nil
}

func (t *transition) beginRound(drawer Seat) {
	g := t.m.game
	g.Phase = PhaseDrawing
	g.DrawerID = drawer.ID
	g.drawerSeq = drawer.Seq
	g.Word = t.m.words.Pick()
	g.TimerRemaining = t.m.rules.RoundSeconds
	g.Intermission = 0
	g.CorrectGuessers = nil
	g.revealed = 0
	g.Hint = Mask(g.Word, 0)

	t.emit(Event{
		Type:          EvtRoundStarted,
		ParticipantID: drawer.ID,
		Word:          g.Word,
		Hint:          g.Hint,
		RoundsLeft:    g.RoundsRemaining,
		Seconds:       g.TimerRemaining,
	})
}

func (t *transition) tick() {
	g := t.m.game
	if g == nil {
		return
	}

	switch g.Phase {
	case PhaseDrawing:
		g.TimerRemaining--
		t.emit(Event{Type: EvtTimerTicked, Seconds: g.TimerRemaining})

		elapsed := t.m.rules.RoundSeconds - g.TimerRemaining
		if n := RevealCount(g.Word, elapsed, t.m.rules.RoundSeconds); n > g.revealed {
			g.revealed = n
			g.Hint = Mask(g.Word, n)
			t.emit(Event{Type: EvtHintUpdated, Hint: g.Hint})
		}

		if g.TimerRemaining <= 0 {
			t.endRound(ReasonTimeExpired)
		}

	case PhaseRoundEnded:
		g.Intermission--
		if g.Intermission <= 0 {
			t.advance()
		}
	}
}

func (t *transition) guess(by, text string) {
	g := t.m.game
	if g == nil || g.Phase != PhaseDrawing || !t.seated(by) {
		return
	}
	guess := normalize(text)
	if guess == "" {
		return
	}
	word := normalize(g.Word)

	// Whoever knows the word may chat, but never with the word in it.
	if by == g.DrawerID || slices.Contains(g.CorrectGuessers, by) {
		if !containsFolded(guess, word) {
			t.emit(Event{Type: EvtChatRelayed, ParticipantID: by, Text: text})
		}
		return
	}

	if guess != word {
		t.emit(Event{Type: EvtChatRelayed, ParticipantID: by, Text: text})
		return
	}

	award := Guess{
		Elapsed:  t.m.rules.RoundSeconds - g.TimerRemaining,
		Total:    t.m.rules.RoundSeconds,
		Order:    len(g.CorrectGuessers),
		Eligible: len(t.seats) - 1,
	}
	g.CorrectGuessers = append(g.CorrectGuessers, by)
	t.emit(Event{Type: EvtCorrectGuess, ParticipantID: by})

	guesserPts, drawerPts := t.m.scorer.Score(award)
	t.award(by, guesserPts)
	if t.seated(g.DrawerID) {
		t.award(g.DrawerID, drawerPts)
	}

	if t.allGuessed() {
		t.endRound(ReasonAllGuessed)
	}
}

func (t *transition) leave(id string) {
	g := t.m.game
	if g == nil {
		return
	}
	if g.Phase != PhaseDrawing {
		if id == g.DrawerID {
			g.DrawerID = ""
		}
		return
	}
	if id == g.DrawerID {
		// advance rotates from drawerSeq, not DrawerID.
		g.DrawerID = ""
		t.endRound(ReasonDrawerLeft)
		return
	}
	if len(g.CorrectGuessers) > 0 && t.allGuessed() {
		t.endRound(ReasonAllGuessed)
	}
}

func (t *transition) award(id string, points int) {
	if points <= 0 {
		return
	}
	t.scores[id] += points
	t.emit(Event{Type: EvtScoreAwarded, ParticipantID: id, Points: points})
}

func (t *transition) endRound(reason string) {
	g := t.m.game
	g.Phase = PhaseRoundEnded
	g.RoundsRemaining--
	t.emit(Event{Type: EvtRoundEnded, Reason: reason, Word: g.Word, RoundsLeft: g.RoundsRemaining})

	if g.RoundsRemaining <= 0 || len(t.seats) == 0 {
		t.endGame()
		return
	}
	if t.m.rules.IntermissionSeconds == 0 {
		t.advance()
		return
	}
	g.Intermission = t.m.rules.IntermissionSeconds
}

func (t *transition) advance() {
	g := t.m.game
	if len(t.seats) == 0 {
		t.endGame()
		return
	}
	t.beginRound(nextDrawer(t.seats, g.drawerSeq))
}

func (t *transition) endGame() {
	t.m.game.Phase = PhaseGameEnded
	winners, top := Winners(t.seats, t.scores)
	t.emit(Event{Type: EvtGameEnded, Winners: winners, TopScore: top})
	t.m.game = nil
}

// allGuessed is true when every seated non-drawer has guessed correctly.
func (t *transition) allGuessed() bool {
	g := t.m.game
	eligible := 0
	for _, s := range t.seats {
		if s.ID == g.DrawerID {
			continue
		}
		eligible++
		if !slices.Contains(g.CorrectGuessers, s.ID) {
			return false
		}
	}
	return eligible > 0
}

func (t *transition) seated(id string) bool {
	_, ok := t.scores[id]
	return ok
}
