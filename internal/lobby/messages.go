package lobby

import (
	"github.com/DoyleJ11/doodlewhat-backend/internal/engine"
	"github.com/DoyleJ11/doodlewhat-backend/pkg/protocol"
)

type Msg interface{ isLobbyMsg() }

// Join registers a connection. Outbox receives every event for this
// participant and is closed by the lobby when the participant is removed.
type Join struct {
	ConnID string
	Name   string
	Outbox chan protocol.Envelope
	Reply  chan Participant // optional, buffered
}

type Leave struct{ ConnID string }

type StartGame struct {
	ConnID string
	Rounds int
}

type Draw struct {
	ConnID  string
	Segment protocol.Drawing
}

type Clear struct{ ConnID string }

type Chat struct {
	ConnID string
	Text   string
}

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

func (Join) isLobbyMsg()      {}
func (Leave) isLobbyMsg()     {}
func (StartGame) isLobbyMsg() {}
func (Draw) isLobbyMsg()      {}
func (Clear) isLobbyMsg()     {}
func (Chat) isLobbyMsg()      {}
func (GetState) isLobbyMsg()  {}
func (Shutdown) isLobbyMsg()  {}

type Participant struct {
	ID     string
	Name   string
	Seq    int
	Score  int
	IsHost bool
}

// View is a race-free copy of the room for tests and the HTTP layer.
type View struct {
	Code         string
	Participants []Participant
	HostID       string
	Game         *engine.Game
}
