// Package protocol defines the session protocol spoken between browser
// clients and the game server: event names, payload shapes and the JSON
// envelope every websocket frame is wrapped in.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Event string

// Client -> Server
const (
	EvtJoinRoom    Event = "join-room"
	EvtStartGame   Event = "start-game"
	EvtSendMessage Event = "send-message"
)

// Server -> Client
const (
	EvtWelcome        Event = "welcome"
	EvtUserList       Event = "user-list"
	EvtUserJoined     Event = "user-joined"
	EvtUserLeft       Event = "user-left"
	EvtGameStarted    Event = "game-started"
	EvtYourWord       Event = "your-word"
	EvtHint           Event = "hint"
	EvtTimer          Event = "timer"
	EvtReceiveMessage Event = "receive-message"
	EvtCorrectGuess   Event = "correct-guess"
	EvtGameEnded      Event = "game-ended"
	EvtSetHost        Event = "set-host"
	EvtError          Event = "error"
)

// Relayed in both directions
const (
	EvtDrawing Event = "drawing"
	EvtClear   Event = "clear"
)

var ErrMalformed = errors.New("malformed envelope")

// Envelope is the frame exchanged on the wire: {"event": ..., "data": ...}.
type Envelope struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes payload under event. A nil payload produces an
// envelope without data (set-host).
func NewEnvelope(event Event, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Event: event}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", event, err)
	}
	return Envelope{Event: event, Data: raw}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: %w: missing data", e.Event, ErrMalformed)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%s: %w: %v", e.Event, ErrMalformed, err)
	}
	return nil
}

// Parse decodes a raw websocket frame into an Envelope.
func Parse(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event", ErrMalformed)
	}
	return env, nil
}
