// Package client is the participant side of a room: it turns the server's
// event stream into a View and local input into outgoing events.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/enescakir/emoji"

	"github.com/DoyleJ11/doodlewhat-backend/internal/stroke"
	"github.com/DoyleJ11/doodlewhat-backend/pkg/protocol"
)

var (
	ErrNotHost   = errors.New("only the host can start the game")
	ErrNotJoined = errors.New("not joined to a room")
)

const eraserColor = "#ffffff"

// Sender delivers an event to the server.
type Sender interface {
	Send(ctx context.Context, env protocol.Envelope) error
}

// View is everything a screen needs to render. The zero value is the
// state before joining.
type View struct {
	SelfID   string
	SelfName string
	Room     string
	IsHost   bool
	Users    []protocol.User

	GameStarted bool
	DrawerID    string
	DrawerName  string
	// The secret word for the drawer, the masked hint for everyone else.
	Word       string
	Timer      int
	RoundsLeft int

	WinnerText string
	ShowWinner bool
	LastError  string
}

func (v View) IsDrawer() bool { return v.SelfID != "" && v.SelfID == v.DrawerID }

type ChatEntry struct {
	Name string
	Text string
	At   time.Time
}

type Pen struct {
	Color  string
	Width  float64
	Eraser bool
}

type point struct{ x, y float64 }

// Controller is safe for concurrent use; every handler runs to completion
// under one mutex.
type Controller struct {
	mu   sync.Mutex
	send Sender
	now  func() time.Time

	view    View
	chat    []ChatEntry
	canvas  *stroke.Canvas
	history *stroke.History
	pen     Pen

	drawing bool
	last    point
}

func New(s Sender) *Controller {
	canvas := stroke.NewCanvas(stroke.DefaultWidth, stroke.DefaultHeight)
	return &Controller{
		send:    s,
		now:     time.Now,
		canvas:  canvas,
		history: stroke.NewHistory(canvas, stroke.DefaultDepth),
		pen:     Pen{Color: "#000000", Width: 4},
	}
}

// Join validates locally before anything goes over the wire.
func (c *Controller) Join(ctx context.Context, room, name string) error {
	req, err := protocol.JoinRoom{RoomID: strings.ToUpper(strings.TrimSpace(room)), Name: name}.Validate()
	if err != nil {
		c.setError(err)
		return err
	}
	c.mu.Lock()
	c.view.Room = req.RoomID
	c.view.SelfName = req.Name
	c.mu.Unlock()
	return c.emit(ctx, protocol.EvtJoinRoom, req)
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view
	v.Users = append([]protocol.User(nil), c.view.Users...)
	return v
}

// Chat returns the display log with consecutive duplicates collapsed.
func (c *Controller) Chat() []ChatEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatEntry, 0, len(c.chat))
	for _, e := range c.chat {
		if n := len(out); n > 0 && out[n-1].Name == e.Name && out[n-1].Text == e.Text {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (c *Controller) Snapshot() stroke.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canvas.Snapshot()
}

func (c *Controller) SetPen(p Pen) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pen = p
}

// Handle applies one server event. Unknown events are ignored.
func (c *Controller) Handle(env protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch env.Event {
	case protocol.EvtWelcome:
		var p protocol.Welcome
		if err := env.Decode(&p); err != nil {
			return err
		}
		c.view.SelfID, c.view.SelfName, c.view.Room = p.ID, p.Name, p.RoomID

	case protocol.EvtUserList:
		var users []protocol.User
		if err := env.Decode(&users); err != nil {
			return err
		}
		c.view.Users = users
		for _, u := range users {
			if u.ID == c.view.SelfID {
				c.view.IsHost = u.IsHost
			}
		}

	case protocol.EvtUserJoined:
		var name string
		if err := env.Decode(&name); err != nil {
			return err
		}
		c.system(emoji.GreenCircle.String()+" System", name+" joined.")

	case protocol.EvtUserLeft:
		var name string
		if err := env.Decode(&name); err != nil {
			return err
		}
		c.system(emoji.RedCircle.String()+" System", name+" left.")

	case protocol.EvtSetHost:
		c.view.IsHost = true

	case protocol.EvtGameStarted:
		var p protocol.GameStarted
		if err := env.Decode(&p); err != nil {
			return err
		}
		c.view.GameStarted = true
		c.view.DrawerID, c.view.DrawerName = p.DrawerID, p.DrawerName
		c.view.RoundsLeft = p.RoundsLeft
		c.view.Timer = p.Seconds
		c.view.ShowWinner = false
		c.view.Word = p.WordHint
		if c.view.IsDrawer() && p.RealWord != "" {
			c.view.Word = p.RealWord
		}
		c.drawing = false

	case protocol.EvtYourWord:
		var word string
		if err := env.Decode(&word); err != nil {
			return err
		}
		if c.view.IsDrawer() {
			c.view.Word = word
		}

	case protocol.EvtHint:
		var p protocol.Hint
		if err := env.Decode(&p); err != nil {
			return err
		}
		if !c.view.IsDrawer() {
			c.view.Word = p.Hint
		}

	case protocol.EvtTimer:
		if err := env.Decode(&c.view.Timer); err != nil {
			return err
		}

	case protocol.EvtReceiveMessage:
		var p protocol.ChatMessage
		if err := env.Decode(&p); err != nil {
			return err
		}
		c.chat = append(c.chat, ChatEntry{Name: p.Name, Text: p.Message, At: c.now()})

	case protocol.EvtCorrectGuess:
		var p protocol.CorrectGuess
		if err := env.Decode(&p); err != nil {
			return err
		}
		c.system(emoji.Star.String()+" Game", p.Guesser+" guessed the word!")

	case protocol.EvtGameEnded:
		var p protocol.GameEnded
		if err := env.Decode(&p); err != nil {
			return err
		}
		c.system(emoji.ChequeredFlag.String()+" Game", p.Message)
		c.view.DrawerID, c.view.DrawerName = "", ""
		c.view.Word = ""
		c.drawing = false
		if p.Final {
			c.view.GameStarted = false
			c.view.RoundsLeft = 0
			if text, ok := winnerText(c.view.Users); ok {
				c.view.WinnerText, c.view.ShowWinner = text, true
			}
		}

	case protocol.EvtDrawing:
		var p protocol.Drawing
		if err := env.Decode(&p); err != nil {
			return err
		}
		// Remote segments are always applied; bad ones are dropped.
		_ = c.canvas.Apply(toSegment(p))

	case protocol.EvtClear:
		c.canvas.Clear()
		c.history.Reset(c.canvas)

	case protocol.EvtError:
		var p protocol.Error
		if err := env.Decode(&p); err != nil {
			return err
		}
		c.view.LastError = p.Message
	}
	return nil
}

// winnerText is computed from the roster alone; every top scorer shares
// the win.
func winnerText(users []protocol.User) (string, bool) {
	if len(users) == 0 {
		return "", false
	}
	top := users[0].Score
	for _, u := range users[1:] {
		top = max(top, u.Score)
	}
	var winners []string
	for _, u := range users {
		if u.Score == top {
			winners = append(winners, u.Name)
		}
	}
	if len(winners) == 1 {
		return fmt.Sprintf("%s Winner: %s (%d points)", emoji.Trophy, winners[0], top), true
	}
	return fmt.Sprintf("%s It's a tie! (%d points)", emoji.Trophy, top), true
}

func (c *Controller) system(name, text string) {
	c.chat = append(c.chat, ChatEntry{Name: name, Text: text, At: c.now()})
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.LastError = err.Error()
}

// emit sends outside the lock so a slow socket never stalls Handle.
func (c *Controller) emit(ctx context.Context, event protocol.Event, payload any) error {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	return c.send.Send(ctx, env)
}

func toSegment(d protocol.Drawing) stroke.Segment {
	return stroke.Segment{X0: d.X0, Y0: d.Y0, X1: d.X1, Y1: d.Y1, Color: d.Color, Width: d.Size}
}
