package client

import (
	"context"
	"strings"

	"github.com/DoyleJ11/doodlewhat-backend/pkg/protocol"
)

// PointerDown starts a gesture. It reports false when the local
// participant is not the drawer.
func (c *Controller) PointerDown(x, y float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.view.IsDrawer() {
		return false
	}
	c.drawing = true
	c.last = point{x, y}
	return true
}

// PointerMove draws from the last point to (x, y) locally and forwards the
// segment.
func (c *Controller) PointerMove(ctx context.Context, x, y float64) error {
	c.mu.Lock()
	if !c.drawing || !c.view.IsDrawer() {
		c.mu.Unlock()
		return nil
	}
	d := protocol.Drawing{
		X0: c.last.x, Y0: c.last.y, X1: x, Y1: y,
		Color: c.pen.Color,
		Size:  c.pen.Width,
		Room:  c.view.Room,
	}
	if c.pen.Eraser {
		d.Color = eraserColor
	}
	err := c.canvas.Apply(toSegment(d))
	c.last = point{x, y}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	return c.emit(ctx, protocol.EvtDrawing, d)
}

// PointerUp ends the gesture and records an undo snapshot.
func (c *Controller) PointerUp() { c.endGesture() }

// PointerLeave is treated like PointerUp.
func (c *Controller) PointerLeave() { c.endGesture() }

func (c *Controller) endGesture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.drawing {
		return
	}
	c.drawing = false
	c.history.Commit(c.canvas)
}

// Undo is local only and never reaches other participants.
func (c *Controller) Undo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.view.IsDrawer() {
		return false
	}
	return c.history.Undo(c.canvas)
}

// Clear wipes the canvas and asks the server to clear everyone's. The
// drawer may always clear; anyone may while no game is running.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	if c.view.GameStarted && !c.view.IsDrawer() {
		c.mu.Unlock()
		return nil
	}
	room := c.view.Room
	c.canvas.Clear()
	c.history.Reset(c.canvas)
	c.mu.Unlock()

	return c.emit(ctx, protocol.EvtClear, room)
}

func (c *Controller) SendChat(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	c.mu.Lock()
	msg := protocol.ChatMessage{Room: c.view.Room, Message: text, Name: c.view.SelfName}
	joined := c.view.SelfID != ""
	c.mu.Unlock()

	if !joined {
		return ErrNotJoined
	}
	return c.emit(ctx, protocol.EvtSendMessage, msg)
}

// StartGame validates rounds locally; invalid input never reaches the
// network.
func (c *Controller) StartGame(ctx context.Context, rounds int) error {
	if err := protocol.ValidateRounds(rounds); err != nil {
		c.setError(err)
		return err
	}
	c.mu.Lock()
	isHost, room := c.view.IsHost, c.view.Room
	c.mu.Unlock()
	if !isHost {
		c.setError(ErrNotHost)
		return ErrNotHost
	}
	return c.emit(ctx, protocol.EvtStartGame, protocol.StartGame{RoomID: room, Rounds: rounds})
}
