package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/doodlewhat-backend/pkg/protocol"
)

// Conn is a websocket connection to the game server.
type Conn struct {
	ws *websocket.Conn
}

var _ Sender = (*Conn)(nil)

func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Conn{ws: ws}, nil
}

func (c *Conn) Send(ctx context.Context, env protocol.Envelope) error {
	return wsjson.Write(ctx, c.ws, env)
}

// Handler consumes server events. *Controller is the usual one.
type Handler interface {
	Handle(env protocol.Envelope) error
}

// Run feeds every received event to h until the connection closes or ctx
// ends. A normal close returns nil.
func (c *Conn) Run(ctx context.Context, h Handler) error {
	var errs error
	for {
		var env protocol.Envelope
		if err := wsjson.Read(ctx, c.ws, &env); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return errs
			}
			if errors.Is(err, context.Canceled) {
				return errs
			}
			return multierr.Append(errs, err)
		}
		if err := h.Handle(env); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("handle %s: %w", env.Event, err))
		}
	}
}

func (c *Conn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "bye")
}
