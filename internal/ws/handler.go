// Package ws adapts websocket connections to lobby messages. Each
// connection gets a reader (this handler's goroutine) and a writer that
// drains the outbox the lobby fills.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/doodlewhat-backend/internal/hub"
	"github.com/DoyleJ11/doodlewhat-backend/internal/lobby"
	"github.com/DoyleJ11/doodlewhat-backend/internal/logging"
	"github.com/DoyleJ11/doodlewhat-backend/pkg/protocol"
)

const (
	readLimit    = 64 << 10
	joinAttempts = 3
)

var ErrNotJoined = errors.New("first message must be join-room")

type Options struct {
	// Passed to websocket.AcceptOptions. Empty means same-origin only.
	OriginPatterns []string
	OutboxSize     int
	JoinTimeout    time.Duration
	WriteTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.OutboxSize <= 0 {
		o.OutboxSize = 64
	}
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	return o
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(readLimit)

		ctx := r.Context()
		connID := uuid.NewString()
		log := logging.FromContext(ctx).Named("ws").With("conn", connID)

		req, err := readJoin(ctx, conn, opts.JoinTimeout)
		if err != nil {
			log.Debugw("handshake failed", "err", err)
			writeError(ctx, conn, opts.WriteTimeout, err)
			conn.Close(websocket.StatusPolicyViolation, "join-room required")
			return
		}
		log = log.With("room", req.RoomID)

		out := make(chan protocol.Envelope, opts.OutboxSize)
		lb, err := join(ctx, h, connID, req, out)
		if err != nil {
			log.Warnw("join failed", "err", err)
			writeError(ctx, conn, opts.WriteTimeout, err)
			conn.Close(websocket.StatusTryAgainLater, "room unavailable")
			return
		}
		defer func() {
			leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			lb.Send(leaveCtx, lobby.Leave{ConnID: connID})
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(ctx)
		defer writeCancel()
		go func() {
			for env := range out {
				wctx, cancel := context.WithTimeout(writeCtx, opts.WriteTimeout)
				err := wsjson.Write(wctx, conn, env)
				cancel()
				if err != nil {
					writeCancel()
				}
			}
			// The lobby dropped us; unblock the reader.
			conn.Close(websocket.StatusNormalClosure, "left room")
		}()

		readLoop(writeCtx, conn, lb, connID, opts.WriteTimeout, log)
	}
}

// readJoin waits for the join-room frame and validates it.
func readJoin(ctx context.Context, conn *websocket.Conn, timeout time.Duration) (protocol.JoinRoom, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return protocol.JoinRoom{}, fmt.Errorf("read join: %w", err)
	}
	env, err := protocol.Parse(data)
	if err != nil {
		return protocol.JoinRoom{}, err
	}
	if env.Event != protocol.EvtJoinRoom {
		return protocol.JoinRoom{}, ErrNotJoined
	}
	var req protocol.JoinRoom
	if err := env.Decode(&req); err != nil {
		return protocol.JoinRoom{}, err
	}
	return req.Validate()
}

// join registers the connection, retrying when the room stopped between
// lookup and delivery.
func join(ctx context.Context, h *hub.Hub, connID string, req protocol.JoinRoom, out chan protocol.Envelope) (*lobby.Lobby, error) {
	for i := 0; i < joinAttempts; i++ {
		lb, err := h.Ensure(ctx, req.RoomID)
		if err != nil {
			return nil, err
		}
		reply := make(chan lobby.Participant, 1)
		if !lb.Send(ctx, lobby.Join{ConnID: connID, Name: req.Name, Outbox: out, Reply: reply}) {
			continue
		}
		select {
		case <-reply:
			return lb, nil
		case <-lb.Done():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("join %s: room kept stopping", req.RoomID)
}

func readLoop(ctx context.Context, conn *websocket.Conn, lb *lobby.Lobby, connID string, writeTimeout time.Duration, log *zap.SugaredLogger) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				log.Debugw("read", "err", err)
			}
			return
		}

		env, err := protocol.Parse(data)
		if err != nil {
			writeError(ctx, conn, writeTimeout, err)
			continue
		}
		msg, err := toLobbyMsg(connID, env)
		if err != nil {
			writeError(ctx, conn, writeTimeout, err)
			continue
		}
		if !lb.Send(ctx, msg) {
			return
		}
	}
}

func toLobbyMsg(connID string, env protocol.Envelope) (lobby.Msg, error) {
	switch env.Event {
	case protocol.EvtStartGame:
		var p protocol.StartGame
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return lobby.StartGame{ConnID: connID, Rounds: p.Rounds}, nil

	case protocol.EvtDrawing:
		var p protocol.Drawing
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return lobby.Draw{ConnID: connID, Segment: p}, nil

	case protocol.EvtClear:
		return lobby.Clear{ConnID: connID}, nil

	case protocol.EvtSendMessage:
		var p protocol.ChatMessage
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return lobby.Chat{ConnID: connID, Text: p.Message}, nil

	case protocol.EvtJoinRoom:
		return nil, errors.New("already joined")

	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}
}

// writeError goes straight to the socket. coder/websocket allows it
// concurrently with the writer goroutine.
func writeError(ctx context.Context, conn *websocket.Conn, timeout time.Duration, err error) {
	env, encErr := protocol.NewEnvelope(protocol.EvtError, protocol.Error{Message: err.Error()})
	if encErr != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_ = wsjson.Write(ctx, conn, env)
}
