// Package hub owns the room registry. It maps room codes to running lobbies
// and never touches room state itself.
package hub

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/DoyleJ11/doodlewhat-backend/internal/logging"
	"github.com/DoyleJ11/doodlewhat-backend/internal/lobby"
)

var ErrStopped = errors.New("hub stopped")

type HubMsg interface{ isHubMsg() }

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// EnsureLobby returns the running lobby for Code, creating it if there is
// none or the previous one already stopped.
type EnsureLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby forgets Code only while it still maps to Lobby, so a stale
// removal cannot evict a replacement.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

type ListLobbies struct {
	Reply chan []string
}

type ShutdownHub struct{}

func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ListLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	opts    lobby.Options
	log     *zap.SugaredLogger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewHub starts the registry. opts is the template for every lobby it
// creates; OnStop is overridden.
func NewHub(parent context.Context, opts lobby.Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		opts:    opts,
		log:     logging.FromContext(parent).Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed after ShutdownHub or when the parent context ends.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetLobby:
				lb := h.lobbies[msg.Code]
				if lb != nil && stopped(lb) {
					lb = nil
				}
				msg.Reply <- lb // May be nil

			case EnsureLobby:
				if lb := h.lobbies[msg.Code]; lb != nil && !stopped(lb) {
					msg.Reply <- lb
					break
				}
				lb := h.newLobby(msg.Code)
				h.lobbies[msg.Code] = lb
				h.log.Infow("room created", "room", msg.Code, "rooms", len(h.lobbies))
				msg.Reply <- lb

			case RemoveLobby:
				if h.lobbies[msg.Code] == msg.Lobby {
					delete(h.lobbies, msg.Code)
					h.log.Infow("room removed", "room", msg.Code, "rooms", len(h.lobbies))
				}

			case ListLobbies:
				codes := make([]string, 0, len(h.lobbies))
				for code, lb := range h.lobbies {
					if !stopped(lb) {
						codes = append(codes, code)
					}
				}
				sort.Strings(codes)
				msg.Reply <- codes

			case ShutdownHub:
				for _, lb := range h.lobbies {
					lb.Send(h.ctx, lobby.Shutdown{})
				}
				clear(h.lobbies)
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) newLobby(code string) *lobby.Lobby {
	opts := h.opts
	opts.OnStop = func(lb *lobby.Lobby) {
		select {
		case h.inbox <- RemoveLobby{Code: code, Lobby: lb}:
		case <-h.ctx.Done():
		}
	}
	return lobby.NewLobby(h.ctx, code, opts)
}

func stopped(lb *lobby.Lobby) bool {
	select {
	case <-lb.Done():
		return true
	default:
		return false
	}
}

// ask sends m and waits for its reply without outliving ctx or the hub.
func ask[T any](ctx context.Context, h *Hub, m HubMsg, reply chan T) (T, error) {
	var zero T
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-h.ctx.Done():
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return ask(ctx, h, GetLobby{Code: code, Reply: reply}, reply)
}

func (h *Hub) Ensure(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return ask(ctx, h, EnsureLobby{Code: code, Reply: reply}, reply)
}

func (h *Hub) List(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	return ask(ctx, h, ListLobbies{Reply: reply}, reply)
}

// Shutdown stops every lobby and then the hub.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}
