// Command doodlebot is a terminal client: it joins a room and lets you
// chat, start games and draw straight lines from stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/DoyleJ11/doodlewhat-backend/internal/client"
	"github.com/DoyleJ11/doodlewhat-backend/internal/logging"
	"github.com/DoyleJ11/doodlewhat-backend/pkg/protocol"
)

const help = `commands:
  /start N            start a game with N rounds (host only)
  /line x0 y0 x1 y1   draw a segment (drawer only)
  /undo               undo your last line
  /clear              clear the canvas
  /state              print the room state
  /quit               leave
anything else is sent as chat (your guess)`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cobra.CheckErr(newCmd(&Config{}).ExecuteContext(ctx))
}

func run(ctx context.Context, server, room, name string, in io.Reader, out io.Writer) error {
	conn, err := client.Dial(ctx, server)
	if err != nil {
		return err
	}
	defer conn.Close()
	logging.FromContext(ctx).Debugw("connected", "server", server, "room", room)

	c := client.New(conn)
	p := &printer{c: c, out: out}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() {
		runErr <- conn.Run(ctx, p)
		cancel()
	}()

	if err := c.Join(ctx, room, name); err != nil {
		return err
	}
	fmt.Fprintln(out, help)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return <-runErr
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := command(ctx, c, out, line)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func command(ctx context.Context, c *client.Controller, out io.Writer, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "/quit":
		return true, nil

	case "/start":
		if len(fields) != 2 {
			return false, protocol.ErrInvalidRounds
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, protocol.ErrInvalidRounds
		}
		return false, c.StartGame(ctx, n)

	case "/line":
		if len(fields) != 5 {
			return false, fmt.Errorf("usage: /line x0 y0 x1 y1")
		}
		var pts [4]float64
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return false, fmt.Errorf("bad coordinate %q", f)
			}
			pts[i] = v
		}
		if !c.PointerDown(pts[0], pts[1]) {
			return false, fmt.Errorf("you are not drawing")
		}
		defer c.PointerUp()
		return false, c.PointerMove(ctx, pts[2], pts[3])

	case "/undo":
		if !c.Undo() {
			fmt.Fprintln(out, "nothing to undo")
		}
		return false, nil

	case "/clear":
		return false, c.Clear(ctx)

	case "/state":
		printState(out, c.View())
		return false, nil
	}

	return false, c.SendChat(ctx, line)
}

// printer echoes chat lines and notable view changes as events arrive.
type printer struct {
	mu   sync.Mutex
	c    *client.Controller
	out  io.Writer
	seen int
}

func (p *printer) Handle(env protocol.Envelope) error {
	if err := p.c.Handle(env); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	chat := p.c.Chat()
	for _, e := range chat[min(p.seen, len(chat)):] {
		fmt.Fprintf(p.out, "[%s] %s\n", e.Name, e.Text)
	}
	p.seen = len(chat)

	v := p.c.View()
	switch env.Event {
	case protocol.EvtGameStarted, protocol.EvtYourWord, protocol.EvtHint:
		fmt.Fprintf(p.out, "word: %s  (drawer: %s, rounds left: %d)\n", v.Word, v.DrawerName, v.RoundsLeft)
	case protocol.EvtSetHost:
		fmt.Fprintln(p.out, "you are the host; /start N to begin")
	case protocol.EvtError:
		fmt.Fprintln(p.out, "server:", v.LastError)
	case protocol.EvtGameEnded:
		if v.ShowWinner {
			fmt.Fprintln(p.out, v.WinnerText)
		}
	}
	return nil
}

func printState(out io.Writer, v client.View) {
	fmt.Fprintf(out, "room %s as %s (host=%v)\n", v.Room, v.SelfName, v.IsHost)
	for _, u := range v.Users {
		marker := " "
		if u.ID == v.DrawerID {
			marker = "*"
		}
		fmt.Fprintf(out, " %s %-16s %d\n", marker, u.Name, u.Score)
	}
	if v.GameStarted {
		fmt.Fprintf(out, "word: %s  timer: %d  rounds left: %d\n", v.Word, v.Timer, v.RoundsLeft)
	}
}
