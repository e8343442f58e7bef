package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/abrezinsky/hackportal/internal/errors"
	"github.com/abrezinsky/hackportal/internal/leaderboard"
	"github.com/abrezinsky/hackportal/internal/logger"
	"github.com/abrezinsky/hackportal/internal/view"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

// scopeKeys switch the watched leaderboard
var scopeKeys = map[byte]portal.Scope{
	'g': portal.ScopeGlobal,
	'e': portal.Scope(portal.RegionEMEA),
	'a': portal.Scope(portal.RegionAMRS),
	'p': portal.Scope(portal.RegionAPAC),
}

func leaderboardCommand() *command {
	var watch, noKeyboard bool
	return &command{
		name:    "leaderboard",
		summary: "Show the leaderboard (-scope global|EMEA|AMRS|APAC, -watch to follow it)",
		flags: func(fs *flag.FlagSet) {
			fs.BoolVar(&watch, "watch", false, "Keep the board on screen and refresh it")
			fs.BoolVar(&noKeyboard, "nokeyboard", false, "Disable keyboard shortcuts in watch mode")
		},
		run: func(ctx context.Context, c *cli, args []string) error {
			if !watch {
				return showLeaderboard(ctx, c)
			}
			return watchLeaderboard(ctx, c, !noKeyboard)
		},
	}
}

func showLeaderboard(ctx context.Context, c *cli) error {
	scope := c.cfg.PortalScope()
	entries, err := c.client.Leaderboard(ctx, scope)
	if err != nil {
		return c.fail(err, leaderboard.LoadFailed)
	}
	c.printf("%s", c.text.Board(leaderboard.BuildBoard(scope, entries, c.now())))
	return nil
}

// terminalBoard renders poller output in place
type terminalBoard struct {
	mu    sync.Mutex
	out   io.Writer
	text  view.Text
	lines int
}

func (t *terminalBoard) ShowBoard(b leaderboard.Board) {
	t.draw(t.text.Board(b))
}

func (t *terminalBoard) ShowError(scope portal.Scope, msg string) {
	t.draw(t.text.Failure(scope.Label() + ": " + msg))
}

// draw replaces the previous frame when the terminal supports it
func (t *terminalBoard) draw(frame string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.text.Color && t.lines > 0 {
		fmt.Fprintf(t.out, moveUp, t.lines)
		for i := 0; i < t.lines; i++ {
			fmt.Fprint(t.out, clearLine+"\n")
		}
		fmt.Fprintf(t.out, moveUp, t.lines)
	}
	fmt.Fprint(t.out, frame)
	t.lines = strings.Count(frame, "\n")
}

// note prints a status line below the board
func (t *terminalBoard) note(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format+"\n", args...)
	// status lines are not part of the redrawn frame
	t.lines = 0
}

// watcher follows one leaderboard from the terminal
type watcher struct {
	poller  *leaderboard.Poller
	board   *terminalBoard
	log     logger.Logger
	visible bool
}

func watchLeaderboard(ctx context.Context, c *cli, keyboard bool) error {
	board := &terminalBoard{out: c.stdout, text: c.text}
	w := &watcher{
		poller:  leaderboard.NewPoller(c.client, board, c.log, leaderboard.WithInterval(c.cfg.Refresh)),
		board:   board,
		log:     c.log,
		visible: true,
	}
	defer w.poller.Stop()

	if err := w.poller.Load(ctx, c.cfg.PortalScope()); err != nil {
		c.log.Debug("Initial leaderboard load failed", "error", err)
	}

	if !keyboard {
		<-ctx.Done()
		return nil
	}

	restore := cbreak(c.stdin)
	defer restore()
	board.note("%s", watchHelp(c.text))

	keys := make(chan byte)
	go readKeys(c.stdin, keys)
	for {
		select {
		case <-ctx.Done():
			return nil
		case key, ok := <-keys:
			if !ok {
				<-ctx.Done()
				return nil
			}
			if w.handleKey(ctx, key) {
				return nil
			}
		}
	}
}

// handleKey performs one watch-mode shortcut and reports whether to quit
func (w *watcher) handleKey(ctx context.Context, key byte) bool {
	key = lower(key)
	if scope, ok := scopeKeys[key]; ok {
		// replaces the pending refresh of the old scope
		if err := w.poller.SetScope(ctx, scope); err != nil {
			w.log.Debug("Leaderboard load failed", "scope", string(scope), "error", errors.UserMessage(err, leaderboard.LoadFailed))
		}
		return false
	}

	switch key {
	case 'h':
		w.visible = !w.visible
		w.poller.SetVisible(w.visible)
		if w.visible {
			w.board.note("Leaderboard shown, refreshing every %s", w.poller.Interval())
			w.poller.Refresh(ctx)
		} else {
			w.board.note("Leaderboard hidden, refresh paused (h to show)")
		}
	case 'r':
		w.poller.Refresh(ctx)
	case 'l':
		next := logger.NextLevel(w.log.GetLevel())
		w.log.SetLevel(next)
		w.board.note("Log level: %s", strings.ToLower(next.String()))
	case 't':
		w.board.note("Request tracing %s", toggleTracing(w.log))
	case 'q', 0x03:
		w.board.note("Stopped watching")
		return true
	case '?':
		w.board.note("%s", watchHelp(w.board.text))
	}
	return false
}

func watchHelp(t view.Text) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", bold(t, "  Keyboard shortcuts:"))
	fmt.Fprintf(&b, "    %s  - Global, EMEA, AMRS, APAC leaderboard\n", shortcut(t, "g e a p"))
	fmt.Fprintf(&b, "    %s        - Hide/show (pauses refresh)\n", shortcut(t, "h"))
	fmt.Fprintf(&b, "    %s        - Reload now\n", shortcut(t, "r"))
	fmt.Fprintf(&b, "    %s        - Cycle log level (debug → info → warn → error)\n", shortcut(t, "l"))
	fmt.Fprintf(&b, "    %s        - Toggle request tracing\n", shortcut(t, "t"))
	fmt.Fprintf(&b, "    %s        - Quit\n", shortcut(t, "q"))
	fmt.Fprintf(&b, "    %s        - Show this help\n", shortcut(t, "?"))
	return b.String()
}

// toggleTracing flips portal request tracing and returns the new state
func toggleTracing(log logger.Logger) string {
	if log.IsRequestTracingEnabled() {
		log.DisableRequestTracing()
		return "disabled"
	}
	log.EnableRequestTracing()
	return "enabled"
}

func bold(t view.Text, s string) string {
	if !t.Color {
		return s
	}
	return view.Bold + view.Green + s + view.Reset
}

func shortcut(t view.Text, s string) string {
	if !t.Color {
		return s
	}
	return view.Cyan + s + view.Reset
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// readKeys forwards single bytes from in until it fails
func readKeys(in io.Reader, keys chan<- byte) {
	defer close(keys)
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n == 1 {
			keys <- buf[0]
		}
		if err != nil {
			return
		}
	}
}
