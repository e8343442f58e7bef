package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/abrezinsky/hackportal/internal/browser"
	"github.com/abrezinsky/hackportal/internal/config"
	"github.com/abrezinsky/hackportal/internal/errors"
	"github.com/abrezinsky/hackportal/internal/logger"
	"github.com/abrezinsky/hackportal/internal/repository"
	"github.com/abrezinsky/hackportal/internal/services"
	"github.com/abrezinsky/hackportal/internal/view"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

// ANSI escape codes used outside the view package
const (
	clearLine = "\033[2K"
	moveUp    = "\033[%dA"
)

var (
	version = "dev"
)

// rateBurst lets a short burst of calls through the client rate limit
const rateBurst = 5

// demoTeam is seeded into the in-memory portal used by -demo
var demoTeam = portal.Credentials{TeamName: "Demo Team", Password: "demo", Region: portal.RegionAPAC}

// errReported means the failure was already printed
var errReported = stderrors.New("reported")

// command is one hackportal subcommand
type command struct {
	name    string
	args    string
	summary string
	// flags registers command-specific flags
	flags func(fs *flag.FlagSet)
	run   func(ctx context.Context, c *cli, args []string) error
	// offline commands need neither the portal nor the session store
	offline bool
}

// cli carries what every command needs
type cli struct {
	cfg    config.Config
	log    *logger.SlogLogger
	client portal.Client
	repo   *repository.Repository
	team   *services.TeamService
	text   view.Text
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
	// interactive is true when stdin is a terminal
	interactive bool
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.stdout, format, args...)
}

// fail prints err the way the portal pages show errors
func (c *cli) fail(err error, fallback string) error {
	if stderrors.Is(err, services.ErrNoSession) {
		fmt.Fprint(c.stderr, c.text.Failure("No team signed in. Run hackportal login first."))
		return errReported
	}
	fmt.Fprint(c.stderr, c.text.Failure(errors.UserMessage(err, fallback)))
	return errReported
}

func (c *cli) close() {
	if c.repo != nil {
		c.repo.Close()
	}
}

func commands() []*command {
	return []*command{
		registerCommand(),
		loginCommand(),
		statusCommand(),
		downloadCommand(),
		datasetCommand(),
		downloadsCommand(),
		leaderboardCommand(),
		submitCommand(),
		validateCommand(),
		dashboardCommand(),
		pingCommand(),
		logoutCommand(),
		versionCommand(),
	}
}

func findCommand(name string) *command {
	for _, cmd := range commands() {
		if cmd.name == name {
			return cmd
		}
	}
	return nil
}

// showBanner displays the hackportal logo
func showBanner(w io.Writer, color bool) {
	width := 62
	border := strings.Repeat("═", width)

	logo := []string{
		"   _                _                     _        _ ",
		"  | |__   __ _  ___| | ___ __   ___  _ __| |_ __ _| |",
		"  | '_ \\ / _` |/ __| |/ / '_ \\ / _ \\| '__| __/ _` | |",
		"  | | | | (_| | (__|   <| |_) | (_) | |  | || (_| | |",
		"  |_| |_|\\__,_|\\___|_|\\_\\ .__/ \\___/|_|   \\__\\__,_|_|",
		"                        |_|                          ",
	}

	frame, text, reset := view.Cyan, view.Yellow, view.Reset
	if !color {
		frame, text, reset = "", "", ""
	}

	fmt.Fprintf(w, "\n  %s╔%s╗%s\n", frame, border, reset)
	for _, line := range logo {
		fmt.Fprintf(w, "  %s║%s%-62s%s║%s\n", frame, text, line, frame, reset)
	}
	fmt.Fprintf(w, "  %s╚%s╝%s\n\n", frame, border, reset)
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `hackportal - Hackathon portal client

Usage:
  hackportal <command> [options] [args]

Commands:
`)
	cmds := commands()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].name < cmds[j].name })
	for _, cmd := range cmds {
		fmt.Fprintf(w, "  %-28s %s\n", strings.TrimSpace(cmd.name+" "+cmd.args), cmd.summary)
	}
	fmt.Fprintf(w, `
Common options:
  -api string        Portal API base URL (env %s)
  -db string         Session database path (env %s)
  -timeout duration  HTTP request timeout (env %s)
  -rate float        Maximum API requests per second (env %s)
  -log-level string  Log level: debug, info, warn, error (env %s)
  -save-dir string   Download files into a directory instead of the browser
  -demo              Use an in-memory demo portal

Examples:
  hackportal register -team "Null Pointers" -region EMEA
  hackportal login -team "Null Pointers"
  hackportal download
  hackportal validate https://portal.example/ERFT_stage2_p1-1_p2-2_p3-3
  hackportal leaderboard -scope APAC -watch
  hackportal dashboard -port 8090

Run "hackportal <command> -help" for command options.
`, config.EnvAPIURL, config.EnvDB, config.EnvTimeout, config.EnvRateLimit, config.EnvLogLevel)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return 0
	case "-version", "--version":
		args[0] = "version"
	}

	cmd := findCommand(args[0])
	if cmd == nil {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	var extra []func(*flag.FlagSet)
	if cmd.flags != nil {
		extra = append(extra, cmd.flags)
	}
	cfg, rest, err := config.Load(cmd.name, args[1:], stderr, extra...)
	if stderrors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	c, err := newCLI(cfg, cmd.offline, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize: %v\n", err)
		return 1
	}
	defer c.close()

	if err := cmd.run(ctx, c, rest); err != nil {
		if !stderrors.Is(err, errReported) {
			fmt.Fprintf(stderr, "%v\n", err)
		}
		return 1
	}
	return 0
}

func newCLI(cfg config.Config, offline bool, stdin io.Reader, stdout, stderr io.Writer) (*cli, error) {
	c := &cli{
		cfg:         cfg,
		log:         logger.NewWithWriter(stderr, logger.ParseLevel(cfg.LogLevel)),
		stdin:       stdin,
		stdout:      stdout,
		stderr:      stderr,
		now:         time.Now,
		interactive: isTerminal(stdin),
		text:        view.Text{Color: isTerminal(stdout)},
	}
	if offline {
		return c, nil
	}

	c.client = newClient(cfg, c.log)

	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	c.repo = repo
	c.team = services.NewTeamService(c.log, repo, c.client, newOpener(cfg, c.log))
	return c, nil
}

func newClient(cfg config.Config, log logger.Logger) portal.Client {
	if cfg.Demo {
		return portal.NewMockClient(portal.WithTeam(demoTeam, portal.TeamProgress{
			CurrentStage:  1,
			ChallengeOpen: true,
			TotalTime:     1830,
		}))
	}
	return portal.NewHTTPClient(cfg.APIURL, log,
		portal.WithTimeout(cfg.Timeout),
		portal.WithRateLimit(cfg.RateLimit, rateBurst),
	)
}

func newOpener(cfg config.Config, log logger.Logger) browser.Opener {
	if cfg.SaveDir != "" {
		return browser.NewSaver(cfg.SaveDir, log)
	}
	return browser.NewSystem()
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
