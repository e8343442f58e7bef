package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/abrezinsky/hackportal/internal/app"
	"github.com/abrezinsky/hackportal/internal/auth"
	"github.com/abrezinsky/hackportal/internal/browser"
	"github.com/abrezinsky/hackportal/internal/logger"
	"github.com/abrezinsky/hackportal/internal/view"
	"github.com/abrezinsky/hackportal/web"
)

func dashboardCommand() *command {
	var key string
	var noBanner, noKeyboard bool
	return &command{
		name:    "dashboard",
		summary: "Serve the live dashboard on the local network (-port)",
		flags: func(fs *flag.FlagSet) {
			fs.StringVar(&key, "key", "", "Dashboard access key (auto-generated if not set)")
			fs.BoolVar(&noBanner, "nobanner", false, "Skip the startup logo")
			fs.BoolVar(&noKeyboard, "nokeyboard", false, "Disable keyboard shortcuts")
		},
		run: func(ctx context.Context, c *cli, args []string) error {
			if !noBanner {
				showBanner(c.stdout, c.text.Color)
			}

			if key == "" {
				key = auth.GenerateKey()
			}
			dashAuth := auth.New(key)

			a, err := app.New(c.log, c.cfg.DBPath, c.client, web.GetTemplatesFS(), web.GetStaticFS(), dashAuth,
				app.WithRefresh(c.cfg.Refresh),
				app.WithScope(c.cfg.PortalScope()),
				app.WithVersion(version),
			)
			if err != nil {
				return fmt.Errorf("failed to initialize dashboard: %w", err)
			}
			defer a.Close()

			addr := fmt.Sprintf(":%d", c.cfg.DashboardPort)
			shareURL, err := a.Advertise(addr)
			if err != nil {
				return err
			}
			c.log.Info("Dashboard access key", "key", key)

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			serverErr := make(chan error, 1)
			go func() {
				serverErr <- a.Run(ctx, addr)
			}()

			if noKeyboard {
				c.printf("\n%s\n\n", "Keyboard shortcuts disabled (use -nokeyboard=false to enable)")
				return <-serverErr
			}

			restore := cbreak(c.stdin)
			defer restore()
			c.printf("%s", dashboardHelp(c.text))

			keys := make(chan byte)
			go readKeys(c.stdin, keys)
			opener := browser.NewSystem()
			for {
				select {
				case err := <-serverErr:
					return err
				case k, ok := <-keys:
					if !ok {
						keys = nil
						continue
					}
					if handleDashboardKey(ctx, c, k, shareURL, opener) {
						cancel()
						return <-serverErr
					}
				}
			}
		},
	}
}

// handleDashboardKey performs one dashboard shortcut and reports whether to quit
func handleDashboardKey(ctx context.Context, c *cli, k byte, shareURL string, opener browser.Opener) bool {
	switch lower(k) {
	case 'o':
		c.printf("Opening dashboard in browser...\n")
		if _, err := opener.Open(ctx, shareURL); err != nil {
			fmt.Fprint(c.stderr, c.text.Failure(fmt.Sprintf("Error opening browser: %v", err)))
		}
	case 't':
		c.printf("Request tracing %s\n", toggleTracing(c.log))
	case 'l':
		next := logger.NextLevel(c.log.GetLevel())
		c.log.SetLevel(next)
		c.printf("Log level: %s\n", strings.ToLower(next.String()))
	case 'q', 0x03:
		c.printf("Shutting down dashboard...\n")
		return true
	case '?':
		c.printf("%s", dashboardHelp(c.text))
	}
	return false
}

func dashboardHelp(t view.Text) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", bold(t, "  Keyboard shortcuts:"))
	fmt.Fprintf(&b, "    %s      - Open the dashboard in the browser\n", shortcut(t, "o"))
	fmt.Fprintf(&b, "    %s      - Toggle request tracing\n", shortcut(t, "t"))
	fmt.Fprintf(&b, "    %s      - Cycle log level (debug → info → warn → error)\n", shortcut(t, "l"))
	fmt.Fprintf(&b, "    %s      - Quit\n", shortcut(t, "q"))
	fmt.Fprintf(&b, "    %s      - Show this help\n\n", shortcut(t, "?"))
	return b.String()
}
