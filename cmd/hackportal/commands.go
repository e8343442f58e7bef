package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/abrezinsky/hackportal/internal/stagegate"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

// teamFlags are the register and login form fields
type teamFlags struct {
	team     string
	password string
	region   string
}

func (f *teamFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.team, "team", "", "Team name")
	fs.StringVar(&f.password, "password", "", "Team password (prompted when empty)")
	fs.StringVar(&f.region, "region", "", "Region: EMEA, AMRS or APAC")
}

// form fills missing fields from the terminal. Non-interactive runs leave
// them empty so the page reports what is missing.
func (f *teamFlags) form(c *cli, needRegion bool) (stagegate.Form, error) {
	form := stagegate.Form{TeamName: f.team, Password: f.password, Region: f.region}
	if !c.interactive {
		return form, nil
	}

	var err error
	if form.TeamName == "" {
		if form.TeamName, err = c.promptLine("Team name: "); err != nil {
			return form, err
		}
	}
	if form.Password == "" {
		if form.Password, err = c.promptPassword("Password: "); err != nil {
			return form, err
		}
	}
	if needRegion && form.Region == "" {
		if form.Region, err = c.promptLine("Region (EMEA, AMRS, APAC): "); err != nil {
			return form, err
		}
	}
	return form, nil
}

func (c *cli) promptLine(label string) (string, error) {
	fmt.Fprint(c.stderr, label)
	reader := bufio.NewReader(c.stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *cli) promptPassword(label string) (string, error) {
	fmt.Fprint(c.stderr, label)
	f, ok := c.stdin.(*os.File)
	if !ok {
		return c.promptLine("")
	}
	pw, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(c.stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

func (c *cli) showOutcome(out stagegate.Outcome, err error) error {
	if err != nil {
		return c.fail(err, out.Presentation.Message)
	}
	if !out.OK() {
		fmt.Fprint(c.stderr, c.text.Outcome(out, c.now()))
		return errReported
	}
	fmt.Fprint(c.stdout, c.text.Outcome(out, c.now()))
	return nil
}

func registerCommand() *command {
	f := &teamFlags{}
	return &command{
		name:    "register",
		summary: "Create a team and sign in",
		flags:   f.register,
		run: func(ctx context.Context, c *cli, args []string) error {
			form, err := f.form(c, true)
			if err != nil {
				return err
			}
			return c.showOutcome(c.team.Register(ctx, form))
		},
	}
}

func loginCommand() *command {
	f := &teamFlags{}
	return &command{
		name:    "login",
		summary: "Sign an existing team in",
		flags:   f.register,
		run: func(ctx context.Context, c *cli, args []string) error {
			form, err := f.form(c, false)
			if err != nil {
				return err
			}
			return c.showOutcome(c.team.Login(ctx, form))
		},
	}
}

func statusCommand() *command {
	return &command{
		name:    "status",
		summary: "Refresh the signed-in team's progress",
		run: func(ctx context.Context, c *cli, args []string) error {
			return c.showOutcome(c.team.Status(ctx))
		},
	}
}

func downloadCommand() *command {
	return &command{
		name:    "download",
		summary: "Open the current stage PDF (starts the timer on the first one)",
		run: func(ctx context.Context, c *cli, args []string) error {
			result, err := c.team.Download(ctx)
			if err != nil {
				return c.fail(err, "Download failed")
			}
			c.printf("%s", c.text.Download(result))
			return nil
		},
	}
}

func datasetCommand() *command {
	return &command{
		name:    "dataset",
		args:    "<name>",
		summary: "Open a dataset file (e.g. stage4.csv)",
		run: func(ctx context.Context, c *cli, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: hackportal dataset <name>")
			}
			result, err := c.team.OpenDataset(ctx, args[0])
			if err != nil {
				return c.fail(err, "Download failed")
			}
			c.printf("%s", c.text.Download(result))
			return nil
		},
	}
}

func downloadsCommand() *command {
	return &command{
		name:    "downloads",
		summary: "List files opened by the signed-in team",
		run: func(ctx context.Context, c *cli, args []string) error {
			downloads, err := c.team.Downloads(ctx)
			if err != nil {
				return c.fail(err, "Failed to list downloads")
			}
			if len(downloads) == 0 {
				c.printf("No downloads yet\n")
				return nil
			}
			for _, d := range downloads {
				stage := "dataset"
				if d.Stage > 0 {
					stage = fmt.Sprintf("stage %d", d.Stage)
				}
				c.printf("%s  %-8s  %s\n", d.CreatedAt.Local().Format("2006-01-02 15:04"), stage, d.Location)
			}
			return nil
		},
	}
}

func submitCommand() *command {
	f := &teamFlags{}
	return &command{
		name:    "submit",
		args:    "<bitbucket-url>",
		summary: "Record the final repository URL",
		flags: func(fs *flag.FlagSet) {
			fs.StringVar(&f.team, "team", "", "Team name (defaults to the signed-in team)")
			fs.StringVar(&f.password, "password", "", "Team password (defaults to the signed-in team)")
		},
		run: func(ctx context.Context, c *cli, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: hackportal submit <bitbucket-url>")
			}
			receipt, err := c.team.Submit(ctx, portal.FinalSubmission{
				TeamName:     f.team,
				Password:     f.password,
				BitbucketURL: args[0],
			})
			if err != nil {
				return c.fail(err, "Submission failed")
			}
			c.printf("%s", c.text.Submission(receipt))
			return nil
		},
	}
}

func validateCommand() *command {
	return &command{
		name:    "validate",
		args:    "<answer-url>",
		summary: "Check a stage answer URL",
		run: func(ctx context.Context, c *cli, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: hackportal validate <answer-url>")
			}
			result, err := c.team.ValidateChallenge(ctx, args[0])
			if err != nil {
				return c.fail(err, "Validation failed")
			}
			c.printf("%s", c.text.Validation(result))
			return nil
		},
	}
}

func pingCommand() *command {
	return &command{
		name:    "ping",
		summary: "Check that the portal API is reachable",
		run: func(ctx context.Context, c *cli, args []string) error {
			if err := c.client.Health(ctx); err != nil {
				return c.fail(err, "Portal health check failed")
			}
			c.printf("Portal reachable at %s\n", c.client.BaseURL())
			return nil
		},
	}
}

func logoutCommand() *command {
	var forget bool
	return &command{
		name:    "logout",
		summary: "Sign out (-forget also deletes the stored password)",
		flags: func(fs *flag.FlagSet) {
			fs.BoolVar(&forget, "forget", false, "Delete the stored session and password")
		},
		run: func(ctx context.Context, c *cli, args []string) error {
			if forget {
				if err := c.team.Forget(ctx); err != nil {
					return c.fail(err, "Logout failed")
				}
				c.printf("Signed out and removed the stored password\n")
				return nil
			}
			if err := c.team.Logout(ctx); err != nil {
				return c.fail(err, "Logout failed")
			}
			c.printf("Signed out\n")
			return nil
		},
	}
}

func versionCommand() *command {
	return &command{
		name:    "version",
		summary: "Show version and exit",
		offline: true,
		run: func(ctx context.Context, c *cli, args []string) error {
			c.printf("hackportal %s\n", version)
			return nil
		},
	}
}
