// Package config resolves hackportal settings from flags, the environment,
// an optional .env file and defaults, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/abrezinsky/hackportal/pkg/portal"
)

// Environment keys
const (
	EnvAPIURL        = "HACKPORTAL_API_URL"
	EnvTimeout       = "HACKPORTAL_TIMEOUT"
	EnvRateLimit     = "HACKPORTAL_RATE_LIMIT"
	EnvDB            = "HACKPORTAL_DB"
	EnvRefresh       = "HACKPORTAL_REFRESH"
	EnvScope         = "HACKPORTAL_SCOPE"
	EnvLogLevel      = "LOG_LEVEL"
	EnvDashboardPort = "HACKPORTAL_DASHBOARD_PORT"
	EnvSaveDir       = "HACKPORTAL_SAVE_DIR"
	EnvFile          = "HACKPORTAL_ENV_FILE"
)

// Config holds resolved settings
type Config struct {
	APIURL        string
	Timeout       time.Duration
	RateLimit     float64
	DBPath        string
	Refresh       time.Duration
	Scope         string
	LogLevel      string
	DashboardPort int
	SaveDir       string
	Demo          bool
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		APIURL:        "http://localhost:8000",
		Timeout:       30 * time.Second,
		RateLimit:     5,
		DBPath:        defaultDBPath(),
		Refresh:       30 * time.Second,
		Scope:         string(portal.ScopeGlobal),
		LogLevel:      "info",
		DashboardPort: 8090,
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".hackportal", "session.db")
	}
	return filepath.Join(home, ".hackportal", "session.db")
}

// Load resolves the configuration for a command and returns the arguments
// left after the flags. extra registers command-specific flags on the same set.
func Load(name string, args []string, output io.Writer, extra ...func(*flag.FlagSet)) (Config, []string, error) {
	cfg := Default()

	dotenv, err := readEnvFile(os.Getenv(EnvFile))
	if err != nil {
		return Config{}, nil, err
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, nil, err
	}

	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	if output != nil {
		flags.SetOutput(output)
	}
	cfg.RegisterFlags(flags)
	for _, register := range extra {
		register(flags)
	}
	if err := flags.Parse(args); err != nil {
		return Config{}, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, nil, err
	}
	return cfg, flags.Args(), nil
}

// readEnvFile reads a .env file without touching the process environment.
// A missing file is not an error.
func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		path = ".env"
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return values, nil
}

func (c *Config) applyEnv(lookup func(string) string) error {
	if v := lookup(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := lookup(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s env variable: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v := lookup(EnvRateLimit); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s env variable: %w", EnvRateLimit, err)
		}
		c.RateLimit = rps
	}
	if v := lookup(EnvDB); v != "" {
		c.DBPath = v
	}
	if v := lookup(EnvRefresh); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s env variable: %w", EnvRefresh, err)
		}
		c.Refresh = d
	}
	if v := lookup(EnvScope); v != "" {
		c.Scope = v
	}
	if v := lookup(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := lookup(EnvDashboardPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s env variable: %w", EnvDashboardPort, err)
		}
		c.DashboardPort = port
	}
	if v := lookup(EnvSaveDir); v != "" {
		c.SaveDir = v
	}
	return nil
}

// RegisterFlags adds the shared flags to flags, using the current values as defaults
func (c *Config) RegisterFlags(flags *flag.FlagSet) {
	flags.StringVar(&c.APIURL, "api", c.APIURL, "Portal API base URL")
	flags.DurationVar(&c.Timeout, "timeout", c.Timeout, "HTTP request timeout")
	flags.Float64Var(&c.RateLimit, "rate", c.RateLimit, "Maximum API requests per second")
	flags.StringVar(&c.DBPath, "db", c.DBPath, "Session database path")
	flags.DurationVar(&c.Refresh, "refresh", c.Refresh, "Leaderboard refresh interval")
	flags.StringVar(&c.Scope, "scope", c.Scope, "Leaderboard scope (global, EMEA, AMRS, APAC)")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	flags.IntVar(&c.DashboardPort, "port", c.DashboardPort, "Dashboard HTTP port")
	flags.StringVar(&c.SaveDir, "save-dir", c.SaveDir, "Download files into this directory instead of opening a browser")
	flags.BoolVar(&c.Demo, "demo", c.Demo, "Use an in-memory demo portal instead of the API")
}

// Validate checks the resolved settings
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API URL %q: must be an http(s) URL with a host", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Refresh <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", c.Refresh)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %g", c.RateLimit)
	}
	if _, err := portal.ParseScope(c.Scope); err != nil {
		return err
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.DashboardPort < 1 || c.DashboardPort > 65535 {
		return fmt.Errorf("dashboard port must be between 1 and 65535, got %d", c.DashboardPort)
	}
	if c.DBPath == "" {
		return errors.New("session database path is required")
	}
	return nil
}

// PortalScope returns the configured leaderboard scope
func (c Config) PortalScope() portal.Scope {
	scope, err := portal.ParseScope(c.Scope)
	if err != nil {
		return portal.ScopeGlobal
	}
	return scope
}
