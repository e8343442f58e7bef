package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrezinsky/hackportal/pkg/portal"
)

// isolate points the .env lookup at an empty temp dir and clears hackportal env vars
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvFile, filepath.Join(dir, ".env"))
	for _, key := range []string{EnvAPIURL, EnvTimeout, EnvRateLimit, EnvDB, EnvRefresh, EnvScope, EnvLogLevel, EnvDashboardPort, EnvSaveDir} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, rest, err := Load("test", []string{}, io.Discard)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Refresh)
	assert.Equal(t, 5.0, cfg.RateLimit)
	assert.Equal(t, "global", cfg.Scope)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8090, cfg.DashboardPort)
	assert.Empty(t, cfg.SaveDir)
	assert.False(t, cfg.Demo)
	assert.Equal(t, "session.db", filepath.Base(cfg.DBPath))
}

func TestLoad_EnvVars(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAPIURL, "https://portal.example.com")
	t.Setenv(EnvTimeout, "5s")
	t.Setenv(EnvRefresh, "1m")
	t.Setenv(EnvScope, "apac")
	t.Setenv(EnvDashboardPort, "9000")
	t.Setenv(EnvRateLimit, "2.5")

	cfg, _, err := Load("test", nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.com", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, time.Minute, cfg.Refresh)
	assert.Equal(t, 9000, cfg.DashboardPort)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, portal.Scope(portal.RegionAPAC), cfg.PortalScope())
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv(EnvDashboardPort, "9000")
	t.Setenv(EnvAPIURL, "http://env.local")

	cfg, rest, err := Load("test", []string{"-port", "8080", "-api", "http://flag.local:8000", "-demo", "extra"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.DashboardPort)
	assert.Equal(t, "http://flag.local:8000", cfg.APIURL)
	assert.True(t, cfg.Demo)
	assert.Equal(t, []string{"extra"}, rest)
}

func TestLoad_DotEnvBelowEnv(t *testing.T) {
	dir := isolate(t)
	contents := "HACKPORTAL_API_URL=http://dotenv.local\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(contents), 0o600))
	t.Setenv(EnvLogLevel, "warn")

	cfg, _, err := Load("test", nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.local", cfg.APIURL)
	assert.Equal(t, "warn", cfg.LogLevel)

	// the process environment is left untouched
	_, set := os.LookupEnv(EnvAPIURL)
	assert.False(t, set)
}

func TestLoad_ExtraFlags(t *testing.T) {
	isolate(t)

	var watch bool
	_, _, err := Load("test", []string{"-watch"}, io.Discard, func(fs *flag.FlagSet) {
		fs.BoolVar(&watch, "watch", false, "watch")
	})
	require.NoError(t, err)
	assert.True(t, watch)
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{EnvTimeout, "soon"},
		{EnvRefresh, "often"},
		{EnvRateLimit, "fast"},
		{EnvDashboardPort, "http"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)
			_, _, err := Load("test", nil, io.Discard)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	isolate(t)
	_, _, err := Load("test", []string{"-nope"}, io.Discard)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad scheme", func(c *Config) { c.APIURL = "ftp://x" }},
		{"no host", func(c *Config) { c.APIURL = "http://" }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"negative refresh", func(c *Config) { c.Refresh = -time.Second }},
		{"zero rate", func(c *Config) { c.RateLimit = 0 }},
		{"bad scope", func(c *Config) { c.Scope = "mars" }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad port", func(c *Config) { c.DashboardPort = 70000 }},
		{"no db", func(c *Config) { c.DBPath = "" }},
	}

	assert.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPortalScope_FallsBackToGlobal(t *testing.T) {
	cfg := Default()
	cfg.Scope = "nowhere"
	assert.Equal(t, portal.ScopeGlobal, cfg.PortalScope())
}
