package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/hackportal/internal/auth"
	"github.com/abrezinsky/hackportal/internal/browser"
	"github.com/abrezinsky/hackportal/internal/handlers"
	"github.com/abrezinsky/hackportal/internal/leaderboard"
	"github.com/abrezinsky/hackportal/internal/logger"
	"github.com/abrezinsky/hackportal/internal/repository"
	"github.com/abrezinsky/hackportal/internal/services"
	"github.com/abrezinsky/hackportal/internal/websocket"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

// App holds all dashboard dependencies
type App struct {
	log      logger.Logger
	handlers *handlers.Handlers
	repo     *repository.Repository
	settings *services.SettingsService
	poller   *leaderboard.Poller
	hub      *websocket.Hub
	auth     *auth.Auth
	scope    portal.Scope
}

// Option configures the dashboard
type Option func(*options)

type options struct {
	refresh time.Duration
	scope   portal.Scope
	version string
}

// WithRefresh sets the leaderboard refresh interval
func WithRefresh(d time.Duration) Option {
	return func(o *options) { o.refresh = d }
}

// WithScope sets the leaderboard scope used when none was saved
func WithScope(s portal.Scope) Option {
	return func(o *options) { o.scope = s }
}

// WithVersion sets the version shown on the page
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// New creates and initializes a new dashboard instance
func New(log logger.Logger, dbPath string, client portal.Client, templatesFS, staticFS fs.FS, dashAuth *auth.Auth, opts ...Option) (*App, error) {
	o := options{refresh: leaderboard.DefaultInterval, scope: portal.ScopeGlobal}
	for _, opt := range opts {
		opt(&o)
	}

	repo, err := repository.New(dbPath)
	if err != nil {
		return nil, err
	}

	// The page opens files itself, so the service only hands back URLs
	teamService := services.NewTeamService(log, repo, client, browser.Passthrough{})

	// The hub reports viewer visibility to the poller created just below
	var poller *leaderboard.Poller
	hub := websocket.New(log, func(visible bool) {
		poller.SetVisible(visible)
		if visible {
			go func() {
				if err := poller.Refresh(context.Background()); err != nil {
					log.Debug("Leaderboard refresh on show failed", "error", err)
				}
			}()
		}
	})
	poller = leaderboard.NewPoller(client, hub, log, leaderboard.WithInterval(o.refresh))
	// nobody is watching until a page connects
	poller.SetVisible(false)
	hub.Start()

	a := &App{
		log:      log,
		repo:     repo,
		settings: services.NewSettingsService(log, repo),
		poller:   poller,
		hub:      hub,
		auth:     dashAuth,
		scope:    o.scope,
	}

	staticServer := handlers.NewStaticServer(staticFS)
	h, err := handlers.New(teamService, &savedScope{Poller: poller, settings: a.settings, log: log}, templatesFS, staticServer, dashAuth, hub, log)
	if err != nil {
		poller.Stop()
		repo.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}
	h.Version = o.version
	a.handlers = h

	return a, nil
}

// savedScope remembers the chosen leaderboard tab across dashboard restarts
type savedScope struct {
	*leaderboard.Poller
	settings *services.SettingsService
	log      logger.Logger
}

func (s *savedScope) SetScope(ctx context.Context, scope portal.Scope) error {
	if err := s.settings.SetScope(ctx, scope); err != nil {
		s.log.Warn("Failed to save leaderboard scope", "error", err)
	}
	return s.Poller.SetScope(ctx, scope)
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Poller returns the dashboard's leaderboard poller
func (a *App) Poller() *leaderboard.Poller {
	return a.poller
}

// ShareURL returns the dashboard link including the access key
func (a *App) ShareURL() string {
	return a.handlers.ShareURL
}

// Close performs graceful shutdown of app resources
func (a *App) Close() {
	a.poller.Stop()
	a.repo.Close()
}

// Advertise records the LAN address of a dashboard listening on addr and
// returns the share link
func (a *App) Advertise(addr string) (string, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	baseURL := "http://" + net.JoinHostPort(getPreferredIP(realNetworkProvider{}), port)
	a.setDefaultBaseURL(baseURL)
	return a.ShareURL(), nil
}

// Run loads the leaderboard and serves the dashboard until ctx is done
func (a *App) Run(ctx context.Context, addr string) error {
	if a.ShareURL() == "" {
		if _, err := a.Advertise(addr); err != nil {
			return err
		}
	}

	// the first board is cached for the first viewer; the poller stays
	// paused until someone is watching
	go func() {
		if err := a.poller.Load(ctx, a.initialScope(ctx)); err != nil {
			a.log.Warn("Initial leaderboard load failed", "error", err)
		}
	}()

	srv := &http.Server{Addr: addr, Handler: a.Router()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	a.log.Info("Dashboard starting", "addr", addr)
	a.log.Info("Dashboard link", "url", a.ShareURL())

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// initialScope returns the saved scope, falling back to the configured one
func (a *App) initialScope(ctx context.Context) portal.Scope {
	return a.settings.Scope(ctx, a.scope)
}

// setDefaultBaseURL sets the dashboard URL setting if not already configured
// or if current value uses localhost (which isn't useful for QR codes), then
// builds the share link from it
func (a *App) setDefaultBaseURL(baseURL string) {
	ctx := context.Background()
	existing, _ := a.settings.DashboardURL(ctx)

	url := existing
	if existing == "" || strings.Contains(existing, "localhost") {
		url = baseURL
		if err := a.settings.SetDashboardURL(ctx, baseURL); err != nil {
			a.log.Warn("Failed to set default dashboard_url", "error", err)
		} else {
			a.log.Info("Default dashboard URL set", "url", baseURL)
		}
	}

	a.handlers.ShareURL = strings.TrimRight(url, "/") + "/?" + auth.KeyParam + "=" + a.auth.Key()
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IP address for LAN access.
// Private network addresses win; localhost is the last resort.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}
