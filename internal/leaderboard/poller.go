package leaderboard

import (
	"context"
	"sync"
	"time"

	"github.com/abrezinsky/hackportal/internal/errors"
	"github.com/abrezinsky/hackportal/internal/logger"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

// DefaultInterval is the refresh period after a successful load
const DefaultInterval = 30 * time.Second

// LoadFailed is shown for a rejected leaderboard request without a detail
const LoadFailed = "Failed to load leaderboard"

// View receives rendered boards and load errors
type View interface {
	ShowBoard(b Board)
	ShowError(scope portal.Scope, msg string)
}

// Option configures a Poller
type Option func(*Poller)

// WithInterval sets the refresh period
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock replaces time.Now for board timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

// Poller loads a leaderboard scope and refreshes it while the view is visible.
//
// At most one refresh schedule exists at a time. A successful load replaces
// it; hiding the view or stopping the poller cancels it.
type Poller struct {
	client   portal.Client
	view     View
	log      logger.Logger
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	scope   portal.Scope
	loaded  bool
	hidden  bool
	stopped bool
	cancel  context.CancelFunc
	last    *Board
}

// NewPoller creates a Poller rendering into view
func NewPoller(client portal.Client, view View, log logger.Logger, opts ...Option) *Poller {
	p := &Poller{
		client:   client,
		view:     view,
		log:      log,
		interval: DefaultInterval,
		now:      time.Now,
		scope:    portal.ScopeGlobal,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load makes scope current and fetches it. On success the board is rendered
// and the refresh schedule restarted; on failure the error is rendered and the
// schedule is left alone.
func (p *Poller) Load(ctx context.Context, scope portal.Scope) error {
	if scope == "" {
		scope = portal.ScopeGlobal
	}
	p.mu.Lock()
	p.scope = scope
	p.loaded = true
	p.mu.Unlock()

	return p.fetch(ctx, scope, false)
}

// SetScope switches to scope. The pending refresh is cancelled first so it
// cannot fire for the old scope.
func (p *Poller) SetScope(ctx context.Context, scope portal.Scope) error {
	p.mu.Lock()
	p.cancelLocked()
	p.mu.Unlock()
	return p.Load(ctx, scope)
}

// Refresh reloads the current scope
func (p *Poller) Refresh(ctx context.Context) error {
	return p.Load(ctx, p.Scope())
}

// SetVisible cancels the schedule when the view is hidden and restarts it
// when the view is shown again
func (p *Poller) SetVisible(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hidden == !visible {
		return
	}
	p.hidden = !visible
	if p.hidden {
		p.cancelLocked()
		p.log.Debug("Leaderboard hidden, refresh paused")
		return
	}
	if p.loaded {
		p.scheduleLocked()
		p.log.Debug("Leaderboard visible, refresh resumed", "scope", string(p.scope))
	}
}

// Visible reports whether the view is visible
func (p *Poller) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.hidden
}

// Stop cancels the schedule for good
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.cancelLocked()
}

// Scope returns the last requested scope
func (p *Poller) Scope() portal.Scope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scope
}

// Scheduled reports whether a refresh schedule is active
func (p *Poller) Scheduled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Last returns the most recently rendered board
func (p *Poller) Last() (Board, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Board{}, false
	}
	return *p.last, true
}

// Interval returns the refresh period
func (p *Poller) Interval() time.Duration {
	return p.interval
}

func (p *Poller) fetch(ctx context.Context, scope portal.Scope, fromTick bool) error {
	entries, err := p.client.Leaderboard(ctx, scope)

	p.mu.Lock()
	if p.scope != scope {
		// a newer scope was requested while this one was in flight
		p.mu.Unlock()
		return nil
	}
	if err != nil {
		p.mu.Unlock()
		if fromTick && ctx.Err() != nil {
			return nil
		}
		p.log.Warn("Leaderboard load failed", "scope", string(scope), "error", err)
		p.view.ShowError(scope, errors.UserMessage(err, LoadFailed))
		return err
	}

	board := BuildBoard(scope, entries, p.now())
	p.last = &board
	p.scheduleLocked()
	p.mu.Unlock()

	p.log.Debug("Leaderboard loaded", "scope", string(scope), "teams", len(entries))
	p.view.ShowBoard(board)
	return nil
}

// scheduleLocked replaces the refresh schedule. Nothing is scheduled while
// hidden or stopped. Callers hold p.mu.
func (p *Poller) scheduleLocked() {
	p.cancelLocked()
	if p.hidden || p.stopped {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx)
}

func (p *Poller) cancelLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// ticks do not wait for a slow previous request
			go p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	p.fetch(ctx, p.Scope(), true)
}
