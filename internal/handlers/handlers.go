package handlers

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/abrezinsky/hackportal/internal/auth"
	"github.com/abrezinsky/hackportal/internal/leaderboard"
	"github.com/abrezinsky/hackportal/internal/logger"
	"github.com/abrezinsky/hackportal/internal/models"
	"github.com/abrezinsky/hackportal/internal/stagegate"
	"github.com/abrezinsky/hackportal/internal/view"
	"github.com/abrezinsky/hackportal/internal/websocket"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// TeamServicer is the part of the team service the dashboard uses
type TeamServicer interface {
	Current(ctx context.Context) (*models.Session, stagegate.Presentation, error)
	Download(ctx context.Context) (stagegate.DownloadResult, error)
}

// BoardServicer is the leaderboard poller as seen by the dashboard
type BoardServicer interface {
	Scope() portal.Scope
	Last() (leaderboard.Board, bool)
	SetScope(ctx context.Context, scope portal.Scope) error
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Team    TeamServicer
	Board   BoardServicer
	Hub     *websocket.Hub
	Auth    *auth.Auth
	Log     logger.Logger
	Version string
	// ShareURL is encoded into /qr.png
	ShareURL string

	views        *view.HTML
	staticServer http.Handler
	now          func() time.Time
}

// New creates a new Handlers instance with all dependencies
func New(
	team TeamServicer,
	board BoardServicer,
	templatesFS fs.FS,
	staticServer http.Handler,
	dashAuth *auth.Auth,
	hub *websocket.Hub,
	log logger.Logger,
) (*Handlers, error) {
	views, err := view.NewHTML(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return &Handlers{
		Team:         team,
		Board:        board,
		Hub:          hub,
		Auth:         dashAuth,
		Log:          log,
		views:        views,
		staticServer: staticServer,
		now:          time.Now,
	}, nil
}
