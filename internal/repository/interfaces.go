package repository

import (
	"context"

	"github.com/abrezinsky/hackportal/internal/models"
)

// SessionRepository stores signed-in teams. At most one session is active.
type SessionRepository interface {
	SaveSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	GetActiveSession(ctx context.Context) (*models.Session, error)
	ClearActiveSession(ctx context.Context) error
	MarkTimerStarted(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// DownloadRepository records opened files
type DownloadRepository interface {
	RecordDownload(ctx context.Context, d *models.Download) error
	ListDownloads(ctx context.Context, sessionID string) ([]models.Download, error)
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// FullRepository combines all repository interfaces
type FullRepository interface {
	SessionRepository
	DownloadRepository
	SettingsRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
