package mock

import (
	"context"

	"github.com/abrezinsky/hackportal/internal/models"
	"github.com/abrezinsky/hackportal/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.MarkTimerStartedError = errors.New("database error")
//	svc := services.NewTeamService(log, mockRepo, client, opener)
type Repository struct {
	repository.FullRepository

	// ===== Session Errors =====
	SaveSessionError        error
	GetSessionError         error
	GetActiveSessionError   error
	ClearActiveSessionError error
	MarkTimerStartedError   error
	ListSessionsError       error
	DeleteSessionError      error

	// ===== Download Errors =====
	RecordDownloadError error
	ListDownloadsError  error

	// ===== Settings Errors =====
	GetSettingError error
	SetSettingError error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

func (m *Repository) SaveSession(ctx context.Context, s *models.Session) error {
	if m.SaveSessionError != nil {
		return m.SaveSessionError
	}
	return m.FullRepository.SaveSession(ctx, s)
}

func (m *Repository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	if m.GetSessionError != nil {
		return nil, m.GetSessionError
	}
	return m.FullRepository.GetSession(ctx, id)
}

func (m *Repository) GetActiveSession(ctx context.Context) (*models.Session, error) {
	if m.GetActiveSessionError != nil {
		return nil, m.GetActiveSessionError
	}
	return m.FullRepository.GetActiveSession(ctx)
}

func (m *Repository) ClearActiveSession(ctx context.Context) error {
	if m.ClearActiveSessionError != nil {
		return m.ClearActiveSessionError
	}
	return m.FullRepository.ClearActiveSession(ctx)
}

func (m *Repository) MarkTimerStarted(ctx context.Context, id string) error {
	if m.MarkTimerStartedError != nil {
		return m.MarkTimerStartedError
	}
	return m.FullRepository.MarkTimerStarted(ctx, id)
}

func (m *Repository) ListSessions(ctx context.Context) ([]models.Session, error) {
	if m.ListSessionsError != nil {
		return nil, m.ListSessionsError
	}
	return m.FullRepository.ListSessions(ctx)
}

func (m *Repository) DeleteSession(ctx context.Context, id string) error {
	if m.DeleteSessionError != nil {
		return m.DeleteSessionError
	}
	return m.FullRepository.DeleteSession(ctx, id)
}

func (m *Repository) RecordDownload(ctx context.Context, d *models.Download) error {
	if m.RecordDownloadError != nil {
		return m.RecordDownloadError
	}
	return m.FullRepository.RecordDownload(ctx, d)
}

func (m *Repository) ListDownloads(ctx context.Context, sessionID string) ([]models.Download, error) {
	if m.ListDownloadsError != nil {
		return nil, m.ListDownloadsError
	}
	return m.FullRepository.ListDownloads(ctx, sessionID)
}

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}

// Ensure Repository implements FullRepository
var _ repository.FullRepository = (*Repository)(nil)
