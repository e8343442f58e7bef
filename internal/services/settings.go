package services

import (
	"context"
	stderrors "errors"

	"github.com/abrezinsky/hackportal/internal/logger"
	"github.com/abrezinsky/hackportal/internal/repository"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

// Settings keys
const (
	SettingDashboardURL = "dashboard_url"
	SettingScope        = "leaderboard_scope"
)

// SettingsService keeps dashboard preferences between runs
type SettingsService struct {
	log  logger.Logger
	repo repository.SettingsRepository
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{log: log, repo: repo}
}

// DashboardURL returns the dashboard base URL
func (s *SettingsService) DashboardURL(ctx context.Context) (string, error) {
	value, err := s.repo.GetSetting(ctx, SettingDashboardURL)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return "", nil // not yet configured
		}
		return "", err
	}
	return value, nil
}

// SetDashboardURL saves the dashboard base URL
func (s *SettingsService) SetDashboardURL(ctx context.Context, url string) error {
	return s.repo.SetSetting(ctx, SettingDashboardURL, url)
}

// Scope returns the saved leaderboard scope, or fallback when none is saved
// or the saved value is no longer a known scope
func (s *SettingsService) Scope(ctx context.Context, fallback portal.Scope) portal.Scope {
	value, err := s.repo.GetSetting(ctx, SettingScope)
	if err != nil {
		if !stderrors.Is(err, repository.ErrNotFound) {
			s.log.Warn("Failed to read leaderboard scope", "error", err)
		}
		return fallback
	}
	scope, err := portal.ParseScope(value)
	if err != nil {
		s.log.Warn("Ignoring saved leaderboard scope", "scope", value, "error", err)
		return fallback
	}
	return scope
}

// SetScope saves the leaderboard scope
func (s *SettingsService) SetScope(ctx context.Context, scope portal.Scope) error {
	return s.repo.SetSetting(ctx, SettingScope, string(scope))
}
