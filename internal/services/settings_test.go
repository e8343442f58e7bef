package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/abrezinsky/hackportal/internal/logger"
	"github.com/abrezinsky/hackportal/internal/repository/mock"
	"github.com/abrezinsky/hackportal/internal/services"
	"github.com/abrezinsky/hackportal/internal/testutil"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

func TestSettingsService_DashboardURL(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Nop{}, repo)
	ctx := context.Background()

	// Unset is empty, not an error
	url, err := svc.DashboardURL(ctx)
	if err != nil {
		t.Fatalf("DashboardURL failed: %v", err)
	}
	if url != "" {
		t.Errorf("expected empty URL, got %q", url)
	}

	if err := svc.SetDashboardURL(ctx, "http://192.168.1.20:8090"); err != nil {
		t.Fatalf("SetDashboardURL failed: %v", err)
	}

	url, err = svc.DashboardURL(ctx)
	if err != nil {
		t.Fatalf("DashboardURL failed: %v", err)
	}
	if url != "http://192.168.1.20:8090" {
		t.Errorf("expected saved URL, got %q", url)
	}
}

func TestSettingsService_DashboardURL_DatabaseError(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	repo.GetSettingError = errors.New("database error")
	svc := services.NewSettingsService(logger.Nop{}, repo)

	if _, err := svc.DashboardURL(context.Background()); err == nil {
		t.Error("expected database error to propagate")
	}
}

func TestSettingsService_Scope(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Nop{}, repo)
	ctx := context.Background()
	emea := portal.Scope(portal.RegionEMEA)

	if got := svc.Scope(ctx, emea); got != emea {
		t.Errorf("expected fallback with nothing saved, got %q", got)
	}

	if err := svc.SetScope(ctx, portal.Scope(portal.RegionAPAC)); err != nil {
		t.Fatalf("SetScope failed: %v", err)
	}
	if got := svc.Scope(ctx, emea); got != portal.Scope(portal.RegionAPAC) {
		t.Errorf("expected saved scope, got %q", got)
	}

	if err := repo.SetSetting(ctx, services.SettingScope, "MARS"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if got := svc.Scope(ctx, emea); got != emea {
		t.Errorf("expected fallback for unknown saved scope, got %q", got)
	}
}

func TestSettingsService_Scope_DatabaseError(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	repo.GetSettingError = errors.New("database error")
	svc := services.NewSettingsService(logger.Nop{}, repo)

	if got := svc.Scope(context.Background(), portal.ScopeGlobal); got != portal.ScopeGlobal {
		t.Errorf("expected fallback on database error, got %q", got)
	}
}

func TestSettingsService_SetScope_DatabaseError(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	repo.SetSettingError = errors.New("database error")
	svc := services.NewSettingsService(logger.Nop{}, repo)

	if err := svc.SetScope(context.Background(), portal.ScopeGlobal); err == nil {
		t.Error("expected database error to propagate")
	}
}
