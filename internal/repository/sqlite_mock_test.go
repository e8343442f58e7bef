package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/abrezinsky/hackportal/internal/models"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Repository{db: db}, mock
}

// TestListSessions_ScanError tests row scanning error
func TestListSessions_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	// current_stage should be an int
	rows := sqlmock.NewRows([]string{"id", "team_name", "password", "region", "current_stage", "challenge_open",
		"start_time", "total_time", "stage1_pdf_url", "timer_started", "created_at", "updated_at"}).
		AddRow("id-1", "rockets", "pw", "EMEA", "not-a-number", true, "", 0.0, "", false, nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM sessions").WillReturnRows(rows)

	if _, err := repo.ListSessions(context.Background()); err == nil {
		t.Error("expected error from scan failure, got nil")
	}
}

// TestListSessions_QueryError tests query failure
func TestListSessions_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM sessions").WillReturnError(errors.New("disk I/O error"))

	if _, err := repo.ListSessions(context.Background()); err == nil {
		t.Error("expected query error, got nil")
	}
}

// TestListDownloads_ScanError tests row scanning error
func TestListDownloads_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "session_id", "url", "location", "stage", "timer_requested", "timer_error", "created_at"}).
		AddRow("bad-id", "s", "http://x", "", 1, false, "", nil)
	mock.ExpectQuery("SELECT (.+) FROM downloads").WithArgs("s").WillReturnRows(rows)

	if _, err := repo.ListDownloads(context.Background(), "s"); err == nil {
		t.Error("expected error from scan failure, got nil")
	}
}

// TestSaveSession_LookupError tests the team lookup failing
func TestSaveSession_LookupError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT id FROM sessions").WithArgs("rockets").WillReturnError(errors.New("locked"))

	err := repo.SaveSession(context.Background(), &models.Session{TeamName: "rockets"})
	if err == nil || err.Error() != "locked" {
		t.Errorf("expected lookup error, got %v", err)
	}
}

// TestSaveSession_InsertError tests the upsert failing
func TestSaveSession_InsertError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO sessions").WillReturnError(errors.New("constraint failed"))

	err := repo.SaveSession(context.Background(), &models.Session{ID: "id-1", TeamName: "rockets"})
	if err == nil {
		t.Error("expected insert error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestMarkTimerStarted_RowsAffectedError tests a driver that cannot report affected rows
func TestMarkTimerStarted_RowsAffectedError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE sessions SET timer_started").
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("not supported")))

	if err := repo.MarkTimerStarted(context.Background(), "id-1"); err == nil {
		t.Error("expected rows affected error, got nil")
	}
}

// TestRecordDownload_LastInsertIDError tests a driver that cannot report the new id
func TestRecordDownload_LastInsertIDError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO downloads").WillReturnResult(sqlmock.NewErrorResult(errors.New("not supported")))

	if err := repo.RecordDownload(context.Background(), &models.Download{SessionID: "s", URL: "http://x"}); err == nil {
		t.Error("expected LastInsertId error, got nil")
	}
}

// TestGetActiveSession_SettingError tests a settings read failure
func TestGetActiveSession_SettingError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT value FROM settings").WillReturnError(errors.New("disk I/O error"))

	if _, err := repo.GetActiveSession(context.Background()); err == nil || err == ErrNotFound {
		t.Errorf("expected raw error, got %v", err)
	}
}

// TestGetActiveSession_EmptyValue tests an empty active id
func TestGetActiveSession_EmptyValue(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT value FROM settings").WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(""))

	if _, err := repo.GetActiveSession(context.Background()); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestDeleteSession_Error tests a delete failure
func TestDeleteSession_Error(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM sessions").WillReturnError(errors.New("busy"))

	if err := repo.DeleteSession(context.Background(), "id-1"); err == nil {
		t.Error("expected delete error, got nil")
	}
}
