package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/hackportal/internal/models"
)

// activeSessionKey is the settings key holding the active session id
const activeSessionKey = "active_session"

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository, creating the database directory if needed
func New(dbPath string) (*Repository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with a single connection; :memory: needs it to share one database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			team_name TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			region TEXT NOT NULL DEFAULT '',
			current_stage INTEGER NOT NULL DEFAULT 0,
			challenge_open BOOLEAN NOT NULL DEFAULT 0,
			start_time TEXT NOT NULL DEFAULT '',
			total_time REAL NOT NULL DEFAULT 0,
			stage1_pdf_url TEXT NOT NULL DEFAULT '',
			timer_started BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			url TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			stage INTEGER NOT NULL DEFAULT 0,
			timer_requested BOOLEAN NOT NULL DEFAULT 0,
			timer_error TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_session ON downloads(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// ==================== Session Methods ====================

const sessionColumns = `id, team_name, password, region, current_stage, challenge_open,
	start_time, total_time, stage1_pdf_url, timer_started, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.TeamName, &s.Password, &s.Region, &s.CurrentStage, &s.ChallengeOpen,
		&s.StartTime, &s.TotalTime, &s.Stage1PDFURL, &s.TimerStarted, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSession inserts or updates a session and makes it the active one.
// A session without an ID takes over the stored session of the same team.
func (r *Repository) SaveSession(ctx context.Context, s *models.Session) error {
	if s.ID == "" {
		err := r.db.QueryRowContext(ctx, `SELECT id FROM sessions WHERE team_name = ?`, s.TeamName).Scan(&s.ID)
		if err == sql.ErrNoRows {
			s.ID = uuid.NewString()
		} else if err != nil {
			return err
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, team_name, password, region, current_stage, challenge_open,
			start_time, total_time, stage1_pdf_url, timer_started)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			team_name = excluded.team_name,
			password = excluded.password,
			region = excluded.region,
			current_stage = excluded.current_stage,
			challenge_open = excluded.challenge_open,
			start_time = excluded.start_time,
			total_time = excluded.total_time,
			stage1_pdf_url = excluded.stage1_pdf_url,
			timer_started = excluded.timer_started,
			updated_at = CURRENT_TIMESTAMP
	`, s.ID, s.TeamName, s.Password, s.Region, s.CurrentStage, s.ChallengeOpen,
		s.StartTime, s.TotalTime, s.Stage1PDFURL, s.TimerStarted)
	if err != nil {
		return err
	}

	return r.SetSetting(ctx, activeSessionKey, s.ID)
}

// GetSession retrieves a session by id
func (r *Repository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return s, err
}

// GetActiveSession returns the active session, or ErrNotFound
func (r *Repository) GetActiveSession(ctx context.Context) (*models.Session, error) {
	id, err := r.GetSetting(ctx, activeSessionKey)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrNotFound
	}
	return r.GetSession(ctx, id)
}

// ClearActiveSession forgets which session is active. Stored sessions are kept.
func (r *Repository) ClearActiveSession(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, activeSessionKey)
	return err
}

// MarkTimerStarted records that the session's timer was started
func (r *Repository) MarkTimerStarted(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET timer_started = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessions returns stored sessions, most recently used first
func (r *Repository) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY updated_at DESC, team_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// DeleteSession deletes a session and its downloads
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ? AND value = ?`, activeSessionKey, id)
	return err
}

// ==================== Download Methods ====================

// RecordDownload stores an opened file and sets its ID
func (r *Repository) RecordDownload(ctx context.Context, d *models.Download) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO downloads (session_id, url, location, stage, timer_requested, timer_error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.SessionID, d.URL, d.Location, d.Stage, d.TimerRequested, d.TimerError)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

// ListDownloads returns a session's downloads, oldest first
func (r *Repository) ListDownloads(ctx context.Context, sessionID string) ([]models.Download, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, url, location, stage, timer_requested, timer_error, created_at
		FROM downloads WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var downloads []models.Download
	for rows.Next() {
		var d models.Download
		if err := rows.Scan(&d.ID, &d.SessionID, &d.URL, &d.Location, &d.Stage,
			&d.TimerRequested, &d.TimerError, &d.CreatedAt); err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}
	return downloads, rows.Err()
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}
