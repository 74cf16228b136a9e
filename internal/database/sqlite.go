package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
)

type SQLiteDatabase struct {
	db *sql.DB
}

var _ History = (*SQLiteDatabase)(nil)

func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, utils.WrapError(utils.ErrDatabaseError, "open sqlite: "+err.Error(), map[string]any{"path": path})
	}
	// sqlite allows one writer; a single connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	return &SQLiteDatabase{db: db}, nil
}

func (s *SQLiteDatabase) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL UNIQUE,
			user_id INTEGER NOT NULL,
			chat_id INTEGER NOT NULL,
			platform TEXT NOT NULL,
			url TEXT NOT NULL,
			status TEXT NOT NULL,
			title TEXT,
			files INTEGER DEFAULT 0,
			bytes INTEGER DEFAULT 0,
			error TEXT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_user ON downloads(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	return nil
}

func (s *SQLiteDatabase) StartDownload(ctx context.Context, d *Download) error {
	startedAt := d.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads (job_id, user_id, chat_id, platform, url, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.JobID, d.UserID, d.ChatID, d.Platform, d.URL, StatusRunning, startedAt,
	)
	if err != nil {
		return fmt.Errorf("insert download %s: %w", d.JobID, err)
	}
	return nil
}

func (s *SQLiteDatabase) FinishDownload(ctx context.Context, jobID string, outcome Outcome) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE downloads
		SET status = ?, title = ?, files = ?, bytes = ?, error = ?, finished_at = ?
		WHERE job_id = ?`,
		outcome.Status, outcome.Title, outcome.Files, outcome.Bytes,
		utils.Truncate(outcome.Error, 500), time.Now().UTC(), jobID,
	)
	if err != nil {
		return fmt.Errorf("update download %s: %w", jobID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("download %s not found", jobID)
	}
	return nil
}

// MarkInterrupted closes rows a crashed or killed process left in the running state.
func (s *SQLiteDatabase) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE downloads SET status = ?, finished_at = ? WHERE status = ?`,
		StatusInterrupted, time.Now().UTC(), StatusRunning,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteDatabase) Stats(ctx context.Context, userID int64) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM downloads WHERE user_id = ?`,
		StatusCompleted, StatusFailed, userID,
	).Scan(&st.UserTotal, &st.UserCompleted, &st.UserFailed)
	if err != nil {
		return Stats{}, fmt.Errorf("user stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN bytes ELSE 0 END), 0) FROM downloads`,
		StatusCompleted,
	).Scan(&st.GlobalTotal, &st.GlobalBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("global stats: %w", err)
	}
	return st, nil
}

func (*SQLiteDatabase) Enabled() bool {
	return true
}

func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}
