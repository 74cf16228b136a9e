package database

import (
	"context"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

// History records downloads for /stats. Implementations must be safe for concurrent use.
type History interface {
	StartDownload(ctx context.Context, d *Download) error
	FinishDownload(ctx context.Context, jobID string, outcome Outcome) error
	Stats(ctx context.Context, userID int64) (Stats, error)
	Enabled() bool
	Close() error
}

// NewDatabase opens the sqlite history at path. An empty path disables history.
func NewDatabase(ctx context.Context, path string) (History, error) {
	if path == "" {
		logutils.Log.Info("DB_PATH is empty, download history is disabled")
		return NoopHistory{}, nil
	}
	db, err := NewSQLiteDatabase(path)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if n, err := db.MarkInterrupted(ctx); err != nil {
		logutils.Log.WithError(err).Warn("Failed to mark interrupted downloads")
	} else if n > 0 {
		logutils.Log.WithField("count", n).Info("Marked downloads left running by the previous process as interrupted")
	}

	logutils.Log.WithField("path", path).Info("Database initialized successfully")
	return db, nil
}

// NoopHistory is used when history is disabled.
type NoopHistory struct{}

func (NoopHistory) StartDownload(context.Context, *Download) error { return nil }
func (NoopHistory) FinishDownload(context.Context, string, Outcome) error { return nil }
func (NoopHistory) Stats(context.Context, int64) (Stats, error) { return Stats{}, nil }
func (NoopHistory) Enabled() bool { return false }
func (NoopHistory) Close() error { return nil }
