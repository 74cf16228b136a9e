package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

func TestMain(m *testing.M) {
	logutils.InitLogger("error")
	os.Exit(m.Run())
}

func setupTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()
	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func start(t *testing.T, db *SQLiteDatabase, jobID string, userID int64) {
	t.Helper()
	err := db.StartDownload(context.Background(), &Download{
		JobID:    jobID,
		UserID:   userID,
		ChatID:   userID,
		Platform: "youtube",
		URL:      "https://youtu.be/" + jobID,
	})
	if err != nil {
		t.Fatalf("StartDownload(%s): %v", jobID, err)
	}
}

func TestSQLiteDatabase_Stats(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	start(t, db, "a", 1)
	start(t, db, "b", 1)
	start(t, db, "c", 1)
	start(t, db, "d", 2)

	finishes := []struct {
		job     string
		outcome Outcome
	}{
		{"a", Outcome{Status: StatusCompleted, Files: 1, Bytes: 1000}},
		{"b", Outcome{Status: StatusFailed, Error: "boom"}},
		{"d", Outcome{Status: StatusCompleted, Files: 3, Bytes: 500}},
	}
	for _, f := range finishes {
		if err := db.FinishDownload(ctx, f.job, f.outcome); err != nil {
			t.Fatalf("FinishDownload(%s): %v", f.job, err)
		}
	}

	st, err := db.Stats(ctx, 1)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := Stats{UserTotal: 3, UserCompleted: 1, UserFailed: 1, GlobalTotal: 4, GlobalBytes: 1500}
	if st != want {
		t.Errorf("Stats = %+v, want %+v", st, want)
	}

	empty, err := db.Stats(ctx, 99)
	if err != nil {
		t.Fatalf("Stats for unknown user: %v", err)
	}
	if empty.UserTotal != 0 || empty.GlobalTotal != 4 {
		t.Errorf("unexpected stats for unknown user: %+v", empty)
	}
}

func TestSQLiteDatabase_FinishUnknownJob(t *testing.T) {
	db := setupTestDB(t)
	if err := db.FinishDownload(context.Background(), "missing", Outcome{Status: StatusCompleted}); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestSQLiteDatabase_DuplicateJob(t *testing.T) {
	db := setupTestDB(t)
	start(t, db, "dup", 1)
	err := db.StartDownload(context.Background(), &Download{JobID: "dup", UserID: 1, Platform: "youtube", URL: "u"})
	if err == nil {
		t.Error("expected unique constraint error")
	}
}

func TestSQLiteDatabase_MarkInterrupted(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	start(t, db, "running", 1)
	start(t, db, "done", 1)
	if err := db.FinishDownload(ctx, "done", Outcome{Status: StatusCompleted}); err != nil {
		t.Fatal(err)
	}

	n, err := db.MarkInterrupted(ctx)
	if err != nil {
		t.Fatalf("MarkInterrupted: %v", err)
	}
	if n != 1 {
		t.Errorf("MarkInterrupted = %d, want 1", n)
	}

	var status string
	if err := db.db.QueryRowContext(ctx, `SELECT status FROM downloads WHERE job_id = 'running'`).Scan(&status); err != nil {
		t.Fatal(err)
	}
	if status != string(StatusInterrupted) {
		t.Errorf("status = %q", status)
	}
}

func TestNewDatabase(t *testing.T) {
	ctx := context.Background()

	h, err := NewDatabase(ctx, "")
	if err != nil {
		t.Fatalf("NewDatabase(empty): %v", err)
	}
	if h.Enabled() {
		t.Error("empty path should disable history")
	}

	path := filepath.Join(t.TempDir(), "history.db")
	h, err = NewDatabase(ctx, path)
	if err != nil {
		t.Fatalf("NewDatabase(%s): %v", path, err)
	}
	defer h.Close()
	if !h.Enabled() {
		t.Error("sqlite history should be enabled")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}
