package database

import "time"

type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Download is one row of the download history.
type Download struct {
	JobID      string
	UserID     int64
	ChatID     int64
	Platform   string
	URL        string
	Status     Status
	Title      string
	Files      int
	Bytes      int64
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Outcome is what a finished job reports back.
type Outcome struct {
	Status Status
	Title  string
	Files  int
	Bytes  int64
	Error  string
}

// Stats backs the /stats command.
type Stats struct {
	UserTotal     int
	UserCompleted int
	UserFailed    int
	GlobalTotal   int
	GlobalBytes   int64
}
