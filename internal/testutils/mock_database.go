package testutils

import (
	"context"
	"sync"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/database"
)

// MockHistory implements database.History in memory.
type MockHistory struct {
	mu       sync.Mutex
	started  map[string]database.Download
	finished map[string]database.Outcome

	Disabled   bool
	StatsValue database.Stats
	StatsError error
}

var _ database.History = (*MockHistory)(nil)

func NewMockHistory() *MockHistory {
	return &MockHistory{
		started:  make(map[string]database.Download),
		finished: make(map[string]database.Outcome),
	}
}

func (m *MockHistory) StartDownload(_ context.Context, d *database.Download) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[d.JobID] = *d
	return nil
}

func (m *MockHistory) FinishDownload(_ context.Context, jobID string, outcome database.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[jobID] = outcome
	return nil
}

func (m *MockHistory) Stats(_ context.Context, _ int64) (database.Stats, error) {
	return m.StatsValue, m.StatsError
}

func (m *MockHistory) Enabled() bool { return !m.Disabled }

func (*MockHistory) Close() error { return nil }

func (m *MockHistory) Started(jobID string) (database.Download, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.started[jobID]
	return d, ok
}

func (m *MockHistory) Finished(jobID string) (database.Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.finished[jobID]
	return o, ok
}

// Outcomes returns every finished outcome, in no particular order.
func (m *MockHistory) Outcomes() []database.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.Outcome, 0, len(m.finished))
	for _, o := range m.finished {
		out = append(out, o)
	}
	return out
}
