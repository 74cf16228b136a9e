package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/notifier"
)

var ErrShuttingDown = errors.New("worker is shutting down")

// Job is one unit of work. Run receives a context canceled on Shutdown or after the job timeout.
// Dropped, when set, is called instead of Run for a queued job discarded at shutdown.
type Job struct {
	ID       string
	Run      func(ctx context.Context) error
	Dropped  func(ctx context.Context)
	Notifier notifier.QueueNotifier
}

// Manager runs jobs in their own goroutines, at most maxConcurrent at a time.
// Jobs over the cap wait in FIFO order.
type Manager struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	queued  []string
	active  int
	closed  bool
}

func NewManager(maxConcurrent int, jobTimeout time.Duration) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		timeout: jobTimeout,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Submit schedules job and returns immediately. ctx only carries request values
// such as the request ID; the job outlives it.
func (m *Manager) Submit(ctx context.Context, job Job) error {
	if job.Notifier == nil {
		job.Notifier = notifier.Noop
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrShuttingDown
	}
	m.wg.Add(1)
	immediate := m.sem.TryAcquire(1)
	position := 0
	if immediate {
		m.active++
	} else {
		m.queued = append(m.queued, job.ID)
		position = len(m.queued)
	}
	m.mu.Unlock()

	jobCtx := m.baseCtx
	if id := logutils.RequestID(ctx); id != "" {
		jobCtx = logutils.WithRequestID(jobCtx, id)
	}
	log := logutils.Log.WithContext(ctx).WithField("job_id", job.ID)

	if !immediate {
		log.WithField("position", position).Info("Job queued")
		job.Notifier.OnQueued(position)
	}

	go func() {
		defer m.wg.Done()

		if !immediate {
			err := m.sem.Acquire(jobCtx, 1)
			if err == nil && jobCtx.Err() != nil {
				m.sem.Release(1)
				err = jobCtx.Err()
			}
			m.mu.Lock()
			m.removeQueued(job.ID)
			if err == nil {
				m.active++
			}
			m.mu.Unlock()
			if err != nil {
				log.Info("Queued job dropped on shutdown")
				job.Notifier.OnDropped()
				if job.Dropped != nil {
					job.Dropped(context.WithoutCancel(jobCtx))
				}
				return
			}
		}
		defer func() {
			m.mu.Lock()
			m.active--
			m.mu.Unlock()
			m.sem.Release(1)
		}()

		m.run(jobCtx, job, log)
	}()
	return nil
}

func (m *Manager) run(ctx context.Context, job Job, log *logutils.Logger) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("Job panicked")
		}
	}()

	job.Notifier.OnStarted()
	started := time.Now()
	log.Info("Job started")

	if err := job.Run(ctx); err != nil {
		log.WithError(err).WithField("elapsed", time.Since(started).Round(time.Millisecond)).Warn("Job failed")
		return
	}
	log.WithField("elapsed", time.Since(started).Round(time.Millisecond)).Info("Job completed")
}

func (m *Manager) removeQueued(id string) {
	for i, q := range m.queued {
		if q == id {
			m.queued = append(m.queued[:i], m.queued[i+1:]...)
			return
		}
	}
}

func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Manager) QueueCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queued)
}

// Shutdown rejects new jobs, cancels running and queued ones, and waits for them to return.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logutils.Log.Info("All jobs stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}

func (*Manager) Name() string {
	return "worker"
}
