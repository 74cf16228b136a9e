package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/testutils"
)

func TestMain(m *testing.M) {
	logutils.InitLogger("error")
	os.Exit(m.Run())
}

type queueRecorder struct {
	mu        sync.Mutex
	positions []int
	started   int
	dropped   int
}

func (q *queueRecorder) OnQueued(position int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.positions = append(q.positions, position)
}

func (q *queueRecorder) OnStarted() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.started++
}

func (q *queueRecorder) OnDropped() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dropped++
}

func blockingJob(id string, release <-chan struct{}, ran *int32) Job {
	return Job{
		ID: id,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(ran, 1)
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

func TestManager_CapsConcurrencyAndQueues(t *testing.T) {
	m := NewManager(1, 0)
	release := make(chan struct{})
	var ran int32

	if err := m.Submit(context.Background(), blockingJob("a", release, &ran)); err != nil {
		t.Fatalf("Submit(a) error = %v", err)
	}
	rec := &queueRecorder{}
	second := blockingJob("b", release, &ran)
	second.Notifier = rec
	if err := m.Submit(context.Background(), second); err != nil {
		t.Fatalf("Submit(b) error = %v", err)
	}

	testutils.WaitForCondition(t, func() bool { return atomic.LoadInt32(&ran) == 1 }, time.Second, "first job starts")
	if m.ActiveCount() != 1 || m.QueueCount() != 1 {
		t.Errorf("active = %d, queued = %d, want 1 and 1", m.ActiveCount(), m.QueueCount())
	}
	rec.mu.Lock()
	if len(rec.positions) != 1 || rec.positions[0] != 1 {
		t.Errorf("queue notifications = %v, want [1]", rec.positions)
	}
	rec.mu.Unlock()

	close(release)
	testutils.WaitForCondition(t, func() bool {
		return atomic.LoadInt32(&ran) == 2 && m.ActiveCount() == 0
	}, time.Second, "both jobs finish")
	if m.QueueCount() != 0 {
		t.Errorf("QueueCount() = %d after drain", m.QueueCount())
	}
	rec.mu.Lock()
	if rec.started != 1 {
		t.Errorf("OnStarted called %d times, want 1", rec.started)
	}
	rec.mu.Unlock()
}

func TestManager_JobTimeout(t *testing.T) {
	m := NewManager(1, 20*time.Millisecond)
	errCh := make(chan error, 1)
	err := m.Submit(context.Background(), Job{ID: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		errCh <- ctx.Err()
		return ctx.Err()
	}})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	select {
	case got := <-errCh:
		if !errors.Is(got, context.DeadlineExceeded) {
			t.Errorf("job ctx error = %v, want deadline exceeded", got)
		}
	case <-time.After(time.Second):
		t.Fatal("job was not timed out")
	}
}

func TestManager_ShutdownCancelsAndRejects(t *testing.T) {
	m := NewManager(1, 0)
	var ran int32
	never := make(chan struct{})
	_ = m.Submit(context.Background(), blockingJob("running", never, &ran))
	_ = m.Submit(context.Background(), blockingJob("waiting", never, &ran))
	testutils.WaitForCondition(t, func() bool { return atomic.LoadInt32(&ran) == 1 }, time.Second, "first job starts")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Errorf("queued job should not run after shutdown, ran = %d", ran)
	}
	if err := m.Submit(context.Background(), blockingJob("late", never, &ran)); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Submit() after shutdown error = %v, want ErrShuttingDown", err)
	}
}

func TestManager_ShutdownNotifiesDroppedJobs(t *testing.T) {
	m := NewManager(1, 0)
	var ran int32
	never := make(chan struct{})
	_ = m.Submit(context.Background(), blockingJob("running", never, &ran))

	rec := &queueRecorder{}
	var droppedCalls int32
	waiting := blockingJob("waiting", never, &ran)
	waiting.Notifier = rec
	waiting.Dropped = func(ctx context.Context) {
		if ctx.Err() == nil {
			atomic.AddInt32(&droppedCalls, 1)
		}
	}
	_ = m.Submit(context.Background(), waiting)
	testutils.WaitForCondition(t, func() bool { return atomic.LoadInt32(&ran) == 1 }, time.Second, "first job starts")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.dropped != 1 || rec.started != 0 {
		t.Errorf("dropped = %d, started = %d, want 1 and 0", rec.dropped, rec.started)
	}
	if atomic.LoadInt32(&droppedCalls) != 1 {
		t.Errorf("Dropped called %d times with a live context, want 1", droppedCalls)
	}
}

func TestManager_RecoversPanics(t *testing.T) {
	m := NewManager(1, 0)
	_ = m.Submit(context.Background(), Job{ID: "boom", Run: func(context.Context) error {
		panic("boom")
	}})
	done := make(chan struct{})
	_ = m.Submit(context.Background(), Job{ID: "after", Run: func(context.Context) error {
		close(done)
		return nil
	}})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("slot was not released after a panic")
	}
}
