package app

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/ratelimit"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/shutdown"
)

func TestMain(m *testing.M) {
	logutils.InitLogger("error")
	os.Exit(m.Run())
}

type fakeSource struct {
	ch      chan tgbotapi.Update
	dropped atomic.Bool
	stopped atomic.Bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan tgbotapi.Update, 10)}
}

func (f *fakeSource) DropPendingUpdates() error {
	f.dropped.Store(true)
	return nil
}

func (f *fakeSource) Updates() tgbotapi.UpdatesChannel { return f.ch }

func (f *fakeSource) StopUpdates() { f.stopped.Store(true) }

type fakeUpdater struct {
	runs atomic.Int32
}

func (u *fakeUpdater) RunUpdate(context.Context) { u.runs.Add(1) }

func TestRunProcessesUpdatesAndShutsDown(t *testing.T) {
	source := newFakeSource()
	var (
		mu   sync.Mutex
		seen []int
	)
	handled := make(chan struct{}, 10)
	updater := &fakeUpdater{}

	var closed atomic.Bool
	manager := shutdown.NewManager(time.Second)
	manager.Register(shutdown.NewFunc("probe", func(context.Context) error {
		closed.Store(true)
		return nil
	}))

	a := &App{
		cfg:    &config.Config{},
		source: source,
		handle: func(_ context.Context, u tgbotapi.Update) {
			mu.Lock()
			seen = append(seen, u.UpdateID)
			mu.Unlock()
			handled <- struct{}{}
		},
		shutdown: manager,
	}
	a.updaters = append(a.updaters, updater)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	source.ch <- tgbotapi.Update{UpdateID: 1}
	source.ch <- tgbotapi.Update{UpdateID: 2}
	for i := 0; i < 2; i++ {
		select {
		case <-handled:
		case <-time.After(2 * time.Second):
			t.Fatal("update was not handled")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("handled updates = %v, want [1 2]", seen)
	}
	if !source.dropped.Load() {
		t.Error("pending updates were not dropped")
	}
	if !source.stopped.Load() {
		t.Error("update polling was not stopped")
	}
	if !closed.Load() {
		t.Error("shutdown services did not run")
	}
	if updater.runs.Load() < 1 {
		t.Error("updater did not run at startup")
	}
}

func TestProcessUpdatesStopsOnClosedChannel(t *testing.T) {
	source := newFakeSource()
	close(source.ch)
	a := &App{source: source, handle: func(context.Context, tgbotapi.Update) {}}

	done := make(chan struct{})
	go func() {
		a.processUpdates(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processUpdates did not return on closed channel")
	}
}

func TestNewLimiter(t *testing.T) {
	tests := []struct {
		name     string
		settings config.RateLimitConfig
		wantNoOp bool
	}{
		{name: "disabled", settings: config.RateLimitConfig{}, wantNoOp: true},
		{name: "zero window", settings: config.RateLimitConfig{Requests: 3}, wantNoOp: true},
		{name: "enabled", settings: config.RateLimitConfig{Requests: 3, Window: time.Minute}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLimiter(tt.settings)
			_, isNoOp := l.(ratelimit.NoOp)
			if isNoOp != tt.wantNoOp {
				t.Errorf("newLimiter() NoOp = %v, want %v", isNoOp, tt.wantNoOp)
			}
			if ul, ok := l.(*ratelimit.UserLimiter); ok {
				ul.Stop()
			}
		})
	}
}
