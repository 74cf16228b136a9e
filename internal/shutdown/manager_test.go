package shutdown

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

func TestMain(m *testing.M) {
	logutils.InitLogger("error")
	os.Exit(m.Run())
}

type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) service(name string, err error) Service {
	return NewFunc(name, func(context.Context) error {
		r.mu.Lock()
		r.order = append(r.order, name)
		r.mu.Unlock()
		return err
	})
}

func TestManager_StagesRunInOrder(t *testing.T) {
	rec := &recorder{}
	m := NewManager(time.Second)
	m.Register(rec.service("worker", nil))
	m.Register(rec.service("http_server", nil), rec.service("updater", nil))
	m.Register(rec.service("database", nil))

	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if len(rec.order) != 4 {
		t.Fatalf("order = %v, want 4 services", rec.order)
	}
	if rec.order[0] != "worker" || rec.order[3] != "database" {
		t.Errorf("order = %v, want worker first and database last", rec.order)
	}
}

func TestManager_JoinsErrors(t *testing.T) {
	rec := &recorder{}
	errDB := errors.New("db busy")
	m := NewManager(time.Second)
	m.Register(rec.service("worker", nil))
	m.Register(rec.service("database", errDB))

	err := m.Shutdown()
	if !errors.Is(err, errDB) {
		t.Errorf("Shutdown() error = %v, want it to wrap %v", err, errDB)
	}
}

func TestManager_Timeout(t *testing.T) {
	rec := &recorder{}
	m := NewManager(50 * time.Millisecond)
	m.Register(NewFunc("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(100 * time.Millisecond)
		return ctx.Err()
	}))
	m.Register(rec.service("database", nil))

	if err := m.Shutdown(); err == nil {
		t.Fatal("Shutdown() expected a timeout error")
	}
	if len(rec.order) != 0 {
		t.Errorf("later stages should be skipped after a timeout, ran %v", rec.order)
	}
}

type fakeCloser struct{ closed bool }

func (f *fakeCloser) Close() error {
	f.closed = true
	return nil
}

type fakeServer struct{ stopped bool }

func (f *fakeServer) Shutdown(context.Context) error {
	f.stopped = true
	return nil
}

func TestAdapters(t *testing.T) {
	c := &fakeCloser{}
	s := &fakeServer{}
	m := NewManager(time.Second)
	m.Register(NewHTTPServerShutdown(s))
	m.Register(NewCloser("database", c))

	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !c.closed || !s.stopped {
		t.Errorf("closed = %v, stopped = %v", c.closed, s.stopped)
	}
	if NewHTTPServerShutdown(s).Name() != "http_server" {
		t.Error("unexpected HTTP server service name")
	}
}
