package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

// Service is anything that must be stopped before the process exits.
type Service interface {
	Name() string
	Shutdown(ctx context.Context) error
}

// Manager stops registered services in stages. Services inside one stage
// stop in parallel; stages run in registration order.
type Manager struct {
	stages  [][]Service
	timeout time.Duration
	mu      sync.Mutex
}

func NewManager(timeout time.Duration) *Manager {
	return &Manager{timeout: timeout}
}

// Register adds one stage made of services.
func (m *Manager) Register(services ...Service) {
	if len(services) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stages = append(m.stages, services)
	for _, s := range services {
		logutils.Log.WithFields(map[string]any{
			"service": s.Name(),
			"stage":   len(m.stages),
		}).Debug("Service registered for graceful shutdown")
	}
}

// Shutdown stops every stage within the manager timeout and joins the errors.
func (m *Manager) Shutdown() error {
	logutils.Log.Info("Starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	stages := make([][]Service, len(m.stages))
	copy(stages, m.stages)
	m.mu.Unlock()

	var errs []error
	for _, stage := range stages {
		if err := shutdownStage(ctx, stage); err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			logutils.Log.Warn("Shutdown timeout exceeded, forcing shutdown")
			errs = append(errs, fmt.Errorf("shutdown timeout exceeded"))
			break
		}
	}

	if len(errs) > 0 {
		logutils.Log.WithField("error_count", len(errs)).Error("Some services failed to shutdown gracefully")
		return errors.Join(errs...)
	}

	logutils.Log.Info("Graceful shutdown completed successfully")
	return nil
}

func shutdownStage(ctx context.Context, services []Service) error {
	errChan := make(chan error, len(services))
	var wg sync.WaitGroup

	for _, service := range services {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()

			log := logutils.Log.WithField("service", svc.Name())
			log.Info("Shutting down service")
			if err := svc.Shutdown(ctx); err != nil {
				log.WithError(err).Error("Error during service shutdown")
				errChan <- fmt.Errorf("service %s shutdown failed: %w", svc.Name(), err)
				return
			}
			log.Info("Service shutdown completed")
		}(service)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	close(errChan)
	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Closer adapts anything with Close, such as the history database.
type Closer struct {
	name string
	c    interface{ Close() error }
}

func NewCloser(name string, c interface{ Close() error }) *Closer {
	return &Closer{name: name, c: c}
}

func (c *Closer) Name() string { return c.name }

func (c *Closer) Shutdown(_ context.Context) error {
	return c.c.Close()
}

// HTTPServer is satisfied by *http.Server.
type HTTPServer interface {
	Shutdown(ctx context.Context) error
}

type HTTPServerShutdown struct {
	server HTTPServer
}

func NewHTTPServerShutdown(server HTTPServer) *HTTPServerShutdown {
	return &HTTPServerShutdown{server: server}
}

func (h *HTTPServerShutdown) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

func (*HTTPServerShutdown) Name() string {
	return "http_server"
}

// Func turns a named function into a Service.
type Func struct {
	name string
	fn   func(ctx context.Context) error
}

func NewFunc(name string, fn func(ctx context.Context) error) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Shutdown(ctx context.Context) error {
	return f.fn(ctx)
}
