package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/sysinfo"
)

const (
	jsonContentType = "application/json"
	healthPath      = "/healthz"
	statusPath      = "/status"
	requestTimeout  = 10 * time.Second
)

// JobCounter reports the worker load.
type JobCounter interface {
	ActiveCount() int
	QueueCount() int
}

type Options struct {
	Addr           string
	Version        string
	TempDir        string
	HistoryEnabled bool
	Jobs           JobCounter
}

// Server exposes liveness and a JSON status snapshot over HTTP.
type Server struct {
	opts    Options
	started time.Time
	srv     *http.Server
	collect func(ctx context.Context, path string) (*sysinfo.Snapshot, error)
}

func NewServer(opts Options) *Server {
	s := &Server{
		opts:    opts,
		started: time.Now(),
		collect: sysinfo.Collect,
	}
	s.srv = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get(healthPath, s.health)
	r.Get(statusPath, s.status)
	return r
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (*Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:         "ok",
		Version:        s.opts.Version,
		Uptime:         sysinfo.FormatUptime(time.Since(s.started)),
		HistoryEnabled: s.opts.HistoryEnabled,
	}
	if s.opts.Jobs != nil {
		resp.Jobs = JobsResponse{Active: s.opts.Jobs.ActiveCount(), Queued: s.opts.Jobs.QueueCount()}
	}
	snapshot, err := s.collect(r.Context(), s.opts.TempDir)
	if err != nil {
		logutils.Log.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).
			Warn("Failed to collect host status")
		resp.HostError = err.Error()
	} else {
		resp.Host = snapshot
	}
	writeJSON(w, http.StatusOK, resp)
}

// Start listens and serves. It returns nil once Shutdown has been called.
func (s *Server) Start() error {
	logutils.Log.WithField("addr", s.srv.Addr).Info("Health server starting")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logutils.Log.WithFields(map[string]any{
			"request_id":  middleware.GetReqID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("HTTP request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logutils.Log.WithError(err).Warn("Failed to encode JSON response")
	}
}
