package app

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/api"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/bot"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/database"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader/factory"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/filemanager"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/handlers"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/media"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/pipeline"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/ratelimit"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/shutdown"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/worker"
)

const shutdownTimeout = 30 * time.Second

type updateSource interface {
	DropPendingUpdates() error
	Updates() tgbotapi.UpdatesChannel
	StopUpdates()
}

// App holds the wired components of the bot.
type App struct {
	cfg     *config.Config
	version string

	source   updateSource
	handle   func(ctx context.Context, update tgbotapi.Update)
	updaters []downloader.Updater
	server   *api.Server
	shutdown *shutdown.Manager
}

// New builds every component. Nothing runs until Run is called.
func New(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	files := filemanager.NewManager(cfg.TempDir, cfg.MinFreeSpace())
	if err := files.Prepare(); err != nil {
		return nil, err
	}
	if _, err := files.SweepStale(filemanager.StaleJobMaxAge); err != nil {
		logutils.Log.WithError(err).Warn("Failed to sweep stale job directories")
	}

	history, err := database.NewDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	b, err := bot.NewBot(cfg.BotToken)
	if err != nil {
		history.Close()
		return nil, err
	}

	registry := factory.NewRegistry(cfg)
	pipe := pipeline.New(cfg, b, files, registry, media.NewCompressor(cfg.CompressionSettings), history)
	workers := worker.NewManager(cfg.DownloadSettings.MaxConcurrentDownloads, cfg.DownloadSettings.DownloadTimeout)
	limiter := newLimiter(cfg.RateLimitSettings)
	router := handlers.NewRouter(cfg, b, workers, pipe, history, limiter)

	a := &App{
		cfg:      cfg,
		version:  version,
		source:   b,
		handle:   router.HandleUpdate,
		updaters: registry.Updaters(),
		shutdown: shutdown.NewManager(shutdownTimeout),
	}

	if cfg.HealthAddr != "" {
		a.server = api.NewServer(api.Options{
			Addr:           cfg.HealthAddr,
			Version:        version,
			TempDir:        cfg.TempDir,
			HistoryEnabled: history.Enabled(),
			Jobs:           workers,
		})
	}

	// Running jobs finish first so their history rows are written before the database closes.
	a.shutdown.Register(workers)
	second := []shutdown.Service{shutdown.NewFunc("rate_limiter", func(context.Context) error {
		if s, ok := limiter.(interface{ Stop() }); ok {
			s.Stop()
		}
		return nil
	})}
	if a.server != nil {
		second = append(second, shutdown.NewHTTPServerShutdown(a.server))
	}
	a.shutdown.Register(second...)
	a.shutdown.Register(shutdown.NewCloser("database", history))

	return a, nil
}

func newLimiter(settings config.RateLimitConfig) ratelimit.Limiter {
	if settings.Requests <= 0 || settings.Window <= 0 {
		return ratelimit.NoOp{}
	}
	return ratelimit.New(settings.Requests, settings.Window)
}

// Run serves updates until ctx is canceled or a component fails, then shuts
// everything down in order.
func (a *App) Run(ctx context.Context) error {
	logutils.Log.WithFields(map[string]any{
		"version":        a.version,
		"max_concurrent": a.cfg.DownloadSettings.MaxConcurrentDownloads,
		"health_addr":    a.cfg.HealthAddr,
	}).Info("Bot started")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.processUpdates(gctx)
		return nil
	})

	g.Go(func() error {
		downloader.RunUpdaters(gctx, a.cfg.YouTubeSettings.UpdateInterval, a.updaters...)
		return nil
	})

	if a.server != nil {
		g.Go(a.server.Start)
	}

	g.Go(func() error {
		<-gctx.Done()
		logutils.Log.Info("Shutting down")
		return a.shutdown.Shutdown()
	})

	err := g.Wait()
	if err != nil {
		logutils.Log.WithError(err).Error("Bot stopped with error")
		return err
	}
	logutils.Log.Info("Bot stopped")
	return nil
}

func (a *App) processUpdates(ctx context.Context) {
	if err := a.source.DropPendingUpdates(); err != nil {
		logutils.Log.WithError(err).Warn("Failed to drop pending updates")
	}
	updates := a.source.Updates()
	defer a.source.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logutils.Log.Info("Stopping update processing")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			a.handle(ctx, update)
		}
	}
}
