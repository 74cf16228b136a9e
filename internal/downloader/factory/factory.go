package factory

import (
	"context"
	"errors"
	"fmt"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader/instagram"
	ytdlp "github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader/video"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader/youtube"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/platform"
)

// Registry maps each supported platform to its downloader.
type Registry struct {
	downloaders map[platform.Platform]downloader.Downloader
	updaters    []downloader.Updater
}

func NewRegistry(cfg *config.Config) *Registry {
	yt := cfg.YouTubeSettings
	runner := ytdlp.NewRunner(yt.YtdlpPath, cfg.Proxy, cfg.ProxyDomains)
	uploadLimitMB := cfg.GetDownloadSettings().UploadLimitMB

	r := &Registry{downloaders: make(map[platform.Platform]downloader.Downloader)}

	kkdai := youtube.NewDownloader(cfg.Proxy, yt.MaxDownloadSize())
	switch yt.Backend {
	case config.BackendKkdai:
		r.Register(kkdai)
	case config.BackendYtdlp:
		r.Register(ytdlp.NewYouTubeDownloader(runner, yt, uploadLimitMB))
	default:
		if runner.Available() {
			r.Register(WithFallback(ytdlp.NewYouTubeDownloader(runner, yt, uploadLimitMB), kkdai))
		} else {
			logutils.Log.Warnf("%s not found, YouTube downloads use the built-in client", runner.Binary())
			r.Register(kkdai)
		}
	}

	r.Register(instagram.NewDownloader(cfg.InstagramSettings, runner, uploadLimitMB))

	if runner.Available() && yt.UpdateInterval > 0 {
		r.updaters = append(r.updaters, ytdlp.NewUpdater(runner.Binary()))
	}
	return r
}

func (r *Registry) Register(d downloader.Downloader) {
	r.downloaders[d.Platform()] = d
}

// For returns the downloader for p.
func (r *Registry) For(p platform.Platform) (downloader.Downloader, error) {
	d, ok := r.downloaders[p]
	if !ok {
		return nil, fmt.Errorf("no downloader registered for %s", p)
	}
	return d, nil
}

// Updaters returns the tool updaters that should run periodically.
func (r *Registry) Updaters() []downloader.Updater {
	return r.updaters
}

type fallbackDownloader struct {
	primary   downloader.Downloader
	secondary downloader.Downloader
}

// WithFallback returns a downloader that switches to secondary when the
// primary's external tool disappears, e.g. after a failed self-update.
func WithFallback(primary, secondary downloader.Downloader) downloader.Downloader {
	return &fallbackDownloader{primary: primary, secondary: secondary}
}

func (f *fallbackDownloader) Platform() platform.Platform {
	return f.primary.Platform()
}

func (f *fallbackDownloader) Download(ctx context.Context, req *downloader.Request) (*downloader.Result, error) {
	res, err := f.primary.Download(ctx, req)
	if err == nil || !errors.Is(err, downloader.ErrToolNotFound) {
		return res, err
	}
	logutils.Log.WithContext(ctx).WithError(err).Warn("Primary downloader unavailable, using fallback")
	return f.secondary.Download(ctx, req)
}
