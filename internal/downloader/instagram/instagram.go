package instagram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
	domainerrors "github.com/NikitaDmitryuk/telegram-media-downloader/internal/core/errors"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
	ytdlp "github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader/video"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/platform"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
)

const (
	fallbackSubdir   = "ytdlp"
	fallbackTemplate = "%(title).80B.%(ext)s"
)

var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".mp4": true, ".mov": true,
}

// Downloader fetches Instagram posts, reels and carousels with instaloader and
// retries with yt-dlp when instaloader gets a response it cannot use.
type Downloader struct {
	binary        string
	settings      config.InstagramConfig
	fallback      *ytdlp.Runner
	uploadLimitMB int64
}

func NewDownloader(settings config.InstagramConfig, fallback *ytdlp.Runner, uploadLimitMB int64) *Downloader {
	binary := settings.InstaloaderPath
	if binary == "" {
		binary = defaultInstaloaderBinary
	}
	return &Downloader{
		binary:        binary,
		settings:      settings,
		fallback:      fallback,
		uploadLimitMB: uploadLimitMB,
	}
}

func (*Downloader) Platform() platform.Platform {
	return platform.Instagram
}

func (d *Downloader) Download(ctx context.Context, req *downloader.Request) (*downloader.Result, error) {
	shortcode, ok := platform.InstagramShortcode(req.URL)
	if !ok {
		return nil, domainerrors.WrapDomainError(utils.ErrUnsupportedURL, domainerrors.ErrorTypeNotFound,
			"no_shortcode", "could not find post code in URL").WithUserMessage(string(lang.ErrIGNoShortcode))
	}

	log := logutils.Log.WithContext(ctx).WithField("shortcode", shortcode)
	log.Info("Downloading Instagram post")

	output, err := runInstaloader(ctx, d.binary, buildArgs(d.settings, req.Dir, shortcode))
	switch {
	case errors.Is(err, downloader.ErrStoppedByUser):
		return nil, err
	case errors.Is(err, downloader.ErrToolNotFound):
		log.Warn("instaloader not found, trying yt-dlp")
		return d.downloadWithFallback(ctx, req, ytdlp.ToolMissingError(d.binary, err))
	case err != nil:
		if classified := classifyInstaloader(output, err); classified != nil {
			return nil, classified
		}
		log.WithError(err).Warn("Instaloader failed, trying yt-dlp fallback")
		return d.downloadWithFallback(ctx, req, genericError(output, err))
	}

	files, err := collect(req.Dir)
	if err != nil {
		return nil, utils.WrapError(err, "collect instagram media", map[string]any{"dir": req.Dir})
	}
	if len(files) == 0 {
		if classified := classifyInstaloader(output, nil); classified != nil {
			return nil, classified
		}
		log.Warn("Instaloader produced no media, trying yt-dlp fallback")
		return d.downloadWithFallback(ctx, req, noMediaError())
	}

	author, caption := readMetadata(req.Dir, shortcode)
	req.ReportProgress(100)
	return &downloader.Result{
		Author:  author,
		Caption: utils.Truncate(caption, d.captionLimit()),
		Files:   files,
	}, nil
}

// downloadWithFallback runs yt-dlp into a subdirectory of the job dir. If yt-dlp
// is not available the original instaloader error is returned.
func (d *Downloader) downloadWithFallback(ctx context.Context, req *downloader.Request, primaryErr error) (*downloader.Result, error) {
	if d.fallback == nil {
		return nil, primaryErr
	}

	dir := filepath.Join(req.Dir, fallbackSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, utils.WrapError(err, "create fallback dir", map[string]any{"dir": dir})
	}

	out, err := d.fallback.Run(ctx, req.URL, d.fallbackArgs(dir), req.ReportProgress)
	if err != nil {
		switch {
		case errors.Is(err, downloader.ErrStoppedByUser):
			return nil, err
		case errors.Is(err, downloader.ErrToolNotFound):
			return nil, primaryErr
		}
		text := err.Error()
		var exitErr *ytdlp.ExitError
		if errors.As(err, &exitErr) {
			text = ytdlp.LastErrorLine(exitErr.Stderr)
		}
		return nil, classifyFallback(text, err)
	}

	files, err := collect(dir)
	if err != nil {
		return nil, utils.WrapError(err, "collect fallback media", map[string]any{"dir": dir})
	}
	if len(files) == 0 {
		if out != nil && out.Contains("max-filesize") {
			return nil, domainerrors.NewDomainError(domainerrors.ErrorTypeTooLarge, "too_large", "post exceeds upload limit").
				WithUserMessage(string(lang.ErrTooLarge), "?", d.uploadLimitMB)
		}
		return nil, noMediaError()
	}

	result := &downloader.Result{Author: "unknown", Files: files}
	if info, err := ytdlp.ReadInfo(dir); err == nil {
		if author := info.Author(); author != "" {
			result.Author = author
		}
		result.Title = info.Title
		result.Caption = utils.Truncate(info.Title, d.captionLimit())
	}
	return result, nil
}

func (d *Downloader) fallbackArgs(dir string) []string {
	limit := d.uploadLimitMB
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"-f", fmt.Sprintf("best[filesize<%dM]/bestvideo[filesize<%dM]+bestaudio/best", limit, limit),
		"--max-filesize", fmt.Sprintf("%dM", limit),
		"-o", filepath.Join(dir, fallbackTemplate),
	}
	if d.settings.CookiesFile != "" {
		args = append(args, "--cookies", d.settings.CookiesFile)
	}
	return append(args, ytdlp.InfoJSONArgs(dir)...)
}

func (d *Downloader) captionLimit() int {
	if d.settings.CaptionLimit > 0 {
		return d.settings.CaptionLimit
	}
	return config.DefaultCaptionLimit
}

// collect keeps the media types Telegram accepts for posts.
func collect(dir string) ([]downloader.MediaFile, error) {
	all, err := downloader.CollectMedia(dir)
	if err != nil {
		return nil, err
	}
	files := make([]downloader.MediaFile, 0, len(all))
	for _, f := range all {
		if !allowedExtensions[strings.ToLower(filepath.Ext(f.Path))] {
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

func noMediaError() error {
	return domainerrors.WrapDomainError(utils.ErrNoMediaFiles, domainerrors.ErrorTypeNotFound, "no_media", "no media files found").
		WithUserMessage(string(lang.ErrNoMedia))
}
