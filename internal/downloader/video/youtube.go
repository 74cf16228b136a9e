package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
	domainerrors "github.com/NikitaDmitryuk/telegram-media-downloader/internal/core/errors"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/platform"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
)

const outputTemplate = "%(title).80B [%(id)s].%(ext)s"

var oversizePattern = regexp.MustCompile(`larger than max-filesize \((\d+) bytes`)

// DefaultFormat prefers a single file under the upload limit and otherwise falls back to
// 720p so compression has less work to do.
func DefaultFormat(uploadLimitMB int64) string {
	return fmt.Sprintf(
		"best[filesize<%[1]dM]/best[filesize_approx<%[1]dM]/bestvideo[height<=720]+bestaudio/best[height<=720]/best",
		uploadLimitMB)
}

type YouTubeDownloader struct {
	runner        *Runner
	cookiesFile   string
	playerClients string
	format        string
	maxDownload   int64
}

func NewYouTubeDownloader(runner *Runner, settings config.YouTubeConfig, uploadLimitMB int64) *YouTubeDownloader {
	format := settings.Format
	if format == "" {
		format = DefaultFormat(uploadLimitMB)
	}
	return &YouTubeDownloader{
		runner:        runner,
		cookiesFile:   settings.CookiesFile,
		playerClients: settings.PlayerClients,
		format:        format,
		maxDownload:   settings.MaxDownloadSize(),
	}
}

func (*YouTubeDownloader) Platform() platform.Platform {
	return platform.YouTube
}

func (d *YouTubeDownloader) buildArgs(dir string, dynamicMPD bool) []string {
	args := []string{
		"--no-playlist",
		"-f", d.format,
		"--merge-output-format", "mp4",
		"-o", filepath.Join(dir, outputTemplate),
	}
	if d.maxDownload > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(d.maxDownload, 10))
	}
	args = append(args, InfoJSONArgs(dir)...)

	if d.cookiesFile != "" {
		args = append(args, "--cookies", d.cookiesFile)
	}
	if d.playerClients != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+d.playerClients)
	}
	if dynamicMPD {
		args = append(args, "--allow-dynamic-mpd", "--concurrent-fragments", "1")
	}
	return args
}

func (d *YouTubeDownloader) Download(ctx context.Context, req *downloader.Request) (*downloader.Result, error) {
	log := logutils.Log.WithContext(ctx).WithField("url", req.URL)

	out, err := d.runner.Run(ctx, req.URL, d.buildArgs(req.Dir, false), req.ReportProgress)
	if isSABRFailure(err) {
		log.WithError(err).Warn("yt-dlp hit a SABR/403 failure, retrying with dynamic MPD")
		out, err = d.runner.Run(ctx, req.URL, d.buildArgs(req.Dir, true), req.ReportProgress)
	}
	if err != nil {
		return nil, d.classify(err)
	}

	files, err := downloader.CollectMedia(req.Dir)
	if err != nil {
		return nil, utils.WrapError(err, "failed to list downloaded files", map[string]any{"dir": req.Dir})
	}
	var videos []downloader.MediaFile
	for _, f := range files {
		if f.Kind == downloader.KindVideo {
			videos = append(videos, f)
		}
	}

	video, ok := downloader.Largest(videos)
	if !ok {
		if out != nil && out.Contains("larger than max-filesize") {
			return nil, d.tooLargeError(out)
		}
		return nil, domainerrors.WrapDomainError(utils.ErrNoMediaFiles, domainerrors.ErrorTypeNotFound,
			"no_file", "yt-dlp created no file").WithUserMessage(string(lang.ErrNoMedia))
	}

	result := &downloader.Result{
		Title: TitleFromPath(video.Path),
		Files: []downloader.MediaFile{video},
	}
	if info, infoErr := ReadInfo(req.Dir); infoErr == nil {
		if info.Title != "" {
			result.Title = info.Title
		}
		result.Author = info.Author()
	} else {
		log.WithError(infoErr).Debug("No info JSON, using file name as title")
	}

	log.WithFields(map[string]any{
		"file": filepath.Base(video.Path),
		"size": video.Size,
	}).Info("YouTube download finished")
	return result, nil
}

func (d *YouTubeDownloader) classify(err error) error {
	var exitErr *ExitError
	switch {
	case errors.Is(err, downloader.ErrStoppedByUser):
		return err
	case errors.Is(err, downloader.ErrToolNotFound):
		return ToolMissingError(d.runner.Binary(), err)
	case errors.As(err, &exitErr):
		return ClassifyYouTubeError(exitErr.Stderr, err)
	default:
		return GenericError("", err)
	}
}

func (d *YouTubeDownloader) tooLargeError(out *RunOutput) error {
	size := "?"
	for _, line := range append([]string{out.Stderr}, out.Stdout...) {
		if m := oversizePattern.FindStringSubmatch(line); len(m) == 2 {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				size = utils.SizeMB(n)
			}
			break
		}
	}
	return domainerrors.WrapDomainError(utils.ErrFileTooLarge, domainerrors.ErrorTypeTooLarge,
		"over_download_cap", "video exceeds the download cap").
		WithUserMessage(string(lang.ErrTooLarge), size, d.maxDownload/(1024*1024))
}
