package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	kkdai "github.com/kkdai/youtube/v2"

	domainerrors "github.com/NikitaDmitryuk/telegram-media-downloader/internal/core/errors"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/platform"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
)

const httpTimeout = 30 * time.Second

// videoSource is the part of the kkdai client the downloader needs.
type videoSource interface {
	GetVideoContext(ctx context.Context, id string) (*kkdai.Video, error)
	GetStreamContext(ctx context.Context, video *kkdai.Video, format *kkdai.Format) (io.ReadCloser, int64, error)
}

// Downloader fetches progressive (audio+video) mp4 streams without external tools.
// It is used when yt-dlp is not installed.
type Downloader struct {
	client      videoSource
	maxDownload int64
}

func NewDownloader(proxy string, maxDownload int64) *Downloader {
	httpClient := &http.Client{}
	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil {
			httpClient.Transport = &http.Transport{
				Proxy:                 http.ProxyURL(proxyURL),
				ResponseHeaderTimeout: httpTimeout,
			}
		} else {
			logutils.Log.WithError(err).Warn("Invalid proxy URL, kkdai client will connect directly")
		}
	}
	return &Downloader{
		client:      &kkdai.Client{HTTPClient: httpClient},
		maxDownload: maxDownload,
	}
}

func (*Downloader) Platform() platform.Platform {
	return platform.YouTube
}

func (d *Downloader) Download(ctx context.Context, req *downloader.Request) (*downloader.Result, error) {
	videoID, ok := platform.YouTubeVideoID(req.URL)
	if !ok {
		return nil, domainerrors.WrapDomainError(utils.ErrUnsupportedURL, domainerrors.ErrorTypeNotFound,
			"bad_video_id", "could not extract video id").WithUserMessage(string(lang.ErrYTUnavailable))
	}

	video, err := d.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, classify(err)
	}

	format, err := pickFormat(video, d.maxDownload)
	if err != nil {
		return nil, err
	}

	logutils.Log.WithContext(ctx).WithFields(map[string]any{
		"video_id": videoID,
		"itag":     format.ItagNo,
		"quality":  format.QualityLabel,
	}).Info("Downloading YouTube video with kkdai client")

	stream, size, err := d.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, classify(err)
	}
	defer stream.Close()

	path := filepath.Join(req.Dir, fileName(video.Title, videoID))
	if err := saveStream(ctx, stream, path, size, req.ReportProgress); err != nil {
		return nil, err
	}

	file, err := downloader.StatFile(path)
	if err != nil {
		return nil, utils.WrapError(err, "stat downloaded file", map[string]any{"path": path})
	}
	return &downloader.Result{
		Title:  video.Title,
		Author: video.Author,
		Files:  []downloader.MediaFile{file},
	}, nil
}

// pickFormat chooses the tallest mp4 format that carries both audio and video and fits maxSize.
// Formats without a content length are sized from bitrate and duration.
func pickFormat(video *kkdai.Video, maxSize int64) (*kkdai.Format, error) {
	var best *kkdai.Format
	for _, f := range video.Formats.WithAudioChannels() {
		if f.QualityLabel == "" || !strings.HasPrefix(f.MimeType, "video/mp4") {
			continue
		}
		if maxSize > 0 && estimateSize(f, video.Duration) > maxSize {
			continue
		}
		if best == nil || f.Height > best.Height || (f.Height == best.Height && f.Bitrate > best.Bitrate) {
			format := f
			best = &format
		}
	}
	if best == nil {
		return nil, domainerrors.NewDomainError(domainerrors.ErrorTypeTooLarge, "no_format",
			"no progressive format under the download cap").
			WithUserMessage(string(lang.ErrTooLarge), "?", maxSize/(1024*1024))
	}
	return best, nil
}

func estimateSize(f kkdai.Format, duration time.Duration) int64 {
	if f.ContentLength > 0 {
		return f.ContentLength
	}
	return int64(f.Bitrate/8) * int64(duration.Seconds()+1)
}

func classify(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", downloader.ErrStoppedByUser, err)
	case errors.Is(err, kkdai.ErrVideoPrivate):
		return domainerrors.WrapDomainError(err, domainerrors.ErrorTypeNotFound, "private", "private video").
			WithUserMessage(string(lang.ErrYTPrivate))
	case errors.Is(err, kkdai.ErrLoginRequired):
		return domainerrors.WrapDomainError(err, domainerrors.ErrorTypeRestricted, "login_required", "login required").
			WithUserMessage(string(lang.ErrYTAgeRestricted))
	}
	var playability *kkdai.ErrPlayabiltyStatus
	if errors.As(err, &playability) {
		return domainerrors.WrapDomainError(err, domainerrors.ErrorTypeUnavailable, "unplayable", "video not playable").
			WithUserMessage(string(lang.ErrYTUnavailable))
	}
	return domainerrors.WrapDomainError(err, domainerrors.ErrorTypeInternal, "kkdai_failed", "kkdai download failed").
		WithUserMessage(string(lang.ErrGeneric), utils.Truncate(err.Error(), 200))
}

func fileName(title, id string) string {
	name := utils.SanitizeFileName(title)
	if name == "" {
		name = "video"
	}
	if len([]rune(name)) > 80 {
		name = string([]rune(name)[:80])
	}
	return fmt.Sprintf("%s [%s].mp4", name, id)
}

type progressWriter struct {
	total      int64
	written    int64
	lastReport float64
	report     func(float64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.total > 0 {
		percent := float64(w.written) * 100 / float64(w.total)
		if percent-w.lastReport >= 1 || percent >= 100 {
			w.lastReport = percent
			w.report(percent)
		}
	}
	return len(p), nil
}

func saveStream(ctx context.Context, stream io.Reader, path string, size int64, report func(float64)) error {
	file, err := os.Create(path)
	if err != nil {
		return utils.WrapError(err, "create output file", map[string]any{"path": path})
	}
	defer file.Close()

	pw := &progressWriter{total: size, report: report}
	if _, err := io.Copy(io.MultiWriter(file, pw), stream); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", downloader.ErrStoppedByUser, ctx.Err())
		}
		return utils.WrapError(utils.ErrDownloadFailed, "stream copy failed: "+err.Error(), map[string]any{"path": path})
	}
	return nil
}
