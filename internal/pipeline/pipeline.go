package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/bot"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
	domainerrors "github.com/NikitaDmitryuk/telegram-media-downloader/internal/core/errors"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/database"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/filemanager"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/media"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/notifier"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/platform"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
)

const (
	errorTextLimit      = 200
	historyWriteTimeout = 5 * time.Second

	errDroppedBeforeStart = "dropped from the queue at shutdown"
)

// Job is one link sent by a user.
type Job struct {
	ID        string
	UserID    int64
	ChatID    int64
	MessageID int
	URL       string
	Platform  platform.Platform
	// Status is the chat message showing progress. Run creates one when nil.
	Status *notifier.Status
}

type Registry interface {
	For(p platform.Platform) (downloader.Downloader, error)
}

// MediaTool probes and shrinks video files.
type MediaTool interface {
	Probe(ctx context.Context, path string) (*media.Info, error)
	Compress(ctx context.Context, in string, limitBytes int64) (string, error)
}

// Pipeline downloads, resizes, uploads and cleans up one job at a time.
// It is safe to call Run from many goroutines.
type Pipeline struct {
	bot         bot.Service
	files       *filemanager.Manager
	registry    Registry
	media       MediaTool
	history     database.History
	settings    config.DownloadConfig
	compress    bool
	uploadLimit int64
}

func New(
	cfg *config.Config,
	b bot.Service,
	files *filemanager.Manager,
	registry Registry,
	mediaTool MediaTool,
	history database.History,
) *Pipeline {
	if history == nil {
		history = database.NoopHistory{}
	}
	return &Pipeline{
		bot:         b,
		files:       files,
		registry:    registry,
		media:       mediaTool,
		history:     history,
		settings:    cfg.GetDownloadSettings(),
		compress:    cfg.CompressionSettings.Enabled && mediaTool != nil,
		uploadLimit: cfg.UploadLimit(),
	}
}

// Run performs the whole job and reports the outcome in the status message.
// The job directory is removed whatever happens.
func (p *Pipeline) Run(ctx context.Context, job *Job) error {
	log := logutils.Log.WithContext(ctx).WithFields(map[string]any{
		"job_id":   job.ID,
		"platform": job.Platform,
		"url":      job.URL,
	})
	if job.Status == nil {
		job.Status = notifier.NewStatus(p.bot, job.ChatID, job.MessageID, p.settings.ProgressUpdateInterval)
	}
	job.Status.Set(lang.Get(lang.Downloading, job.Platform.DisplayName()))

	started := time.Now()
	p.recordStart(ctx, job, started)

	outcome, err := p.process(ctx, job)
	if err != nil {
		outcome.Status = database.StatusFailed
		if ctx.Err() != nil {
			outcome.Status = database.StatusInterrupted
		}
		outcome.Error = utils.Truncate(err.Error(), errorTextLimit)
		job.Status.Set(lang.Get(lang.ErrorReply, userMessage(ctx, err)))
		log.WithError(err).WithField("elapsed", time.Since(started).Round(time.Millisecond)).Warn("Download failed")
	} else {
		outcome.Status = database.StatusCompleted
		log.WithFields(map[string]any{
			"files":   outcome.Files,
			"bytes":   outcome.Bytes,
			"elapsed": time.Since(started).Round(time.Millisecond),
		}).Info("Download delivered")
	}

	p.recordFinish(ctx, job, outcome)
	return err
}

// Abandon records a job that was discarded before it ran, so history has no gaps.
func (p *Pipeline) Abandon(ctx context.Context, job *Job) {
	p.recordStart(ctx, job, time.Now())
	p.recordFinish(ctx, job, database.Outcome{
		Status: database.StatusInterrupted,
		Error:  errDroppedBeforeStart,
	})
}

func (p *Pipeline) recordStart(ctx context.Context, job *Job, started time.Time) {
	if err := p.history.StartDownload(ctx, &database.Download{
		JobID:     job.ID,
		UserID:    job.UserID,
		ChatID:    job.ChatID,
		Platform:  job.Platform.String(),
		URL:       job.URL,
		Status:    database.StatusRunning,
		StartedAt: started,
	}); err != nil {
		logutils.Log.WithContext(ctx).WithError(err).WithField("job_id", job.ID).Warn("Failed to record download start")
	}
}

func (p *Pipeline) recordFinish(ctx context.Context, job *Job, outcome database.Outcome) {
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()
	if err := p.history.FinishDownload(hctx, job.ID, outcome); err != nil {
		logutils.Log.WithContext(ctx).WithError(err).WithField("job_id", job.ID).Warn("Failed to record download result")
	}
}

func (p *Pipeline) process(ctx context.Context, job *Job) (database.Outcome, error) {
	var outcome database.Outcome

	if err := p.files.CheckSpace(); err != nil {
		return outcome, err
	}
	dir, err := p.files.CreateJobDir(job.ID)
	if err != nil {
		return outcome, err
	}
	defer func() {
		if rerr := p.files.Remove(dir); rerr != nil {
			logutils.Log.WithError(rerr).WithField("dir", dir).Error("Failed to remove job directory")
		}
	}()

	dl, err := p.registry.For(job.Platform)
	if err != nil {
		return outcome, err
	}

	name := job.Platform.DisplayName()
	result, err := dl.Download(ctx, &downloader.Request{
		ID:       job.ID,
		URL:      job.URL,
		Platform: job.Platform,
		Dir:      dir,
		Progress: func(percent float64) {
			job.Status.Progress(lang.Get(lang.Progress, name, percent))
		},
	})
	if err != nil {
		return outcome, err
	}
	outcome.Title = result.Title
	logutils.Log.WithContext(ctx).WithFields(map[string]any{
		"job_id": job.ID,
		"files":  len(result.Files),
		"bytes":  result.TotalSize(),
	}).Info("Download finished")
	if len(result.Files) == 0 {
		return outcome, noMediaError()
	}

	ready, skipped, err := p.fitToLimit(ctx, job, result.Files)
	if err != nil {
		return outcome, err
	}

	job.Status.Set(lang.Get(lang.Sending))
	for _, f := range skipped {
		p.notifySkipped(job, f)
	}

	var sent []downloader.MediaFile
	switch job.Platform {
	case platform.Instagram:
		sent, err = p.sendInstagram(ctx, job, result, ready)
	default:
		sent, err = p.sendYouTube(ctx, job, result, ready)
	}
	outcome.Files = len(sent)
	for _, f := range sent {
		outcome.Bytes += f.Size
	}
	return outcome, err
}

// fitToLimit compresses oversized videos and drops files that still cannot be sent.
// It fails only when nothing is left.
func (p *Pipeline) fitToLimit(
	ctx context.Context,
	job *Job,
	files []downloader.MediaFile,
) (ready, skipped []downloader.MediaFile, err error) {
	for _, f := range files {
		if f.Size <= p.uploadLimit {
			ready = append(ready, f)
			continue
		}
		if f.Kind != downloader.KindVideo || !p.compress {
			skipped = append(skipped, f)
			continue
		}

		job.Status.Set(lang.Get(lang.Compressing, utils.SizeMB(f.Size)))
		out, cerr := p.media.Compress(ctx, f.Path, p.uploadLimit)
		if cerr != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			logutils.Log.WithError(cerr).WithFields(map[string]any{
				"job_id": job.ID,
				"path":   f.Path,
				"size":   f.Size,
			}).Warn("Compression did not fit the file under the upload limit")
			skipped = append(skipped, f)
			continue
		}
		compressed, serr := downloader.StatFile(out)
		if serr != nil {
			return nil, nil, serr
		}
		ready = append(ready, compressed)
	}

	if len(ready) == 0 {
		largest, _ := downloader.Largest(skipped)
		return nil, nil, p.tooLargeError(largest)
	}
	return ready, skipped, nil
}

func (p *Pipeline) notifySkipped(job *Job, f downloader.MediaFile) {
	text := lang.Get(lang.SkippedFile, string(f.Kind), utils.SizeMB(f.Size), p.settings.UploadLimitMB)
	if _, err := p.bot.SendMessage(job.ChatID, text, job.MessageID); err != nil {
		logutils.Log.WithError(err).WithField("job_id", job.ID).Warn("Failed to report skipped file")
	}
}

func (p *Pipeline) tooLargeError(f downloader.MediaFile) error {
	return domainerrors.WrapDomainError(utils.ErrFileTooLarge, domainerrors.ErrorTypeTooLarge, "over_upload_limit",
		"file exceeds the upload limit").
		WithDetails(map[string]any{"path": f.Path, "size": f.Size}).
		WithUserMessage(string(lang.ErrTooLarge), utils.SizeMB(f.Size), p.settings.UploadLimitMB)
}

func noMediaError() error {
	return domainerrors.WrapDomainError(utils.ErrNoMediaFiles, domainerrors.ErrorTypeNotFound, "no_media",
		"download produced no media").WithUserMessage(string(lang.ErrNoMedia))
}

func uploadError(err error) error {
	return domainerrors.WrapDomainError(err, domainerrors.ErrorTypeInternal, "upload_failed",
		"failed to upload media").
		WithUserMessage(string(lang.ErrUpload), utils.Truncate(err.Error(), errorTextLimit))
}

func nothingSentError() error {
	return domainerrors.WrapDomainError(utils.ErrUploadFailed, domainerrors.ErrorTypeInternal, "nothing_sent",
		"no file of the post was sent").WithUserMessage(string(lang.ErrNothingSent))
}

// userMessage is the chat text for a failed job.
func userMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return lang.Get(lang.ErrTimeout)
	case ctx.Err() != nil:
		return lang.Get(lang.ShuttingDown)
	}
	if de, ok := domainerrors.As(err); ok && de.UserMsg != "" {
		return lang.Get(lang.MessageID(de.UserMsg), de.UserArgs...)
	}
	return lang.Get(lang.ErrGeneric, utils.Truncate(utils.RootError(err).Error(), errorTextLimit))
}
