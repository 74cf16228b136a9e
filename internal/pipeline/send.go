package pipeline

import (
	"context"
	"html"
	"path/filepath"
	"strings"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/bot"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/media"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
)

// sendInstagram posts the info message and then the files one by one.
// A failed file is logged and left out of the count.
func (p *Pipeline) sendInstagram(
	ctx context.Context,
	job *Job,
	result *downloader.Result,
	files []downloader.MediaFile,
) ([]downloader.MediaFile, error) {
	caption := lang.Get(lang.NoCaption)
	if result.Caption != "" {
		caption = html.EscapeString(result.Caption)
	}
	info := lang.Get(lang.InstagramInfo, html.EscapeString(result.Author), caption)
	if _, err := p.bot.SendHTML(job.ChatID, info, job.MessageID); err != nil {
		logutils.Log.WithError(err).WithField("job_id", job.ID).Warn("Failed to send post info")
	}

	total := len(files)
	if limit := p.settings.MaxFilesPerPost; limit > 0 && total > limit {
		total = limit
	}

	var sent []downloader.MediaFile
	for i, f := range files[:total] {
		if i > 0 {
			if err := sleepCtx(ctx, p.settings.SendDelay); err != nil {
				return sent, err
			}
		}
		if err := p.sendFile(ctx, job, f, ""); err != nil {
			logutils.Log.WithError(err).WithFields(map[string]any{
				"job_id": job.ID,
				"path":   f.Path,
			}).Warn("Failed to send file")
			continue
		}
		sent = append(sent, f)
	}

	job.Status.Set(lang.Get(lang.SentFiles, len(sent), total))
	if len(sent) == 0 {
		return sent, nothingSentError()
	}
	return sent, nil
}

// sendYouTube uploads the largest file as a streamable video.
func (p *Pipeline) sendYouTube(
	ctx context.Context,
	job *Job,
	result *downloader.Result,
	files []downloader.MediaFile,
) ([]downloader.MediaFile, error) {
	f, _ := downloader.Largest(files)
	title := result.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path))
	}
	caption := lang.Get(lang.YouTubeCaption, title, utils.SizeMB(f.Size))

	if err := p.sendVideo(ctx, job, f, caption); err != nil {
		return nil, uploadError(err)
	}
	job.Status.Set(lang.Get(lang.Done))
	return []downloader.MediaFile{f}, nil
}

func (p *Pipeline) sendFile(ctx context.Context, job *Job, f downloader.MediaFile, caption string) error {
	if f.Kind == downloader.KindVideo {
		return p.sendVideo(ctx, job, f, caption)
	}
	p.chatAction(job, bot.ActionUploadPhoto)
	return p.bot.SendPhoto(job.ChatID, bot.Photo{Path: f.Path, Caption: caption, ReplyTo: job.MessageID})
}

func (p *Pipeline) sendVideo(ctx context.Context, job *Job, f downloader.MediaFile, caption string) error {
	video := bot.Video{
		Path:              f.Path,
		Caption:           caption,
		SupportsStreaming: strings.EqualFold(filepath.Ext(f.Path), ".mp4"),
		ReplyTo:           job.MessageID,
	}
	if p.media != nil {
		if info, err := p.media.Probe(ctx, f.Path); err != nil {
			logutils.Log.WithError(err).WithField("path", f.Path).Debug("Probe failed, sending without duration")
		} else {
			video.Duration = int(info.Duration.Round(time.Second) / time.Second)
			video.SupportsStreaming = media.StreamingFriendly(info.Vcodec)
		}
	}
	p.chatAction(job, bot.ActionUploadVideo)
	return p.bot.SendVideo(job.ChatID, video)
}

func (p *Pipeline) chatAction(job *Job, action string) {
	if err := p.bot.SendChatAction(job.ChatID, action); err != nil {
		logutils.Log.WithError(err).WithField("action", action).Debug("Failed to send chat action")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
