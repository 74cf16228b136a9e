package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/bot"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
	domainerrors "github.com/NikitaDmitryuk/telegram-media-downloader/internal/core/errors"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/database"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/notifier"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/pipeline"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/platform"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/ratelimit"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/sysinfo"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/worker"
)

type JobRunner interface {
	Run(ctx context.Context, job *pipeline.Job) error
	Abandon(ctx context.Context, job *pipeline.Job)
}

type Scheduler interface {
	Submit(ctx context.Context, job worker.Job) error
	ActiveCount() int
	QueueCount() int
}

// Router turns Telegram updates into commands and download jobs.
type Router struct {
	bot       bot.Service
	cfg       *config.Config
	scheduler Scheduler
	runner    JobRunner
	history   database.History

	base  *Chain
	links *Chain

	collect func(ctx context.Context, path string) (*sysinfo.Snapshot, error)
}

func NewRouter(
	cfg *config.Config,
	b bot.Service,
	scheduler Scheduler,
	runner JobRunner,
	history database.History,
	limiter ratelimit.Limiter,
) *Router {
	if history == nil {
		history = database.NoopHistory{}
	}
	base := NewChain(LoggingMiddleware, ValidationMiddleware, AllowedUsersMiddleware(cfg.IsUserAllowed))
	return &Router{
		bot:       b,
		cfg:       cfg,
		scheduler: scheduler,
		runner:    runner,
		history:   history,
		base:      base,
		links:     base.Use(RateLimitMiddleware(limiter)),
		collect:   sysinfo.Collect,
	}
}

// HandleUpdate processes one update. Panics are logged and answered with a generic error.
func (r *Router) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	uctx := &UpdateContext{
		Context: logutils.WithRequestID(ctx, uuid.NewString()),
		Message: msg,
		ChatID:  msg.Chat.ID,
	}
	if msg.From != nil {
		uctx.UserID = msg.From.ID
		uctx.Username = msg.From.UserName
	}

	defer func() {
		if rec := recover(); rec != nil {
			logutils.Log.WithContext(uctx.Context).WithFields(map[string]any{
				"panic":   fmt.Sprint(rec),
				"chat_id": uctx.ChatID,
				"user_id": uctx.UserID,
			}).Error("Panic recovered while handling update")
			r.reply(uctx, lang.Get(lang.ErrGeneric, "internal error"))
		}
	}()
	defer func() {
		if !uctx.StartTime.IsZero() {
			logutils.Log.WithContext(uctx.Context).WithField("duration_ms", time.Since(uctx.StartTime).Milliseconds()).
				Debug("Update processed")
		}
	}()

	if msg.IsCommand() {
		if r.guard(uctx, r.base) {
			r.handleCommand(uctx)
		}
		return
	}

	rawURL := platform.ExtractURL(msg.Text)
	if rawURL == "" {
		return
	}
	p, ok := platform.Detect(rawURL)
	if !ok {
		logutils.Log.WithContext(uctx.Context).WithField("url", rawURL).Debug("Ignoring unsupported link")
		return
	}
	if r.guard(uctx, r.links) {
		r.handleLink(uctx, rawURL, p)
	}
}

// guard runs chain and answers the user when a middleware rejects the update.
func (r *Router) guard(uctx *UpdateContext, chain *Chain) bool {
	err := chain.Execute(uctx)
	if err == nil {
		return true
	}
	if de, ok := domainerrors.As(err); ok && de.UserMsg != "" {
		r.reply(uctx, lang.Get(lang.MessageID(de.UserMsg), de.UserArgs...))
		return false
	}
	logutils.Log.WithContext(uctx.Context).WithError(err).Debug("Update rejected")
	return false
}

func (r *Router) handleCommand(uctx *UpdateContext) {
	switch strings.ToLower(uctx.Message.Command()) {
	case "start":
		r.handleStart(uctx)
	case "help":
		r.reply(uctx, lang.Get(lang.Help))
	case "stats":
		r.handleStats(uctx)
	case "status":
		r.handleStatus(uctx)
	default:
		logutils.Log.WithField("command", uctx.Message.Command()).Debug("Unknown command")
		r.reply(uctx, lang.Get(lang.UnknownCommand))
	}
}

func (r *Router) handleStart(uctx *UpdateContext) {
	name := "there"
	if from := uctx.Message.From; from != nil && from.FirstName != "" {
		name = from.FirstName
	}
	text := lang.Get(lang.Start, tgbotapi.EscapeText(tgbotapi.ModeMarkdown, name), uctx.ChatID)
	if _, err := r.bot.SendMarkdown(uctx.ChatID, text, 0); err != nil {
		logutils.Log.WithError(err).WithField("chat_id", uctx.ChatID).Error("Failed to send start message")
	}
}

func (r *Router) handleStats(uctx *UpdateContext) {
	if !r.history.Enabled() {
		r.reply(uctx, lang.Get(lang.StatsDisabled))
		return
	}
	stats, err := r.history.Stats(uctx.Context, uctx.UserID)
	if err != nil {
		logutils.Log.WithContext(uctx.Context).WithError(err).Error("Failed to load download stats")
		r.reply(uctx, lang.Get(lang.ErrGeneric, "could not load statistics"))
		return
	}
	r.reply(uctx, lang.Get(lang.Stats,
		stats.UserTotal, stats.UserCompleted, stats.UserFailed,
		stats.GlobalTotal, humanBytes(stats.GlobalBytes)))
}

func (r *Router) handleStatus(uctx *UpdateContext) {
	snapshot, err := r.collect(uctx.Context, r.cfg.TempDir)
	if err != nil {
		logutils.Log.WithContext(uctx.Context).WithError(err).Error("Failed to collect system info")
		r.reply(uctx, lang.Get(lang.ErrGeneric, "could not read system status"))
		return
	}
	r.reply(uctx, sysinfo.Format(snapshot, r.scheduler.ActiveCount(), r.scheduler.QueueCount()))
}

func (r *Router) handleLink(uctx *UpdateContext, rawURL string, p platform.Platform) {
	job := &pipeline.Job{
		ID:        uuid.NewString(),
		UserID:    uctx.UserID,
		ChatID:    uctx.ChatID,
		MessageID: uctx.Message.MessageID,
		URL:       rawURL,
		Platform:  p,
		Status: notifier.NewStatus(r.bot, uctx.ChatID, uctx.Message.MessageID,
			r.cfg.GetDownloadSettings().ProgressUpdateInterval),
	}

	err := r.scheduler.Submit(uctx.Context, worker.Job{
		ID:       job.ID,
		Run:      func(ctx context.Context) error { return r.runner.Run(ctx, job) },
		Dropped:  func(ctx context.Context) { r.runner.Abandon(ctx, job) },
		Notifier: job.Status,
	})
	if errors.Is(err, worker.ErrShuttingDown) {
		r.reply(uctx, lang.Get(lang.ShuttingDown))
		return
	}
	if err != nil {
		logutils.Log.WithContext(uctx.Context).WithError(err).Error("Failed to submit download")
		r.reply(uctx, lang.Get(lang.ErrorReply, err.Error()))
		return
	}
	logutils.Log.WithContext(uctx.Context).WithFields(map[string]any{
		"job_id":   job.ID,
		"platform": p,
		"url":      rawURL,
	}).Info("Download submitted")
}

func (r *Router) reply(uctx *UpdateContext, text string) {
	if _, err := r.bot.SendMessage(uctx.ChatID, text, uctx.Message.MessageID); err != nil {
		logutils.Log.WithError(err).WithField("chat_id", uctx.ChatID).Error("Failed to send reply")
	}
}

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return utils.HumanBytes(uint64(n))
}
