package handlers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	domainerrors "github.com/NikitaDmitryuk/telegram-media-downloader/internal/core/errors"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/ratelimit"
)

const maxMessageLength = 4096

// UpdateContext carries one incoming message through the middleware chain.
type UpdateContext struct {
	Context   context.Context
	Message   *tgbotapi.Message
	UserID    int64
	ChatID    int64
	Username  string
	StartTime time.Time
}

type MiddlewareFunc func(*UpdateContext) error

type Chain struct {
	middlewares []MiddlewareFunc
}

func NewChain(middlewares ...MiddlewareFunc) *Chain {
	return &Chain{middlewares: middlewares}
}

// Use returns a new chain with middleware appended; c is left unchanged.
func (c *Chain) Use(middleware MiddlewareFunc) *Chain {
	next := make([]MiddlewareFunc, 0, len(c.middlewares)+1)
	next = append(next, c.middlewares...)
	return &Chain{middlewares: append(next, middleware)}
}

// Execute runs the middlewares in order and stops at the first error.
func (c *Chain) Execute(ctx *UpdateContext) error {
	for _, middleware := range c.middlewares {
		if err := middleware(ctx); err != nil {
			return err
		}
	}
	return nil
}

func LoggingMiddleware(ctx *UpdateContext) error {
	ctx.StartTime = time.Now()
	logutils.Log.WithContext(ctx.Context).WithFields(map[string]any{
		"user_id":  ctx.UserID,
		"username": ctx.Username,
		"chat_id":  ctx.ChatID,
		"text":     ctx.Message.Text,
	}).Info("Received message")
	return nil
}

func ValidationMiddleware(ctx *UpdateContext) error {
	if ctx.ChatID == 0 {
		return domainerrors.NewDomainError(domainerrors.ErrorTypeInternal, "invalid_chat_id", "chat ID cannot be zero")
	}
	if len(ctx.Message.Text) > maxMessageLength {
		return domainerrors.NewDomainError(domainerrors.ErrorTypeInternal, "message_too_long",
			"message text exceeds the Telegram limit")
	}
	return nil
}

// AllowedUsersMiddleware rejects users outside the allow list; an empty list allows everyone.
func AllowedUsersMiddleware(isAllowed func(userID int64) bool) MiddlewareFunc {
	return func(ctx *UpdateContext) error {
		if isAllowed(ctx.UserID) {
			return nil
		}
		logutils.Log.WithField("user_id", ctx.UserID).Info("Access denied")
		return domainerrors.NewDomainError(domainerrors.ErrorTypeAuthRequired, "not_allowed", "user is not allowed").
			WithDetails(map[string]any{"user_id": ctx.UserID}).
			WithUserMessage(string(lang.NotAllowed))
	}
}

func RateLimitMiddleware(limiter ratelimit.Limiter) MiddlewareFunc {
	return func(ctx *UpdateContext) error {
		if limiter == nil || limiter.Allow(ctx.UserID) {
			return nil
		}
		logutils.Log.WithField("user_id", ctx.UserID).Warn("Rate limit exceeded")
		return domainerrors.NewDomainError(domainerrors.ErrorTypeRateLimited, "rate_limit_exceeded", "rate limit exceeded").
			WithUserMessage(string(lang.RateLimited))
	}
}
