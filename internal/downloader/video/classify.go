package ytdlp

import (
	"errors"
	"strings"

	domainerrors "github.com/NikitaDmitryuk/telegram-media-downloader/internal/core/errors"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
)

const maxErrorTextLen = 200

type errorPattern struct {
	needles []string
	errType domainerrors.ErrorType
	code    string
	msg     lang.MessageID
}

// Order matters: "sign in to confirm your age" must win over the bot check.
var youtubePatterns = []errorPattern{
	{[]string{"confirm your age", "age-restricted", "inappropriate for some users"},
		domainerrors.ErrorTypeRestricted, "age_restricted", lang.ErrYTAgeRestricted},
	{[]string{"sign in to confirm you", "not a bot"},
		domainerrors.ErrorTypeBotCheck, "bot_check", lang.ErrYTBotCheck},
	{[]string{"private video"},
		domainerrors.ErrorTypeNotFound, "private", lang.ErrYTPrivate},
	{[]string{"http error 429", "too many requests"},
		domainerrors.ErrorTypeRateLimited, "http_429", lang.ErrYTRateLimit},
	{[]string{"video unavailable", "this video is not available", "has been removed", "does not exist"},
		domainerrors.ErrorTypeUnavailable, "unavailable", lang.ErrYTUnavailable},
}

// ClassifyYouTubeError maps yt-dlp stderr to an error the chat reply can explain.
func ClassifyYouTubeError(stderr string, cause error) error {
	lower := strings.ToLower(stderr)
	for _, p := range youtubePatterns {
		for _, needle := range p.needles {
			if strings.Contains(lower, needle) {
				return domainerrors.WrapDomainError(cause, p.errType, p.code, "youtube download failed").
					WithUserMessage(string(p.msg))
			}
		}
	}
	return GenericError(stderr, cause)
}

// GenericError wraps a failure that matched no known pattern.
func GenericError(stderr string, cause error) error {
	text := LastErrorLine(stderr)
	if text == "" && cause != nil {
		text = utils.RootError(cause).Error()
	}
	return domainerrors.WrapDomainError(cause, domainerrors.ErrorTypeInternal, "ytdlp_failed", "yt-dlp failed").
		WithUserMessage(string(lang.ErrGeneric), utils.Truncate(text, maxErrorTextLen))
}

// isSABRFailure detects the streaming-protocol and 403 failures that a
// dynamic MPD retry usually fixes.
func isSABRFailure(err error) bool {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	lower := strings.ToLower(exitErr.Stderr)
	return strings.Contains(lower, "sabr") ||
		strings.Contains(lower, "http error 403") ||
		strings.Contains(lower, "403: forbidden")
}

// ToolMissingError reports a missing external binary.
func ToolMissingError(binary string, cause error) error {
	return domainerrors.WrapDomainError(cause, domainerrors.ErrorTypeToolMissing, "tool_missing", "binary not found").
		WithDetails(map[string]any{"binary": binary}).
		WithUserMessage(string(lang.ErrToolMissing), binary)
}
