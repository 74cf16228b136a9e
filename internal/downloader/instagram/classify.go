package instagram

import (
	"strings"

	domainerrors "github.com/NikitaDmitryuk/telegram-media-downloader/internal/core/errors"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
)

const (
	maxErrorTextLen    = 200
	maxFallbackTextLen = 100
)

type errorPattern struct {
	needles []string
	errType domainerrors.ErrorType
	code    string
	msg     lang.MessageID
}

// 429 is checked before the connection patterns since instaloader reports it
// as a connection error.
var instaloaderPatterns = []errorPattern{
	{[]string{"429", "too many requests", "please wait a few minutes"},
		domainerrors.ErrorTypeRateLimited, "http_429", lang.ErrIGRateLimit},
	{[]string{"login required", "login_required", "loginrequiredexception"},
		domainerrors.ErrorTypeAuthRequired, "login_required", lang.ErrIGLogin},
	{[]string{"does not exist", "profilenotexists"},
		domainerrors.ErrorTypeNotFound, "profile_missing", lang.ErrIGProfile},
	{[]string{"404", "not found", "queryreturnednotfound"},
		domainerrors.ErrorTypeNotFound, "post_missing", lang.ErrIGPostMissing},
}

var connectionNeedles = []string{"connection", "timed out", "max retries", "name resolution"}

// classifyInstaloader maps instaloader output to a DomainError. A nil result
// means the failure is a bad response that yt-dlp may still handle.
func classifyInstaloader(output string, cause error) error {
	lower := strings.ToLower(output)
	for _, p := range instaloaderPatterns {
		for _, needle := range p.needles {
			if strings.Contains(lower, needle) {
				return domainerrors.WrapDomainError(cause, p.errType, p.code, "instaloader failed").
					WithUserMessage(string(p.msg))
			}
		}
	}
	for _, needle := range connectionNeedles {
		if strings.Contains(lower, needle) {
			return domainerrors.WrapDomainError(cause, domainerrors.ErrorTypeNetwork, "connection", "instaloader connection error").
				WithUserMessage(string(lang.ErrIGConnection), utils.Truncate(lastLine(output), maxErrorTextLen))
		}
	}
	return nil
}

// genericError is used when nothing else, including the fallback, can explain the failure.
func genericError(output string, cause error) error {
	text := lastLine(output)
	if text == "" && cause != nil {
		text = utils.RootError(cause).Error()
	}
	return domainerrors.WrapDomainError(cause, domainerrors.ErrorTypeInternal, "instaloader_failed", "instaloader failed").
		WithUserMessage(string(lang.ErrIGGeneric), utils.Truncate(text, maxErrorTextLen))
}

// classifyFallback maps a failed yt-dlp fallback run.
func classifyFallback(text string, cause error) error {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "inappropriate"), strings.Contains(lower, "unavailable"):
		return domainerrors.WrapDomainError(cause, domainerrors.ErrorTypeRestricted, "age_restricted", "post restricted").
			WithUserMessage(string(lang.ErrIGAgeRestricted))
	case strings.Contains(lower, "login"):
		return domainerrors.WrapDomainError(cause, domainerrors.ErrorTypeAuthRequired, "login_required", "post requires login").
			WithUserMessage(string(lang.ErrIGFallbackLogin))
	default:
		return domainerrors.WrapDomainError(cause, domainerrors.ErrorTypeInternal, "fallback_failed", "yt-dlp fallback failed").
			WithUserMessage(string(lang.ErrIGFallback), utils.Truncate(text, maxFallbackTextLen))
	}
}

// lastLine returns the last non-empty line of output.
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
