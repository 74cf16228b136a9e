package utils

import (
	"errors"
	"strings"
)

var (
	ErrConfigurationError   = errors.New("configuration error")
	ErrUnsupportedURL       = errors.New("unsupported URL")
	ErrDownloadFailed       = errors.New("download failed")
	ErrNoMediaFiles         = errors.New("no media files found")
	ErrInsufficientSpace    = errors.New("insufficient disk space")
	ErrFileTooLarge         = errors.New("file exceeds upload limit")
	ErrUploadFailed         = errors.New("upload failed")
	ErrExternalServiceError = errors.New("external service error")
	ErrDatabaseError        = errors.New("database operation failed")
)

type WrappedError struct {
	Err     error
	Message string
	Context map[string]any
}

func (w *WrappedError) Error() string {
	if w.Message != "" {
		return w.Message + ": " + w.Err.Error()
	}
	return w.Err.Error()
}

func (w *WrappedError) Unwrap() error {
	return w.Err
}

func WrapError(err error, message string, ctx map[string]any) error {
	return &WrappedError{
		Err:     err,
		Message: message,
		Context: ctx,
	}
}

// RootError returns the innermost error in the chain (for user-facing messages without wrapper text).
func RootError(err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		err = e
	}
	return err
}

// ErrorContext merges the context fields of every WrappedError in the chain, outermost wins.
func ErrorContext(err error) map[string]any {
	fields := make(map[string]any)
	for e := err; e != nil; e = errors.Unwrap(e) {
		w, ok := e.(*WrappedError)
		if !ok {
			continue
		}
		for k, v := range w.Context {
			if _, exists := fields[k]; !exists {
				fields[k] = v
			}
		}
	}
	return fields
}

// Truncate cuts s to at most limit runes, appending "..." when something was cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
