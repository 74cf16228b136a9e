package logutils

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Log = newLogger(logrus.InfoLevel, "text", os.Stdout)

type Logger struct {
	entry *logrus.Entry
}

type requestIDKey struct{}

const (
	FormatText = "text"
	FormatJSON = "json"
)

func InitLogger(level string) {
	InitLoggerWithFormat(level, FormatText)
}

func InitLoggerWithFormat(level, format string) {
	InitLoggerWithOutput(level, format, os.Stdout)
}

func InitLoggerWithOutput(level, format string, out io.Writer) {
	parsedLevel, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsedLevel = logrus.InfoLevel
	}
	Log = newLogger(parsedLevel, format, out)
	if err != nil {
		Log.Warnf("Invalid log level '%s', defaulting to 'info'", level)
	}
	Log.Debugf("Log level set to %v", parsedLevel)
}

func newLogger(level logrus.Level, format string, out io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if format == FormatJSON {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return &Logger{entry: logrus.NewEntry(l)}
}

func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithContext attaches the request ID stored in ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if id := RequestID(ctx); id != "" {
		return l.WithField("request_id", id)
	}
	return l
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

func (l *Logger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *Logger) Debug(message string) { l.entry.Debug(message) }
func (l *Logger) Infof(format string, args ...any) { l.entry.Infof(format, args...) }
func (l *Logger) Info(message string) { l.entry.Info(message) }
func (l *Logger) Warnf(format string, args ...any) { l.entry.Warnf(format, args...) }
func (l *Logger) Warn(message string) { l.entry.Warn(message) }
func (l *Logger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }
func (l *Logger) Error(message string) { l.entry.Error(message) }

func (l *Logger) Fatal(format string, args ...any) {
	l.entry.Fatalf(format, args...)
}
