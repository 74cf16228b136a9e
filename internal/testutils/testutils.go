package testutils

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
)

const tickerInterval = 10 * time.Millisecond

// TestConfig creates a configuration suitable for testing. External tools point at
// paths that do not exist so nothing real is started by accident.
func TestConfig(tempDir string) *config.Config {
	return &config.Config{
		BotToken:  "test-bot-token",
		LogLevel:  "debug",
		LogFormat: "text",
		Lang:      "en",
		TempDir:   tempDir,

		DownloadSettings: config.DownloadConfig{
			MaxConcurrentDownloads: 1,
			DownloadTimeout:        30 * time.Second,
			ProgressUpdateInterval: 100 * time.Millisecond,
			UploadLimitMB:          config.DefaultUploadLimitMB,
			MaxFilesPerPost:        config.DefaultMaxFilesPerPost,
		},

		YouTubeSettings: config.YouTubeConfig{
			YtdlpPath:     filepath.Join(tempDir, "missing-yt-dlp"),
			MaxDownloadMB: 300,
			Backend:       config.BackendAuto,
		},

		InstagramSettings: config.InstagramConfig{
			SessionDir:      tempDir,
			InstaloaderPath: filepath.Join(tempDir, "missing-instaloader"),
			RequestTimeout:  10 * time.Second,
			CaptionLimit:    config.DefaultCaptionLimit,
		},

		CompressionSettings: config.CompressionConfig{
			Enabled:          false,
			FFmpegPath:       filepath.Join(tempDir, "missing-ffmpeg"),
			FFprobePath:      filepath.Join(tempDir, "missing-ffprobe"),
			Preset:           "ultrafast",
			AudioBitrateKbps: 64,
			Timeout:          10 * time.Second,
		},
	}
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(tickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Timeout waiting for condition: %s", message)
		case <-ticker.C:
			if condition() {
				return
			}
		}
	}
}
