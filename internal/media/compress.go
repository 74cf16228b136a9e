package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

const (
	defaultFFmpegBinary = "ffmpeg"
	containerHeadroom   = 0.95
	secondPassFactor    = 0.8
	minVideoKbps        = 100
	compressedSuffix    = ".compressed.mp4"
)

var (
	ErrStillTooLarge = errors.New("compressed file still exceeds the limit")
	ErrBitrateTooLow = errors.New("size budget too small for the video duration")
	ErrUnknownLength = errors.New("video duration is unknown")
)

// TargetBitrate returns the video bitrate in kbit/s that fits a file of
// duration into limitBytes next to an audio track of audioKbps.
func TargetBitrate(limitBytes int64, duration time.Duration, audioKbps int) (int, error) {
	if duration <= 0 {
		return 0, ErrUnknownLength
	}
	totalKbps := float64(limitBytes) * containerHeadroom * 8 / 1000 / duration.Seconds()
	videoKbps := int(totalKbps) - audioKbps
	if videoKbps < minVideoKbps {
		return 0, fmt.Errorf("%w: %d kbit/s available", ErrBitrateTooLow, videoKbps)
	}
	return videoKbps, nil
}

// Compressor re-encodes videos with ffmpeg so they fit the upload limit.
type Compressor struct {
	ffmpeg    string
	ffprobe   string
	preset    string
	audioKbps int
	maxHeight int
	timeout   time.Duration
}

func NewCompressor(settings config.CompressionConfig) *Compressor {
	c := &Compressor{
		ffmpeg:    settings.FFmpegPath,
		ffprobe:   settings.FFprobePath,
		preset:    settings.Preset,
		audioKbps: settings.AudioBitrateKbps,
		maxHeight: settings.MaxHeight,
		timeout:   settings.Timeout,
	}
	if c.ffmpeg == "" {
		c.ffmpeg = defaultFFmpegBinary
	}
	if c.ffprobe == "" {
		c.ffprobe = defaultFFprobeBinary
	}
	if c.preset == "" {
		c.preset = "fast"
	}
	if c.audioKbps <= 0 {
		c.audioKbps = 128
	}
	return c
}

// Probe runs ffprobe with the configured binary.
func (c *Compressor) Probe(ctx context.Context, path string) (*Info, error) {
	return Probe(ctx, c.ffprobe, path)
}

// Compress writes a smaller H.264/AAC copy of in next to it and removes in on
// success. The returned path is the new file.
func (c *Compressor) Compress(ctx context.Context, in string, limitBytes int64) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	info, err := c.Probe(ctx, in)
	if err != nil {
		return "", err
	}
	kbps, err := TargetBitrate(limitBytes, info.Duration, c.audioKbps)
	if err != nil {
		return "", err
	}

	out := strings.TrimSuffix(in, filepath.Ext(in)) + compressedSuffix
	log := logutils.Log.WithContext(ctx).WithFields(map[string]any{
		"input":    filepath.Base(in),
		"duration": info.Duration.String(),
	})

	for pass, rate := range []int{kbps, int(float64(kbps) * secondPassFactor)} {
		log.WithFields(map[string]any{"pass": pass + 1, "video_kbps": rate}).Info("Compressing video")
		if err := c.encode(ctx, in, out, rate); err != nil {
			os.Remove(out)
			return "", err
		}
		stat, err := os.Stat(out)
		if err != nil {
			return "", fmt.Errorf("stat compressed file: %w", err)
		}
		if stat.Size() <= limitBytes {
			if err := os.Remove(in); err != nil {
				log.WithError(err).Warn("Failed to remove original after compression")
			}
			return out, nil
		}
		log.WithField("size", stat.Size()).Warn("Compressed file still too large")
	}

	os.Remove(out)
	return "", ErrStillTooLarge
}

func (c *Compressor) encode(ctx context.Context, in, out string, videoKbps int) error {
	rate := strconv.Itoa(videoKbps) + "k"
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", in,
		"-c:v", "libx264",
		"-preset", c.preset,
		"-b:v", rate,
		"-maxrate", rate,
		"-bufsize", strconv.Itoa(2*videoKbps) + "k",
	}
	if c.maxHeight > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=-2:'min(%d,ih)'", c.maxHeight))
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", strconv.Itoa(c.audioKbps)+"k",
		"-movflags", "+faststart",
		out,
	)

	// #nosec G204 -- paths come from the job dir, numbers from config
	cmd := exec.CommandContext(ctx, c.ffmpeg, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if downloader.IsMissingBinary(err) {
			return fmt.Errorf("%w: %s", downloader.ErrToolNotFound, c.ffmpeg)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg interrupted: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
