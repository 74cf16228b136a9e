package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
)

const defaultFFprobeBinary = "ffprobe"

// Info is what ffprobe reports about a media file.
type Info struct {
	Duration time.Duration
	Size     int64
	Vcodec   string
	Width    int
	Height   int
}

// IsVideoFile reports whether path has a known video extension.
func IsVideoFile(path string) bool {
	kind, ok := downloader.KindOf(path)
	return ok && kind == downloader.KindVideo
}

// IsPhotoFile reports whether path has a known photo extension.
func IsPhotoFile(path string) bool {
	kind, ok := downloader.KindOf(path)
	return ok && kind == downloader.KindPhoto
}

// StreamingFriendly reports whether Telegram clients can play the codec while
// the file is still loading. vcodec may come from ffprobe ("h264") or
// yt-dlp ("avc1.64001f").
func StreamingFriendly(vcodec string) bool {
	v := strings.ToLower(strings.TrimSpace(vcodec))
	return strings.Contains(v, "h264") || strings.Contains(v, "avc")
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe runs ffprobe on path.
func Probe(ctx context.Context, ffprobe, path string) (*Info, error) {
	if ffprobe == "" {
		ffprobe = defaultFFprobeBinary
	}
	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		if downloader.IsMissingBinary(err) {
			return nil, fmt.Errorf("%w: %s", downloader.ErrToolNotFound, ffprobe)
		}
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(data []byte) (*Info, error) {
	var raw probeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &Info{}
	if raw.Format.Duration != "" {
		seconds, err := strconv.ParseFloat(raw.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", raw.Format.Duration, err)
		}
		info.Duration = time.Duration(seconds * float64(time.Second))
	}
	if raw.Format.Size != "" {
		info.Size, _ = strconv.ParseInt(raw.Format.Size, 10, 64)
	}
	for _, s := range raw.Streams {
		if s.CodecType != "video" {
			continue
		}
		info.Vcodec = s.CodecName
		info.Width = s.Width
		info.Height = s.Height
		break
	}
	return info, nil
}
