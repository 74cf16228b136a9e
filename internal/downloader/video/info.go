package ytdlp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// VideoInfo is the subset of the yt-dlp info JSON the bot uses.
type VideoInfo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Uploader    string  `json:"uploader"`
	Channel     string  `json:"channel"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Vcodec      string  `json:"vcodec"`
}

func (v *VideoInfo) Author() string {
	if v.Uploader != "" {
		return v.Uploader
	}
	return v.Channel
}

// ReadInfo loads the first *.info.json file in dir.
func ReadInfo(dir string) (*VideoInfo, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.info.json"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, err
	}
	var info VideoInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// TitleFromPath strips the directory, the "[id]" suffix and the extension.
func TitleFromPath(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.LastIndex(name, " ["); i > 0 && strings.HasSuffix(name, "]") {
		name = name[:i]
	}
	return name
}

// InfoJSONArgs writes the info JSON into dir under a fixed name.
func InfoJSONArgs(dir string) []string {
	return []string{"--write-info-json", "-o", "infojson:" + filepath.Join(dir, "info")}
}
