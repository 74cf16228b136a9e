package downloader

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	PhotoExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}
	VideoExtensions = []string{".mp4", ".mov", ".mkv", ".webm", ".m4v"}
)

// KindOf reports whether path looks like a photo or a video.
func KindOf(path string) (MediaKind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range PhotoExtensions {
		if ext == e {
			return KindPhoto, true
		}
	}
	for _, e := range VideoExtensions {
		if ext == e {
			return KindVideo, true
		}
	}
	return "", false
}

// CollectMedia walks dir and returns photo and video files, sorted by path.
// Partial downloads and sidecar files are skipped.
func CollectMedia(dir string) ([]MediaFile, error) {
	var files []MediaFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isTempFile(d.Name()) {
			return nil
		}
		kind, ok := KindOf(path)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			return nil
		}
		files = append(files, MediaFile{Path: path, Kind: kind, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

var fragmentSuffix = regexp.MustCompile(`\.part-Frag\d+$`)

// isTempFile matches yt-dlp leftovers by suffix only, so titles like
// "Lesson.Part 2.mp4" are kept.
func isTempFile(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range []string{".part", ".ytdl", ".temp", ".tmp"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return fragmentSuffix.MatchString(name)
}

// Largest returns the biggest file, or false for an empty list.
func Largest(files []MediaFile) (MediaFile, bool) {
	if len(files) == 0 {
		return MediaFile{}, false
	}
	best := files[0]
	for _, f := range files[1:] {
		if f.Size > best.Size {
			best = f
		}
	}
	return best, true
}

// StatFile builds a MediaFile from an existing path.
func StatFile(path string) (MediaFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return MediaFile{}, err
	}
	kind, ok := KindOf(path)
	if !ok {
		kind = KindVideo
	}
	return MediaFile{Path: path, Kind: kind, Size: info.Size()}, nil
}
