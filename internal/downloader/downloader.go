package downloader

import (
	"context"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/platform"
)

type MediaKind string

const (
	KindPhoto MediaKind = "photo"
	KindVideo MediaKind = "video"
)

// Request is a single download job. Dir is owned by the caller and removed after upload.
type Request struct {
	ID       string
	URL      string
	Platform platform.Platform
	Dir      string
	// Progress receives download percentages; may be nil.
	Progress func(percent float64)
}

func (r *Request) ReportProgress(percent float64) {
	if r.Progress != nil {
		r.Progress(percent)
	}
}

type MediaFile struct {
	Path string
	Kind MediaKind
	Size int64
}

type Result struct {
	Title   string
	Author  string
	Caption string
	Files   []MediaFile
}

func (r *Result) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

type Downloader interface {
	Platform() platform.Platform
	Download(ctx context.Context, req *Request) (*Result, error)
}

type Updater interface {
	RunUpdate(ctx context.Context)
}
