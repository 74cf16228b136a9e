package downloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		path string
		kind MediaKind
		ok   bool
	}{
		{"a.jpg", KindPhoto, true},
		{"a.JPEG", KindPhoto, true},
		{"a.webp", KindPhoto, true},
		{"a.mp4", KindVideo, true},
		{"a.MOV", KindVideo, true},
		{"a.json", "", false},
		{"a.txt", "", false},
	}
	for _, tt := range tests {
		kind, ok := KindOf(tt.path)
		if kind != tt.kind || ok != tt.ok {
			t.Errorf("KindOf(%q) = (%q, %v), want (%q, %v)", tt.path, kind, ok, tt.kind, tt.ok)
		}
	}
}

func TestCollectMedia(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b_2.mp4"), 300)
	writeFile(t, filepath.Join(dir, "a_1.jpg"), 100)
	writeFile(t, filepath.Join(dir, "post.json"), 50)
	writeFile(t, filepath.Join(dir, "post.txt"), 10)
	writeFile(t, filepath.Join(dir, "video.mp4.part"), 10)
	writeFile(t, filepath.Join(dir, "video.f137.mp4.ytdl"), 10)
	writeFile(t, filepath.Join(dir, "empty.jpg"), 0)
	writeFile(t, filepath.Join(dir, "nested", "c.png"), 20)

	files, err := CollectMedia(dir)
	if err != nil {
		t.Fatalf("CollectMedia() error = %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("CollectMedia() returned %d files, want 3: %+v", len(files), files)
	}
	if filepath.Base(files[0].Path) != "a_1.jpg" || files[0].Kind != KindPhoto || files[0].Size != 100 {
		t.Errorf("files[0] = %+v", files[0])
	}
	if filepath.Base(files[1].Path) != "b_2.mp4" || files[1].Kind != KindVideo {
		t.Errorf("files[1] = %+v", files[1])
	}
	if filepath.Base(files[2].Path) != "c.png" {
		t.Errorf("files[2] = %+v", files[2])
	}
}

func TestCollectMedia_MissingDir(t *testing.T) {
	if _, err := CollectMedia(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLargest(t *testing.T) {
	if _, ok := Largest(nil); ok {
		t.Error("Largest(nil) should report false")
	}

	files := []MediaFile{{Path: "a", Size: 10}, {Path: "b", Size: 30}, {Path: "c", Size: 20}}
	got, ok := Largest(files)
	if !ok || got.Path != "b" {
		t.Errorf("Largest() = %+v, %v", got, ok)
	}

	res := &Result{Files: files}
	if res.TotalSize() != 60 {
		t.Errorf("TotalSize() = %d", res.TotalSize())
	}
}

func TestRequestReportProgress(t *testing.T) {
	var got []float64
	req := &Request{Progress: func(p float64) { got = append(got, p) }}
	req.ReportProgress(12.5)
	req.ReportProgress(100)
	if len(got) != 2 || got[1] != 100 {
		t.Errorf("progress = %v", got)
	}

	(&Request{}).ReportProgress(50)
}

type countingUpdater struct {
	calls  int
	cancel context.CancelFunc
}

func (c *countingUpdater) RunUpdate(_ context.Context) {
	c.calls++
	if c.cancel != nil {
		c.cancel()
	}
}

func TestRunUpdaters_StartupOnlyWithoutInterval(t *testing.T) {
	a, b := &countingUpdater{}, &countingUpdater{}
	RunUpdaters(context.Background(), 0, a, nil, b)
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = %d, %d, want 1 each", a.calls, b.calls)
	}
}

func TestRunUpdaters_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &countingUpdater{cancel: cancel}
	second := &countingUpdater{}

	RunUpdaters(ctx, time.Hour, first, second)

	if first.calls != 1 || second.calls != 0 {
		t.Errorf("calls = %d, %d, want 1 and 0", first.calls, second.calls)
	}
}

func TestIsTempFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"video.mp4.part", true},
		{"video.f137.mp4.ytdl", true},
		{"video.mp4.part-Frag12", true},
		{"video.mp4.TMP", true},
		{"video.temp", true},
		{"Lesson.Part 2 [dQw4w9WgXcQ].mp4", false},
		{"Node.tmpl tutorial [dQw4w9WgXcQ].mp4", false},
		{"Music.Tempo test [dQw4w9WgXcQ].mp4", false},
		{".hack Sign [dQw4w9WgXcQ].mp4", false},
	}
	for _, tt := range tests {
		if got := isTempFile(tt.name); got != tt.want {
			t.Errorf("isTempFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCollectMedia_KeepsDottedTitles(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"Lesson.Part 2 [dQw4w9WgXcQ].mp4",
		"Node.tmpl tutorial [dQw4w9WgXcQ].mp4",
		"Music.Tempo test [dQw4w9WgXcQ].mp4",
		"ok video [dQw4w9WgXcQ].mp4",
	}
	for _, name := range names {
		writeFile(t, filepath.Join(dir, name), 64)
	}
	writeFile(t, filepath.Join(dir, "ok video [dQw4w9WgXcQ].f137.mp4.part-Frag3"), 64)

	files, err := CollectMedia(dir)
	if err != nil {
		t.Fatalf("CollectMedia() error = %v", err)
	}
	if len(files) != len(names) {
		t.Fatalf("CollectMedia() kept %d of %d finished videos: %+v", len(files), len(names), files)
	}
}
