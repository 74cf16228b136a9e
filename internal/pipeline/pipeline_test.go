package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/bot"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
	domainerrors "github.com/NikitaDmitryuk/telegram-media-downloader/internal/core/errors"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/database"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/filemanager"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/media"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/platform"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/testutils"
)

const mib = 1024 * 1024

func TestMain(m *testing.M) {
	logutils.InitLogger("error")
	lang.Setup("en")
	os.Exit(m.Run())
}

type fakeRegistry map[platform.Platform]downloader.Downloader

func (r fakeRegistry) For(p platform.Platform) (downloader.Downloader, error) {
	d, ok := r[p]
	if !ok {
		return nil, errors.New("unsupported platform")
	}
	return d, nil
}

type fakeFile struct {
	name string
	size int64
}

type fakeDownloader struct {
	platform platform.Platform
	files    []fakeFile
	result   downloader.Result
	err      error
	block    bool
}

func (f *fakeDownloader) Platform() platform.Platform { return f.platform }

func (f *fakeDownloader) Download(ctx context.Context, req *downloader.Request) (*downloader.Result, error) {
	req.ReportProgress(50)
	if f.block {
		<-ctx.Done()
		return nil, downloader.ErrStoppedByUser
	}
	if f.err != nil {
		return nil, f.err
	}
	res := f.result
	res.Files = nil
	for _, ff := range f.files {
		path := filepath.Join(req.Dir, ff.name)
		if err := os.WriteFile(path, make([]byte, ff.size), 0o600); err != nil {
			return nil, err
		}
		mf, err := downloader.StatFile(path)
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, mf)
	}
	return &res, nil
}

type fakeMedia struct {
	compressed []string
	failWith   error
}

func (*fakeMedia) Probe(context.Context, string) (*media.Info, error) {
	return &media.Info{Duration: 12400 * time.Millisecond, Vcodec: "h264"}, nil
}

func (m *fakeMedia) Compress(_ context.Context, in string, limit int64) (string, error) {
	if m.failWith != nil {
		return "", m.failWith
	}
	m.compressed = append(m.compressed, in)
	out := strings.TrimSuffix(in, filepath.Ext(in)) + ".compressed.mp4"
	if err := os.WriteFile(out, make([]byte, limit/2), 0o600); err != nil {
		return "", err
	}
	return out, os.Remove(in)
}

type harness struct {
	bot     *testutils.MockBot
	history *testutils.MockHistory
	media   *fakeMedia
	tempDir string
	cfg     *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := testutils.TestConfig(dir)
	cfg.DownloadSettings.UploadLimitMB = 1
	cfg.DownloadSettings.SendDelay = 0
	cfg.DownloadSettings.MaxFilesPerPost = 2
	cfg.CompressionSettings.Enabled = true
	return &harness{
		bot:     &testutils.MockBot{},
		history: testutils.NewMockHistory(),
		media:   &fakeMedia{},
		tempDir: dir,
		cfg:     cfg,
	}
}

func (h *harness) run(ctx context.Context, t *testing.T, d *fakeDownloader) error {
	t.Helper()
	p := New(h.cfg, h.bot, filemanager.NewManager(h.tempDir, 0), fakeRegistry{d.platform: d}, h.media, h.history)
	job := &Job{ID: "job1", UserID: 7, ChatID: 100, MessageID: 55, URL: "https://example.com/x", Platform: d.platform}
	err := p.Run(ctx, job)

	entries, rerr := os.ReadDir(h.tempDir)
	if rerr != nil {
		t.Fatalf("ReadDir() error = %v", rerr)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned up: %d entries left", len(entries))
	}
	return err
}

func TestRun_YouTube(t *testing.T) {
	h := newHarness(t)
	err := h.run(context.Background(), t, &fakeDownloader{
		platform: platform.YouTube,
		files:    []fakeFile{{"Clip [abc].mp4", 512 * 1024}},
		result:   downloader.Result{Title: "Clip"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	videos := h.bot.Videos()
	if len(videos) != 1 {
		t.Fatalf("videos = %d, want 1", len(videos))
	}
	v := videos[0]
	if v.Caption != "🎬 Clip\n📦 0.5MB" {
		t.Errorf("caption = %q", v.Caption)
	}
	if v.Duration != 12 || !v.SupportsStreaming || v.ReplyTo != 55 {
		t.Errorf("video = %+v", v)
	}
	if got := h.bot.LastText(); got != "✅ Done!" {
		t.Errorf("final status = %q", got)
	}
	if msgs := h.bot.Messages(); len(msgs) == 0 || msgs[0].Text != "⏳ Downloading from YouTube..." {
		t.Errorf("first status = %+v", msgs)
	}

	outcome, ok := h.history.Finished("job1")
	if !ok || outcome.Status != database.StatusCompleted || outcome.Files != 1 || outcome.Bytes != 512*1024 {
		t.Errorf("outcome = %+v", outcome)
	}
	if started, ok := h.history.Started("job1"); !ok || started.UserID != 7 || started.Platform != "youtube" {
		t.Errorf("started = %+v", started)
	}
}

func TestRun_InstagramCarousel(t *testing.T) {
	h := newHarness(t)
	err := h.run(context.Background(), t, &fakeDownloader{
		platform: platform.Instagram,
		files:    []fakeFile{{"abc_1.jpg", 100}, {"abc_2.mp4", 200}, {"abc_3.jpg", 300}},
		result:   downloader.Result{Author: "cats<3", Caption: "a & b"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var info string
	for _, m := range h.bot.Messages() {
		if m.ParseMode == "HTML" {
			info = m.Text
		}
	}
	want := "📸 <b>Instagram Post</b>\n👤 @cats&lt;3\n\na &amp; b"
	if info != want {
		t.Errorf("info = %q, want %q", info, want)
	}
	if len(h.bot.Photos()) != 1 || len(h.bot.Videos()) != 1 {
		t.Errorf("photos = %d, videos = %d, want 1 and 1", len(h.bot.Photos()), len(h.bot.Videos()))
	}
	if got := h.bot.LastText(); got != "✅ Sent 2/2 files" {
		t.Errorf("final status = %q", got)
	}
	actions := h.bot.Actions()
	if len(actions) != 2 || actions[0] != bot.ActionUploadPhoto || actions[1] != bot.ActionUploadVideo {
		t.Errorf("actions = %v", actions)
	}
}

func TestRun_InstagramFailedSendIsCountedOut(t *testing.T) {
	h := newHarness(t)
	h.bot.SendPhotoError = func(p bot.Photo) error {
		if strings.HasSuffix(p.Path, "abc_1.jpg") {
			return errors.New("bad request")
		}
		return nil
	}
	err := h.run(context.Background(), t, &fakeDownloader{
		platform: platform.Instagram,
		files:    []fakeFile{{"abc_1.jpg", 100}, {"abc_2.jpg", 100}},
		result:   downloader.Result{Author: "someone"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := h.bot.LastText(); got != "✅ Sent 1/2 files" {
		t.Errorf("final status = %q", got)
	}
	for _, m := range h.bot.Messages() {
		if m.ParseMode == "HTML" && !strings.HasSuffix(m.Text, "<i>No caption</i>") {
			t.Errorf("info without caption = %q", m.Text)
		}
	}
}

func TestRun_CompressesOversizedVideo(t *testing.T) {
	h := newHarness(t)
	err := h.run(context.Background(), t, &fakeDownloader{
		platform: platform.YouTube,
		files:    []fakeFile{{"Big.mp4", 2 * mib}},
		result:   downloader.Result{Title: "Big"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(h.media.compressed) != 1 {
		t.Fatalf("compressed = %v, want one file", h.media.compressed)
	}
	videos := h.bot.Videos()
	if len(videos) != 1 || !strings.HasSuffix(videos[0].Path, ".compressed.mp4") {
		t.Fatalf("videos = %+v", videos)
	}
	sawCompressing := false
	for _, e := range h.bot.Edits() {
		if e.Text == "🗜 Compressing video (2.0 MB)..." {
			sawCompressing = true
		}
	}
	if !sawCompressing {
		t.Errorf("no compressing status in %+v", h.bot.Edits())
	}
}

func TestRun_SkipsOversizedPhoto(t *testing.T) {
	h := newHarness(t)
	err := h.run(context.Background(), t, &fakeDownloader{
		platform: platform.Instagram,
		files:    []fakeFile{{"abc_1.jpg", 2 * mib}, {"abc_2.jpg", 100}},
		result:   downloader.Result{Author: "a"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	found := false
	for _, m := range h.bot.Messages() {
		if m.Text == "⚠️ Skipped photo: 2.0 MB is over the 1 MB limit" {
			found = true
		}
	}
	if !found {
		t.Errorf("skip notice missing from %+v", h.bot.Messages())
	}
	if len(h.bot.Photos()) != 1 || len(h.media.compressed) != 0 {
		t.Errorf("photos = %d, compressed = %d", len(h.bot.Photos()), len(h.media.compressed))
	}
}

func TestRun_Errors(t *testing.T) {
	domainErr := domainerrors.NewDomainError(domainerrors.ErrorTypeRestricted, "private", "private video").
		WithUserMessage(string(lang.ErrYTPrivate))

	tests := []struct {
		name        string
		compression bool
		dl          *fakeDownloader
		mediaErr    error
		wantText    string
		wantType    domainerrors.ErrorType
	}{
		{
			name:     "domain error from downloader",
			dl:       &fakeDownloader{platform: platform.YouTube, err: domainErr},
			wantText: "❌ Error:\n" + lang.Get(lang.ErrYTPrivate),
			wantType: domainerrors.ErrorTypeRestricted,
		},
		{
			name:     "plain error",
			dl:       &fakeDownloader{platform: platform.YouTube, err: errors.New("exit status 1")},
			wantText: "❌ Error:\nexit status 1",
		},
		{
			name:     "no files",
			dl:       &fakeDownloader{platform: platform.Instagram},
			wantText: "❌ Error:\nNo media files found",
			wantType: domainerrors.ErrorTypeNotFound,
		},
		{
			name:     "too large without compression",
			dl:       &fakeDownloader{platform: platform.YouTube, files: []fakeFile{{"Big.mp4", 2 * mib}}},
			wantText: "❌ Error:\nThe file is too large (2.0 MB). The limit is 1 MB.",
			wantType: domainerrors.ErrorTypeTooLarge,
		},
		{
			name:        "compression failed",
			compression: true,
			mediaErr:    media.ErrStillTooLarge,
			dl:          &fakeDownloader{platform: platform.YouTube, files: []fakeFile{{"Big.mp4", 2 * mib}}},
			wantText:    "❌ Error:\nThe file is too large (2.0 MB). The limit is 1 MB.",
			wantType:    domainerrors.ErrorTypeTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.cfg.CompressionSettings.Enabled = tt.compression
			h.media.failWith = tt.mediaErr

			err := h.run(context.Background(), t, tt.dl)
			if err == nil {
				t.Fatal("Run() expected an error")
			}
			if tt.wantType != "" && !domainerrors.IsType(err, tt.wantType) {
				t.Errorf("error = %v, want type %s", err, tt.wantType)
			}
			if got := h.bot.LastText(); got != tt.wantText {
				t.Errorf("status = %q, want %q", got, tt.wantText)
			}
			outcome, _ := h.history.Finished("job1")
			if outcome.Status != database.StatusFailed || outcome.Error == "" {
				t.Errorf("outcome = %+v", outcome)
			}
		})
	}
}

func TestRun_Timeout(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := h.run(ctx, t, &fakeDownloader{platform: platform.YouTube, block: true})
	if err == nil {
		t.Fatal("Run() expected an error")
	}
	if got := h.bot.LastText(); got != "❌ Error:\n"+lang.Get(lang.ErrTimeout) {
		t.Errorf("status = %q", got)
	}
	outcome, _ := h.history.Finished("job1")
	if outcome.Status != database.StatusInterrupted {
		t.Errorf("outcome status = %s, want interrupted", outcome.Status)
	}
}

func TestAbandon_RecordsInterrupted(t *testing.T) {
	h := newHarness(t)
	p := New(h.cfg, h.bot, filemanager.NewManager(h.tempDir, 0), fakeRegistry{}, h.media, h.history)
	job := &Job{ID: "queued1", UserID: 7, ChatID: 100, URL: "https://youtu.be/dQw4w9WgXcQ", Platform: platform.YouTube}

	p.Abandon(context.Background(), job)

	started, ok := h.history.Started("queued1")
	if !ok || started.UserID != 7 || started.Platform != platform.YouTube.String() {
		t.Fatalf("started = %+v, ok = %v", started, ok)
	}
	outcome, ok := h.history.Finished("queued1")
	if !ok || outcome.Status != database.StatusInterrupted || outcome.Error == "" {
		t.Errorf("outcome = %+v, ok = %v", outcome, ok)
	}
	if len(h.bot.Messages()) != 0 {
		t.Errorf("Abandon should not message the chat, sent %d", len(h.bot.Messages()))
	}
}
