package ytdlp

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
)

// fakeUpdatable reports the version stored in a state file; -U runs updateCmd.
func fakeUpdatable(t *testing.T, updateCmd string) string {
	t.Helper()
	state := filepath.Join(t.TempDir(), "version")
	return writeFakeYtdlp(t, `state="`+state+`"
case "$1" in
  --version) cat "$state" 2>/dev/null || echo 2024.01.01 ;;
  -U) `+strings.ReplaceAll(updateCmd, "STATE", `"$state"`)+` ;;
esac
`)
}

func TestSelfUpdater_Update(t *testing.T) {
	tests := []struct {
		name        string
		updateCmd   string
		wantAfter   string
		wantChanged bool
		wantManaged bool
		wantErr     bool
	}{
		{
			name:        "new release installed",
			updateCmd:   "echo 2024.05.01 > STATE",
			wantAfter:   "2024.05.01",
			wantChanged: true,
		},
		{
			name:      "already current",
			updateCmd: "echo 'yt-dlp is up to date'",
			wantAfter: "2024.01.01",
		},
		{
			name:        "pip install",
			updateCmd:   "echo 'ERROR: You installed yt-dlp with pip or using the wheel from PyPi; Use that to update'; exit 1",
			wantAfter:   "2024.01.01",
			wantManaged: true,
		},
		{
			name:      "network failure",
			updateCmd: "echo 'network down'; exit 1",
			wantAfter: "2024.01.01",
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUpdater(fakeUpdatable(t, tt.updateCmd))
			res, err := u.Update(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Update() error = %v, wantErr %v", err, tt.wantErr)
			}
			if res.Before != "2024.01.01" || res.After != tt.wantAfter {
				t.Errorf("versions = %q -> %q, want 2024.01.01 -> %q", res.Before, res.After, tt.wantAfter)
			}
			if res.Changed() != tt.wantChanged || res.Managed != tt.wantManaged {
				t.Errorf("Changed() = %v, Managed = %v", res.Changed(), res.Managed)
			}
			u.RunUpdate(context.Background())
		})
	}
}

func TestSelfUpdater_MissingBinary(t *testing.T) {
	u := NewUpdater(filepath.Join(t.TempDir(), "absent-yt-dlp"))
	if _, err := u.Update(context.Background()); !errors.Is(err, downloader.ErrToolNotFound) {
		t.Errorf("Update() error = %v, want ErrToolNotFound", err)
	}
	u.RunUpdate(context.Background())
}

func TestSelfUpdater_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	u := NewUpdater(fakeUpdatable(t, "true"))
	if _, err := u.Update(ctx); err == nil {
		t.Error("Update() with a canceled context should fail")
	}
}
