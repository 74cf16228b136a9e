package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
)

const (
	updateTimeout      = 3 * time.Minute
	updateOutputLimit  = 300
	managedInstallHint = "use that to update"
)

// UpdateResult is what one self-update attempt saw.
type UpdateResult struct {
	Before string
	After  string
	// Managed is set when yt-dlp was installed by pip or a package manager
	// and refuses to replace itself.
	Managed bool
}

func (r UpdateResult) Changed() bool {
	return r.Before != "" && r.After != "" && r.Before != r.After
}

// SelfUpdater keeps the yt-dlp binary current with "yt-dlp -U".
type SelfUpdater struct {
	binary string
}

func NewUpdater(binaryPath string) *SelfUpdater {
	if binaryPath == "" {
		binaryPath = defaultYtdlpBinary
	}
	return &SelfUpdater{binary: binaryPath}
}

// Update runs one update attempt bounded by updateTimeout.
func (u *SelfUpdater) Update(ctx context.Context) (UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	before, err := u.readVersion(ctx)
	if err != nil {
		return UpdateResult{}, err
	}
	res := UpdateResult{Before: before, After: before}

	// #nosec G204 -- binary comes from config
	output, err := exec.CommandContext(ctx, u.binary, "-U").CombinedOutput()
	text := strings.TrimSpace(string(output))
	if err != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("yt-dlp update interrupted: %w", ctx.Err())
		}
		if strings.Contains(strings.ToLower(text), managedInstallHint) {
			res.Managed = true
			return res, nil
		}
		return res, fmt.Errorf("yt-dlp -U: %w: %s", err, utils.Truncate(text, updateOutputLimit))
	}

	if after, verr := u.readVersion(ctx); verr == nil {
		res.After = after
	}
	return res, nil
}

// RunUpdate implements downloader.Updater. Failures only get logged; the bot
// keeps whatever version is installed.
func (u *SelfUpdater) RunUpdate(ctx context.Context) {
	log := logutils.Log.WithContext(ctx).WithField("binary", u.binary)

	res, err := u.Update(ctx)
	switch {
	case errors.Is(err, downloader.ErrToolNotFound):
		log.Warn("yt-dlp not found, YouTube links will go through the built-in backend")
	case err != nil:
		log.WithError(err).Warn("yt-dlp update failed, keeping the installed version")
	case res.Managed:
		log.WithField("version", res.Before).Info("yt-dlp is managed by pip or a package manager, skipping self-update")
	case res.Changed():
		log.WithFields(map[string]any{"from": res.Before, "to": res.After}).Info("yt-dlp updated")
	default:
		log.WithField("version", res.After).Debug("yt-dlp is up to date")
	}
}

func (u *SelfUpdater) readVersion(ctx context.Context) (string, error) {
	// #nosec G204 -- binary comes from config
	out, err := exec.CommandContext(ctx, u.binary, "--version").Output()
	if err != nil {
		if downloader.IsMissingBinary(err) {
			return "", fmt.Errorf("%w: %s", downloader.ErrToolNotFound, u.binary)
		}
		return "", fmt.Errorf("yt-dlp --version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
