package instagram

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

const (
	defaultInstaloaderBinary = "instaloader"
	gracefulStopTimeout      = 5 * time.Second
	maxOutputBytes           = 64 * 1024
)

// InstaloaderError is returned when instaloader exits non-zero or reports errors.
type InstaloaderError struct {
	Err    error
	Output string
}

func (e *InstaloaderError) Error() string {
	return fmt.Sprintf("instaloader failed (%v): %s", e.Err, lastLine(e.Output))
}

func (e *InstaloaderError) Unwrap() error {
	return e.Err
}

// buildArgs returns the instaloader command line for a single post.
// Without credentials instaloader runs anonymously.
func buildArgs(settings config.InstagramConfig, dir, shortcode string) []string {
	args := []string{
		"--quiet",
		"--dirname-pattern", dir,
		"--filename-pattern", "{shortcode}",
		"--no-video-thumbnails",
		"--no-compress-json",
	}
	if settings.RequestTimeout > 0 {
		args = append(args, "--request-timeout", strconv.Itoa(int(settings.RequestTimeout.Seconds())))
	}
	if settings.UserAgent != "" {
		args = append(args, "--user-agent", settings.UserAgent)
	}
	if settings.HasCredentials() {
		args = append(args, "--login", settings.Username, "--sessionfile", settings.SessionFile())
		if settings.Password != "" {
			args = append(args, "--password", settings.Password)
		}
	}
	return append(args, "--", "-"+shortcode)
}

// runInstaloader executes the binary and returns its combined output.
func runInstaloader(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Cancel = func() error {
		logutils.Log.Info("Interrupting instaloader process")
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = gracefulStopTimeout

	var output limitedBuffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		if downloader.IsMissingBinary(err) {
			return "", fmt.Errorf("%w: %s", downloader.ErrToolNotFound, binary)
		}
		return "", fmt.Errorf("failed to start instaloader: %w", err)
	}

	waitErr := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return output.String(), fmt.Errorf("%w: %w", downloader.ErrStoppedByUser, ctxErr)
	}
	if waitErr != nil {
		return output.String(), &InstaloaderError{Err: waitErr, Output: output.String()}
	}
	return output.String(), nil
}

type limitedBuffer struct {
	buf bytes.Buffer
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := maxOutputBytes - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
