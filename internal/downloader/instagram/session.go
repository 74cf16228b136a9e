package instagram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
)

var (
	ErrNoCredentials   = errors.New("instagram username is not configured")
	ErrTwoFactor       = errors.New("two-factor authentication required")
	ErrBadCredentials  = errors.New("invalid username or password")
	ErrLoginConnection = errors.New("connection error during login")
)

// CreateSession logs in with instaloader and writes the session file the bot
// loads on every download. instaloader prompts on in/out when the password or a
// 2FA code is missing.
func CreateSession(ctx context.Context, settings config.InstagramConfig, in io.Reader, out io.Writer) (string, error) {
	if !settings.HasCredentials() {
		return "", ErrNoCredentials
	}
	binary := settings.InstaloaderPath
	if binary == "" {
		binary = defaultInstaloaderBinary
	}
	sessionFile := settings.SessionFile()
	if dir := filepath.Dir(sessionFile); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("create session dir: %w", err)
		}
	}

	args := []string{"--login", settings.Username, "--sessionfile", sessionFile}
	if settings.Password != "" {
		args = append(args, "--password", settings.Password)
	}

	var captured limitedBuffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = in
	cmd.Stdout = io.MultiWriter(out, &captured)
	cmd.Stderr = io.MultiWriter(out, &captured)

	if err := cmd.Run(); err != nil {
		if downloader.IsMissingBinary(err) {
			return "", fmt.Errorf("%w: %s", downloader.ErrToolNotFound, binary)
		}
		return "", classifyLogin(captured.String(), err)
	}
	if _, err := os.Stat(sessionFile); err != nil {
		return "", fmt.Errorf("session file was not written: %w", err)
	}
	return sessionFile, nil
}

func classifyLogin(output string, cause error) error {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "two-factor"), strings.Contains(lower, "2fa"):
		return fmt.Errorf("%w: %w", ErrTwoFactor, cause)
	case strings.Contains(lower, "bad credentials"), strings.Contains(lower, "wrong password"),
		strings.Contains(lower, "password is incorrect"), strings.Contains(lower, "does not exist"):
		return fmt.Errorf("%w: %w", ErrBadCredentials, cause)
	case strings.Contains(lower, "connection"), strings.Contains(lower, "timed out"):
		return fmt.Errorf("%w: %s", ErrLoginConnection, lastLine(output))
	default:
		return fmt.Errorf("instaloader login failed: %s: %w", lastLine(output), cause)
	}
}
