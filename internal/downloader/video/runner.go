package ytdlp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

const (
	defaultYtdlpBinary  = "yt-dlp"
	gracefulStopTimeout = 5 * time.Second
	maxStderrBytes      = 64 * 1024
)

// Runner spawns yt-dlp, streams its progress and collects its output.
type Runner struct {
	binary       string
	proxy        string
	proxyDomains string
	stopTimeout  time.Duration
}

func NewRunner(binary, proxy, proxyDomains string) *Runner {
	if binary == "" {
		binary = defaultYtdlpBinary
	}
	return &Runner{
		binary:       binary,
		proxy:        proxy,
		proxyDomains: proxyDomains,
		stopTimeout:  gracefulStopTimeout,
	}
}

func (r *Runner) Binary() string {
	return r.binary
}

// Available reports whether the yt-dlp binary can be found.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

// RunOutput is what a finished yt-dlp process printed, progress lines excluded.
type RunOutput struct {
	Stdout []string
	Stderr string
}

// Contains reports whether any output line contains substr, case-insensitively.
func (o *RunOutput) Contains(substr string) bool {
	substr = strings.ToLower(substr)
	if strings.Contains(strings.ToLower(o.Stderr), substr) {
		return true
	}
	for _, line := range o.Stdout {
		if strings.Contains(strings.ToLower(line), substr) {
			return true
		}
	}
	return false
}

// ExitError is returned when yt-dlp exits with a non-zero status.
type ExitError struct {
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("yt-dlp failed (%v): %s", e.Err, LastErrorLine(e.Stderr))
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Run executes yt-dlp with args followed by the URL. Cancelling ctx interrupts the
// process and kills it if it does not exit within the stop timeout.
func (r *Runner) Run(ctx context.Context, rawURL string, args []string, onProgress func(float64)) (*RunOutput, error) {
	cmdArgs := []string{"--newline"}
	if useProxy, err := shouldUseProxy(rawURL, r.proxy, r.proxyDomains); err != nil {
		return nil, fmt.Errorf("error checking proxy requirement: %w", err)
	} else if useProxy {
		logutils.Log.WithField("proxy", r.proxy).Debugf("Using proxy for URL: %s", rawURL)
		cmdArgs = append(cmdArgs, "--proxy", r.proxy)
	}
	cmdArgs = append(cmdArgs, args...)
	cmdArgs = append(cmdArgs, "--", rawURL)

	cmd := exec.CommandContext(ctx, r.binary, cmdArgs...)
	cmd.Cancel = func() error {
		logutils.Log.Info("Interrupting yt-dlp process")
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.stopTimeout

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	logutils.Log.WithContext(ctx).WithField("args", strings.Join(cmdArgs, " ")).Debug("Starting yt-dlp")
	if err := cmd.Start(); err != nil {
		if downloader.IsMissingBinary(err) {
			return nil, fmt.Errorf("%w: %s", downloader.ErrToolNotFound, r.binary)
		}
		return nil, fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	out := &RunOutput{}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		out.Stderr = readLimited(stderr, maxStderrBytes)
	}()

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if percent, ok := parseProgress(line); ok {
			if onProgress != nil {
				onProgress(percent)
			}
			continue
		}
		out.Stdout = append(out.Stdout, line)
	}
	wg.Wait()

	waitErr := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		logutils.Log.WithContext(ctx).WithError(ctxErr).Info("yt-dlp process stopped")
		return out, fmt.Errorf("%w: %w", downloader.ErrStoppedByUser, ctxErr)
	}
	if waitErr != nil {
		logutils.Log.WithContext(ctx).WithError(waitErr).Warnf("yt-dlp exited with error: %s", LastErrorLine(out.Stderr))
		return out, &ExitError{Err: waitErr, Stderr: out.Stderr}
	}
	return out, nil
}

// parseProgress reads lines such as "[download]  42.3% of 10.00MiB at 1.00MiB/s ETA 00:05".
func parseProgress(line string) (float64, bool) {
	if !strings.HasPrefix(line, "[download]") {
		return 0, false
	}
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasSuffix(fields[1], "%") {
		return 0, false
	}
	percent, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "%"), 64)
	if err != nil {
		return 0, false
	}
	return percent, true
}

func readLimited(r io.Reader, limit int) string {
	var sb strings.Builder
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if sb.Len() < limit {
			sb.WriteString(scanner.Text())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// LastErrorLine picks the most useful line of yt-dlp stderr: the last "ERROR:" line,
// or the last non-empty line.
func LastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if last == "" {
			last = line
		}
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	return last
}
