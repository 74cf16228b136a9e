package downloader

import (
	"errors"
	"io/fs"
	"os/exec"
)

// ErrStoppedByUser is returned when a download was canceled through its context.
var ErrStoppedByUser = errors.New("download stopped by user")

// ErrToolNotFound is returned when the external binary for an adapter is not installed.
var ErrToolNotFound = errors.New("external tool not found")

// IsMissingBinary reports whether a failed exec.Cmd.Start means the binary is absent,
// either not on PATH or an absolute path that does not exist.
func IsMissingBinary(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
