package filemanager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/NikitaDmitryuk/telegram-media-downloader/internal/core/errors"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/sysinfo"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
)

const (
	dirPerm        = 0o755
	jobDirPrefix   = "job_"
	StaleJobMaxAge = time.Hour
)

// Manager owns the temp directory. Every download gets its own job dir under it.
type Manager struct {
	baseDir   string
	minFree   int64
	freeSpace func(path string) (uint64, error)
}

func NewManager(baseDir string, minFreeBytes int64) *Manager {
	return &Manager{
		baseDir:   baseDir,
		minFree:   minFreeBytes,
		freeSpace: sysinfo.FreeSpace,
	}
}

func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Prepare creates the temp directory.
func (m *Manager) Prepare() error {
	if err := os.MkdirAll(m.baseDir, dirPerm); err != nil {
		return utils.WrapError(err, "create temp dir", map[string]any{"path": m.baseDir})
	}
	return nil
}

// CreateJobDir makes a fresh directory for one download. An empty jobID gets a random one.
func (m *Manager) CreateJobDir(jobID string) (string, error) {
	if jobID == "" {
		jobID = uuid.NewString()
	}
	dir := filepath.Join(m.baseDir, jobDirPrefix+utils.SanitizeFileName(jobID))
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", domainerrors.WrapDomainError(err, domainerrors.ErrorTypeStorage, "create_dir_failed",
			"failed to create job directory").WithDetails(map[string]any{"path": dir}).
			WithUserMessage(string(lang.ErrGeneric), "storage error")
	}
	return dir, nil
}

// Remove deletes a job dir and everything in it. Paths outside the temp dir are refused.
func (m *Manager) Remove(dir string) error {
	if !m.contains(dir) {
		return fmt.Errorf("refusing to remove %s: outside of %s", dir, m.baseDir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return domainerrors.WrapDomainError(err, domainerrors.ErrorTypeStorage, "remove_dir_failed",
			"failed to remove directory").WithDetails(map[string]any{"path": dir})
	}
	logutils.Log.WithField("path", dir).Debug("Job directory removed")
	return nil
}

// HasEnoughSpace reports whether the temp dir filesystem keeps at least the
// configured minimum free.
func (m *Manager) HasEnoughSpace() (bool, error) {
	if m.minFree <= 0 {
		return true, nil
	}
	free, err := m.freeSpace(m.baseDir)
	if err != nil {
		return false, err
	}
	logutils.Log.WithFields(map[string]any{
		"required_space":  m.minFree,
		"available_space": free,
	}).Debug("Checking available disk space")
	return free >= uint64(m.minFree), nil
}

// CheckSpace returns a user-facing error when the disk is nearly full. A failed
// check is logged and treated as enough space.
func (m *Manager) CheckSpace() error {
	ok, err := m.HasEnoughSpace()
	if err != nil {
		logutils.Log.WithError(err).Warn("Failed to check free disk space")
		return nil
	}
	if !ok {
		return domainerrors.WrapDomainError(utils.ErrInsufficientSpace, domainerrors.ErrorTypeStorage,
			"insufficient_space", "not enough free disk space").WithUserMessage(string(lang.ErrNoSpace))
	}
	return nil
}

// SweepStale removes job dirs last modified more than maxAge ago and returns how many it removed.
func (m *Manager) SweepStale(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, utils.WrapError(err, "read temp dir", map[string]any{"path": m.baseDir})
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), jobDirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(m.baseDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logutils.Log.WithError(err).Warnf("Failed to remove stale job dir %s", path)
			continue
		}
		removed++
	}
	if removed > 0 {
		logutils.Log.WithField("count", removed).Info("Removed stale job directories")
	}
	return removed, nil
}

func (m *Manager) contains(dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(m.baseDir), filepath.Clean(dir))
	if err != nil || rel == "." {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}
