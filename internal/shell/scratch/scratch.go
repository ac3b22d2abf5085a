// Package scratch stores uploaded chart archives on disk for the duration
// of one validation call.
package scratch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/artpar/helmvalidator/internal/core/validation"
)

// DefaultBasePath is used when no base directory is configured.
const DefaultBasePath = "/tmp/charts"

// fallbackName replaces a declared name with no usable characters.
const fallbackName = "chart.tgz"

// scratchName matches the names Save creates.
var scratchName = regexp.MustCompile(`^\d+_`)

// Manager owns the scratch directory.
type Manager struct {
	basePath string
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	active map[string]struct{} // saved and not yet removed
}

// New creates a Manager rooted at basePath.
func New(basePath string, logger *slog.Logger) *Manager {
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		basePath: basePath,
		logger:   logger.With("component", "scratch"),
		now:      time.Now,
		active:   make(map[string]struct{}),
	}
}

// BasePath returns the scratch directory.
func (m *Manager) BasePath() string {
	return m.basePath
}

// Save copies r to a new file named "<unixnano>_<name>" and returns its path.
// On failure nothing is left behind and the error is a ScratchWrite failure
// carrying name.
func (m *Manager) Save(name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(m.basePath, 0o755); err != nil {
		return "", validation.ScratchWriteFailure(name, err)
	}

	path := filepath.Join(m.basePath, fmt.Sprintf("%d_%s", m.now().UnixNano(), sanitize(name)))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", validation.ScratchWriteFailure(name, err)
	}
	m.track(path)

	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(path)
		m.untrack(path)
		return "", validation.ScratchWriteFailure(name, copyErr)
	}

	m.logger.Debug("saved scratch file", "name", name, "path", path)
	return path, nil
}

// Remove deletes path if it exists. Failures are logged and never returned.
func (m *Manager) Remove(path string) {
	if path == "" {
		return
	}
	defer m.untrack(path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		cleanupFailures.Inc()
		m.logger.Warn("cannot delete scratch file", "path", path, "error", err)
		return
	}
	m.logger.Debug("removed scratch file", "path", path)
}

// Sweep removes scratch files older than maxAge and returns how many it
// removed. Files of calls still in flight and files Save did not name are
// left alone.
func (m *Manager) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read scratch dir: %w", err)
	}

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !scratchName.MatchString(entry.Name()) {
			continue
		}
		path := filepath.Join(m.basePath, entry.Name())
		if m.inFlight(path) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("cannot sweep scratch file", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (m *Manager) track(path string) {
	m.mu.Lock()
	m.active[path] = struct{}{}
	m.mu.Unlock()
}

func (m *Manager) untrack(path string) {
	m.mu.Lock()
	delete(m.active, path)
	m.mu.Unlock()
}

func (m *Manager) inFlight(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[path]
	return ok
}

// Writable reports whether a file can be created in the scratch directory.
func (m *Manager) Writable() error {
	if err := os.MkdirAll(m.basePath, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(m.basePath, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// sanitize keeps the base name of a declared file name and replaces every
// character outside [A-Za-z0-9._-]. The result is embedded in a shell
// command line, so it must never contain shell metacharacters.
func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '.', c == '_', c == '-':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return fallbackName
	}
	return out
}
