// Package workspace hands out private scratch directories for jobs.
//
// All processes share work_dir. Each one holds a shared flock on
// work_dir/.lock while it runs; leftover job directories from crashed runs
// are swept only when the exclusive lock can be taken, meaning no other
// process is using the directory.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"subgen/internal/job"
	"subgen/internal/logging"
)

const (
	lockName  = ".lock"
	jobPrefix = "job-"
)

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("workspace closed")

// Manager owns the work directory for one process.
type Manager struct {
	root   string
	lock   *flock.Flock
	logger *slog.Logger
	swept  int

	mu     sync.Mutex
	closed bool
}

// Open creates root if needed, sweeps stale job directories when no other
// process holds the lock, and takes a shared lock for the lifetime of the
// Manager.
func Open(root string, logger *slog.Logger) (*Manager, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("work directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	m := &Manager{
		root:   root,
		lock:   flock.New(filepath.Join(root, lockName)),
		logger: logging.NewComponentLogger(logger, "workspace"),
	}

	exclusive, err := m.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock work directory: %w", err)
	}
	if exclusive {
		m.swept = m.sweep()
		if err := m.lock.Unlock(); err != nil {
			return nil, fmt.Errorf("release work directory lock: %w", err)
		}
	}
	shared, err := m.lock.TryRLock()
	if err != nil {
		return nil, fmt.Errorf("share work directory lock: %w", err)
	}
	if !shared {
		return nil, fmt.Errorf("work directory %s is locked exclusively by another process", root)
	}
	return m, nil
}

// Root returns the managed directory.
func (m *Manager) Root() string { return m.root }

// Swept returns how many stale job directories Open removed.
func (m *Manager) Swept() int { return m.swept }

// Acquire creates a unique directory for j and returns its path together with
// a release func that removes it.
func (m *Manager) Acquire(j job.Job) (string, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", func() {}, ErrClosed
	}
	dir, err := os.MkdirTemp(m.root, jobPrefix+j.ShortID()+"-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("create job workspace: %w", err)
	}
	release := func() {
		if err := os.RemoveAll(dir); err != nil {
			m.logger.Warn("job workspace cleanup failed",
				logging.String("path", dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the directory manually"),
			)
		}
	}
	return dir, release, nil
}

// Close releases the shared lock.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.lock.Unlock()
}

func (m *Manager) sweep() int {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		m.logger.Warn("workspace sweep failed", logging.Error(err))
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), jobPrefix) {
			continue
		}
		path := filepath.Join(m.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			m.logger.Warn("remove stale job workspace", logging.String("path", path), logging.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("removed stale job workspaces", logging.Int("count", removed))
	}
	return removed
}
