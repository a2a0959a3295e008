package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultMaxSizeMB = 100
	backupTimeLayout = "20060102T150405.000000000"
)

// Rotation bounds the log file. A segment rolls over when a write would take
// it past MaxSizeMB or once it is older than MaxAge (zero disables the age
// check). The newest MaxBackups rolled segments are kept; zero keeps none.
type Rotation struct {
	MaxSizeMB  int
	MaxAge     time.Duration
	MaxBackups int
}

// RotatingWriter appends to a log file. Rolled segments are renamed to
// <name>-<utc timestamp><ext> in the same directory.
type RotatingWriter struct {
	mu       sync.Mutex
	path     string
	policy   Rotation
	limit    int64
	now      func() time.Time
	file     *os.File
	size     int64
	openedAt time.Time
}

func NewRotatingWriter(path string, policy Rotation) (*RotatingWriter, error) {
	return newRotatingWriter(path, policy, time.Now)
}

func newRotatingWriter(path string, policy Rotation, now func() time.Time) (*RotatingWriter, error) {
	if path == "" {
		return nil, errors.New("log file path is required")
	}
	if policy.MaxSizeMB <= 0 {
		policy.MaxSizeMB = defaultMaxSizeMB
	}
	policy.MaxBackups = max(policy.MaxBackups, 0)
	w := &RotatingWriter{
		path:   path,
		policy: policy,
		limit:  int64(policy.MaxSizeMB) << 20,
		now:    now,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if w.due(int64(len(p))) {
		if err := w.roll(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.size = 0
	return err
}

func (w *RotatingWriter) due(incoming int64) bool {
	if w.size == 0 {
		return false
	}
	if w.size+incoming > w.limit {
		return true
	}
	return w.policy.MaxAge > 0 && w.now().Sub(w.openedAt) >= w.policy.MaxAge
}

// open continues an existing file; its age counts from the last write.
func (w *RotatingWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = file
	w.size = info.Size()
	w.openedAt = w.now()
	if w.size > 0 && info.ModTime().Before(w.openedAt) {
		w.openedAt = info.ModTime()
	}
	return nil
}

func (w *RotatingWriter) roll() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	w.file = nil

	if w.policy.MaxBackups == 0 {
		if err := os.Remove(w.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove log file: %w", err)
		}
		return w.open()
	}
	if err := os.Rename(w.path, w.nextBackupName()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("rotate log file: %w", err)
	}
	if err := w.prune(); err != nil {
		return err
	}
	return w.open()
}

func (w *RotatingWriter) nextBackupName() string {
	stamp := w.now().UTC()
	for {
		name := w.backupName(stamp)
		if _, err := os.Stat(name); errors.Is(err, os.ErrNotExist) {
			return name
		}
		stamp = stamp.Add(time.Nanosecond)
	}
}

func (w *RotatingWriter) backupName(stamp time.Time) string {
	ext := filepath.Ext(w.path)
	return strings.TrimSuffix(w.path, ext) + "-" + stamp.Format(backupTimeLayout) + ext
}

// backups lists rolled segments, oldest first.
func (w *RotatingWriter) backups() ([]string, error) {
	dir := filepath.Dir(w.path)
	ext := filepath.Ext(w.path)
	prefix := strings.TrimSuffix(filepath.Base(w.path), ext) + "-"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list log directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext)
		if _, err := time.Parse(backupTimeLayout, stamp); err != nil {
			continue
		}
		names = append(names, filepath.Join(dir, name))
	}
	return names, nil
}

func (w *RotatingWriter) prune() error {
	backups, err := w.backups()
	if err != nil {
		return err
	}
	for len(backups) > w.policy.MaxBackups {
		if err := os.Remove(backups[0]); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove old log: %w", err)
		}
		backups = backups[1:]
	}
	return nil
}
