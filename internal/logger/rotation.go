package logger

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// archiveTimeFormat names rotated files, e.g. codexomics.log.2026-08-30T101502.
const archiveTimeFormat = "2006-01-02T150405"

// RotationPolicy bounds the size and age of the dispatcher's log files.
// Archives older than MaxAgeDays are swept on open and on every rotation.
type RotationPolicy struct {
	MaxSizeMB  int
	MaxAgeDays int
	Compress   bool
}

// RotatingWriter appends to a log file and rotates it to a timestamped
// archive once the size limit is reached. Safe for concurrent writers.
type RotatingWriter struct {
	mu       sync.Mutex
	path     string
	policy   RotationPolicy
	maxBytes int64
	file     *os.File
	written  int64
}

// NewRotatingWriter opens path for appending under the given policy,
// creating the directory when needed.
func NewRotatingWriter(path string, policy RotationPolicy) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w := &RotatingWriter{
		path:     path,
		policy:   policy,
		maxBytes: int64(policy.MaxSizeMB) * 1024 * 1024,
	}
	if err := w.open(); err != nil {
		return nil, err
	}

	w.sweep()
	return w, nil
}

func (w *RotatingWriter) open() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	w.file = file
	w.written = info.Size()
	return nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.maxBytes > 0 && w.written+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

// Close closes the current log file
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// rotate archives the current file and reopens a fresh one. Callers hold
// the mutex.
func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}

	archive := fmt.Sprintf("%s.%s", w.path, time.Now().Format(archiveTimeFormat))
	if err := os.Rename(w.path, archive); err != nil {
		return err
	}

	if w.policy.Compress {
		if err := gzipArchive(archive); err != nil {
			// Keep the uncompressed archive rather than losing it
			fmt.Fprintf(os.Stderr, "log archive compression failed: %v\n", err)
		}
	}

	w.sweep()
	return w.open()
}

// sweep removes archives older than the retention window
func (w *RotatingWriter) sweep() {
	if w.policy.MaxAgeDays <= 0 {
		return
	}

	archives, err := filepath.Glob(w.path + ".*")
	if err != nil {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -w.policy.MaxAgeDays)
	for _, archive := range archives {
		info, err := os.Stat(archive)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(archive)
		}
	}
}

// gzipArchive replaces path with path.gz
func gzipArchive(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}

	gzw := gzip.NewWriter(dst)
	if _, err := io.Copy(gzw, src); err != nil {
		gzw.Close()
		dst.Close()
		return err
	}
	if err := gzw.Close(); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}
