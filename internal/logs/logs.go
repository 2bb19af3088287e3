// Package logs provides the shared logger and the optional run log file.
package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// MaxRotations is the number of rotated files to keep (.log.1, .log.2)
	MaxRotations = 2
	// MaxFileSize is the maximum size of a log file before rotation (10MB)
	MaxFileSize = 10 * 1024 * 1024
)

// rotateLogs shifts path -> path.1 -> path.2, dropping the oldest.
func rotateLogs(basePath string) error {
	os.Remove(fmt.Sprintf("%s.%d", basePath, MaxRotations))

	for i := MaxRotations; i >= 1; i-- {
		oldPath := basePath
		if i > 1 {
			oldPath = fmt.Sprintf("%s.%d", basePath, i-1)
		}
		newPath := fmt.Sprintf("%s.%d", basePath, i)

		if _, err := os.Stat(oldPath); err == nil {
			if err := os.Rename(oldPath, newPath); err != nil {
				return err
			}
		}
	}

	return nil
}

// RunLog is the file a fetch run appends its log lines to. Each run starts a
// fresh file; earlier runs are kept as .1 and .2 and the file rotates again
// if it grows past MaxFileSize.
type RunLog struct {
	mu           sync.Mutex
	path         string
	file         *os.File
	bytesWritten int64
}

// OpenRunLog rotates any previous run log at path and opens a new one.
func OpenRunLog(path string) (*RunLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	if err := rotateLogs(path); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}

	return &RunLog{path: path, file: file}, nil
}

func (w *RunLog) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.bytesWritten+int64(len(p)) > MaxFileSize {
		if err := w.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.bytesWritten += int64(n)
	return n, err
}

func (w *RunLog) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}

// Caller must hold w.mu.
func (w *RunLog) rotateLocked() error {
	if w.file != nil {
		w.file.Close()
	}

	if err := rotateLogs(w.path); err != nil {
		return err
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	w.file = file
	w.bytesWritten = 0
	return nil
}

// Path returns the path of the active log file.
func (w *RunLog) Path() string {
	return w.path
}
