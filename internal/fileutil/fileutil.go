// Package fileutil holds the filesystem helpers shared by the fetcher and the
// orchestrator: presence checks, staging paths and promotion into place.
package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PartialSuffix marks a file that is still being downloaded or verified.
const PartialSuffix = ".partial"

// PartialPath returns the staging path used while dest is being written.
func PartialPath(dest string) string {
	return dest + PartialSuffix
}

// Exists reports whether path exists. Errors other than "not exist" are
// returned so callers don't mistake a permission problem for a missing file.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Promote renames a staged file to its final path. The staged file is removed
// if the rename fails.
func Promote(staged, final string) error {
	if err := os.MkdirAll(filepath.Dir(final), 0755); err != nil {
		os.Remove(staged)
		return err
	}
	if err := os.Rename(staged, final); err != nil {
		os.Remove(staged) // Best-effort cleanup
		return err
	}
	return nil
}

// AtomicWriteFile writes data to a temp file then renames it to path, so
// readers never see a half-written file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // Best-effort cleanup
		return err
	}
	return nil
}

// CleanupPartials removes every *.partial file below root and returns how many
// were deleted. A missing root is not an error.
func CleanupPartials(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, PartialSuffix) {
			if os.Remove(path) == nil {
				count++
			}
		}
		return nil
	})
	return count, err
}
