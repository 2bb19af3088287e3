package download

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
)

// DefaultHashChunkSize is the read size used when hashing files.
const DefaultHashChunkSize = 4096

// HashFile returns the lowercase hex SHA-256 of the file at path, reading it
// chunkSize bytes at a time.
func HashFile(path string, chunkSize int) (string, error) {
	return HashFileWithProgress(path, chunkSize, nil)
}

// HashFileWithProgress is HashFile with a callback receiving bytes processed
// and the file size.
func HashFileWithProgress(path string, chunkSize int, progress func(processed, total int64)) (string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultHashChunkSize
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", err
	}
	totalSize := info.Size()

	hash := sha256.New()
	buf := make([]byte, chunkSize)
	processed := int64(0)

	for {
		n, err := file.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
			processed += int64(n)
			if progress != nil {
				progress(processed, totalSize)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Verify hashes path and compares it with expected, ignoring hex case.
// A mismatch is returned as *HashMismatchError.
func Verify(path, expected string, chunkSize int) error {
	return VerifyWithProgress(path, expected, chunkSize, nil)
}

// VerifyWithProgress is Verify with a hashing progress callback.
func VerifyWithProgress(path, expected string, chunkSize int, progress func(processed, total int64)) error {
	actual, err := HashFileWithProgress(path, chunkSize, progress)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, expected) {
		return &HashMismatchError{Path: path, Expected: expected, Actual: actual}
	}
	return nil
}
