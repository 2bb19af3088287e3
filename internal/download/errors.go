package download

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork covers any failure while requesting or streaming a file:
	// refused connections, non-2xx responses, interrupted bodies.
	ErrNetwork = errors.New("download: network error")

	// ErrInvalidURL indicates a URL that is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("download: invalid url")

	// ErrRetriesExhausted is returned when every attempt of a fetch failed.
	// The last attempt's error is wrapped alongside it.
	ErrRetriesExhausted = errors.New("download: retries exhausted")

	// ErrHashMismatch indicates a file failed hash verification.
	ErrHashMismatch = errors.New("download: hash verification failed")
)

// HashMismatchError reports a file whose SHA-256 differs from the expected
// digest.
type HashMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("%s: %s: expected %s, got %s", ErrHashMismatch, e.Path, e.Expected, e.Actual)
}

func (e *HashMismatchError) Is(target error) bool {
	return target == ErrHashMismatch
}

// networkError builds an ErrNetwork error; those are retried.
func networkError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNetwork, fmt.Sprintf(format, args...))
}
