// Package download streams remote files to disk and checks their SHA-256.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/nchapman/kokoro-fetch/internal/fileutil"
	"github.com/nchapman/kokoro-fetch/internal/logs"
	"github.com/nchapman/kokoro-fetch/internal/version"
)

const (
	DefaultChunkSize     = 8192
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = 1 * time.Second
	DefaultMaxRetryDelay = 30 * time.Second
)

// ProgressDisplay renders the progress of a single file.
type ProgressDisplay interface {
	Start(label string, total int64)
	Update(current int64)
	Finish(label string)
	Stop()
}

// ProgressFactory creates a display per fetch attempt.
type ProgressFactory func() ProgressDisplay

// Options configures a Fetcher. Zero fields fall back to the defaults above.
type Options struct {
	// Client performs the requests. If nil, a client without an overall
	// timeout is built so that large files are not cut off.
	Client *http.Client

	ChunkSize     int
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers when Client
	// is nil. Zero means no limit.
	ResponseHeaderTimeout time.Duration

	UserAgent string
	Progress  ProgressFactory
}

// Fetcher downloads files over HTTP(S).
type Fetcher struct {
	client *http.Client
	opts   Options
}

func New(opts Options) *Fetcher {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.MaxRetryDelay <= 0 {
		opts.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if opts.UserAgent == "" {
		opts.UserAgent = version.UserAgent()
	}

	client := opts.Client
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = opts.ResponseHeaderTimeout
		client = &http.Client{Transport: transport}
	}

	return &Fetcher{client: client, opts: opts}
}

// Fetch downloads rawURL to dest, creating parent directories as needed. The
// body is written to dest's partial path and renamed into place once the
// stream completes, so dest never holds a truncated file. It returns the
// number of bytes written.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest, label string) (int64, error) {
	partial := fileutil.PartialPath(dest)

	n, err := f.fetchWithRetry(ctx, rawURL, partial, label)
	if err != nil {
		os.Remove(partial)
		return 0, err
	}

	if err := fileutil.Promote(partial, dest); err != nil {
		return 0, fmt.Errorf("failed to move %s into place: %w", filepath.Base(dest), err)
	}
	return n, nil
}

// FetchStaged downloads rawURL to dest's partial path and leaves it there.
// The caller verifies the staged file and promotes or removes it.
func (f *Fetcher) FetchStaged(ctx context.Context, rawURL, dest, label string) (string, int64, error) {
	partial := fileutil.PartialPath(dest)

	n, err := f.fetchWithRetry(ctx, rawURL, partial, label)
	if err != nil {
		os.Remove(partial)
		return "", 0, err
	}
	return partial, n, nil
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, rawURL, path, label string) (int64, error) {
	if err := validateURL(rawURL); err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= f.opts.MaxRetries; attempt++ {
		logs.Debug("fetching", "url", rawURL, "dest", path, "attempt", attempt)

		n, err := f.fetchOnce(ctx, rawURL, path, label)
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if !errors.Is(err, ErrNetwork) {
			return 0, err
		}
		lastErr = err

		if attempt == f.opts.MaxRetries {
			break
		}

		delay := f.backoff(attempt)
		logs.Warn("download failed, retrying", "label", label, "attempt", attempt, "delay", delay, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}

	return 0, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, f.opts.MaxRetries, lastErr)
}

// backoff returns the delay after the given failed attempt: RetryDelay
// doubled per attempt, capped at MaxRetryDelay.
func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := f.opts.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= f.opts.MaxRetryDelay {
			return f.opts.MaxRetryDelay
		}
	}
	if delay > f.opts.MaxRetryDelay {
		return f.opts.MaxRetryDelay
	}
	return delay
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL, path, label string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, networkError("GET %s: %v", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, networkError("GET %s: HTTP %d", rawURL, resp.StatusCode)
	}

	// Unknown length is reported as 0.
	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var progress ProgressDisplay
	if f.opts.Progress != nil {
		progress = f.opts.Progress()
		progress.Start(label, total)
	}

	written, err := copyChunks(file, resp.Body, f.opts.ChunkSize, func(n int64) {
		if progress != nil {
			progress.Update(n)
		}
	})
	if err == nil {
		err = file.Close()
	}
	if err != nil {
		if progress != nil {
			progress.Stop()
		}
		return 0, err
	}

	if progress != nil {
		progress.Finish(label)
	}
	return written, nil
}

// copyChunks copies src to dst chunkSize bytes at a time, reporting the
// running total after every write. Read failures are network errors; write
// failures are returned as-is.
func copyChunks(dst io.Writer, src io.Reader, chunkSize int, report func(int64)) (int64, error) {
	buf := make([]byte, chunkSize)
	written := int64(0)

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			report(written)
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, networkError("stream interrupted after %d bytes: %v", written, err)
		}
	}
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q: want an absolute http or https url", ErrInvalidURL, rawURL)
	}
	return nil
}
