// Package mirror brings a local models directory in line with the manifest:
// it fetches whatever is missing and verifies the base model.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/nchapman/kokoro-fetch/internal/config"
	"github.com/nchapman/kokoro-fetch/internal/download"
	"github.com/nchapman/kokoro-fetch/internal/fileutil"
	"github.com/nchapman/kokoro-fetch/internal/logs"
	"github.com/nchapman/kokoro-fetch/internal/manifest"
	"golang.org/x/sync/errgroup"
)

// ErrBaseModelMissing is returned by VerifyBase when the base model has not
// been downloaded.
var ErrBaseModelMissing = errors.New("base model not downloaded")

// Fetcher is the part of download.Fetcher the mirror uses.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest, label string) (int64, error)
	FetchStaged(ctx context.Context, url, dest, label string) (string, int64, error)
}

// Options configures a Mirror.
type Options struct {
	Root          string
	ManifestPath  string
	Concurrency   int
	HashChunkSize int
	Fetcher       Fetcher

	// Out receives the human-readable step headers. Nil discards them.
	Out io.Writer
}

// Mirror runs fetches against one models root.
type Mirror struct {
	opts Options
}

func New(opts Options) *Mirror {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.HashChunkSize <= 0 {
		opts.HashChunkSize = download.DefaultHashChunkSize
	}
	if opts.ManifestPath == "" {
		opts.ManifestPath = (&config.Config{ModelsDir: opts.Root}).ManifestLocation()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Mirror{opts: opts}
}

// FromConfig builds a Mirror for cfg using fetcher for the network.
func FromConfig(cfg *config.Config, fetcher Fetcher, out io.Writer) *Mirror {
	return New(Options{
		Root:          cfg.ModelsDir,
		ManifestPath:  cfg.ManifestLocation(),
		Concurrency:   cfg.Concurrency,
		HashChunkSize: cfg.HashChunkSize,
		Fetcher:       fetcher,
		Out:           out,
	})
}

// Summary describes what a run did.
type Summary struct {
	mu      sync.Mutex
	Fetched []manifest.Asset
	Skipped []manifest.Asset
	Bytes   int64
}

func (s *Summary) fetched(a manifest.Asset, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fetched = append(s.Fetched, a)
	s.Bytes += n
}

func (s *Summary) skipped(a manifest.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped = append(s.Skipped, a)
}

// LoadManifest reads the configured manifest.
func (m *Mirror) LoadManifest() (*manifest.Manifest, error) {
	return manifest.Load(m.opts.ManifestPath)
}

// Run loads the manifest and syncs every asset it lists.
func (m *Mirror) Run(ctx context.Context) (*Summary, error) {
	m.printf("Starting Kokoro model download...\n")

	man, err := m.LoadManifest()
	if err != nil {
		return &Summary{}, err
	}
	return m.Sync(ctx, man)
}

// Sync fetches the base model, then the voices, then the ONNX files, skipping
// anything already on disk. The base model is verified before it is moved
// into place; a mismatch stops the run before any voice or ONNX work.
func (m *Mirror) Sync(ctx context.Context, man *manifest.Manifest) (*Summary, error) {
	summary := &Summary{}

	if err := config.EnsureDirectories(m.opts.Root); err != nil {
		return summary, err
	}

	if err := m.syncBase(ctx, man, summary); err != nil {
		return summary, err
	}

	var err error
	if m.opts.Concurrency == 1 {
		err = m.syncSequential(ctx, man, summary)
	} else {
		err = m.syncParallel(ctx, man, summary)
	}
	if err != nil {
		return summary, err
	}

	m.printf("\nAll models downloaded successfully!\n")
	return summary, nil
}

func (m *Mirror) syncBase(ctx context.Context, man *manifest.Manifest, summary *Summary) error {
	a := man.BaseAsset(m.opts.Root)

	present, err := fileutil.Exists(a.Path)
	if err != nil {
		return err
	}
	if present {
		logs.Debug("base model already present", "path", a.Path)
		summary.skipped(a)
		return nil
	}

	m.printf("\nDownloading base model: %s\n", a.Name)
	partial, n, err := m.opts.Fetcher.FetchStaged(ctx, a.URL, a.Path, a.Label)
	if err != nil {
		return fmt.Errorf("failed to download base model: %w", err)
	}

	if err := download.Verify(partial, man.ModelHash, m.opts.HashChunkSize); err != nil {
		os.Remove(partial)
		return err
	}
	logs.Info("base model verified", "name", a.Name)

	if err := fileutil.Promote(partial, a.Path); err != nil {
		return fmt.Errorf("failed to move base model into place: %w", err)
	}
	summary.fetched(a, n)
	return nil
}

func (m *Mirror) syncSequential(ctx context.Context, man *manifest.Manifest, summary *Summary) error {
	// VoiceAssets is grouped in the same order as Voices.
	voices := man.VoiceAssets(m.opts.Root)
	for group := range man.Voices.All() {
		m.printf("\nDownloading %s voices...\n", group)
		for len(voices) > 0 && voices[0].Group == group {
			if err := m.syncAsset(ctx, voices[0], summary); err != nil {
				return err
			}
			voices = voices[1:]
		}
	}

	m.printf("\nDownloading ONNX models...\n")
	for _, a := range man.OnnxAssets(m.opts.Root) {
		if err := m.syncAsset(ctx, a, summary); err != nil {
			return err
		}
	}
	return nil
}

// syncParallel fetches voices and ONNX files with at most Concurrency
// downloads in flight. The first failure cancels the rest.
func (m *Mirror) syncParallel(ctx context.Context, man *manifest.Manifest, summary *Summary) error {
	assets := append(man.VoiceAssets(m.opts.Root), man.OnnxAssets(m.opts.Root)...)
	m.printf("\nDownloading %d voices and %d ONNX models (%d at a time)...\n",
		man.VoiceCount(), man.Onnx.Len(), m.opts.Concurrency)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Concurrency)

	// Voices share one directory, so two groups can name the same file.
	// The first entry wins.
	scheduled := make(map[string]bool, len(assets))
	for _, a := range assets {
		if scheduled[a.Path] {
			logs.Debug("duplicate destination", "asset", a.DisplayName(), "path", a.Path)
			summary.skipped(a)
			continue
		}
		scheduled[a.Path] = true

		g.Go(func() error {
			return m.syncAsset(ctx, a, summary)
		})
	}
	return g.Wait()
}

func (m *Mirror) syncAsset(ctx context.Context, a manifest.Asset, summary *Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	present, err := fileutil.Exists(a.Path)
	if err != nil {
		return err
	}
	if present {
		logs.Debug("already present", "asset", a.DisplayName(), "path", a.Path)
		summary.skipped(a)
		return nil
	}

	n, err := m.opts.Fetcher.Fetch(ctx, a.URL, a.Path, a.Label)
	if err != nil {
		return fmt.Errorf("failed to download %s %s: %w", a.Kind, a.DisplayName(), err)
	}
	summary.fetched(a, n)
	return nil
}

func (m *Mirror) printf(format string, args ...any) {
	fmt.Fprintf(m.opts.Out, format, args...)
}

// AssetStatus is the on-disk state of one manifest asset.
type AssetStatus struct {
	manifest.Asset
	Present bool
	Size    int64
	Partial bool // an interrupted download was left behind
}

// Status reports which assets of man are present under the models root.
func (m *Mirror) Status(man *manifest.Manifest) ([]AssetStatus, error) {
	assets := man.Assets(m.opts.Root)
	statuses := make([]AssetStatus, 0, len(assets))

	for _, a := range assets {
		st := AssetStatus{Asset: a}

		info, err := os.Stat(a.Path)
		switch {
		case err == nil:
			st.Present = true
			st.Size = info.Size()
		case !os.IsNotExist(err):
			return nil, err
		}

		if !st.Present {
			if partial, err := fileutil.Exists(fileutil.PartialPath(a.Path)); err == nil {
				st.Partial = partial
			}
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// VerifyBase hashes the base model on disk and compares it with the manifest.
// progress, if set, receives hashing progress.
func (m *Mirror) VerifyBase(man *manifest.Manifest, progress func(processed, total int64)) error {
	a := man.BaseAsset(m.opts.Root)

	present, err := fileutil.Exists(a.Path)
	if err != nil {
		return err
	}
	if !present {
		return fmt.Errorf("%w: %s", ErrBaseModelMissing, a.Path)
	}
	return download.VerifyWithProgress(a.Path, man.ModelHash, m.opts.HashChunkSize, progress)
}
