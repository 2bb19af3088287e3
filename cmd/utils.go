package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nchapman/kokoro-fetch/internal/config"
	"github.com/nchapman/kokoro-fetch/internal/download"
	"github.com/nchapman/kokoro-fetch/internal/manifest"
	"github.com/nchapman/kokoro-fetch/internal/mirror"
	"github.com/nchapman/kokoro-fetch/internal/ui"
	"github.com/spf13/cobra"
)

// loadConfig resolves the effective configuration: defaults, then the config
// file, then $KOKORO_MODELS_DIR, then any flag the user actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("models-dir") {
		cfg.ModelsDir = modelsDir
	}
	if flags.Changed("manifest") {
		cfg.ManifestPath = manifestPath
	}
	if flags.Lookup("concurrency") != nil && flags.Changed("concurrency") {
		cfg.Concurrency = concurrency
	}
	if flags.Lookup("retries") != nil && flags.Changed("retries") {
		cfg.MaxRetries = retries
	}
	if flags.Lookup("log-file") != nil && flags.Changed("log-file") {
		cfg.LogFile = logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// mustLoadConfig is loadConfig for commands that cannot continue without one.
func mustLoadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := loadConfig(cmd)
	if err != nil {
		ui.Fatal("Failed to load config: %v", err)
	}
	return cfg
}

// mustLoadManifest loads the manifest for a read-only command.
func mustLoadManifest(m *mirror.Mirror, cfg *config.Config) *manifest.Manifest {
	man, err := m.LoadManifest()
	if err != nil {
		ui.PrintError("%v", err)
		fmt.Printf("\nExpected a manifest at %s\n", ui.Bold(cfg.ManifestLocation()))
		fmt.Println("Use --manifest or --models-dir to point at it.")
		exit(1)
	}
	return man
}

// exit is os.Exit, swapped in tests.
var exit = os.Exit

// printFetchError explains a failed run and suggests what to do next.
func printFetchError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", ui.ErrorMsg(ui.IconCross+" Error:"), err)

	var mismatch *download.HashMismatchError
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "\nDownload interrupted. Files already in place are kept;")
		fmt.Fprintln(w, "run the command again to fetch the rest.")
	case errors.As(err, &mismatch):
		fmt.Fprintf(w, "\nExpected: %s\n", ui.Muted(mismatch.Expected))
		fmt.Fprintf(w, "Actual:   %s\n", ui.Muted(mismatch.Actual))
		fmt.Fprintln(w, "\nThe downloaded file was discarded. Check the base_model URL and")
		fmt.Fprintln(w, "model_hash in the manifest, then try again.")
	case errors.Is(err, manifest.ErrRead):
		fmt.Fprintln(w, "\nTips:")
		fmt.Fprintln(w, "  • Check that MODEL_MANIFEST.json exists in the models directory")
		fmt.Fprintln(w, "  • Use --manifest to point at it directly")
	case errors.Is(err, manifest.ErrFormat):
		fmt.Fprintln(w, "\nThe manifest is not valid. Fix the field named above and retry.")
	case errors.Is(err, download.ErrRetriesExhausted):
		fmt.Fprintln(w, "\nTips:")
		fmt.Fprintln(w, "  • Check your network connection")
		fmt.Fprintln(w, "  • Raise the attempt count with --retries")
	case errors.Is(err, download.ErrInvalidURL):
		fmt.Fprintln(w, "\nOnly absolute http:// and https:// URLs are supported.")
	}
}
