package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nchapman/kokoro-fetch/internal/config"
	"github.com/nchapman/kokoro-fetch/internal/download"
	"github.com/nchapman/kokoro-fetch/internal/logs"
	"github.com/nchapman/kokoro-fetch/internal/mirror"
	"github.com/nchapman/kokoro-fetch/internal/ui"
	"github.com/spf13/cobra"
)

var (
	concurrency int
	retries     int
	logFile     string
)

var fetchCmd = &cobra.Command{
	Use:     "fetch",
	Short:   "Download missing model assets",
	GroupID: "assets",
	Long: `Download every asset listed in the manifest that is not already present.

The base model is fetched first and its SHA-256 is checked before it is moved
into place. Voices and ONNX files follow in manifest order.

Examples:
  kokoro-fetch fetch                          # Fetch into ./models
  kokoro-fetch fetch --models-dir /srv/kokoro # Fetch into another directory
  kokoro-fetch fetch --concurrency 4          # Fetch voices four at a time`,
	Args: cobra.NoArgs,
	Run:  runFetch,
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Voice and ONNX files to download at once")
	cmd.Flags().IntVar(&retries, "retries", 3, "Attempts per file before giving up")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Also write run output to this file (previous runs rotate to .1, .2)")
}

func runFetch(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := fetch(ctx, cfg, os.Stdout)
	if err != nil {
		stop()
		printFetchError(os.Stderr, err)
		exit(1)
	}

	printSummary(os.Stdout, summary)
}

// fetch runs one sync of cfg's models directory, writing step output to out
// and, when configured, to the run log.
func fetch(ctx context.Context, cfg *config.Config, out io.Writer) (*mirror.Summary, error) {
	if cfg.LogFile != "" {
		runLog, err := logs.OpenRunLog(cfg.LogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		defer runLog.Close()
		out = io.MultiWriter(out, runLog)

		defer logs.Tee(runLog)()
	}

	fetcher := download.New(download.Options{
		ChunkSize:             cfg.ChunkSize,
		MaxRetries:            cfg.MaxRetries,
		RetryDelay:            cfg.RetryDelay,
		MaxRetryDelay:         cfg.MaxRetryDelay,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		UserAgent:             cfg.UserAgent,
		Progress:              ui.NewProgressFactory(os.Stderr, cfg.Concurrency),
	})

	logs.Debug("starting fetch", "models_dir", cfg.ModelsDir, "manifest", cfg.ManifestLocation(),
		"concurrency", cfg.Concurrency, "retries", cfg.MaxRetries)

	return mirror.FromConfig(cfg, fetcher, out).Run(ctx)
}

func printSummary(w io.Writer, s *mirror.Summary) {
	if len(s.Fetched) == 0 {
		fmt.Fprintln(w, ui.Muted(fmt.Sprintf("Everything up to date (%d files present)", len(s.Skipped))))
		return
	}
	fmt.Fprintf(w, "%s Fetched %d files (%s), %d already present\n",
		ui.Success(ui.IconCheck),
		len(s.Fetched),
		ui.FormatBytes(s.Bytes),
		len(s.Skipped))
}

func init() {
	addFetchFlags(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}
