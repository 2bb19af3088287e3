package cmd

import (
	"os"

	"github.com/nchapman/kokoro-fetch/internal/logs"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	configPath   string
	modelsDir    string
	manifestPath string
)

var rootCmd = &cobra.Command{
	Use:   "kokoro-fetch",
	Short: "Download the Kokoro TTS model assets",
	Long: `kokoro-fetch reads MODEL_MANIFEST.json and downloads whatever is missing
from the models directory: the base model, the voice packs and the ONNX
exports. The base model is checked against its SHA-256 before it is kept.

Running kokoro-fetch without a subcommand is the same as 'kokoro-fetch fetch'.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logs.InitLogger(os.Stderr, verbose)
	},
	Run: runFetch,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "assets", Title: "Asset Commands:"},
		&cobra.Group{ID: "maintenance", Title: "Maintenance Commands:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	flags.StringVar(&configPath, "config", "", "Config file (default $KOKORO_FETCH_CONFIG)")
	flags.StringVar(&modelsDir, "models-dir", "", "Models directory (default ./models or $KOKORO_MODELS_DIR)")
	flags.StringVar(&manifestPath, "manifest", "", "Manifest path (default <models-dir>/MODEL_MANIFEST.json)")

	addFetchFlags(rootCmd)
}
