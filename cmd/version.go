package cmd

import (
	"fmt"
	"runtime"

	"github.com/nchapman/kokoro-fetch/internal/ui"
	"github.com/nchapman/kokoro-fetch/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Show kokoro-fetch version information",
	GroupID: "maintenance",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(ui.Bold(fmt.Sprintf("kokoro-fetch %s (%s/%s)", version.Version, runtime.GOOS, runtime.GOARCH)))

		cfg, err := loadConfig(cmd)
		if err != nil {
			return
		}

		fmt.Println()
		fmt.Println(ui.Bold("Paths:"))
		fmt.Printf("  Models:   %s\n", ui.Muted(cfg.ModelsDir))
		fmt.Printf("  Manifest: %s\n", ui.Muted(cfg.ManifestLocation()))
		fmt.Printf("  Voices:   %s\n", ui.Muted(cfg.VoicesPath()))
		fmt.Printf("  ONNX:     %s\n", ui.Muted(cfg.OnnxPath()))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
