package cmd

import (
	"fmt"

	"github.com/nchapman/kokoro-fetch/internal/fileutil"
	"github.com/nchapman/kokoro-fetch/internal/ui"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:     "clean",
	Short:   "Remove leftovers of interrupted downloads",
	GroupID: "maintenance",
	Long: `Remove *.partial files left under the models directory by interrupted
downloads. Completed assets are never touched.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd)

		n, err := fileutil.CleanupPartials(cfg.ModelsDir)
		if err != nil {
			ui.Fatal("Failed to clean %s: %v", cfg.ModelsDir, err)
		}

		if n == 0 {
			fmt.Println(ui.Muted("Nothing to clean"))
			return
		}
		fmt.Printf("%s Removed %d partial %s\n", ui.Success(ui.IconCheck), n, plural(n, "download", "downloads"))
	},
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
