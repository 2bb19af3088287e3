package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/nchapman/kokoro-fetch/internal/mirror"
	"github.com/nchapman/kokoro-fetch/internal/ui"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show which manifest assets are downloaded",
	GroupID: "assets",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd)
		m := mirror.FromConfig(cfg, nil, nil)
		man := mustLoadManifest(m, cfg)

		statuses, err := m.Status(man)
		if err != nil {
			ui.Fatal("Failed to read models directory: %v", err)
		}

		fmt.Println(ui.Header("Model Assets"), ui.Muted(cfg.ModelsDir))
		fmt.Println()
		fmt.Print(statusTable(cfg.ModelsDir, statuses).Render())

		present, total := 0, int64(0)
		for _, st := range statuses {
			if st.Present {
				present++
				total += st.Size
			}
		}

		fmt.Println()
		fmt.Printf("%s %d of %d present, %s\n", ui.Bold("Total:"), present, len(statuses), ui.Value(ui.FormatBytes(total)))
		if present < len(statuses) {
			fmt.Printf("Run %s to download the rest\n", ui.Keyword("kokoro-fetch fetch"))
		}
	},
}

func statusTable(root string, statuses []mirror.AssetStatus) *ui.Table {
	tbl := ui.NewTable().
		AddColumn("KIND", 6, ui.AlignLeft).
		AddColumn("ASSET", 28, ui.AlignLeft).
		AddColumn("FILE", 36, ui.AlignLeft).
		AddColumn("STATUS", 9, ui.AlignLeft).
		AddColumn("SIZE", 10, ui.AlignRight)

	for _, st := range statuses {
		status, size := "missing", "-"
		switch {
		case st.Present:
			status, size = "present", ui.FormatBytes(st.Size)
		case st.Partial:
			status = ui.Warning("partial")
		}
		file := st.Path
		if rel, err := filepath.Rel(root, st.Path); err == nil {
			file = filepath.ToSlash(rel)
		}
		tbl.AddRow(string(st.Kind), st.DisplayName(), file, status, size)
	}
	return tbl
}

func init() {
	rootCmd.AddCommand(listCmd)
}
