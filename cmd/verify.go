package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/nchapman/kokoro-fetch/internal/download"
	"github.com/nchapman/kokoro-fetch/internal/mirror"
	"github.com/nchapman/kokoro-fetch/internal/ui"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:     "verify",
	Short:   "Check the base model against the manifest hash",
	GroupID: "assets",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd)
		m := mirror.FromConfig(cfg, nil, nil)
		man := mustLoadManifest(m, cfg)

		msg := fmt.Sprintf("Verifying %s", man.BaseModel.Name)
		err := ui.WithSpinner(os.Stdout, msg, func(progress func(processed, total int64)) error {
			return m.VerifyBase(man, progress)
		})
		var mismatch *download.HashMismatchError
		switch {
		case errors.As(err, &mismatch):
			fmt.Printf("\nExpected: %s\n", ui.Muted(mismatch.Expected))
			fmt.Printf("Actual:   %s\n", ui.Muted(mismatch.Actual))
			fmt.Printf("\nDelete %s and run %s to download it again.\n", mismatch.Path, ui.Keyword("kokoro-fetch fetch"))
			exit(1)
		case errors.Is(err, mirror.ErrBaseModelMissing):
			fmt.Printf("\nRun %s to download it.\n", ui.Keyword("kokoro-fetch fetch"))
			exit(1)
		case err != nil:
			exit(1)
		}

		fmt.Printf("SHA-256 %s\n", ui.Muted(man.ModelHash))
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
