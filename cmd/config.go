package cmd

import (
	"fmt"
	"os"

	"github.com/nchapman/kokoro-fetch/internal/config"
	"github.com/nchapman/kokoro-fetch/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// defaultConfigFile is where 'config --init' writes when no path is given.
const defaultConfigFile = "kokoro-fetch.yaml"

var (
	showPath   bool
	initConfig bool
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Display or create the configuration file",
	GroupID: "maintenance",
	Long: `Display the effective configuration, or write it to a file.

Examples:
  kokoro-fetch config                        # Print the effective configuration
  kokoro-fetch config --path                 # Print the config file path
  kokoro-fetch config --init                 # Write kokoro-fetch.yaml with current settings
  kokoro-fetch --config ~/kf.yaml config --init`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := resolveConfigPath()

		if showPath {
			fmt.Println(path)
			return
		}

		cfg := mustLoadConfig(cmd)

		if initConfig {
			if _, err := os.Stat(path); err == nil {
				ui.Fatal("%s already exists", path)
			}
			if err := config.Save(path, cfg); err != nil {
				ui.Fatal("%v", err)
			}
			fmt.Printf("%s Wrote config to %s\n", ui.Success(ui.IconCheck), ui.Muted(path))
			return
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			ui.Fatal("Failed to format config: %v", err)
		}
		fmt.Print(string(data))
	},
}

// resolveConfigPath returns --config, then $KOKORO_FETCH_CONFIG, then the
// default file name.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv(config.EnvConfigPath); env != "" {
		return env
	}
	return defaultConfigFile
}

func init() {
	configCmd.Flags().BoolVar(&showPath, "path", false, "Print config file path")
	configCmd.Flags().BoolVar(&initConfig, "init", false, "Write the effective config to the config file")
	rootCmd.AddCommand(configCmd)
}
