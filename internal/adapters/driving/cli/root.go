// Package cli provides the driveroute command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/driveroute/internal/adapters/driven/config"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "driveroute",
	Short: "Classify and file new Google Drive items",
	Long: `driveroute watches a Google Drive folder for new items, extracts their
text, picks a label from a catalog using a model with a keyword fallback,
and moves each item into the label's folder.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads configuration and applies its log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Log.Verbose {
		logger.SetVerbose(true)
	}
	return cfg, nil
}
