// Package cli implements the bioindex command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/bioindex/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagVerbose    bool
	flagConfigPath string
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "bioindex",
	Short: "Hybrid dataset retrieval service",
	Long: `bioindex stores dataset summaries together with optional extracted
content, then serves exact metadata filters, semantic similarity search
and a blended ranking of both over HTTP.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "", "path to config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
