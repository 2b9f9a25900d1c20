package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pixelgate",
		Short: "Pixelgate - Edge Asset Delivery Orchestrator",
		Long: `Pixelgate is an edge delivery node that resolves static assets across
a prioritized set of sources and orchestrates its own component lifecycle.

Features:
  - Dependency-ordered component initialization and shutdown
  - Raced multi-source asset resolution (cache, R2, origin)
  - Local Badger cache with TTL and write-back
  - Lifecycle and resolution history persisted to SQLite
  - Diagnostic HTTP endpoints with Prometheus metrics`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newResolveCommand())
	rootCmd.AddCommand(newGraphCommand())
	rootCmd.AddCommand(newValidateCommand())

	return rootCmd
}
