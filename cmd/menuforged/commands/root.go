package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var configPath string

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "menuforged",
		Short: "MenuForge - evolutionary menu planning service",
		Long: `MenuForge plans restaurant menus under budget and diner-count
constraints using an evolutionary optimizer.

The daemon exposes an HTTP API that deduplicates identical requests
across replicas through a shared key-value store, runs optimizations in
isolated worker subprocesses, and serves finished plans from cache.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newPlanCommand())

	return rootCmd
}
