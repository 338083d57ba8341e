// Package main provides the entry point for the docarena CLI tool.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docarena/docarena/cmd/docarena/commands"
	"github.com/docarena/docarena/pkg/version"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "docarena",
		Short: "Docarena - document extraction benchmarking engine",
		Long: `Docarena batches documents through LLM field-extraction providers,
reconciles and validates the results, and writes run statistics.

Commands:
  run       Execute a single extraction strategy
  combo     Execute a multi-strategy plan`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}

			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add commands.
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewComboCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "docarena %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
