// Package commands implements CLI command handlers for docarena.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docarena/docarena/internal/config"
	"github.com/docarena/docarena/internal/metrics"
	"github.com/docarena/docarena/internal/report"
	"github.com/docarena/docarena/internal/runner"
)

// RunCommand holds flags for the single-strategy run command.
type RunCommand struct {
	configPath string

	inputDir  string
	outputDir string
	provider  string
	model     string
	mode      string
	endpoint  string

	benchmarkCSV string
	priceFile    string
	resume       bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	runCmd := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a single extraction strategy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCmd.execute(cmd)
		},
	}

	cmd.Flags().StringVarP(&runCmd.configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVarP(&runCmd.inputDir, "input", "i", "", "input document directory")
	cmd.Flags().StringVarP(&runCmd.outputDir, "output", "o", "", "artifact output directory")
	cmd.Flags().StringVarP(&runCmd.provider, "provider", "p", "", "provider name")
	cmd.Flags().StringVarP(&runCmd.model, "model", "m", "", "model identifier")
	cmd.Flags().StringVar(&runCmd.mode, "mode", "", "dispatch mode: batch or parallel")
	cmd.Flags().StringVar(&runCmd.endpoint, "endpoint", "", "provider endpoint override")
	cmd.Flags().StringVar(&runCmd.benchmarkCSV, "benchmark", "", "benchmark reference CSV")
	cmd.Flags().StringVar(&runCmd.priceFile, "prices", "", "pricing table YAML")
	cmd.Flags().BoolVar(&runCmd.resume, "resume", false, "resume from checkpoint")

	return cmd
}

func (r *RunCommand) execute(cmd *cobra.Command) error {
	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}

	run := &runner.Runner{
		Config:   cfg,
		Strategy: cfg.Strategy,
		Metrics:  metrics.NewDefault(),
		Logger:   slog.Default(),
	}

	summary, err := run.Run(cmd.Context())
	if err != nil {
		return err
	}

	report.WriteSummary(os.Stdout, summary)

	return nil
}

// loadConfig merges the config file with flag overrides, then revalidates.
func (r *RunCommand) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(r.configPath)
	if err != nil {
		// Flag-only invocations have no config file: start from defaults
		// and let the post-override validation decide.
		if r.configPath != "" || r.inputDir == "" {
			return nil, err
		}

		cfg = &config.Config{OutputDir: config.DefaultOutputDir}
		cfg.Strategy.ApplyDefaults()
	}

	if r.inputDir != "" {
		cfg.InputDir = r.inputDir
	}

	if r.outputDir != "" {
		cfg.OutputDir = r.outputDir
	}

	if r.provider != "" {
		cfg.Strategy.Provider = r.provider
	}

	if r.model != "" {
		cfg.Strategy.Model = r.model
	}

	if r.mode != "" {
		cfg.Strategy.Mode = r.mode
	}

	if r.endpoint != "" {
		cfg.Strategy.Endpoint = r.endpoint
	}

	if r.benchmarkCSV != "" {
		cfg.BenchmarkCSV = r.benchmarkCSV
	}

	if r.priceFile != "" {
		cfg.PriceFile = r.priceFile
	}

	if r.resume {
		cfg.Resume = true
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return cfg, nil
}
