package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docarena/docarena/internal/combo"
	"github.com/docarena/docarena/internal/config"
	"github.com/docarena/docarena/internal/metrics"
	"github.com/docarena/docarena/internal/report"
)

// ErrComboFailures indicates that at least one combo strategy failed.
var ErrComboFailures = errors.New("combo finished with failed strategies")

// ComboCommand holds flags for the multi-strategy combo command.
type ComboCommand struct {
	configPath string
	planPath   string
	inputDir   string
	outputDir  string
	resume     bool
}

// NewComboCommand creates the combo command.
func NewComboCommand() *cobra.Command {
	comboCmd := &ComboCommand{}

	cmd := &cobra.Command{
		Use:   "combo",
		Short: "Execute a multi-strategy plan over one input set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return comboCmd.execute(cmd)
		},
	}

	cmd.Flags().StringVarP(&comboCmd.configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&comboCmd.planPath, "plan", "", "combo plan YAML (required)")
	cmd.Flags().StringVarP(&comboCmd.inputDir, "input", "i", "", "input document directory")
	cmd.Flags().StringVarP(&comboCmd.outputDir, "output", "o", "", "artifact output directory")
	cmd.Flags().BoolVar(&comboCmd.resume, "resume", false, "resume from checkpoints")

	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func (c *ComboCommand) execute(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		if c.configPath != "" || c.inputDir == "" {
			return err
		}

		cfg = &config.Config{OutputDir: config.DefaultOutputDir}
		cfg.Strategy.ApplyDefaults()
	}

	if c.inputDir != "" {
		cfg.InputDir = c.inputDir
	}

	if c.outputDir != "" {
		cfg.OutputDir = c.outputDir
	}

	if c.resume {
		cfg.Resume = true
	}

	if cfg.InputDir == "" {
		return config.ErrNoInputDir
	}

	plan, err := config.LoadPlan(c.planPath)
	if err != nil {
		return err
	}

	dispatcher := &combo.Dispatcher{
		Config:  cfg,
		Plan:    plan,
		Metrics: metrics.NewDefault(),
		Logger:  slog.Default(),
	}

	results, err := dispatcher.Run(cmd.Context())
	if err != nil {
		return err
	}

	report.WriteComboSummary(os.Stdout, results)

	for _, result := range results {
		if result.Err != nil {
			return ErrComboFailures
		}
	}

	return nil
}
