// Package combo executes many strategy configurations over one input set.
package combo

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docarena/docarena/internal/config"
	"github.com/docarena/docarena/internal/metrics"
	"github.com/docarena/docarena/internal/runner"
	"github.com/docarena/docarena/pkg/persist"
)

// metaFormat is the timestamp layout in the combo meta filename.
const metaFormat = "20060102_150405"

// StrategyResult is the outcome of one strategy execution.
type StrategyResult struct {
	// RequestID uniquely names this execution.
	RequestID string

	// Strategy is the executed configuration.
	Strategy config.StrategyConfig

	// Summary is nil when the execution failed.
	Summary *runner.Summary

	// Err records an execution failure. Failures never abort the other
	// strategies.
	Err error
}

// Meta is the combo summary persisted after all strategies finish.
type Meta struct {
	StartedAt  string      `json:"started_at"`
	FinishedAt string      `json:"finished_at"`
	Executions []MetaEntry `json:"executions"`
}

// MetaEntry is one execution in the combo meta file.
type MetaEntry struct {
	RequestID string `json:"request_id"`
	Strategy  string `json:"strategy"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Mode      string `json:"mode"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
	Artifact  string `json:"artifact,omitempty"`
}

// Dispatcher runs a combo plan: provider groups execute sequentially, and
// strategies within a group run concurrently up to the plan's bound.
type Dispatcher struct {
	Config  *config.Config
	Plan    *config.Plan
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// execute overrides strategy execution in tests.
	execute func(ctx context.Context, strategy config.StrategyConfig) (*runner.Summary, error)
}

// Run executes every strategy in the plan and writes the combo meta file.
func (d *Dispatcher) Run(ctx context.Context) ([]StrategyResult, error) {
	started := time.Now()

	groups := groupByProvider(d.Plan.Strategies)

	d.logger().Info("combo starting",
		"strategies", len(d.Plan.Strategies),
		"provider_groups", len(groups),
		"max_concurrent", d.Plan.MaxConcurrent)

	var results []StrategyResult

	for _, group := range groups {
		results = append(results, d.runProviderGroup(ctx, group)...)
	}

	meta := Meta{
		StartedAt:  started.Format(time.RFC3339),
		FinishedAt: time.Now().Format(time.RFC3339),
	}

	for _, result := range results {
		entry := MetaEntry{
			RequestID: result.RequestID,
			Strategy:  result.Strategy.Approach,
			Provider:  result.Strategy.Provider,
			Model:     result.Strategy.Model,
			Mode:      result.Strategy.Mode,
			Succeeded: result.Err == nil,
		}

		if result.Err != nil {
			entry.Error = result.Err.Error()
		} else {
			entry.Artifact = result.Summary.ArtifactPath
		}

		meta.Executions = append(meta.Executions, entry)
	}

	metaPath := filepath.Join(d.Config.OutputDir, fmt.Sprintf("combo_meta_%s.json", started.Format(metaFormat)))

	saveErr := persist.WriteAtomic(metaPath, persist.NewJSONCodec(), meta)
	if saveErr != nil {
		return results, fmt.Errorf("write combo meta: %w", saveErr)
	}

	return results, nil
}

// runProviderGroup executes one provider's strategies with bounded
// concurrency.
func (d *Dispatcher) runProviderGroup(ctx context.Context, strategies []config.StrategyConfig) []StrategyResult {
	results := make([]StrategyResult, len(strategies))

	// Plans built in code may leave MaxConcurrent unset.
	limit := d.Plan.MaxConcurrent
	if limit < 1 {
		limit = 1
	}

	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup

	for i, strategy := range strategies {
		wg.Add(1)

		go func(slot int, strategy config.StrategyConfig) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			requestID := uuid.NewString()

			d.logger().Info("executing strategy",
				"request_id", requestID,
				"strategy", strategy.Approach,
				"provider", strategy.Provider,
				"model", strategy.Model)

			summary, err := d.runStrategy(ctx, strategy)
			if err != nil {
				d.logger().Error("strategy failed",
					"request_id", requestID,
					"provider", strategy.Provider,
					"model", strategy.Model,
					"error", err)
			}

			results[slot] = StrategyResult{
				RequestID: requestID,
				Strategy:  strategy,
				Summary:   summary,
				Err:       err,
			}
		}(i, strategy)
	}

	wg.Wait()

	return results
}

func (d *Dispatcher) runStrategy(ctx context.Context, strategy config.StrategyConfig) (*runner.Summary, error) {
	if d.execute != nil {
		return d.execute(ctx, strategy)
	}

	// Each strategy gets its own checkpoint so a resumed combo does not
	// conflate progress across providers.
	cfg := *d.Config
	cfg.CheckpointPath = filepath.Join(cfg.OutputDir, "checkpoints",
		fmt.Sprintf("%s_%s_%s.checkpoint", strategy.Approach, strategy.Provider, strategy.Model))

	run := &runner.Runner{
		Config:   &cfg,
		Strategy: strategy,
		Metrics:  d.Metrics,
		Logger:   d.logger(),
	}

	return run.Run(ctx)
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	return slog.Default()
}

// groupByProvider partitions strategies into per-provider groups, preserving
// first-appearance order.
func groupByProvider(strategies []config.StrategyConfig) [][]config.StrategyConfig {
	var (
		order  []string
		byName = make(map[string][]config.StrategyConfig)
	)

	for _, strategy := range strategies {
		if _, seen := byName[strategy.Provider]; !seen {
			order = append(order, strategy.Provider)
		}

		byName[strategy.Provider] = append(byName[strategy.Provider], strategy)
	}

	groups := make([][]config.StrategyConfig, 0, len(order))
	for _, provider := range order {
		groups = append(groups, byName[provider])
	}

	return groups
}
