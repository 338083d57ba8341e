// Package runner orchestrates a full extraction run: partition, dispatch,
// reconcile, validate, retry, and persist.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/docarena/docarena/internal/benchmark"
	"github.com/docarena/docarena/internal/checkpoint"
	"github.com/docarena/docarena/internal/config"
	"github.com/docarena/docarena/internal/extract"
	"github.com/docarena/docarena/internal/metrics"
	"github.com/docarena/docarena/internal/provider"
	"github.com/docarena/docarena/internal/reconcile"
	"github.com/docarena/docarena/internal/retry"
	"github.com/docarena/docarena/internal/scheduler"
	"github.com/docarena/docarena/internal/source"
	"github.com/docarena/docarena/internal/stats"
	"github.com/docarena/docarena/internal/validate"
	"github.com/docarena/docarena/pkg/persist"
)

// tracerName is the OTel tracer name for run spans.
const tracerName = "docarena"

// lotFormat is the timestamp layout embedded in group IDs and filenames.
const lotFormat = "20060102_150405"

// Outcome labels reported to metrics.
const (
	outcomeSuccess   = "success"
	outcomeRetry     = "needs-retry"
	outcomeExhausted = "exhausted-failure"
	outcomeNoResult  = "reconciliation-error"
)

// Summary is what a finished run reports upward.
type Summary struct {
	Strategy string
	Provider string
	Model    string
	Mode     string

	ArtifactPath string
	CSVPath      string

	Overall   stats.OverallStats
	Retry     stats.RetryStats
	Benchmark *stats.BenchmarkComparison
	Cost      *stats.CostBlock

	Elapsed time.Duration
}

// Runner executes one strategy over one input set.
type Runner struct {
	Config   *config.Config
	Strategy config.StrategyConfig

	// Extractor overrides the provider built from the strategy. Tests and
	// combo dispatch inject it; when nil, Run builds one.
	Extractor extract.Extractor

	// Mapper translates converted working paths back to originals.
	Mapper reconcile.PathMapper

	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Tracer  trace.Tracer

	// saveMu serializes the incremental artifact, CSV, and checkpoint writes.
	saveMu sync.Mutex
}

// NewExtractor builds the provider client for a strategy, wrapped with a
// per-attempt timeout and transport retries. The API key comes from the
// {PROVIDER}_API_KEY environment variable.
func NewExtractor(strategy config.StrategyConfig, logger *slog.Logger) (extract.Extractor, error) {
	client, err := provider.New(provider.Options{
		Provider: strategy.Provider,
		Model:    strategy.Model,
		Endpoint: strategy.Endpoint,
		APIKey:   os.Getenv(strings.ToUpper(strategy.Provider) + "_API_KEY"),
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	client = provider.WithTimeout(client, strategy.CallTimeout)

	return provider.WithRetry(client, strategy.MaxAttempts, strategy.RetryDelay, logger), nil
}

// Run executes the strategy to completion and returns the run summary.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	lot := start.Format(lotFormat)

	ctx, span := r.tracer().Start(ctx, "docarena.run",
		trace.WithAttributes(
			attribute.String("run.strategy", r.Strategy.Approach),
			attribute.String("run.provider", r.Strategy.Provider),
			attribute.String("run.model", r.Strategy.Model),
		))
	defer span.End()

	extractor := r.Extractor
	if extractor == nil {
		built, err := NewExtractor(r.Strategy, r.logger())
		if err != nil {
			return nil, fmt.Errorf("build extractor: %w", err)
		}

		extractor = built
	}

	files, err := source.Discover(r.Config.InputDir, r.Config.Extensions, r.logger())
	if err != nil {
		return nil, err
	}

	processed, err := r.loadCheckpoint()
	if err != nil {
		return nil, err
	}

	var reference *benchmark.Reference
	if r.Config.BenchmarkCSV != "" {
		reference, err = benchmark.LoadReference(r.Config.BenchmarkCSV, "")
		if err != nil {
			return nil, fmt.Errorf("load benchmark reference: %w", err)
		}
	}

	pending := make([]source.File, 0, len(files))
	for _, file := range files {
		if processed.Has(r.originalPath(file.Path)) {
			r.logger().Debug("skipping checkpointed file", "file", file.Path)

			continue
		}

		pending = append(pending, file)
	}

	r.logger().Info("run starting",
		"strategy", r.Strategy.Approach,
		"provider", r.Strategy.Provider,
		"model", r.Strategy.Model,
		"mode", r.Strategy.Mode,
		"files", len(pending),
		"skipped", len(files)-len(pending))

	acc := stats.NewAccumulator(stats.RunSettings{
		Strategy:    r.Strategy.Approach,
		Mode:        r.Strategy.Mode,
		LLMProvider: r.Strategy.Provider,
		LLMModel:    r.Strategy.Model,
	}, r.logger())

	run := &runState{
		lot:         lot,
		acc:         acc,
		processed:   processed,
		coordinator: retry.NewCoordinator(r.Strategy.MaxRetryRounds, r.logger()),
		reconciler:  reconcile.New(r.Mapper, r.logger()),
		policy:      validate.NewPolicy(r.Config.MandatoryKeys),
		dispatcher: &scheduler.Dispatcher{
			Extractor: extractor,
			Mode:      r.Strategy.Mode,
			Prompt:    r.Config.Prompt,
			Workers:   r.Strategy.Workers,
			Tracer:    r.Tracer,
			Metrics:   r.Metrics,
			Logger:    r.logger(),
		},
		lineage:   make(map[string][]string),
		reference: reference,
	}

	r.processRounds(ctx, run, pending)

	return r.finish(run, start)
}

// runState bundles what one run carries across rounds.
type runState struct {
	lot         string
	acc         *stats.Accumulator
	processed   *checkpoint.Set
	coordinator *retry.Coordinator
	reconciler  *reconcile.Reconciler
	policy      validate.Policy
	dispatcher  *scheduler.Dispatcher
	lineage     map[string][]string
	reference   *benchmark.Reference
}

// processRounds runs the first pass and every retry round.
func (r *Runner) processRounds(ctx context.Context, run *runState, files []source.File) {
	for {
		var groups []scheduler.Group

		if run.coordinator.Round() == 0 {
			groups = scheduler.Partition(files, run.lot, r.Strategy.MaxFilesPerGroup)
		} else {
			groups = scheduler.PartitionRetry(files, run.lot, run.coordinator.Round(), r.Strategy.MaxFilesPerGroup)
		}

		for _, group := range groups {
			r.processGroup(ctx, run, group)
		}

		files = run.coordinator.NextRound()
		if len(files) == 0 {
			return
		}

		if r.Metrics != nil {
			r.Metrics.RetryRounds.Inc()
		}
	}
}

// processGroup dispatches one group and folds its results into the run.
func (r *Runner) processGroup(ctx context.Context, run *runState, group scheduler.Group) {
	result := run.dispatcher.Dispatch(ctx, group)

	var groupUsage extract.TokenUsage
	for _, record := range result.Records {
		groupUsage.Add(record.Usage)
	}

	if r.Metrics != nil {
		r.Metrics.TokensConsumed.Add(float64(groupUsage.TotalTokens))
	}

	run.acc.RecordGroup(stats.GroupReport{
		ID:              group.ID,
		Index:           group.Index,
		SubmissionTime:  result.SubmittedAt,
		Files:           group.Files,
		EstimatedTokens: group.EstimatedTokens(),
		ProcTime:        result.Elapsed,
		Usage:           groupUsage,
	})

	assigned := run.reconciler.Assign(group.Files, result.Records)

	for _, file := range group.Files {
		// Assign keys results by the original document path, so converted
		// working files must be resolved before any lookup or bookkeeping.
		resolved := file
		resolved.Path = r.originalPath(file.Path)
		resolved.Name = filepath.Base(resolved.Path)

		record := assigned[resolved.Path]
		run.lineage[resolved.Path] = append(run.lineage[resolved.Path], group.ID)

		r.classifyFile(run, resolved, record)
	}

	saveErr := r.saveIncremental(run)
	if saveErr != nil {
		r.logger().Error("incremental save failed", "group", group.ID, "error", saveErr)
	}
}

// classifyFile validates one record, records its outcome, and routes it to
// the retry arena when warranted.
func (r *Runner) classifyFile(run *runState, file source.File, record extract.Record) {
	roundsLeft := run.coordinator.RoundsLeft()
	round := run.coordinator.Round()

	var (
		missing []string
		label   string
		outcome validate.Outcome
	)

	if record.Failed() {
		// No usable answer. The file is resent while rounds remain, even
		// when no mandatory keys are configured.
		missing = run.policy.MandatoryKeys
		label = outcomeNoResult

		outcome = validate.NeedsRetry
		if roundsLeft <= 0 {
			outcome = validate.ExhaustedFailure
		}
	} else {
		missing = run.policy.Missing(record.Fields)

		if len(missing) == 0 && run.reference != nil && !run.policy.Exempt(record.Fields) &&
			!run.reference.Agrees(file.Path, record.Fields) {
			// All mandatory keys present, but a value disagrees with the
			// reference data. Treated as deficient so the file is retried.
			missing = []string{benchmark.ReasonValueMismatch}
		}

		outcome = validate.Classify(missing, roundsLeft)
	}

	fileOutcome := stats.FileOutcome{
		File:            file,
		Success:         outcome == validate.Success,
		Round:           round,
		Output:          record.Fields,
		Usage:           record.Usage,
		EstimatedTokens: scheduler.EstimateTokens(file),
		GroupLineage:    append([]string(nil), run.lineage[file.Path]...),
	}

	if record.Failed() && record.Fields == nil {
		fileOutcome.Output = map[string]any{"error": record.Err}
	}

	switch outcome {
	case validate.Success:
		run.processed.Add(file.Path)
		label = outcomeSuccess
	case validate.NeedsRetry:
		if label == "" {
			label = outcomeRetry
		}

		fileOutcome.FailureReason = failureReason(record, missing)

		run.coordinator.Enqueue(retry.Entry{File: file, Record: record, MissingKeys: missing})
	case validate.ExhaustedFailure:
		if label == "" {
			label = outcomeExhausted
		}

		fileOutcome.FailureReason = failureReason(record, missing)

		run.processed.Add(file.Path)
		run.coordinator.MarkExhausted(file.Path)
	}

	run.acc.RecordFile(fileOutcome)

	if r.Metrics != nil {
		r.Metrics.FilesProcessed.WithLabelValues(label).Inc()
	}
}

// finish computes the end-of-run blocks and writes the final artifact.
func (r *Runner) finish(run *runState, start time.Time) (*Summary, error) {
	retryCounts := run.coordinator.Stats()
	run.acc.SetRetryCounts(retryCounts.Candidates, retryCounts.Retried, retryCounts.ExhaustedFailures)

	discrepancies := run.acc.VerifyConsistency()
	if len(discrepancies) > 0 {
		r.logger().Warn("statistics consistency check found discrepancies", "fields", discrepancies)
	}

	if run.reference != nil {
		benchErr := r.runBenchmark(run)
		if benchErr != nil {
			r.logger().Error("benchmark comparison failed", "error", benchErr)
		}
	}

	if r.Config.PriceFile != "" {
		table, priceErr := stats.LoadPriceTable(r.Config.PriceFile)
		if priceErr != nil {
			r.logger().Error("pricing unavailable", "error", priceErr)
		} else {
			run.acc.ApplyPricing(table)
		}
	}

	saveErr := r.saveIncremental(run)
	if saveErr != nil {
		return nil, fmt.Errorf("final artifact save: %w", saveErr)
	}

	artifact := run.acc.Snapshot()

	summary := &Summary{
		Strategy:     r.Strategy.Approach,
		Provider:     r.Strategy.Provider,
		Model:        r.Strategy.Model,
		Mode:         r.Strategy.Mode,
		ArtifactPath: r.artifactPath(run.lot, ".json"),
		CSVPath:      r.artifactPath(run.lot, ".csv"),
		Overall:      artifact.Overall,
		Retry:        artifact.RetryStats,
		Benchmark:    artifact.Benchmark,
		Cost:         artifact.Cost,
		Elapsed:      time.Since(start),
	}

	r.logger().Info("run finished",
		"strategy", r.Strategy.Approach,
		"files", summary.Overall.TotalFiles,
		"success", summary.Overall.NumSuccess,
		"failed", summary.Overall.NumFailed,
		"elapsed", summary.Elapsed)

	return summary, nil
}

// runBenchmark compares every recorded model output to the reference.
func (r *Runner) runBenchmark(run *runState) error {
	artifact := run.acc.Snapshot()

	outputs := make(map[string]map[string]any, len(artifact.FileStats))
	for path, stat := range artifact.FileStats {
		outputs[path] = stat.ModelOutput
	}

	summary, comparisons := benchmark.NewComparator(run.reference, r.logger()).Compare(outputs)
	run.acc.SetBenchmark(summary)

	reportPath := filepath.Join(r.Config.OutputDir, fmt.Sprintf("benchmark_errors_%s.csv", run.lot))

	return benchmark.WriteErrorReport(reportPath, comparisons)
}

// saveIncremental writes the artifact JSON, the CSV mirror, and the
// checkpoint. Called after every group and once at the end.
func (r *Runner) saveIncremental(run *runState) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	artifact := run.acc.Snapshot()

	jsonErr := persist.WriteAtomic(r.artifactPath(run.lot, ".json"), persist.NewJSONCodec(), artifact)
	if jsonErr != nil {
		return jsonErr
	}

	csvErr := persist.WriteCSVAtomic(r.artifactPath(run.lot, ".csv"), csvRows(artifact))
	if csvErr != nil {
		return csvErr
	}

	return run.processed.Save(r.checkpointPath())
}

// artifactPath derives the {strategy}_{mode}_{provider}_{model}_{lot} name.
func (r *Runner) artifactPath(lot, extension string) string {
	name := fmt.Sprintf("%s_%s_%s_%s_%s%s",
		sanitize(r.Strategy.Approach),
		sanitize(r.Strategy.Mode),
		sanitize(r.Strategy.Provider),
		sanitize(r.Strategy.Model),
		lot,
		extension)

	return filepath.Join(r.Config.OutputDir, name)
}

// originalPath maps a converted working path back to the original document.
func (r *Runner) originalPath(path string) string {
	if r.Mapper == nil {
		return path
	}

	return r.Mapper.Original(path)
}

func (r *Runner) checkpointPath() string {
	if r.Config.CheckpointPath != "" {
		return r.Config.CheckpointPath
	}

	return filepath.Join(r.Config.OutputDir, "docarena.checkpoint")
}

func (r *Runner) loadCheckpoint() (*checkpoint.Set, error) {
	if !r.Config.Resume {
		return checkpoint.NewSet(), nil
	}

	set, err := checkpoint.Load(r.checkpointPath())
	if err != nil {
		return nil, fmt.Errorf("resume from checkpoint: %w", err)
	}

	r.logger().Info("resuming from checkpoint", "processed", set.Len())

	return set, nil
}

func (r *Runner) tracer() trace.Tracer {
	if r.Tracer != nil {
		return r.Tracer
	}

	return otel.Tracer(tracerName)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}

	return slog.Default()
}

// failureReason summarizes why a record was deficient.
func failureReason(record extract.Record, missing []string) string {
	if record.Failed() {
		return record.Err
	}

	if len(missing) == 1 && missing[0] == benchmark.ReasonValueMismatch {
		return "extracted values disagree with the benchmark reference"
	}

	return "missing mandatory keys: " + strings.Join(missing, ", ")
}

// sanitize keeps filenames free of path separators from model identifiers.
func sanitize(part string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")

	return replacer.Replace(part)
}
