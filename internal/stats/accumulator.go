package stats

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/docarena/docarena/internal/extract"
	"github.com/docarena/docarena/internal/source"
)

// percentFactor converts a ratio to a percentage.
const percentFactor = 100

// FileOutcome is what the orchestrator reports when a file reaches a
// terminal state (or a better retry result replaces an earlier one).
type FileOutcome struct {
	File            source.File
	Success         bool
	Round           int
	FailureReason   string
	Output          map[string]any
	Usage           extract.TokenUsage
	EstimatedTokens int
	GroupLineage    []string
}

// GroupReport is what the orchestrator reports after a group completes.
type GroupReport struct {
	ID              string
	Index           int
	SubmissionTime  time.Time
	Files           []source.File
	EstimatedTokens int
	ProcTime        time.Duration
	Usage           extract.TokenUsage
}

// Accumulator builds the artifact incrementally and can recompute its
// overall block from scratch for a consistency check.
type Accumulator struct {
	mu sync.Mutex

	artifact Artifact

	// running mirrors the incremental overall totals. Recompute rebuilds
	// the same numbers from file stats alone.
	running OverallStats

	retryUsage extract.TokenUsage
	logger     *slog.Logger
}

// NewAccumulator creates an accumulator for a run.
func NewAccumulator(settings RunSettings, logger *slog.Logger) *Accumulator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Accumulator{
		artifact: Artifact{
			RunSettings: settings,
			FileStats:   make(map[string]FileStat),
			GroupStats:  make(map[string]GroupStat),
		},
		logger: logger,
	}
}

// RecordFile stores the result for one file. A retried file overwrites its
// earlier entry; the incremental totals are adjusted by the delta.
func (a *Accumulator) RecordFile(outcome FileOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	previous, existed := a.artifact.FileStats[outcome.File.Path]

	entry := FileStat{
		ProcessResult: ProcessResult{
			Success:       outcome.Success,
			RetryRound:    outcome.Round,
			FailureReason: outcome.FailureReason,
			ProcTimestamp: time.Now().Format(time.RFC3339),
			GroupIDs:      outcome.GroupLineage,
		},
		ModelOutput: outcome.Output,
		TokenStats: TokenStats{
			PromptTokens:     outcome.Usage.PromptTokens,
			CandidatesTokens: outcome.Usage.CandidateTokens,
			ActualTokens:     outcome.Usage.TotalTokens,
			OtherTokens:      outcome.Usage.Other(),
			EstimatedTokens:  outcome.EstimatedTokens,
		},
		Info: FileInfo{
			FileName:   outcome.File.Name,
			FileSizeMB: outcome.File.SizeMB(),
		},
	}

	a.artifact.FileStats[outcome.File.Path] = entry

	if existed {
		a.subtractFile(previous)
	}

	a.addFile(entry)

	if outcome.Round > 0 {
		a.retryUsage.Add(outcome.Usage)
	}

	a.refreshOverallLocked()
}

// RecordGroup stores the stats for one completed group.
func (a *Accumulator) RecordGroup(report GroupReport) {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, 0, len(report.Files))
	for _, file := range report.Files {
		names = append(names, file.Name)
	}

	a.artifact.GroupStats[report.ID] = GroupStat{
		GroupIndex:           report.Index,
		SubmissionTime:       report.SubmissionTime.Format(time.RFC3339),
		FileCount:            len(report.Files),
		FileNameList:         names,
		EstimatedTokens:      report.EstimatedTokens,
		ActualTokens:         report.Usage.TotalTokens,
		GroupProcTimeInSec:   round2(report.ProcTime.Seconds()),
		GroupPromptTokens:    report.Usage.PromptTokens,
		GroupCandidateTokens: report.Usage.CandidateTokens,
		GroupOtherTokens:     report.Usage.Other(),
		GroupTotalTokens:     report.Usage.TotalTokens,
	}

	a.running.TotalProcTimeInSec += report.ProcTime.Seconds()

	a.refreshOverallLocked()
}

// SetRetryCounts fills the count side of the retry block. Token tallies are
// tracked internally as retried files are recorded.
func (a *Accumulator) SetRetryCounts(candidates, retried, exhausted int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	percentage := 0.0
	if total := len(a.artifact.FileStats); total > 0 {
		percentage = round2(percentFactor * float64(retried) / float64(total))
	}

	a.artifact.RetryStats = RetryStats{
		NumFilesMayNeedRetry:         candidates,
		NumFilesHadRetry:             retried,
		PercentageFilesHadRetry:      percentage,
		NumFileFailedAfterMaxRetries: exhausted,
		ActualTokensForRetries:       a.retryUsage.TotalTokens,
		RetryPromptTokens:            a.retryUsage.PromptTokens,
		RetryCandidateTokens:         a.retryUsage.CandidateTokens,
		RetryOtherTokens:             a.retryUsage.Other(),
		RetryTotalTokens:             a.retryUsage.TotalTokens,
	}
}

// SetBenchmark attaches the benchmark comparison block.
func (a *Accumulator) SetBenchmark(comparison BenchmarkComparison) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.artifact.Benchmark = &comparison
}

// ApplyPricing attaches the cost block for the run's provider and model.
// An unknown model leaves the artifact without a cost block.
func (a *Accumulator) ApplyPricing(table *PriceTable) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if table == nil {
		return
	}

	price, ok := table.Lookup(a.artifact.RunSettings.LLMProvider, a.artifact.RunSettings.LLMModel)
	if !ok {
		a.logger.Warn("no pricing for model, omitting cost block",
			"provider", a.artifact.RunSettings.LLMProvider,
			"model", a.artifact.RunSettings.LLMModel)

		return
	}

	cost := price.Cost(a.running.TotalPromptTokens, a.running.TotalCandidateTokens, a.running.TotalOtherTokens)
	cost.PriceObtainedDate = table.PriceObtainedDate

	a.artifact.Cost = &cost
}

// Snapshot returns a deep copy of the artifact for persistence. The copy is
// safe to serialize while the run keeps mutating the accumulator.
func (a *Accumulator) Snapshot() *Artifact {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := a.artifact

	snapshot.FileStats = make(map[string]FileStat, len(a.artifact.FileStats))
	for path, stat := range a.artifact.FileStats {
		snapshot.FileStats[path] = stat
	}

	snapshot.GroupStats = make(map[string]GroupStat, len(a.artifact.GroupStats))
	for id, stat := range a.artifact.GroupStats {
		snapshot.GroupStats[id] = stat
	}

	return &snapshot
}

// Recompute rebuilds the overall block from the file stats alone.
func (a *Accumulator) Recompute() OverallStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.recomputeLocked()
}

// VerifyConsistency compares the incremental totals against an independent
// recomputation. Discrepancies are logged and returned; they never abort
// the run.
func (a *Accumulator) VerifyConsistency() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	recomputed := a.recomputeLocked()

	var discrepancies []string

	check := func(name string, incremental, fresh int) {
		if incremental != fresh {
			discrepancies = append(discrepancies, name)

			a.logger.Error("statistics discrepancy",
				"field", name, "incremental", incremental, "recomputed", fresh)
		}
	}

	check("total_files", a.running.TotalFiles, recomputed.TotalFiles)
	check("num_success", a.running.NumSuccess, recomputed.NumSuccess)
	check("num_failed", a.running.NumFailed, recomputed.NumFailed)
	check("total_prompt_tokens", a.running.TotalPromptTokens, recomputed.TotalPromptTokens)
	check("total_candidate_tokens", a.running.TotalCandidateTokens, recomputed.TotalCandidateTokens)
	check("total_other_tokens", a.running.TotalOtherTokens, recomputed.TotalOtherTokens)
	check("total_actual_tokens", a.running.TotalActualTokens, recomputed.TotalActualTokens)
	check("total_estimated_tokens", a.running.TotalEstimatedTokens, recomputed.TotalEstimatedTokens)

	return discrepancies
}

func (a *Accumulator) addFile(stat FileStat) {
	a.running.TotalFiles++

	if stat.ProcessResult.Success {
		a.running.NumSuccess++
	} else {
		a.running.NumFailed++
	}

	a.running.TotalPromptTokens += stat.TokenStats.PromptTokens
	a.running.TotalCandidateTokens += stat.TokenStats.CandidatesTokens
	a.running.TotalOtherTokens += stat.TokenStats.OtherTokens
	a.running.TotalActualTokens += stat.TokenStats.ActualTokens
	a.running.TotalEstimatedTokens += stat.TokenStats.EstimatedTokens
}

func (a *Accumulator) subtractFile(stat FileStat) {
	a.running.TotalFiles--

	if stat.ProcessResult.Success {
		a.running.NumSuccess--
	} else {
		a.running.NumFailed--
	}

	a.running.TotalPromptTokens -= stat.TokenStats.PromptTokens
	a.running.TotalCandidateTokens -= stat.TokenStats.CandidatesTokens
	a.running.TotalOtherTokens -= stat.TokenStats.OtherTokens
	a.running.TotalActualTokens -= stat.TokenStats.ActualTokens
	a.running.TotalEstimatedTokens -= stat.TokenStats.EstimatedTokens
}

func (a *Accumulator) refreshOverallLocked() {
	overall := a.running

	if overall.TotalFiles > 0 {
		files := float64(overall.TotalFiles)
		overall.AveragePromptTokensPerFile = round2(float64(overall.TotalPromptTokens) / files)
		overall.AverageCandidateTokensPerFile = round2(float64(overall.TotalCandidateTokens) / files)
		overall.AverageOtherTokensPerFile = round2(float64(overall.TotalOtherTokens) / files)
		overall.AverageActualTokensPerFile = round2(float64(overall.TotalActualTokens) / files)
	}

	overall.TotalProcTimeInSec = round2(overall.TotalProcTimeInSec)

	a.artifact.Overall = overall
}

func (a *Accumulator) recomputeLocked() OverallStats {
	var fresh OverallStats

	for _, stat := range a.artifact.FileStats {
		fresh.TotalFiles++

		if stat.ProcessResult.Success {
			fresh.NumSuccess++
		} else {
			fresh.NumFailed++
		}

		fresh.TotalPromptTokens += stat.TokenStats.PromptTokens
		fresh.TotalCandidateTokens += stat.TokenStats.CandidatesTokens
		fresh.TotalOtherTokens += stat.TokenStats.OtherTokens
		fresh.TotalActualTokens += stat.TokenStats.ActualTokens
		fresh.TotalEstimatedTokens += stat.TokenStats.EstimatedTokens
	}

	return fresh
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
