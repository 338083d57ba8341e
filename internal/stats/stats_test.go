package stats_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docarena/docarena/internal/extract"
	"github.com/docarena/docarena/internal/source"
	"github.com/docarena/docarena/internal/stats"
)

func settings() stats.RunSettings {
	return stats.RunSettings{Strategy: "default", Mode: "batch", LLMProvider: "mock", LLMModel: "m1"}
}

func outcomeFor(path string, success bool, round int) stats.FileOutcome {
	return stats.FileOutcome{
		File:            source.File{Path: path, Name: filepath.Base(path), SizeBytes: 2 * 1024 * 1024},
		Success:         success,
		Round:           round,
		Output:          map[string]any{"DOC_TYPE": "NFe"},
		Usage:           extract.TokenUsage{PromptTokens: 100, CandidateTokens: 40, TotalTokens: 150},
		EstimatedTokens: 120,
		GroupLineage:    []string{"lot_group_0"},
	}
}

func TestRecordFileTotals(t *testing.T) {
	t.Parallel()

	acc := stats.NewAccumulator(settings(), nil)
	acc.RecordFile(outcomeFor("/in/a.pdf", true, 0))
	acc.RecordFile(outcomeFor("/in/b.pdf", false, 0))

	artifact := acc.Snapshot()
	assert.Equal(t, 2, artifact.Overall.TotalFiles)
	assert.Equal(t, 1, artifact.Overall.NumSuccess)
	assert.Equal(t, 1, artifact.Overall.NumFailed)
	assert.Equal(t, 200, artifact.Overall.TotalPromptTokens)
	assert.Equal(t, 300, artifact.Overall.TotalActualTokens)
	assert.Equal(t, 20, artifact.FileStats["/in/a.pdf"].TokenStats.OtherTokens)
	assert.InDelta(t, 150.0, artifact.Overall.AverageActualTokensPerFile, 0.001)
	assert.InDelta(t, 2.0, artifact.FileStats["/in/a.pdf"].Info.FileSizeMB, 0.01)
}

func TestRetriedFileOverwritesEntry(t *testing.T) {
	t.Parallel()

	acc := stats.NewAccumulator(settings(), nil)
	acc.RecordFile(outcomeFor("/in/a.pdf", false, 0))

	retried := outcomeFor("/in/a.pdf", true, 1)
	retried.GroupLineage = []string{"lot_group_0", "lot_retry_1_group_0"}
	acc.RecordFile(retried)

	artifact := acc.Snapshot()
	assert.Equal(t, 1, artifact.Overall.TotalFiles)
	assert.Equal(t, 1, artifact.Overall.NumSuccess)
	assert.Equal(t, 150, artifact.Overall.TotalActualTokens)
	assert.Equal(t, 1, artifact.FileStats["/in/a.pdf"].ProcessResult.RetryRound)
	assert.Len(t, artifact.FileStats["/in/a.pdf"].ProcessResult.GroupIDs, 2)
}

func TestRetryTokensTracked(t *testing.T) {
	t.Parallel()

	acc := stats.NewAccumulator(settings(), nil)
	acc.RecordFile(outcomeFor("/in/a.pdf", false, 0))
	acc.RecordFile(outcomeFor("/in/a.pdf", true, 1))
	acc.RecordFile(outcomeFor("/in/b.pdf", true, 0))

	acc.SetRetryCounts(1, 1, 0)

	artifact := acc.Snapshot()
	assert.Equal(t, 1, artifact.RetryStats.NumFilesHadRetry)
	assert.Equal(t, 150, artifact.RetryStats.ActualTokensForRetries)
	assert.Equal(t, 100, artifact.RetryStats.RetryPromptTokens)
	assert.InDelta(t, 50.0, artifact.RetryStats.PercentageFilesHadRetry, 0.001)
}

func TestRecordGroup(t *testing.T) {
	t.Parallel()

	acc := stats.NewAccumulator(settings(), nil)

	submitted := time.Now()
	acc.RecordGroup(stats.GroupReport{
		ID:              "lot_group_0",
		Index:           0,
		SubmissionTime:  submitted,
		Files:           []source.File{{Path: "/in/a.pdf", Name: "a.pdf"}},
		EstimatedTokens: 120,
		ProcTime:        1500 * time.Millisecond,
		Usage:           extract.TokenUsage{PromptTokens: 100, CandidateTokens: 40, TotalTokens: 150},
	})

	artifact := acc.Snapshot()
	group := artifact.GroupStats["lot_group_0"]
	assert.Equal(t, 1, group.FileCount)
	assert.Equal(t, []string{"a.pdf"}, group.FileNameList)
	assert.InDelta(t, 1.5, group.GroupProcTimeInSec, 0.001)
	assert.Equal(t, 150, group.GroupTotalTokens)
	assert.Equal(t, 10, group.GroupOtherTokens)
}

func TestVerifyConsistencyClean(t *testing.T) {
	t.Parallel()

	acc := stats.NewAccumulator(settings(), nil)
	acc.RecordFile(outcomeFor("/in/a.pdf", true, 0))
	acc.RecordFile(outcomeFor("/in/a.pdf", true, 1))
	acc.RecordFile(outcomeFor("/in/b.pdf", false, 0))

	assert.Empty(t, acc.VerifyConsistency())

	recomputed := acc.Recompute()
	assert.Equal(t, 2, recomputed.TotalFiles)
	assert.Equal(t, 300, recomputed.TotalActualTokens)
}

func TestApplyPricing(t *testing.T) {
	t.Parallel()

	table := &stats.PriceTable{
		PriceObtainedDate: "2026-08-01",
		Providers: map[string]map[string]stats.ModelPrice{
			"mock": {"m1": {PromptPricePer1M: 2, CandidatePricePer1M: 10, OtherPricePer1M: 1}},
		},
	}

	acc := stats.NewAccumulator(settings(), nil)
	acc.RecordFile(outcomeFor("/in/a.pdf", true, 0))
	acc.ApplyPricing(table)

	artifact := acc.Snapshot()
	require.NotNil(t, artifact.Cost)
	assert.Equal(t, "2026-08-01", artifact.Cost.PriceObtainedDate)
	assert.InDelta(t, 100.0*2/1e6, artifact.Cost.TotalPromptTokenCost, 1e-9)
	assert.InDelta(t, 40.0*10/1e6+100.0*2/1e6+10.0*1/1e6, artifact.Cost.TotalTokenCost, 1e-9)
}

func TestApplyPricingUnknownModel(t *testing.T) {
	t.Parallel()

	table := &stats.PriceTable{Providers: map[string]map[string]stats.ModelPrice{}}

	acc := stats.NewAccumulator(settings(), nil)
	acc.RecordFile(outcomeFor("/in/a.pdf", true, 0))
	acc.ApplyPricing(table)

	assert.Nil(t, acc.Snapshot().Cost)
}

func TestLoadPriceTable(t *testing.T) {
	t.Parallel()

	content := `price_obtained_date: "2026-08-01"
providers:
  openai:
    gpt-4o:
      prompt_price_per_1m: 2.5
      candidate_price_per_1m: 10.0
      other_price_per_1m: 0.5
`

	path := filepath.Join(t.TempDir(), "prices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	table, err := stats.LoadPriceTable(path)
	require.NoError(t, err)

	price, ok := table.Lookup("openai", "gpt-4o")
	require.True(t, ok)
	assert.InDelta(t, 2.5, price.PromptPricePer1M, 0.001)

	_, ok = table.Lookup("openai", "unknown")
	assert.False(t, ok)
}
