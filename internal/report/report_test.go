package report_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docarena/docarena/internal/combo"
	"github.com/docarena/docarena/internal/config"
	"github.com/docarena/docarena/internal/report"
	"github.com/docarena/docarena/internal/runner"
	"github.com/docarena/docarena/internal/stats"
)

func sampleSummary() *runner.Summary {
	return &runner.Summary{
		Strategy:     "default",
		Provider:     "mock",
		Model:        "m1",
		Mode:         "batch",
		ArtifactPath: "/out/default_batch_mock_m1_20260829.json",
		Overall: stats.OverallStats{
			TotalFiles:        10,
			NumSuccess:        9,
			NumFailed:         1,
			TotalActualTokens: 123456,
		},
		Retry: stats.RetryStats{NumFilesHadRetry: 2},
	}
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	report.WriteSummary(&buf, sampleSummary())

	out := buf.String()
	assert.Contains(t, out, "mock")
	assert.Contains(t, out, "123,456")
	assert.Contains(t, out, "/out/default_batch_mock_m1_20260829.json")
}

func TestWriteSummaryWithBenchmark(t *testing.T) {
	t.Parallel()

	summary := sampleSummary()
	summary.Benchmark = &stats.BenchmarkComparison{
		TotalFiles:           10,
		TotalFields:          40,
		TotalUnmatchedFields: 4,
		TotalUnmatchedFiles:  2,
		InvalidFieldsPercent: 10,
		InvalidFilesPercent:  20,
	}

	var buf bytes.Buffer
	report.WriteSummary(&buf, summary)

	assert.Contains(t, buf.String(), "4/40 fields unmatched")
}

func TestWriteComboSummaryWithFailure(t *testing.T) {
	t.Parallel()

	results := []combo.StrategyResult{
		{Strategy: config.StrategyConfig{Provider: "mock", Model: "m1"}, Summary: sampleSummary()},
		{Strategy: config.StrategyConfig{Provider: "mock", Model: "m2"}, Err: errors.New("boom")},
	}

	var buf bytes.Buffer
	report.WriteComboSummary(&buf, results)

	out := buf.String()
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "1 of 2 strategies failed")
}
