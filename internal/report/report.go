// Package report renders run summaries for the console.
package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/docarena/docarena/internal/combo"
	"github.com/docarena/docarena/internal/runner"
)

// WriteSummary renders one run summary as a table.
func WriteSummary(w io.Writer, summary *runner.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Strategy", "Provider", "Model", "Mode", "Files", "Success", "Failed", "Retried", "Tokens", "Cost"})
	t.AppendRow(summaryRow(summary))

	t.Render()

	if summary.Benchmark != nil {
		fmt.Fprintf(w, "benchmark: %d/%d fields unmatched (%.2f%%), %d/%d files unmatched (%.2f%%)\n",
			summary.Benchmark.TotalUnmatchedFields,
			summary.Benchmark.TotalFields,
			summary.Benchmark.InvalidFieldsPercent,
			summary.Benchmark.TotalUnmatchedFiles,
			summary.Benchmark.TotalFiles,
			summary.Benchmark.InvalidFilesPercent)
	}

	fmt.Fprintf(w, "artifact: %s\n", summary.ArtifactPath)
}

// WriteComboSummary renders every strategy execution of a combo run.
func WriteComboSummary(w io.Writer, results []combo.StrategyResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Strategy", "Provider", "Model", "Mode", "Files", "Success", "Failed", "Retried", "Tokens", "Cost"})

	failed := 0

	for _, result := range results {
		if result.Err != nil {
			failed++

			t.AppendRow(table.Row{
				result.Strategy.Approach,
				result.Strategy.Provider,
				result.Strategy.Model,
				result.Strategy.Mode,
				"-", "-", "-", "-", "-",
				color.RedString("error: %v", result.Err),
			})

			continue
		}

		t.AppendRow(summaryRow(result.Summary))
	}

	t.Render()

	if failed > 0 {
		fmt.Fprintln(w, color.RedString("%d of %d strategies failed", failed, len(results)))

		return
	}

	fmt.Fprintln(w, color.GreenString("all %d strategies completed", len(results)))
}

func summaryRow(summary *runner.Summary) table.Row {
	cost := "-"
	if summary.Cost != nil {
		cost = fmt.Sprintf("$%.4f", summary.Cost.TotalTokenCost)
	}

	status := color.GreenString("%d", summary.Overall.NumSuccess)
	if summary.Overall.NumFailed > 0 {
		status = color.YellowString("%d", summary.Overall.NumSuccess)
	}

	return table.Row{
		summary.Strategy,
		summary.Provider,
		summary.Model,
		summary.Mode,
		summary.Overall.TotalFiles,
		status,
		summary.Overall.NumFailed,
		summary.Retry.NumFilesHadRetry,
		humanize.Comma(int64(summary.Overall.TotalActualTokens)),
		cost,
	}
}
