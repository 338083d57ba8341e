package runner

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/docarena/docarena/internal/stats"
)

// csvHeader is the column order of the per-file CSV mirror.
var csvHeader = []string{
	"file_name",
	"file_path",
	"success",
	"retry_round",
	"failure_reason",
	"prompt_tokens",
	"candidates_tokens",
	"actual_tokens",
	"other_tokens",
	"estimated_tokens",
	"group_ids",
	"model_output",
}

// csvRows flattens the artifact's file stats into the CSV mirror rows.
func csvRows(artifact *stats.Artifact) [][]string {
	paths := make([]string, 0, len(artifact.FileStats))
	for path := range artifact.FileStats {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	rows := make([][]string, 0, len(paths)+1)
	rows = append(rows, csvHeader)

	for _, path := range paths {
		stat := artifact.FileStats[path]

		output := ""
		if stat.ModelOutput != nil {
			encoded, err := json.Marshal(stat.ModelOutput)
			if err == nil {
				output = string(encoded)
			}
		}

		rows = append(rows, []string{
			stat.Info.FileName,
			path,
			strconv.FormatBool(stat.ProcessResult.Success),
			strconv.Itoa(stat.ProcessResult.RetryRound),
			stat.ProcessResult.FailureReason,
			strconv.Itoa(stat.TokenStats.PromptTokens),
			strconv.Itoa(stat.TokenStats.CandidatesTokens),
			strconv.Itoa(stat.TokenStats.ActualTokens),
			strconv.Itoa(stat.TokenStats.OtherTokens),
			strconv.Itoa(stat.TokenStats.EstimatedTokens),
			strings.Join(stat.ProcessResult.GroupIDs, "|"),
			output,
		})
	}

	return rows
}
