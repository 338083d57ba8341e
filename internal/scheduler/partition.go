// Package scheduler partitions input files into dispatch groups and runs
// them against a provider.
package scheduler

import (
	"fmt"

	"github.com/docarena/docarena/internal/source"
)

// DefaultMaxFilesPerGroup bounds how many documents share one provider call.
const DefaultMaxFilesPerGroup = 4

// estimateBytesPerToken is the rough byte-to-token ratio used before a
// provider reports real usage.
const estimateBytesPerToken = 4

// Group is one dispatch unit.
type Group struct {
	// ID is the stable group identifier recorded in artifacts.
	ID string

	// Index is the group's position within its round.
	Index int

	// Round is 0 for the first pass and N for retry round N.
	Round int

	// Files are the documents in the group.
	Files []source.File
}

// EstimatedTokens returns the pre-dispatch token estimate for the group.
func (g Group) EstimatedTokens() int {
	total := 0
	for _, file := range g.Files {
		total += EstimateTokens(file)
	}

	return total
}

// EstimateTokens approximates the token cost of sending one file.
func EstimateTokens(file source.File) int {
	return int(file.SizeBytes / estimateBytesPerToken)
}

// Partition splits files into first-pass groups of at most maxPerGroup.
// Group IDs embed the lot timestamp: {lot}_group_{i}.
func Partition(files []source.File, lot string, maxPerGroup int) []Group {
	return partition(files, maxPerGroup, 0, func(index int) string {
		return fmt.Sprintf("%s_group_%d", lot, index)
	})
}

// PartitionRetry splits files into groups for retry round N (1-based).
// Group IDs follow {lot}_retry_{N}_group_{i}.
func PartitionRetry(files []source.File, lot string, round, maxPerGroup int) []Group {
	return partition(files, maxPerGroup, round, func(index int) string {
		return fmt.Sprintf("%s_retry_%d_group_%d", lot, round, index)
	})
}

func partition(files []source.File, maxPerGroup, round int, idFor func(int) string) []Group {
	if maxPerGroup <= 0 {
		maxPerGroup = DefaultMaxFilesPerGroup
	}

	var groups []Group

	for start := 0; start < len(files); start += maxPerGroup {
		end := min(start+maxPerGroup, len(files))

		index := len(groups)
		groups = append(groups, Group{
			ID:    idFor(index),
			Index: index,
			Round: round,
			Files: files[start:end],
		})
	}

	return groups
}
