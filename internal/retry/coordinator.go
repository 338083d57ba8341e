// Package retry coordinates content retry rounds for files whose extraction
// came back with mandatory fields missing.
package retry

import (
	"log/slog"

	"github.com/docarena/docarena/internal/extract"
	"github.com/docarena/docarena/internal/source"
)

// DefaultMaxRounds bounds how many content retry rounds a run executes.
const DefaultMaxRounds = 2

// Entry is one file waiting for a retry round.
type Entry struct {
	// File is the document to resend.
	File source.File

	// Record is the latest (deficient) result for the file.
	Record extract.Record

	// MissingKeys are the mandatory fields the record lacked.
	MissingKeys []string
}

// Coordinator collects retry candidates during a round and hands them back
// for the next one.
type Coordinator struct {
	maxRounds int
	round     int
	pending   []Entry
	logger    *slog.Logger

	// candidates counts every file that ever entered the retry arena.
	candidates map[string]bool

	// retried counts files that were actually resent at least once.
	retried map[string]bool

	// exhausted counts files still deficient when the round budget ran out.
	exhausted map[string]bool
}

// NewCoordinator creates a coordinator bounded to maxRounds content retries.
// A negative bound falls back to the default.
func NewCoordinator(maxRounds int, logger *slog.Logger) *Coordinator {
	if maxRounds < 0 {
		maxRounds = DefaultMaxRounds
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		maxRounds:  maxRounds,
		logger:     logger,
		candidates: make(map[string]bool),
		retried:    make(map[string]bool),
		exhausted:  make(map[string]bool),
	}
}

// Enqueue registers a file for the next retry round.
func (c *Coordinator) Enqueue(entry Entry) {
	c.candidates[entry.File.Path] = true
	c.pending = append(c.pending, entry)
}

// MarkExhausted records a file that stayed deficient after the final round.
func (c *Coordinator) MarkExhausted(path string) {
	c.exhausted[path] = true
}

// RoundsLeft returns how many retry rounds remain after the current one.
func (c *Coordinator) RoundsLeft() int {
	return c.maxRounds - c.round
}

// Round returns the current round number. Zero is the first pass.
func (c *Coordinator) Round() int {
	return c.round
}

// NextRound advances to the next round and returns the files to resend.
// It returns nil when nothing is pending or the round budget is spent.
func (c *Coordinator) NextRound() []source.File {
	if len(c.pending) == 0 || c.RoundsLeft() <= 0 {
		return nil
	}

	c.round++

	files := make([]source.File, 0, len(c.pending))
	for _, entry := range c.pending {
		c.retried[entry.File.Path] = true
		files = append(files, entry.File)
	}

	c.logger.Info("starting retry round",
		"round", c.round,
		"files", len(files),
		"rounds_left", c.RoundsLeft())

	c.pending = nil

	return files
}

// Stats summarizes retry activity for the run artifact.
type Stats struct {
	// Candidates is the number of files that ever needed a retry.
	Candidates int

	// Retried is the number of files that were actually resent.
	Retried int

	// ExhaustedFailures is the number of files still deficient after the
	// final round.
	ExhaustedFailures int
}

// Stats returns the retry tallies.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Candidates:        len(c.candidates),
		Retried:           len(c.retried),
		ExhaustedFailures: len(c.exhausted),
	}
}
