package benchmark

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/docarena/docarena/internal/stats"
	"github.com/docarena/docarena/internal/validate"
)

// Unmatched-field reasons recorded in file comparisons.
const (
	// ReasonValueMismatch marks a field whose extracted value differs from
	// the reference.
	ReasonValueMismatch = "value_mismatch"

	// ReasonMissingValue marks a field the extraction left unfilled while
	// the reference expects a value.
	ReasonMissingValue = "missing_value"
)

// nullForms are values normalized to an empty string before comparison.
var nullForms = map[string]bool{
	"":          true,
	"null":      true,
	"none":      true,
	"nil":       true,
	"not found": true,
}

// FileComparison is the per-file benchmark result.
type FileComparison struct {
	// File is the document path the outputs were recorded under.
	File string

	// Found reports whether a reference row matched the document.
	Found bool

	// Unmatched maps field name to the failure reason.
	Unmatched map[string]string

	// Expected and Actual hold the normalized values for unmatched fields.
	Expected map[string]string
	Actual   map[string]string
}

// Comparator runs outputs against a reference dataset.
type Comparator struct {
	reference *Reference
	policy    validate.Policy
	logger    *slog.Logger
}

// NewComparator creates a comparator over the given reference.
func NewComparator(reference *Reference, logger *slog.Logger) *Comparator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Comparator{reference: reference, policy: validate.NewPolicy(nil), logger: logger}
}

// Compare checks every output against the reference and aggregates the
// comparison block. Outputs maps document path to extracted fields.
func (c *Comparator) Compare(outputs map[string]map[string]any) (stats.BenchmarkComparison, []FileComparison) {
	var (
		summary     stats.BenchmarkComparison
		comparisons []FileComparison
	)

	paths := make([]string, 0, len(outputs))
	for path := range outputs {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	for _, path := range paths {
		if c.policy.Exempt(outputs[path]) {
			c.logger.Debug("skipping exempt document type", "file", path)

			continue
		}

		comparison := c.compareFile(path, outputs[path])
		comparisons = append(comparisons, comparison)

		summary.TotalFiles++
		summary.TotalFields += len(c.reference.Fields)
		summary.TotalUnmatchedFields += len(comparison.Unmatched)

		if !comparison.Found || len(comparison.Unmatched) > 0 {
			summary.TotalUnmatchedFiles++
		}
	}

	if summary.TotalFields > 0 {
		summary.InvalidFieldsPercent = round2(100 * float64(summary.TotalUnmatchedFields) / float64(summary.TotalFields))
	}

	if summary.TotalFiles > 0 {
		summary.InvalidFilesPercent = round2(100 * float64(summary.TotalUnmatchedFiles) / float64(summary.TotalFiles))
	}

	return summary, comparisons
}

func (c *Comparator) compareFile(path string, fields map[string]any) FileComparison {
	comparison := FileComparison{
		File:      path,
		Unmatched: make(map[string]string),
		Expected:  make(map[string]string),
		Actual:    make(map[string]string),
	}

	expected, found := c.reference.Lookup(path)
	if !found {
		c.logger.Warn("no reference row for file", "file", path)

		return comparison
	}

	comparison.Found = true

	for _, field := range c.reference.Fields {
		want := Normalize(expected[field])
		got := Normalize(fields[field])

		if want == got {
			continue
		}

		reason := ReasonValueMismatch
		if got == "" {
			reason = ReasonMissingValue
		}

		comparison.Unmatched[field] = reason
		comparison.Expected[field] = want
		comparison.Actual[field] = got
	}

	return comparison
}

// Normalize collapses null-like values to the empty string and trims the
// rest, so "Not found" and a genuinely empty field compare equal.
func Normalize(value any) string {
	if value == nil {
		return ""
	}

	text := strings.TrimSpace(fmt.Sprint(value))
	if nullForms[strings.ToLower(text)] {
		return ""
	}

	return text
}

// WriteErrorReport writes one CSV row per unmatched field.
func WriteErrorReport(path string, comparisons []FileComparison) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create error report: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	writeErr := writer.Write([]string{"file", "field", "reason", "expected", "actual"})
	if writeErr != nil {
		return fmt.Errorf("write error report header: %w", writeErr)
	}

	for _, comparison := range comparisons {
		if !comparison.Found {
			rowErr := writer.Write([]string{comparison.File, "", "no_reference_row", "", ""})
			if rowErr != nil {
				return fmt.Errorf("write error report row: %w", rowErr)
			}

			continue
		}

		fields := make([]string, 0, len(comparison.Unmatched))
		for field := range comparison.Unmatched {
			fields = append(fields, field)
		}

		sort.Strings(fields)

		for _, field := range fields {
			rowErr := writer.Write([]string{
				comparison.File,
				field,
				comparison.Unmatched[field],
				comparison.Expected[field],
				comparison.Actual[field],
			})
			if rowErr != nil {
				return fmt.Errorf("write error report row: %w", rowErr)
			}
		}
	}

	writer.Flush()

	if flushErr := writer.Error(); flushErr != nil {
		return fmt.Errorf("flush error report: %w", flushErr)
	}

	return nil
}

func round2(value float64) float64 {
	return float64(int(value*100+0.5)) / 100
}
