package benchmark_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docarena/docarena/internal/benchmark"
)

const referenceCSV = `file_name,DOC_TYPE,TOTAL
invoice_001.pdf,NFe,199.90
receipt_002.pdf,Recibo,50.00
`

func writeReference(t *testing.T) *benchmark.Reference {
	t.Helper()

	path := filepath.Join(t.TempDir(), "reference.csv")
	require.NoError(t, os.WriteFile(path, []byte(referenceCSV), 0o600))

	ref, err := benchmark.LoadReference(path, "")
	require.NoError(t, err)

	return ref
}

func TestLoadReference(t *testing.T) {
	t.Parallel()

	ref := writeReference(t)
	assert.Equal(t, 2, ref.Len())
	assert.Equal(t, []string{"DOC_TYPE", "TOTAL"}, ref.Fields)
}

func TestLoadReferenceMissingKeyColumn(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600))

	_, err := benchmark.LoadReference(path, "")
	assert.ErrorIs(t, err, benchmark.ErrNoKeyColumn)
}

func TestLookupTiers(t *testing.T) {
	t.Parallel()

	ref := writeReference(t)

	// Exact base name, full path input.
	row, ok := ref.Lookup("/in/invoice_001.pdf")
	require.True(t, ok)
	assert.Equal(t, "NFe", row["DOC_TYPE"])

	// Stem match with a different extension.
	_, ok = ref.Lookup("invoice_001.png")
	assert.True(t, ok)

	// Fuzzy match one character off.
	_, ok = ref.Lookup("invoice_O01.pdf")
	assert.True(t, ok)

	// No plausible match.
	_, ok = ref.Lookup("completely_different.pdf")
	assert.False(t, ok)
}

func TestCompareOutcomes(t *testing.T) {
	t.Parallel()

	comparator := benchmark.NewComparator(writeReference(t), nil)

	summary, comparisons := comparator.Compare(map[string]map[string]any{
		"/in/invoice_001.pdf": {"DOC_TYPE": "NFe", "TOTAL": "199.90"},
		"/in/receipt_002.pdf": {"DOC_TYPE": "Recibo", "TOTAL": "49.99"},
	})

	assert.Equal(t, 2, summary.TotalFiles)
	assert.Equal(t, 4, summary.TotalFields)
	assert.Equal(t, 1, summary.TotalUnmatchedFields)
	assert.Equal(t, 1, summary.TotalUnmatchedFiles)
	assert.InDelta(t, 25.0, summary.InvalidFieldsPercent, 0.001)
	assert.InDelta(t, 50.0, summary.InvalidFilesPercent, 0.001)

	require.Len(t, comparisons, 2)
	assert.Equal(t, benchmark.ReasonValueMismatch, comparisons[1].Unmatched["TOTAL"])
}

func TestCompareMissingValue(t *testing.T) {
	t.Parallel()

	comparator := benchmark.NewComparator(writeReference(t), nil)

	_, comparisons := comparator.Compare(map[string]map[string]any{
		"/in/invoice_001.pdf": {"DOC_TYPE": "NFe", "TOTAL": "Not found"},
	})

	require.Len(t, comparisons, 1)
	assert.Equal(t, benchmark.ReasonMissingValue, comparisons[0].Unmatched["TOTAL"])
}

func TestCompareSkipsExemptDocType(t *testing.T) {
	t.Parallel()

	comparator := benchmark.NewComparator(writeReference(t), nil)

	// Documents classified "Outros" are excluded from the comparison.
	summary, comparisons := comparator.Compare(map[string]map[string]any{
		"/in/invoice_001.pdf": {"DOC_TYPE": "Outros"},
	})

	assert.Zero(t, summary.TotalFiles)
	assert.Zero(t, summary.TotalFields)
	assert.Zero(t, summary.TotalUnmatchedFields)
	assert.Zero(t, summary.TotalUnmatchedFiles)
	assert.Empty(t, comparisons)
}

func TestReferenceAgrees(t *testing.T) {
	t.Parallel()

	ref := writeReference(t)

	assert.True(t, ref.Agrees("/in/invoice_001.pdf", map[string]any{"DOC_TYPE": "NFe", "TOTAL": "199.90"}))
	assert.False(t, ref.Agrees("/in/invoice_001.pdf", map[string]any{"DOC_TYPE": "NFe", "TOTAL": "200.00"}))
	assert.True(t, ref.Agrees("/in/unlisted.pdf", map[string]any{"DOC_TYPE": "NFe"}))
}

func TestCompareFileWithoutReferenceRow(t *testing.T) {
	t.Parallel()

	comparator := benchmark.NewComparator(writeReference(t), nil)

	summary, comparisons := comparator.Compare(map[string]map[string]any{
		"/in/unknown.pdf": {"DOC_TYPE": "NFe"},
	})

	assert.Equal(t, 1, summary.TotalUnmatchedFiles)
	assert.False(t, comparisons[0].Found)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", benchmark.Normalize(nil))
	assert.Equal(t, "", benchmark.Normalize("null"))
	assert.Equal(t, "", benchmark.Normalize("None"))
	assert.Equal(t, "", benchmark.Normalize("Not found"))
	assert.Equal(t, "199.90", benchmark.Normalize(" 199.90 "))
	assert.Equal(t, "42", benchmark.Normalize(42))
}

func TestWriteErrorReport(t *testing.T) {
	t.Parallel()

	comparator := benchmark.NewComparator(writeReference(t), nil)

	_, comparisons := comparator.Compare(map[string]map[string]any{
		"/in/invoice_001.pdf": {"DOC_TYPE": "NFe", "TOTAL": "0.01"},
		"/in/unknown.pdf":     {},
	})

	path := filepath.Join(t.TempDir(), "errors.csv")
	require.NoError(t, benchmark.WriteErrorReport(path, comparisons))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "value_mismatch")
	assert.Contains(t, lines[2], "no_reference_row")
}
