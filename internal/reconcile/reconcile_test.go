package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docarena/docarena/internal/extract"
	"github.com/docarena/docarena/internal/reconcile"
	"github.com/docarena/docarena/internal/source"
)

func fileFor(path string) source.File {
	return source.FromPaths([]string{path})[0]
}

func TestAssignExactMatch(t *testing.T) {
	t.Parallel()

	files := []source.File{fileFor("/in/invoice_001.pdf")}
	records := []extract.Record{{Identifier: "/in/invoice_001.pdf", Fields: map[string]any{"DOC_TYPE": "NFe"}}}

	assigned := reconcile.New(nil, nil).Assign(files, records)
	require.Len(t, assigned, 1)
	assert.Equal(t, "NFe", assigned["/in/invoice_001.pdf"].Fields["DOC_TYPE"])
}

func TestAssignFuzzyMatch(t *testing.T) {
	t.Parallel()

	files := []source.File{fileFor("/in/invoice_001.pdf")}
	// One character off from the base name.
	records := []extract.Record{{Identifier: "invoice_O01.pdf", Fields: map[string]any{"DOC_TYPE": "NFe"}}}

	assigned := reconcile.New(nil, nil).Assign(files, records)
	require.Len(t, assigned, 1)
	assert.False(t, assigned["/in/invoice_001.pdf"].Failed())
}

func TestAssignStemMatch(t *testing.T) {
	t.Parallel()

	files := []source.File{fileFor("/in/contract-2024.pdf")}
	records := []extract.Record{{Identifier: "contract-2024_extracted", Fields: map[string]any{"k": "v"}}}

	assigned := reconcile.New(nil, nil).Assign(files, records)
	assert.False(t, assigned["/in/contract-2024.pdf"].Failed())
}

func TestAssignMatchesCaseInsensitively(t *testing.T) {
	t.Parallel()

	files := []source.File{fileFor("/in/invoice_042.pdf")}
	// Providers sometimes echo the identifier upper-cased.
	records := []extract.Record{{Identifier: "INVOICE_042.PDF", Fields: map[string]any{"DOC_TYPE": "NFe"}}}

	assigned := reconcile.New(nil, nil).Assign(files, records)
	require.Len(t, assigned, 1)
	assert.False(t, assigned["/in/invoice_042.pdf"].Failed())
	assert.Equal(t, "NFe", assigned["/in/invoice_042.pdf"].Fields["DOC_TYPE"])
}

func TestAssignMissingRecordGetsError(t *testing.T) {
	t.Parallel()

	files := []source.File{fileFor("/in/a.pdf"), fileFor("/in/b.pdf")}
	records := []extract.Record{{Identifier: "/in/a.pdf", Fields: map[string]any{"k": "v"}}}

	assigned := reconcile.New(nil, nil).Assign(files, records)
	require.Len(t, assigned, 2)
	assert.False(t, assigned["/in/a.pdf"].Failed())
	assert.True(t, assigned["/in/b.pdf"].Failed())
	assert.Equal(t, extract.ErrNoResult, assigned["/in/b.pdf"].Err)
}

func TestAssignNeverLosesFiles(t *testing.T) {
	t.Parallel()

	files := []source.File{fileFor("/in/a.pdf"), fileFor("/in/b.pdf"), fileFor("/in/c.pdf")}

	assigned := reconcile.New(nil, nil).Assign(files, nil)
	assert.Len(t, assigned, len(files))
}

func TestAssignDoesNotDoubleClaim(t *testing.T) {
	t.Parallel()

	files := []source.File{fileFor("/in/a.pdf"), fileFor("/in/b.pdf")}
	records := []extract.Record{
		{Identifier: "/in/a.pdf", Fields: map[string]any{"n": 1}},
		{Identifier: "/in/b.pdf", Fields: map[string]any{"n": 2}},
	}

	assigned := reconcile.New(nil, nil).Assign(files, records)
	assert.Equal(t, 1, assigned["/in/a.pdf"].Fields["n"])
	assert.Equal(t, 2, assigned["/in/b.pdf"].Fields["n"])
}

func TestDerivedMapperResolvesConvertedPaths(t *testing.T) {
	t.Parallel()

	mapper := reconcile.NewDerivedMapper(map[string]string{
		"/tmp/work/doc_page_1.png": "/in/doc.pdf",
	})

	assert.Equal(t, "/in/doc.pdf", mapper.Original("/tmp/work/doc_page_1.png"))
	assert.Equal(t, "/in/doc.pdf", mapper.Original("/elsewhere/doc_page_1.png"))
	assert.Equal(t, "/in/other.pdf", mapper.Original("/in/other.pdf"))
}

func TestAssignWithDerivedMapperKeysOriginalPaths(t *testing.T) {
	t.Parallel()

	mapper := reconcile.NewDerivedMapper(map[string]string{
		"/tmp/work/doc.txt": "/in/doc.pdf",
	})

	files := []source.File{fileFor("/tmp/work/doc.txt")}
	records := []extract.Record{{Identifier: "/tmp/work/doc.txt", Fields: map[string]any{"k": "v"}}}

	assigned := reconcile.New(mapper, nil).Assign(files, records)
	require.Contains(t, assigned, "/in/doc.pdf")
	assert.False(t, assigned["/in/doc.pdf"].Failed())
}
