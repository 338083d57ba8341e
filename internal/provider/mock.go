package provider

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/docarena/docarena/internal/extract"
)

// mockName is the registered name of the scripted test provider.
const mockName = "mock"

// defaultMockUsage is reported when a script entry carries no usage.
var defaultMockUsage = extract.TokenUsage{PromptTokens: 100, CandidateTokens: 50, TotalTokens: 160}

// Mock is a deterministic extractor driven by a per-file script. It backs
// tests and dry runs where no provider backend is available.
type Mock struct {
	name string

	mu sync.Mutex

	// Script maps a file base name to the fields to answer with. Files
	// absent from the script get an empty field set.
	Script map[string]map[string]any

	// FailFirst makes the first FailFirst calls return ErrMockFailure.
	FailFirst int

	calls int
}

// ErrMockFailure is returned by the mock's scripted transient failures.
var ErrMockFailure = &mockError{}

type mockError struct{}

func (*mockError) Error() string { return "scripted mock failure" }

// NewMock creates a scripted extractor.
func NewMock(script map[string]map[string]any) *Mock {
	return &Mock{name: mockName, Script: script}
}

// Name implements extract.Extractor.
func (m *Mock) Name() string {
	return m.name
}

// Calls returns how many times Call ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}

// Call implements extract.Extractor.
func (m *Mock) Call(_ context.Context, req extract.Request) ([]extract.Record, error) {
	m.mu.Lock()
	m.calls++

	if m.calls <= m.FailFirst {
		m.mu.Unlock()

		return nil, ErrMockFailure
	}
	m.mu.Unlock()

	records := make([]extract.Record, 0, len(req.Files))

	for _, file := range req.Files {
		fields, ok := m.Script[filepath.Base(file.Path)]
		if !ok {
			fields = map[string]any{}
		}

		records = append(records, extract.Record{
			Identifier: file.Path,
			Fields:     fields,
			Usage:      defaultMockUsage,
		})
	}

	return records, nil
}

func init() {
	Register(mockName, func(_ Options) (extract.Extractor, error) {
		return NewMock(nil), nil
	})

	for _, name := range []string{"openai", "gemini", "anthropic", "mistral"} {
		Register(name, func(opts Options) (extract.Extractor, error) {
			return NewHTTP(opts.Provider, opts)
		})
	}
}
