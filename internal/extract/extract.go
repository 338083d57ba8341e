// Package extract defines the provider-neutral request and result model for
// document field extraction.
package extract

import (
	"context"

	"github.com/docarena/docarena/internal/source"
)

// ErrNoResult is the model output recorded for a file the provider never
// answered for.
const ErrNoResult = "No result returned for this file"

// TokenUsage tracks token consumption for one call or one file.
type TokenUsage struct {
	PromptTokens    int `json:"prompt_tokens"`
	CandidateTokens int `json:"candidates_tokens"`
	TotalTokens     int `json:"actual_tokens"`
}

// Other returns the tokens not attributed to prompt or candidates.
func (u TokenUsage) Other() int {
	other := u.TotalTokens - u.PromptTokens - u.CandidateTokens
	if other < 0 {
		return 0
	}

	return other
}

// Add accumulates another usage into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CandidateTokens += other.CandidateTokens
	u.TotalTokens += other.TotalTokens
}

// Record is the extraction result for a single document. Either Fields or
// Err is meaningful, never both.
type Record struct {
	// Identifier is whatever the provider echoed back to name the document:
	// a full path, a base name, or a bare stem.
	Identifier string

	// Fields holds the extracted key/value pairs.
	Fields map[string]any

	// Usage is the token consumption attributed to this document.
	Usage TokenUsage

	// Err is a provider-reported failure for this document.
	Err string
}

// Failed reports whether the record carries an error instead of fields.
func (r Record) Failed() bool {
	return r.Err != ""
}

// ErrorRecord builds a failure record for the given identifier.
func ErrorRecord(identifier, msg string) Record {
	return Record{Identifier: identifier, Err: msg}
}

// Request is one provider call covering one or more documents.
type Request struct {
	// GroupID names the dispatch group this call belongs to.
	GroupID string

	// Files are the documents covered by the call.
	Files []source.File

	// Prompt is the extraction instruction sent with the documents.
	Prompt string

	// Mode selects the provider-side processing pipeline.
	Mode string
}

// Extractor is implemented by provider clients.
type Extractor interface {
	// Call sends the request and returns one record per answered document.
	// The returned slice may be shorter than the request file list; callers
	// reconcile the difference.
	Call(ctx context.Context, req Request) ([]Record, error)

	// Name identifies the provider for logging and grouping.
	Name() string
}
