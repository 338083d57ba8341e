package provider

import (
	"context"
	"time"

	"github.com/docarena/docarena/internal/extract"
)

// timed bounds every call with a deadline. Wrap it inside WithRetry so each
// attempt gets a fresh budget.
type timed struct {
	inner   extract.Extractor
	timeout time.Duration
}

// WithTimeout wraps an extractor so each call is bounded by the given
// duration. A non-positive timeout returns the extractor unchanged.
func WithTimeout(inner extract.Extractor, timeout time.Duration) extract.Extractor {
	if timeout <= 0 {
		return inner
	}

	return &timed{inner: inner, timeout: timeout}
}

// Name implements extract.Extractor.
func (t *timed) Name() string {
	return t.inner.Name()
}

// Call implements extract.Extractor.
func (t *timed) Call(ctx context.Context, req extract.Request) ([]extract.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	return t.inner.Call(ctx, req)
}
