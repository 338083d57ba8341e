package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docarena/docarena/internal/extract"
)

// Defaults for transport-level retries. These are independent of content
// retry rounds: a call that fails here never reached a usable answer.
const (
	// DefaultMaxAttempts is how many times a call is tried before giving up.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the backoff unit. Attempt N waits base * 2^N.
	DefaultBaseDelay = time.Second
)

// retrying wraps an extractor with bounded exponential-backoff retries.
type retrying struct {
	inner       extract.Extractor
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// WithRetry wraps an extractor so transient call failures are retried with
// exponential backoff. Non-positive settings fall back to the defaults.
func WithRetry(inner extract.Extractor, maxAttempts int, baseDelay time.Duration, logger *slog.Logger) extract.Extractor {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &retrying{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

// Name implements extract.Extractor.
func (r *retrying) Name() string {
	return r.inner.Name()
}

// Call implements extract.Extractor. The context aborts both the call in
// flight and any backoff wait.
func (r *retrying) Call(ctx context.Context, req extract.Request) ([]extract.Record, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		records, err := r.inner.Call(ctx, req)
		if err == nil {
			return records, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			break
		}

		if attempt == r.maxAttempts-1 {
			break
		}

		delay := r.baseDelay * (1 << attempt)

		r.logger.Warn("provider call failed, backing off",
			"provider", r.inner.Name(),
			"group", req.GroupID,
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("call aborted: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("call failed after %d attempts: %w", r.maxAttempts, lastErr)
}
