package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/docarena/docarena/internal/extract"
	"github.com/docarena/docarena/internal/metrics"
	"github.com/docarena/docarena/internal/source"
)

// Dispatch modes.
const (
	// ModeParallel sends one provider call per file, concurrently.
	ModeParallel = "parallel"

	// ModeBatch sends one provider call per group.
	ModeBatch = "batch"
)

// DefaultParallelWorkers bounds in-group concurrency for parallel mode.
const DefaultParallelWorkers = 4

// tracerName is the OTel tracer name for dispatch spans.
const tracerName = "docarena"

// Result is the outcome of dispatching one group.
type Result struct {
	// Group is the dispatched group.
	Group Group

	// Records holds the raw provider records, prior to reconciliation.
	Records []extract.Record

	// SubmittedAt is when the first provider call went out.
	SubmittedAt time.Time

	// Elapsed is the wall time the group took end to end.
	Elapsed time.Duration
}

// Dispatcher runs groups against a single extractor.
type Dispatcher struct {
	// Extractor is the provider client receiving the calls.
	Extractor extract.Extractor

	// Mode is ModeParallel or ModeBatch.
	Mode string

	// Prompt is the extraction instruction attached to each request.
	Prompt string

	// Workers bounds concurrency in parallel mode. Zero means the default.
	Workers int

	// Tracer creates dispatch spans. When nil, the global provider is used.
	Tracer trace.Tracer

	// Metrics receives dispatch counters. When nil, instrumentation is off.
	Metrics *metrics.Metrics

	// Logger receives dispatch progress. When nil, slog.Default is used.
	Logger *slog.Logger
}

// Dispatch sends a group to the provider and collects its records. Call
// failures never surface as an error: every failed file yields an error
// record so downstream accounting keeps the full file set.
func (d *Dispatcher) Dispatch(ctx context.Context, group Group) Result {
	ctx, span := d.tracer().Start(ctx, "docarena.dispatch",
		trace.WithAttributes(
			attribute.String("group.id", group.ID),
			attribute.Int("group.files", len(group.Files)),
			attribute.String("dispatch.mode", d.Mode),
		))
	defer span.End()

	if d.Metrics != nil {
		d.Metrics.GroupsDispatched.WithLabelValues(d.Mode).Inc()
	}

	start := time.Now()

	var records []extract.Record

	switch d.Mode {
	case ModeParallel:
		records = d.dispatchParallel(ctx, group)
	default:
		records = d.dispatchBatch(ctx, group)
	}

	elapsed := time.Since(start)

	if d.Metrics != nil {
		d.Metrics.CallDuration.WithLabelValues(d.Extractor.Name()).Observe(elapsed.Seconds())
	}

	d.logger().Info("group dispatched",
		"group", group.ID,
		"files", len(group.Files),
		"records", len(records),
		"elapsed", elapsed)

	return Result{
		Group:       group,
		Records:     records,
		SubmittedAt: start,
		Elapsed:     elapsed,
	}
}

// dispatchBatch issues a single call covering every file in the group.
func (d *Dispatcher) dispatchBatch(ctx context.Context, group Group) []extract.Record {
	records, err := d.Extractor.Call(ctx, extract.Request{
		GroupID: group.ID,
		Files:   group.Files,
		Prompt:  d.Prompt,
		Mode:    d.Mode,
	})
	if err != nil {
		d.logger().Error("group call failed", "group", group.ID, "error", err)

		return errorRecords(group.Files, err)
	}

	return records
}

// dispatchParallel issues one call per file through a bounded worker pool.
func (d *Dispatcher) dispatchParallel(ctx context.Context, group Group) []extract.Record {
	workers := d.Workers
	if workers <= 0 {
		workers = DefaultParallelWorkers
	}

	if workers > len(group.Files) {
		workers = len(group.Files)
	}

	work := make(chan source.File)
	out := make([]extract.Record, 0, len(group.Files))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for file := range work {
				records := d.callOne(ctx, group.ID, file)

				mu.Lock()
				out = append(out, records...)
				mu.Unlock()
			}
		}()
	}

	for _, file := range group.Files {
		work <- file
	}

	close(work)
	wg.Wait()

	return out
}

func (d *Dispatcher) callOne(ctx context.Context, groupID string, file source.File) []extract.Record {
	records, err := d.Extractor.Call(ctx, extract.Request{
		GroupID: groupID,
		Files:   []source.File{file},
		Prompt:  d.Prompt,
		Mode:    ModeParallel,
	})
	if err != nil {
		d.logger().Error("file call failed", "group", groupID, "file", file.Path, "error", err)

		return errorRecords([]source.File{file}, err)
	}

	return records
}

func (d *Dispatcher) tracer() trace.Tracer {
	if d.Tracer != nil {
		return d.Tracer
	}

	return otel.Tracer(tracerName)
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	return slog.Default()
}

// errorRecords expands a call-level failure into one record per file.
func errorRecords(files []source.File, err error) []extract.Record {
	records := make([]extract.Record, 0, len(files))
	for _, file := range files {
		records = append(records, extract.ErrorRecord(file.Path, fmt.Sprintf("provider call failed: %v", err)))
	}

	return records
}
