// Package runner sequences one run: load the reports, aggregate them, print the
// summary and hand the summary to every publisher.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-lgtm/aggregate"
	"github.com/ethereum-optimism/infra/op-lgtm/publish"
	"github.com/ethereum-optimism/infra/op-lgtm/reporting"
	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

// ErrNoReports is returned when none of the report locations exist
var ErrNoReports = errors.New("no test results found")

// ReportLoader returns the reports found for a run, keyed by source label
type ReportLoader interface {
	Load() (map[string]*types.ReportDocument, error)
}

// Config holds configuration for creating a new runner
type Config struct {
	Loader          ReportLoader
	Aggregator      *aggregate.Aggregator // defaults to the standard classification rules
	Publishers      []publish.Publisher
	Out             io.Writer // console output, defaults to stdout
	Log             log.Logger
	Now             func() time.Time
	NewRunID        func() string
	ParallelPublish bool
	SkipPublish     bool
}

// Result is the outcome of a run that found report data
type Result struct {
	RunID    string
	Summary  *types.RunSummary
	Backends []publish.Result
	Duration time.Duration
}

// Delivered returns the number of backends that accepted their payload
func (r *Result) Delivered() int {
	n := 0
	for _, b := range r.Backends {
		if b.Delivered {
			n++
		}
	}
	return n
}

type Runner struct {
	loader      ReportLoader
	aggregator  *aggregate.Aggregator
	publishers  []publish.Publisher
	out         io.Writer
	log         log.Logger
	now         func() time.Time
	newRunID    func() string
	parallel    bool
	skipPublish bool
	tracer      trace.Tracer
}

// New validates cfg and creates a runner
func New(cfg Config) (*Runner, error) {
	if cfg.Loader == nil {
		return nil, fmt.Errorf("report loader is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Aggregator == nil {
		cfg.Aggregator = aggregate.NewAggregator(nil)
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewRunID == nil {
		cfg.NewRunID = func() string { return uuid.New().String() }
	}

	return &Runner{
		loader:      cfg.Loader,
		aggregator:  cfg.Aggregator,
		publishers:  cfg.Publishers,
		out:         cfg.Out,
		log:         cfg.Log,
		now:         cfg.Now,
		newRunID:    cfg.NewRunID,
		parallel:    cfg.ParallelPublish,
		skipPublish: cfg.SkipPublish,
		tracer:      otel.Tracer("lgtm runner"),
	}, nil
}

// Run executes one run. It fails only when reports cannot be loaded or none exist;
// backend failures are reported in the Result.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "run")
	defer span.End()
	start := time.Now()

	fmt.Fprintln(r.out, "Starting LGTM metrics collection for Playwright tests...")

	docs, err := r.load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		fmt.Fprintf(r.out, "✗ %v\n", err)
		return nil, err
	}
	if len(docs) == 0 {
		r.log.Warn("No test results found")
		fmt.Fprintln(r.out, "✗ No test results found")
		span.SetStatus(codes.Error, "no data")
		return nil, ErrNoReports
	}

	summary := r.aggregate(ctx, docs)
	span.SetAttributes(attribute.String("run_id", summary.RunID))

	fmt.Fprintln(r.out)
	reporting.PrintSummary(r.out, summary)
	reporting.PrintCategoryTable(r.out, summary)
	fmt.Fprintln(r.out)
	reporting.PrintFailures(r.out, summary)

	result := &Result{RunID: summary.RunID, Summary: summary}
	if r.skipPublish {
		r.log.Info("Skipping publish", "run_id", summary.RunID)
		result.Duration = time.Since(start)
		return result, nil
	}

	fmt.Fprintln(r.out, "Sending to LGTM stack...")
	if r.parallel {
		result.Backends = r.publishParallel(ctx, summary)
	} else {
		result.Backends = r.publishSequential(ctx, summary)
	}

	fmt.Fprintln(r.out)
	reporting.PrintBackendResults(r.out, result.Backends)

	result.Duration = time.Since(start)
	r.log.Info("Run complete", "run_id", summary.RunID, "tests", summary.Total(),
		"delivered", result.Delivered(), "backends", len(result.Backends), "duration", result.Duration)
	return result, nil
}

func (r *Runner) load(ctx context.Context) (map[string]*types.ReportDocument, error) {
	_, span := r.tracer.Start(ctx, "load reports")
	defer span.End()

	docs, err := r.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}
	span.SetAttributes(attribute.Int("reports", len(docs)))
	return docs, nil
}

func (r *Runner) aggregate(ctx context.Context, docs map[string]*types.ReportDocument) *types.RunSummary {
	_, span := r.tracer.Start(ctx, "aggregate")
	defer span.End()

	summary := r.aggregator.Aggregate(r.newRunID(), r.now(), docs)
	span.SetAttributes(
		attribute.Int("tests", summary.Total()),
		attribute.Int("failures", len(summary.Failures)),
	)
	r.log.Debug("Aggregated reports", "run_id", summary.RunID, "reports", len(docs), "tests", summary.Total())
	return summary
}

func (r *Runner) publishSequential(ctx context.Context, summary *types.RunSummary) []publish.Result {
	results := make([]publish.Result, 0, len(r.publishers))
	for _, p := range r.publishers {
		results = append(results, r.publishOne(ctx, p, summary, r.out))
	}
	return results
}

// publishParallel runs every publisher concurrently. Each writes to its own buffer
// and the buffers are flushed in publisher order so the console stays readable.
func (r *Runner) publishParallel(ctx context.Context, summary *types.RunSummary) []publish.Result {
	results := make([]publish.Result, len(r.publishers))
	buffers := make([]bytes.Buffer, len(r.publishers))

	p := pool.New().WithMaxGoroutines(max(len(r.publishers), 1))
	for i, pub := range r.publishers {
		p.Go(func() {
			results[i] = r.publishOne(ctx, pub, summary, &buffers[i])
		})
	}
	p.Wait()

	for i := range buffers {
		_, _ = buffers[i].WriteTo(r.out)
	}
	return results
}

func (r *Runner) publishOne(ctx context.Context, p publish.Publisher, summary *types.RunSummary, out io.Writer) publish.Result {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("publish %s", p.Name()))
	defer span.End()

	res := publish.Publish(ctx, p, summary, out, r.log)
	span.SetAttributes(attribute.Bool("delivered", res.Delivered))
	if res.Err != nil {
		span.RecordError(res.Err)
	}
	return res
}
