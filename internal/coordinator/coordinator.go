package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stocktracker/internal/fetcher"
	"stocktracker/internal/logger"
	"stocktracker/internal/market"
)

// DefaultConcurrency is the number of symbols fetched at once when the
// caller does not say otherwise.
const DefaultConcurrency = 5

// progressEvery controls how often progress is logged
const progressEvery = 10

// Fetcher is the per-symbol fetch operation the coordinator fans out.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, r market.DateRange) fetcher.Outcome
}

// Coordinator fans fetches out over a bounded pool of workers and
// collects exactly one outcome per symbol.
type Coordinator struct {
	fetcher Fetcher
}

// New creates a new Coordinator around f
func New(f Fetcher) *Coordinator {
	return &Coordinator{
		fetcher: f,
	}
}

// sink is the thread-safe result collection shared by the workers
type sink struct {
	mu       sync.Mutex
	outcomes []fetcher.Outcome
	failed   int
	total    int
	started  time.Time
}

func (s *sink) add(o fetcher.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outcomes = append(s.outcomes, o)
	if !o.OK() {
		s.failed++
	}

	done := len(s.outcomes)
	if done%progressEvery == 0 || done == s.total {
		elapsed := time.Since(s.started)
		rate := float64(done) / elapsed.Seconds()
		slog.Info("fetch progress",
			"done", done,
			"total", s.total,
			"failed", s.failed,
			"rate_per_sec", fmt.Sprintf("%.1f", rate))
	}
}

// RunAll fetches every symbol over r with at most concurrency fetches in
// flight. It always returns one outcome per input symbol; the order of the
// returned outcomes is the completion order and must not be relied upon.
// A failing or panicking fetch only affects its own symbol.
func (c *Coordinator) RunAll(ctx context.Context, symbols []string, r market.DateRange, concurrency int) []fetcher.Outcome {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	s := &sink{
		outcomes: make([]fetcher.Outcome, 0, len(symbols)),
		total:    len(symbols),
		started:  time.Now(),
	}

	p := pool.New().WithMaxGoroutines(concurrency)
	for _, symbol := range symbols {
		symbol := symbol
		p.Go(func() {
			s.add(c.fetchOne(ctx, symbol, r))
		})
	}
	p.Wait()

	return s.outcomes
}

// fetchOne runs a single fetch inside its own span and turns a panic into a
// failure for that symbol.
func (c *Coordinator) fetchOne(ctx context.Context, symbol string, r market.DateRange) (outcome fetcher.Outcome) {
	ctx, span := logger.Tracer("coordinator").Start(ctx, "fetch")
	span.SetAttributes(
		attribute.String("symbol", symbol),
		attribute.String("range", r.String()),
	)
	defer span.End()

	defer func() {
		if v := recover(); v != nil {
			outcome = fetcher.Failure(symbol, fetcher.ReasonProvider, fmt.Errorf("fetch panicked: %v", v))
		}
		if !outcome.OK() {
			span.RecordError(outcome.Err)
			span.SetStatus(codes.Error, string(outcome.Reason))
			slog.Warn("fetch failed", "symbol", symbol, "reason", outcome.Reason, "error", outcome.Err)
			return
		}
		span.SetAttributes(attribute.Int("quotes", len(outcome.Quotes)))
		slog.Debug("fetch succeeded", "symbol", symbol, "quotes", len(outcome.Quotes))
	}()

	return c.fetcher.Fetch(ctx, symbol, r)
}
