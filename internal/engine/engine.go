// Package engine runs one populate cycle: check preconditions, fetch every
// selected symbol, write the outcomes and save the workbook once.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"stocktracker/internal/coordinator"
	"stocktracker/internal/layout"
	"stocktracker/internal/logger"
	"stocktracker/internal/market"
	"stocktracker/internal/registry"
	"stocktracker/internal/report"
	"stocktracker/internal/sheet"
	"stocktracker/internal/workbook"
)

// State is the phase of a run.
type State int32

const (
	Idle State = iota
	Fetching
	Writing
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Writing:
		return "writing"
	case Done:
		return "done"
	}
	return "unknown"
}

// Options wires an engine.
type Options struct {
	Registry *registry.Registry
	Store    *workbook.Store
	Sheet    string
	Fetcher  coordinator.Fetcher

	// Range is the standing range used when a request names none. When nil
	// the sheet's full date span is used.
	Range *market.DateRange

	// Location is the market time zone that decides what "today" is.
	Location *time.Location

	// Concurrency is the default worker count for requests that set none.
	Concurrency int

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Request is one populate invocation.
type Request struct {
	// Symbols restricts the run to a registry subset. Empty means all.
	Symbols []string
	// Range overrides the standing range.
	Range *market.DateRange
	// Today narrows the run to the current trading day. An explicit Range wins.
	Today bool
	// Concurrency bounds in-flight fetches. Zero uses the engine default.
	Concurrency int
}

// Engine populates the tracker workbook.
type Engine struct {
	opts        Options
	coordinator *coordinator.Coordinator
	state       atomic.Int32
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = coordinator.DefaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		opts:        opts,
		coordinator: coordinator.New(opts.Fetcher),
	}
}

// State returns the phase of the current or last run.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	slog.Debug("run state", "state", s)
}

// Run executes one populate cycle. Configuration problems are returned as
// *ConfigurationError before any provider call. A cancelled context
// discards fetched data without saving and returns the context's error.
// A save failure is returned as *PersistenceError. Per-symbol failures are
// only recorded in the report.
func (e *Engine) Run(ctx context.Context, req Request) (report.Report, error) {
	started := time.Now()
	e.setState(Idle)

	ctx, span := logger.Tracer("engine").Start(ctx, "populate")
	defer span.End()

	selected, err := e.opts.Registry.Select(req.Symbols)
	if err != nil {
		return report.Report{}, configError(err)
	}

	r, ok := e.resolveRange(req)
	if !ok {
		slog.Info("today is not a trading day, nothing to fetch")
		e.setState(Done)
		return report.Report{
			Elapsed: time.Since(started),
			Note:    "today is not a trading day, nothing to fetch",
		}, nil
	}

	wb, err := e.opts.Store.Open(e.opts.Sheet)
	if err != nil {
		return report.Report{}, configError(err)
	}
	defer wb.Close()

	l, err := layout.Read(wb)
	if err != nil {
		return report.Report{}, configError(err)
	}
	if r == nil {
		full := l.Span()
		r = &full
	}
	symbols := selected.Symbols()
	if err := l.Check(symbols, *r); err != nil {
		return report.Report{}, configError(err)
	}

	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = e.opts.Concurrency
	}
	span.SetAttributes(
		attribute.Int("symbols", len(symbols)),
		attribute.String("range", r.String()),
		attribute.Int("concurrency", concurrency),
	)
	slog.Info("starting run", "symbols", len(symbols), "range", r.String(), "concurrency", concurrency)

	e.setState(Fetching)
	outcomes := e.coordinator.RunAll(ctx, symbols, *r, concurrency)
	if err := ctx.Err(); err != nil {
		slog.Warn("run interrupted, workbook left unchanged", "error", err)
		e.setState(Done)
		return report.Report{}, err
	}

	e.setState(Writing)
	rep := sheet.NewWriter(l, wb).Apply(selected.Entries(), outcomes)

	if err := e.opts.Store.Save(wb); err != nil {
		e.setState(Done)
		return report.Report{}, &PersistenceError{Path: e.opts.Store.Path(), Err: err}
	}

	rep.Elapsed = time.Since(started)
	e.setState(Done)
	slog.Info("run finished",
		"succeeded", len(rep.Succeeded),
		"failed", len(rep.Failed),
		"elapsed", rep.Elapsed.Round(time.Millisecond))
	return rep, nil
}

// resolveRange picks the run's range. An explicit range wins over today
// mode, and today mode wins over the standing range. A nil range with ok
// set means the sheet span. ok is false for a today run on a non-trading day.
func (e *Engine) resolveRange(req Request) (*market.DateRange, bool) {
	switch {
	case req.Range != nil:
		return req.Range, true
	case req.Today:
		today := market.Day(e.opts.Now().In(e.opts.Location))
		if !market.IsTradingDay(today) {
			return nil, false
		}
		r := market.SingleDay(today)
		return &r, true
	default:
		return e.opts.Range, true
	}
}

// Setup builds a fresh tracker sheet for every registry symbol over r and
// saves it. An existing workbook is only replaced when force is set.
func Setup(store *workbook.Store, sheetName string, reg *registry.Registry, r market.DateRange, force bool) (*layout.Layout, error) {
	exists, err := store.Exists()
	if err != nil {
		return nil, fmt.Errorf("failed to check workbook %s: %w", store.Path(), err)
	}
	if exists && !force {
		return nil, fmt.Errorf("workbook %s already exists, use -force to rebuild it", store.Path())
	}

	wb, err := workbook.New(sheetName)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	l, err := layout.Build(wb, reg.Entries(), r)
	if err != nil {
		return nil, configError(err)
	}
	if err := store.Save(wb); err != nil {
		return nil, &PersistenceError{Path: store.Path(), Err: err}
	}
	slog.Info("built tracker sheet", "path", store.Path(), "symbols", reg.Len(), "range", r.String())
	return l, nil
}
