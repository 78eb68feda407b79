package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"stocktracker/internal/engine"
)

type populateCmd struct {
	app     *App
	start   string
	end     string
	today   bool
	symbols string
	workers int
}

func (*populateCmd) Name() string     { return "populate" }
func (*populateCmd) Synopsis() string { return "fetch daily prices and write them into the tracker sheet" }
func (*populateCmd) Usage() string {
	return `stocktracker populate [-start <date> -end <date> | -today] [-symbols A,B] [-workers n]

  Fetches the daily Open, High, Low, Close and Volume of every registry
  symbol and writes them into the pre-built sheet. Without a range the
  configured RANGE_START/RANGE_END is used, or the whole sheet span.
  Failed symbols are listed at the end; rerun them with -symbols.
`
}

func (c *populateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "First date to fetch (YYYY-MM-DD).")
	f.StringVar(&c.end, "end", "", "Last date to fetch (YYYY-MM-DD).")
	f.BoolVar(&c.today, "today", false, "Fetch only the current trading day. Ignored when -start/-end are given.")
	f.StringVar(&c.symbols, "symbols", "", "Comma separated subset of registry symbols.")
	f.IntVar(&c.workers, "workers", 0, "Concurrent fetches. Defaults to WORKERS.")
}

func (c *populateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := c.app.Config

	r, err := parseRange(c.start, c.end)
	if err != nil {
		fmt.Fprintf(c.app.Stderr, "Error parsing range: %v\n", err)
		return subcommands.ExitUsageError
	}
	standing, err := parseRange(cfg.RangeStart, cfg.RangeEnd)
	if err != nil {
		fmt.Fprintf(c.app.Stderr, "Error parsing RANGE_START/RANGE_END: %v\n", err)
		return subcommands.ExitFailure
	}

	reg, err := c.app.registry()
	if err != nil {
		fmt.Fprintln(c.app.Stderr, err)
		return subcommands.ExitFailure
	}

	eng := engine.New(engine.Options{
		Registry:    reg,
		Store:       c.app.store(),
		Sheet:       cfg.SheetName,
		Fetcher:     c.app.fetcher(),
		Range:       standing,
		Location:    cfg.Location(),
		Concurrency: cfg.Workers,
	})

	rep, err := eng.Run(ctx, engine.Request{
		Symbols:     splitSymbols(c.symbols),
		Range:       r,
		Today:       c.today,
		Concurrency: c.workers,
	})
	if err != nil {
		var persistErr *engine.PersistenceError
		switch {
		case errors.As(err, &persistErr):
			fmt.Fprintf(c.app.Stderr, "%v\nNothing was saved. Close the workbook in any other program and retry.\n", err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			fmt.Fprintf(c.app.Stderr, "Run interrupted (%v), the workbook was not changed.\n", err)
		default:
			fmt.Fprintln(c.app.Stderr, err)
		}
		return subcommands.ExitFailure
	}

	if err := rep.Summary(c.app.Stdout); err != nil {
		return subcommands.ExitFailure
	}
	if rep.AllFailed() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
