package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"stocktracker/internal/engine"
)

type setupCmd struct {
	app   *App
	start string
	end   string
	force bool
}

func (*setupCmd) Name() string     { return "setup" }
func (*setupCmd) Synopsis() string { return "build the tracker sheet for every registry symbol" }
func (*setupCmd) Usage() string {
	return `stocktracker setup [-start <date>] [-end <date>] [-force]

  Creates the workbook with one row per registry symbol and one five-column
  block (Open, High, Low, Close, Volume) per weekday of the range. Run it
  again with -force whenever the registry changes.
`
}

func (c *setupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "First date of the sheet (YYYY-MM-DD). Defaults to SHEET_START.")
	f.StringVar(&c.end, "end", "", "Last date of the sheet (YYYY-MM-DD). Defaults to SHEET_END.")
	f.BoolVar(&c.force, "force", false, "Replace an existing workbook.")
}

func (c *setupCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := c.app.Config
	start, end := c.start, c.end
	if start == "" {
		start = cfg.SheetStart
	}
	if end == "" {
		end = cfg.SheetEnd
	}
	r, err := parseRange(start, end)
	if err != nil {
		fmt.Fprintf(c.app.Stderr, "Error parsing sheet range: %v\n", err)
		return subcommands.ExitUsageError
	}

	reg, err := c.app.registry()
	if err != nil {
		fmt.Fprintln(c.app.Stderr, err)
		return subcommands.ExitFailure
	}

	l, err := engine.Setup(c.app.store(), cfg.SheetName, reg, *r, c.force)
	if err != nil {
		var persistErr *engine.PersistenceError
		if errors.As(err, &persistErr) {
			fmt.Fprintf(c.app.Stderr, "%v\nClose the workbook in any other program and retry.\n", err)
		} else {
			fmt.Fprintln(c.app.Stderr, err)
		}
		return subcommands.ExitFailure
	}

	fmt.Fprintf(c.app.Stdout, "Created %s: %d symbols, %d trading days (%s)\n",
		cfg.WorkbookFile, len(l.Symbols()), len(l.Dates()), l.Span())
	return subcommands.ExitSuccess
}
