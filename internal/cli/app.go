// Package cli implements the tracker's subcommands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/google/subcommands"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"stocktracker/internal/alphavantage"
	"stocktracker/internal/config"
	"stocktracker/internal/engine"
	"stocktracker/internal/fetcher"
	"stocktracker/internal/market"
	"stocktracker/internal/ratelimit"
	"stocktracker/internal/registry"
	"stocktracker/internal/workbook"
	"stocktracker/internal/yahoo"
)

// App is what the subcommands share.
type App struct {
	Config *config.Config
	Fs     afero.Fs
	Stdout io.Writer
	Stderr io.Writer

	// Provider replaces the configured market data provider when set.
	Provider fetcher.Provider
}

// Commands returns every subcommand bound to app.
func Commands(app *App) []subcommands.Command {
	return []subcommands.Command{
		&setupCmd{app: app},
		&populateCmd{app: app},
		&symbolsCmd{app: app},
	}
}

// Execute parses args and runs the selected subcommand.
func Execute(ctx context.Context, app *App, name string, args []string) subcommands.ExitStatus {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(app.Stderr)
	if err := fs.Parse(args); err != nil {
		return subcommands.ExitUsageError
	}

	commander := subcommands.NewCommander(fs, name)
	commander.Output = app.Stdout
	commander.Error = app.Stderr
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range Commands(app) {
		commander.Register(c, "")
	}
	return commander.Execute(ctx)
}

func (a *App) registry() (*registry.Registry, error) {
	reg, err := registry.Load(a.Fs, a.Config.RegistryFile)
	if err != nil {
		return nil, &engine.ConfigurationError{Reason: engine.ReasonInvalidRegistry, Err: err}
	}
	return reg, nil
}

func (a *App) store() *workbook.Store {
	return workbook.NewStore(a.Fs, a.Config.WorkbookFile)
}

func (a *App) provider() fetcher.Provider {
	if a.Provider != nil {
		return a.Provider
	}
	if a.Config.Provider == config.ProviderAlphaVantage {
		return alphavantage.NewStockProvider(a.Config.AlphavantageAPIKey, a.Config.AlphavantageBaseURL, a.Config.FetchTimeout)
	}
	return yahoo.NewChartProvider(a.Config.Location())
}

func (a *App) fetcher() *fetcher.Fetcher {
	p := a.provider()

	limiter := ratelimit.New(ratelimit.DefaultLimits)
	if a.Config.RateLimit > 0 {
		limiter.SetLimit(ratelimit.API(p.Name()), rate.Limit(a.Config.RateLimit))
	}

	maxRetries := a.Config.MaxRetries
	if maxRetries == 0 {
		maxRetries = -1
	}
	return fetcher.New(p, fetcher.Options{
		Timeout:      a.Config.FetchTimeout,
		MaxRetries:   maxRetries,
		RetryWait:    a.Config.RetryWait,
		RetryMaxWait: a.Config.RetryMaxWait,
		Limiter:      limiter,
	})
}

// parseRange builds a range from two YYYY-MM-DD flags. Both empty yields nil.
func parseRange(start, end string) (*market.DateRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, fmt.Errorf("both a start and an end date are required")
	}
	s, err := market.ParseDate(start)
	if err != nil {
		return nil, err
	}
	e, err := market.ParseDate(end)
	if err != nil {
		return nil, err
	}
	r, err := market.NewDateRange(s, e)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// splitSymbols parses a comma separated symbol list.
func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
