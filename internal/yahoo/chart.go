// Package yahoo provides daily quotes from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"stocktracker/internal/fetcher"
	"stocktracker/internal/market"
	"stocktracker/internal/ratelimit"
)

// barSource returns the daily bars of symbol in [start, end).
type barSource func(symbol string, start, end time.Time) ([]finance.ChartBar, error)

// ChartProvider fetches daily bars through piquette/finance-go.
type ChartProvider struct {
	loc    *time.Location
	source barSource
}

// NewChartProvider creates a provider whose bar timestamps are read in loc,
// the exchange's time zone.
func NewChartProvider(loc *time.Location) *ChartProvider {
	if loc == nil {
		loc = time.UTC
	}
	return &ChartProvider{loc: loc, source: fetchBars}
}

// Name implements fetcher.Provider.
func (p *ChartProvider) Name() string {
	return string(ratelimit.APIYahoo)
}

type barsResult struct {
	bars []finance.ChartBar
	err  error
}

// DailySeries implements fetcher.Provider. finance-go does not take a
// context, so the call runs in its own goroutine and is abandoned when ctx
// is done.
func (p *ChartProvider) DailySeries(ctx context.Context, symbol string, r market.DateRange) ([]market.Quote, error) {
	start := time.Date(r.Start.Year(), r.Start.Month(), r.Start.Day(), 0, 0, 0, 0, p.loc)
	end := time.Date(r.End.Year(), r.End.Month(), r.End.Day(), 0, 0, 0, 0, p.loc).AddDate(0, 0, 1)

	done := make(chan barsResult, 1)
	go func() {
		bars, err := p.source(symbol, start, end)
		done <- barsResult{bars: bars, err: err}
	}()

	var res barsResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, classify(symbol, res.err)
	}

	quotes := make([]market.Quote, 0, len(res.bars))
	for _, b := range res.bars {
		quotes = append(quotes, market.Quote{
			Symbol: symbol,
			Date:   market.Day(time.Unix(int64(b.Timestamp), 0).In(p.loc)),
			Open:   present(b.Open),
			High:   present(b.High),
			Low:    present(b.Low),
			Close:  present(b.Close),
			Volume: present(decimal.NewFromInt(int64(b.Volume))),
		})
	}
	return quotes, nil
}

func fetchBars(symbol string, start, end time.Time) ([]finance.ChartBar, error) {
	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var bars []finance.ChartBar
	for iter.Next() {
		bars = append(bars, *iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

// present treats zero as a gap: the chart API reports missing values as null,
// which finance-go decodes to zero.
func present(d decimal.Decimal) decimal.NullDecimal {
	if d.IsZero() {
		return decimal.NullDecimal{}
	}
	return market.Price(d)
}

// classify maps finance-go's remote errors, which only carry text, onto the
// fetch error taxonomy.
func classify(symbol string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no data found"),
		strings.Contains(msg, "not found"),
		strings.Contains(msg, "delisted"):
		nf := fetcher.NewNotFoundError(symbol)
		nf.Cause = err
		return nf
	case strings.Contains(msg, "too many requests"), strings.Contains(msg, "429"):
		rl := fetcher.NewRateLimitError(429)
		rl.Cause = err
		return rl
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return fetcher.NewTimeoutError(err)
	case strings.Contains(msg, "connection"), strings.Contains(msg, "eof"),
		strings.Contains(msg, "dial"), strings.Contains(msg, "no such host"):
		return fetcher.NewNetworkError(err)
	}
	return &fetcher.FetchError{
		Type:    fetcher.ErrorTypeUnknown,
		Message: fmt.Sprintf("chart request for %s failed", symbol),
		Cause:   err,
	}
}
