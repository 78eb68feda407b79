package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stocktracker/internal/market"
)

// MockProvider is a mock implementation of the fetcher.Provider interface for testing
type MockProvider struct {
	NameValue       string
	DailySeriesFunc func(ctx context.Context, symbol string, r market.DateRange) ([]market.Quote, error)

	mu    sync.Mutex
	calls map[string]int
}

// Name implements the Provider interface
func (m *MockProvider) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

// DailySeries implements the Provider interface
func (m *MockProvider) DailySeries(ctx context.Context, symbol string, r market.DateRange) ([]market.Quote, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if m.DailySeriesFunc != nil {
		return m.DailySeriesFunc(ctx, symbol, r)
	}
	return nil, nil
}

// Calls returns how many times DailySeries was invoked for symbol.
func (m *MockProvider) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// TotalCalls returns the number of DailySeries invocations across all symbols.
func (m *MockProvider) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// NewMockProvider creates a provider that serves a full synthetic series for
// every symbol, except those listed in errs which fail with the given error.
func NewMockProvider(errs map[string]error) *MockProvider {
	return &MockProvider{
		DailySeriesFunc: func(ctx context.Context, symbol string, r market.DateRange) ([]market.Quote, error) {
			if err, ok := errs[symbol]; ok {
				return nil, err
			}
			return SyntheticSeries(symbol, r.TradingDays()), nil
		},
	}
}

// SyntheticSeries builds deterministic quotes for symbol on days. Prices
// depend only on the symbol and the day, so repeated calls are identical.
func SyntheticSeries(symbol string, days []time.Time) []market.Quote {
	seed := int64(0)
	for _, c := range symbol {
		seed += int64(c)
	}

	quotes := make([]market.Quote, 0, len(days))
	for i, d := range days {
		base := decimal.NewFromInt(seed + int64(i)).Div(decimal.NewFromInt(4))
		quotes = append(quotes, market.Quote{
			Symbol: symbol,
			Date:   d,
			Open:   market.Price(base),
			High:   market.Price(base.Add(decimal.NewFromFloat(1.5))),
			Low:    market.Price(base.Sub(decimal.NewFromFloat(0.75))),
			Close:  market.Price(base.Add(decimal.NewFromFloat(0.25))),
			Volume: market.Price(decimal.NewFromInt(1000 * (seed + int64(i)))),
		})
	}
	return quotes
}

// Date is a shorthand for a civil date in tests.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Range is a shorthand for an inclusive date range in tests. It panics on
// an inverted range.
func Range(start, end time.Time) market.DateRange {
	r, err := market.NewDateRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}
