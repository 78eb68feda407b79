package fetcher

import "stocktracker/internal/market"

// Outcome is the result of fetching one symbol. Exactly one outcome is
// produced per symbol per run; it is sent from worker goroutines to the
// coordinator and consumed once by the sheet writer.
type Outcome struct {
	// Symbol is the ticker the outcome belongs to
	Symbol string

	// Quotes holds the fetched days in ascending date order. It may be empty
	// on success when the provider had no rows for the range.
	Quotes []market.Quote

	// Reason classifies the failure; empty on success
	Reason Reason

	// Err is the underlying failure. If Err is not nil, Quotes should be ignored.
	Err error
}

// Success builds a successful outcome.
func Success(symbol string, quotes []market.Quote) Outcome {
	return Outcome{Symbol: symbol, Quotes: quotes}
}

// Failure builds a failed outcome.
func Failure(symbol string, reason Reason, err error) Outcome {
	return Outcome{Symbol: symbol, Reason: reason, Err: err}
}

// OK reports whether the fetch succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}
