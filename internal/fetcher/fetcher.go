package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"stocktracker/internal/market"
	"stocktracker/internal/ratelimit"
)

const (
	// Default retry configuration
	defaultMaxRetries   = 2
	defaultRetryWait    = 1 * time.Second
	defaultRetryMaxWait = 10 * time.Second
)

// Provider is the contract every market-data source must implement.
// A provider is called once per symbol for the whole requested range.
type Provider interface {
	// Name identifies the provider; it also selects its rate limit bucket.
	Name() string

	// DailySeries returns one quote per trading day the provider has for
	// symbol within r. Failures should be reported as *FetchError so they
	// can be classified; a symbol the provider does not know must yield an
	// ErrorTypeNotFound error.
	DailySeries(ctx context.Context, symbol string, r market.DateRange) ([]market.Quote, error)
}

// Options tunes a Fetcher. Zero values select the defaults.
type Options struct {
	// Timeout bounds each provider call. Exceeding it is a transient failure.
	Timeout time.Duration
	// MaxRetries is how many times a transient failure is retried.
	// A negative value disables retries.
	MaxRetries int
	// RetryWait is the first backoff delay, doubled on each retry.
	RetryWait time.Duration
	// RetryMaxWait caps the backoff delay.
	RetryMaxWait time.Duration
	// Limiter, when set, is waited on before every provider call.
	Limiter *ratelimit.Limiter
}

// Fetcher wraps a Provider with timeout, bounded retry and failure classification.
type Fetcher struct {
	provider Provider
	opts     Options
}

// New creates a Fetcher for provider.
func New(provider Provider, opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = defaultRetryWait
	}
	if opts.RetryMaxWait <= 0 {
		opts.RetryMaxWait = defaultRetryMaxWait
	}
	return &Fetcher{provider: provider, opts: opts}
}

// Provider returns the wrapped provider.
func (f *Fetcher) Provider() Provider {
	return f.provider
}

// Fetch retrieves the daily series of symbol over r and classifies the result.
// It never returns an error: failures are carried in the Outcome.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, r market.DateRange) Outcome {
	var lastErr error
	for attempt := 0; attempt <= f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := f.backoff(attempt)
			slog.Debug("retrying fetch",
				"provider", f.provider.Name(),
				"symbol", symbol,
				"attempt", attempt+1,
				"wait", wait,
				"error", lastErr.Error())
			if err := sleep(ctx, wait); err != nil {
				return Failure(symbol, ReasonCanceled, err)
			}
		}

		quotes, err := f.attempt(ctx, symbol, r)
		if err == nil {
			return Success(symbol, normalize(symbol, quotes, r))
		}
		if ctx.Err() != nil {
			return Failure(symbol, ReasonCanceled, ctx.Err())
		}

		lastErr = err
		if reason := Classify(err); reason != ReasonTransient {
			return Failure(symbol, reason, err)
		}
	}

	return Failure(symbol, ReasonTransient,
		fmt.Errorf("giving up after %d attempts: %w", f.opts.MaxRetries+1, lastErr))
}

func (f *Fetcher) attempt(ctx context.Context, symbol string, r market.DateRange) ([]market.Quote, error) {
	if f.opts.Limiter != nil {
		if err := f.opts.Limiter.Wait(ctx, ratelimit.API(f.provider.Name())); err != nil {
			return nil, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	quotes, err := f.provider.DailySeries(callCtx, symbol, r)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		var fe *FetchError
		if !errors.As(err, &fe) {
			return nil, NewTimeoutError(err)
		}
	}
	return quotes, err
}

// backoff returns the delay before the given retry (1-based).
func (f *Fetcher) backoff(retry int) time.Duration {
	wait := f.opts.RetryWait
	for i := 1; i < retry; i++ {
		wait *= 2
		if wait >= f.opts.RetryMaxWait {
			return f.opts.RetryMaxWait
		}
	}
	return wait
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// normalize keeps the quotes that fall inside r, stamps them with symbol and
// their civil date, and orders them by date. A later row for the same date
// replaces an earlier one.
func normalize(symbol string, quotes []market.Quote, r market.DateRange) []market.Quote {
	byDate := make(map[time.Time]int, len(quotes))
	out := make([]market.Quote, 0, len(quotes))
	for _, q := range quotes {
		q.Date = market.Day(q.Date)
		if !r.Contains(q.Date) {
			continue
		}
		q.Symbol = symbol
		if i, ok := byDate[q.Date]; ok {
			out[i] = q
			continue
		}
		byDate[q.Date] = len(out)
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
