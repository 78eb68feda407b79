package fetcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"stocktracker/internal/market"
	"stocktracker/internal/testutil"
)

func fastOptions() Options {
	return Options{
		Timeout:      time.Second,
		MaxRetries:   2,
		RetryWait:    time.Millisecond,
		RetryMaxWait: 2 * time.Millisecond,
	}
}

// tenDays is Monday 2026-01-05 through Friday 2026-01-16.
var tenDays = testutil.Range(testutil.Date(2026, 1, 5), testutil.Date(2026, 1, 16))

func TestFetch_Success(t *testing.T) {
	provider := testutil.NewMockProvider(nil)
	f := New(provider, fastOptions())

	outcome := f.Fetch(context.Background(), "AAA.NS", tenDays)
	if !outcome.OK() {
		t.Fatalf("Fetch() failed: %v", outcome.Err)
	}
	if len(outcome.Quotes) != 10 {
		t.Errorf("len(Quotes) = %d, want 10", len(outcome.Quotes))
	}
	if provider.Calls("AAA.NS") != 1 {
		t.Errorf("provider called %d times, want exactly 1 for the whole range", provider.Calls("AAA.NS"))
	}
}

func TestFetch_PartialRangeIsSuccess(t *testing.T) {
	provider := &testutil.MockProvider{
		DailySeriesFunc: func(ctx context.Context, symbol string, r market.DateRange) ([]market.Quote, error) {
			days := r.TradingDays()
			return testutil.SyntheticSeries(symbol, days[5:]), nil
		},
	}
	f := New(provider, fastOptions())

	outcome := f.Fetch(context.Background(), "NEW.NS", tenDays)
	if !outcome.OK() {
		t.Fatalf("Fetch() failed: %v", outcome.Err)
	}
	if len(outcome.Quotes) != 5 {
		t.Errorf("len(Quotes) = %d, want 5", len(outcome.Quotes))
	}
}

func TestFetch_EmptyIsSuccess(t *testing.T) {
	provider := &testutil.MockProvider{}
	f := New(provider, fastOptions())

	outcome := f.Fetch(context.Background(), "AAA.NS", tenDays)
	if !outcome.OK() {
		t.Fatalf("Fetch() failed: %v", outcome.Err)
	}
	if len(outcome.Quotes) != 0 {
		t.Errorf("len(Quotes) = %d, want 0", len(outcome.Quotes))
	}
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	provider := testutil.NewMockProvider(map[string]error{
		"BBB.NS": NewNotFoundError("BBB.NS"),
	})
	f := New(provider, fastOptions())

	outcome := f.Fetch(context.Background(), "BBB.NS", tenDays)
	if outcome.OK() {
		t.Fatal("Fetch() expected failure, got success")
	}
	if outcome.Reason != ReasonNotFound {
		t.Errorf("Reason = %q, want %q", outcome.Reason, ReasonNotFound)
	}
	if provider.Calls("BBB.NS") != 1 {
		t.Errorf("provider called %d times, want 1", provider.Calls("BBB.NS"))
	}
}

func TestFetch_TransientIsRetriedThenFails(t *testing.T) {
	provider := testutil.NewMockProvider(map[string]error{
		"AAA.NS": NewServerError(503),
	})
	f := New(provider, fastOptions())

	outcome := f.Fetch(context.Background(), "AAA.NS", tenDays)
	if outcome.Reason != ReasonTransient {
		t.Errorf("Reason = %q, want %q", outcome.Reason, ReasonTransient)
	}
	if got := provider.Calls("AAA.NS"); got != 3 {
		t.Errorf("provider called %d times, want 3 (1 + 2 retries)", got)
	}

	var fe *FetchError
	if !errors.As(outcome.Err, &fe) || fe.StatusCode != 503 {
		t.Errorf("Err = %v, want wrapped 503 FetchError", outcome.Err)
	}
}

func TestFetch_TransientRecovers(t *testing.T) {
	var attempts atomic.Int32
	provider := &testutil.MockProvider{
		DailySeriesFunc: func(ctx context.Context, symbol string, r market.DateRange) ([]market.Quote, error) {
			if attempts.Add(1) == 1 {
				return nil, NewRateLimitError(429)
			}
			return testutil.SyntheticSeries(symbol, r.TradingDays()), nil
		},
	}
	f := New(provider, fastOptions())

	outcome := f.Fetch(context.Background(), "AAA.NS", tenDays)
	if !outcome.OK() {
		t.Fatalf("Fetch() failed: %v", outcome.Err)
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
}

func TestFetch_ProviderErrorIsNotRetried(t *testing.T) {
	provider := testutil.NewMockProvider(map[string]error{
		"AAA.NS": errors.New("malformed payload"),
	})
	f := New(provider, fastOptions())

	outcome := f.Fetch(context.Background(), "AAA.NS", tenDays)
	if outcome.Reason != ReasonProvider {
		t.Errorf("Reason = %q, want %q", outcome.Reason, ReasonProvider)
	}
	if provider.Calls("AAA.NS") != 1 {
		t.Errorf("provider called %d times, want 1", provider.Calls("AAA.NS"))
	}
}

func TestFetch_TimeoutIsTransient(t *testing.T) {
	provider := &testutil.MockProvider{
		DailySeriesFunc: func(ctx context.Context, symbol string, r market.DateRange) ([]market.Quote, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	opts := fastOptions()
	opts.Timeout = 10 * time.Millisecond
	opts.MaxRetries = 1
	f := New(provider, opts)

	outcome := f.Fetch(context.Background(), "SLOW.NS", tenDays)
	if outcome.Reason != ReasonTransient {
		t.Errorf("Reason = %q, want %q (err: %v)", outcome.Reason, ReasonTransient, outcome.Err)
	}
	if provider.Calls("SLOW.NS") != 2 {
		t.Errorf("provider called %d times, want 2", provider.Calls("SLOW.NS"))
	}
}

func TestFetch_ContextCancellation(t *testing.T) {
	provider := testutil.NewMockProvider(map[string]error{
		"AAA.NS": NewServerError(500),
	})
	opts := fastOptions()
	opts.RetryWait = time.Hour
	opts.RetryMaxWait = time.Hour
	f := New(provider, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	outcome := f.Fetch(ctx, "AAA.NS", tenDays)
	if time.Since(start) > time.Second {
		t.Errorf("Fetch() did not stop waiting on cancellation")
	}
	if outcome.Reason != ReasonCanceled {
		t.Errorf("Reason = %q, want %q", outcome.Reason, ReasonCanceled)
	}
}

func TestFetch_NormalizesQuotes(t *testing.T) {
	provider := &testutil.MockProvider{
		DailySeriesFunc: func(ctx context.Context, symbol string, r market.DateRange) ([]market.Quote, error) {
			// Out of order, one row outside the range, one duplicate date.
			days := []time.Time{
				testutil.Date(2026, 1, 7),
				testutil.Date(2025, 12, 31),
				time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC),
				testutil.Date(2026, 1, 7),
			}
			return testutil.SyntheticSeries("OTHER", days), nil
		},
	}
	f := New(provider, fastOptions())

	outcome := f.Fetch(context.Background(), "AAA.NS", tenDays)
	if !outcome.OK() {
		t.Fatalf("Fetch() failed: %v", outcome.Err)
	}
	if len(outcome.Quotes) != 2 {
		t.Fatalf("len(Quotes) = %d, want 2", len(outcome.Quotes))
	}
	if !outcome.Quotes[0].Date.Equal(testutil.Date(2026, 1, 5)) {
		t.Errorf("Quotes[0].Date = %v, want 2026-01-05", outcome.Quotes[0].Date)
	}
	for _, q := range outcome.Quotes {
		if q.Symbol != "AAA.NS" {
			t.Errorf("Symbol = %q, want AAA.NS", q.Symbol)
		}
	}
}

func TestBackoff(t *testing.T) {
	f := New(&testutil.MockProvider{}, Options{RetryWait: time.Second, RetryMaxWait: 5 * time.Second})

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := f.backoff(tt.retry); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}
