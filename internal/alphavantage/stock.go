package alphavantage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"resty.dev/v3"

	"stocktracker/internal/fetcher"
	"stocktracker/internal/market"
	"stocktracker/internal/ratelimit"
)

// compactWindow is roughly how far back the "compact" output (last 100
// trading days) reaches.
const compactWindow = 140 * 24 * time.Hour

// DailyBar is one entry of the TIME_SERIES_DAILY payload
type DailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// DailySeriesResponse represents the AlphaVantage API response for daily time series
type DailySeriesResponse struct {
	MetaData struct {
		Information   string `json:"1. Information"`
		Symbol        string `json:"2. Symbol"`
		LastRefreshed string `json:"3. Last Refreshed"`
		OutputSize    string `json:"4. Output Size"`
		TimeZone      string `json:"5. Time Zone"`
	} `json:"Meta Data"`
	TimeSeries   map[string]DailyBar `json:"Time Series (Daily)"`
	ErrorMessage string              `json:"Error Message"`
	Note         string              `json:"Note"`
	Information  string              `json:"Information"`
}

// StockProvider fetches daily stock prices from AlphaVantage
type StockProvider struct {
	apiKey string
	client *resty.Client
	now    func() time.Time
}

// NewStockProvider creates a new daily series provider
func NewStockProvider(apiKey, baseURL string, timeout time.Duration) *StockProvider {
	return &StockProvider{
		apiKey: apiKey,
		client: fetcher.NewHTTPClient(baseURL, timeout),
		now:    time.Now,
	}
}

// Name implements fetcher.Provider
func (p *StockProvider) Name() string {
	return string(ratelimit.APIAlphaVantage)
}

// DailySeries retrieves the daily bars of ticker within r in a single call
func (p *StockProvider) DailySeries(ctx context.Context, ticker string, r market.DateRange) ([]market.Quote, error) {
	var result DailySeriesResponse

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":     p.apiKey,
			"function":   "TIME_SERIES_DAILY",
			"symbol":     ticker,
			"outputsize": p.outputSize(r),
		}).
		SetResult(&result).
		Get("")

	if err := fetcher.CheckResponse(resp, err); err != nil {
		return nil, fmt.Errorf("failed to fetch daily series for %s: %w", ticker, err)
	}

	// AlphaVantage reports most failures with HTTP 200 and a message body.
	switch {
	case result.ErrorMessage != "":
		return nil, fetcher.NewNotFoundError(ticker)
	case result.Note != "" || result.Information != "":
		return nil, fetcher.NewRateLimitError(resp.StatusCode())
	case result.TimeSeries == nil:
		return nil, fetcher.NewValidationError(fmt.Sprintf("time series not found in response for %s", ticker))
	}

	quotes := make([]market.Quote, 0, len(result.TimeSeries))
	for day, bar := range result.TimeSeries {
		date, err := market.ParseDate(day)
		if err != nil {
			return nil, fetcher.NewValidationError(fmt.Sprintf("bad date %q for %s", day, ticker))
		}
		if !r.Contains(date) {
			continue
		}

		q := market.Quote{Symbol: ticker, Date: date}
		for _, f := range []struct {
			raw string
			dst *decimal.NullDecimal
		}{
			{bar.Open, &q.Open},
			{bar.High, &q.High},
			{bar.Low, &q.Low},
			{bar.Close, &q.Close},
			{bar.Volume, &q.Volume},
		} {
			if f.raw == "" {
				continue
			}
			v, err := decimal.NewFromString(f.raw)
			if err != nil {
				return nil, fetcher.NewValidationError(fmt.Sprintf("failed to parse %q for %s on %s", f.raw, ticker, day))
			}
			*f.dst = market.Price(v)
		}
		quotes = append(quotes, q)
	}

	return quotes, nil
}

// outputSize picks "compact" when the range is recent enough, "full" otherwise.
func (p *StockProvider) outputSize(r market.DateRange) string {
	if p.now().Sub(r.Start) > compactWindow {
		return "full"
	}
	return "compact"
}
