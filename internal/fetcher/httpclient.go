package fetcher

import (
	"context"
	"errors"
	"net"
	"time"

	"resty.dev/v3"
)

const (
	// Default per-call timeout for provider requests
	defaultTimeout = 15 * time.Second
)

// NewHTTPClient creates a resty client for a quote provider. Retries are not
// configured here: the Fetcher owns the retry policy for every provider.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "stocktracker/1.0").
		SetTimeout(timeout)

	return client
}

// CheckResponse turns a resty transport error or non-2xx status into a FetchError.
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return NewTimeoutError(err)
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		return NewNetworkError(err)
	}

	if !resp.IsSuccess() {
		return ClassifyHTTPError(resp.StatusCode())
	}
	return nil
}
