package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// allVars lists every environment variable Load reads.
var allVars = []string{
	"PROVIDER",
	"ALPHAVANTAGE_API_KEY",
	"ALPHAVANTAGE_BASE_URL",
	"REGISTRY_FILE",
	"WORKBOOK_FILE",
	"SHEET_NAME",
	"SHEET_START",
	"SHEET_END",
	"RANGE_START",
	"RANGE_END",
	"MARKET_TIMEZONE",
	"WORKERS",
	"FETCH_TIMEOUT",
	"MAX_RETRIES",
	"RETRY_WAIT",
	"RETRY_MAX_WAIT",
	"RATE_LIMIT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"TRACING_ENABLED",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allVars {
		key := key
		if value, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, value) })
		}
	}
}

func TestLoad_Success(t *testing.T) {
	clearEnv(t)

	envVars := map[string]string{
		"PROVIDER":              "alphavantage",
		"ALPHAVANTAGE_API_KEY":  "test_alphavantage_key",
		"ALPHAVANTAGE_BASE_URL": "https://test.alphavantage.co",
		"REGISTRY_FILE":         "testdata/stocks.yaml",
		"WORKBOOK_FILE":         "out/tracker.xlsx",
		"SHEET_NAME":            "Prices",
		"RANGE_START":           "2026-01-05",
		"RANGE_END":             "2026-01-09",
		"MARKET_TIMEZONE":       "America/New_York",
		"WORKERS":               "8",
		"FETCH_TIMEOUT":         "3s",
		"MAX_RETRIES":           "4",
		"RETRY_WAIT":            "250ms",
		"RATE_LIMIT":            "0.5",
		"LOG_FORMAT":            "json",
		"TRACING_ENABLED":       "true",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"Provider", cfg.Provider, ProviderAlphaVantage},
		{"AlphavantageAPIKey", cfg.AlphavantageAPIKey, "test_alphavantage_key"},
		{"AlphavantageBaseURL", cfg.AlphavantageBaseURL, "https://test.alphavantage.co"},
		{"RegistryFile", cfg.RegistryFile, "testdata/stocks.yaml"},
		{"WorkbookFile", cfg.WorkbookFile, "out/tracker.xlsx"},
		{"SheetName", cfg.SheetName, "Prices"},
		{"RangeStart", cfg.RangeStart, "2026-01-05"},
		{"RangeEnd", cfg.RangeEnd, "2026-01-09"},
		{"MarketTimezone", cfg.MarketTimezone, "America/New_York"},
		{"Workers", cfg.Workers, 8},
		{"FetchTimeout", cfg.FetchTimeout, 3 * time.Second},
		{"MaxRetries", cfg.MaxRetries, 4},
		{"RetryWait", cfg.RetryWait, 250 * time.Millisecond},
		{"RateLimit", cfg.RateLimit, 0.5},
		{"LogFormat", cfg.LogFormat, "json"},
		{"TracingEnabled", cfg.TracingEnabled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	if got := cfg.Location().String(); got != "America/New_York" {
		t.Errorf("Location() = %s, want America/New_York", got)
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"Provider", cfg.Provider, ProviderYahoo},
		{"AlphavantageBaseURL", cfg.AlphavantageBaseURL, "https://www.alphavantage.co/query"},
		{"RegistryFile", cfg.RegistryFile, "stocks.json"},
		{"WorkbookFile", cfg.WorkbookFile, "stock_tracker.xlsx"},
		{"SheetName", cfg.SheetName, "Stock Data"},
		{"MarketTimezone", cfg.MarketTimezone, "Asia/Kolkata"},
		{"Workers", cfg.Workers, 5},
		{"FetchTimeout", cfg.FetchTimeout, 15 * time.Second},
		{"MaxRetries", cfg.MaxRetries, 2},
		{"RetryWait", cfg.RetryWait, time.Second},
		{"RetryMaxWait", cfg.RetryMaxWait, 10 * time.Second},
		{"LogLevel", cfg.LogLevel, "info"},
		{"RangeStart", cfg.RangeStart, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    map[string]string
		wantErrText string
	}{
		{
			name:        "alphavantage without key",
			setupEnv:    map[string]string{"PROVIDER": "alphavantage"},
			wantErrText: "missing required configuration: ALPHAVANTAGE_API_KEY",
		},
		{
			name:        "unknown provider",
			setupEnv:    map[string]string{"PROVIDER": "bloomberg"},
			wantErrText: "unknown provider",
		},
		{
			name:        "half a range",
			setupEnv:    map[string]string{"RANGE_START": "2026-01-05"},
			wantErrText: "must be set together",
		},
		{
			name:        "no workers",
			setupEnv:    map[string]string{"WORKERS": "0"},
			wantErrText: "WORKERS",
		},
		{
			name:        "bad timezone",
			setupEnv:    map[string]string{"MARKET_TIMEZONE": "Mars/Olympus"},
			wantErrText: "MARKET_TIMEZONE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.setupEnv {
				t.Setenv(key, value)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrText) {
				t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.wantErrText)
			}
		})
	}
}
