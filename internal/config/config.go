package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Providers understood by the tracker.
const (
	ProviderYahoo        = "yahoo"
	ProviderAlphaVantage = "alphavantage"
)

// Config holds all configuration for the stock tracker.
type Config struct {
	// Market data provider: "yahoo" or "alphavantage"
	Provider string `mapstructure:"provider"`

	// Alpha Vantage credentials and endpoint (configurable for testing)
	AlphavantageAPIKey  string `mapstructure:"alphavantage_api_key"`
	AlphavantageBaseURL string `mapstructure:"alphavantage_base_url"`

	// Files
	RegistryFile string `mapstructure:"registry_file"`
	WorkbookFile string `mapstructure:"workbook_file"`
	SheetName    string `mapstructure:"sheet_name"`

	// Date span of the sheet built by setup
	SheetStart string `mapstructure:"sheet_start"`
	SheetEnd   string `mapstructure:"sheet_end"`

	// Standing populate range; empty means the whole sheet span
	RangeStart string `mapstructure:"range_start"`
	RangeEnd   string `mapstructure:"range_end"`

	// MarketTimezone decides what "today" is
	MarketTimezone string `mapstructure:"market_timezone"`

	// Fetching
	Workers      int           `mapstructure:"workers"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryWait    time.Duration `mapstructure:"retry_wait"`
	RetryMaxWait time.Duration `mapstructure:"retry_max_wait"`
	// RateLimit is provider requests per second; zero keeps the provider default
	RateLimit float64 `mapstructure:"rate_limit"`

	// Logging
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
}

// Load reads configuration from a .env file, environment variables and an
// optional config file. Environment variables take precedence over config
// file values.
//
// Expected environment variables:
//   - PROVIDER (optional, defaults to yahoo)
//   - ALPHAVANTAGE_API_KEY (required for the alphavantage provider)
//   - ALPHAVANTAGE_BASE_URL (optional, defaults to production)
//   - REGISTRY_FILE, WORKBOOK_FILE, SHEET_NAME
//   - SHEET_START, SHEET_END, RANGE_START, RANGE_END (YYYY-MM-DD)
//   - MARKET_TIMEZONE (optional, defaults to Asia/Kolkata)
//   - WORKERS, FETCH_TIMEOUT, MAX_RETRIES, RETRY_WAIT, RETRY_MAX_WAIT, RATE_LIMIT
//   - LOG_LEVEL, LOG_FORMAT, TRACING_ENABLED
func Load() (*Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	v := viper.New()

	v.SetEnvPrefix("") // No prefix, use full names
	v.AutomaticEnv()

	v.SetDefault("provider", ProviderYahoo)
	v.SetDefault("alphavantage_base_url", "https://www.alphavantage.co/query")
	v.SetDefault("registry_file", "stocks.json")
	v.SetDefault("workbook_file", "stock_tracker.xlsx")
	v.SetDefault("sheet_name", "Stock Data")
	v.SetDefault("sheet_start", "2025-01-01")
	v.SetDefault("sheet_end", "2025-12-31")
	v.SetDefault("market_timezone", "Asia/Kolkata")
	v.SetDefault("workers", 5)
	v.SetDefault("fetch_timeout", 15*time.Second)
	v.SetDefault("max_retries", 2)
	v.SetDefault("retry_wait", time.Second)
	v.SetDefault("retry_max_wait", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.stocktracker")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	for _, key := range []string{
		"provider",
		"alphavantage_api_key", "alphavantage_base_url",
		"registry_file", "workbook_file", "sheet_name",
		"sheet_start", "sheet_end", "range_start", "range_end",
		"market_timezone",
		"workers", "fetch_timeout", "max_retries", "retry_wait", "retry_max_wait", "rate_limit",
		"log_level", "log_format", "tracing_enabled",
	} {
		v.BindEnv(key, strings.ToUpper(key))
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.RegistryFile == "" {
		missing = append(missing, "REGISTRY_FILE")
	}
	if c.WorkbookFile == "" {
		missing = append(missing, "WORKBOOK_FILE")
	}
	if c.SheetName == "" {
		missing = append(missing, "SHEET_NAME")
	}
	if c.Provider == ProviderAlphaVantage && c.AlphavantageAPIKey == "" {
		missing = append(missing, "ALPHAVANTAGE_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch c.Provider {
	case ProviderYahoo, ProviderAlphaVantage:
	default:
		return fmt.Errorf("unknown provider %q, expected %s or %s", c.Provider, ProviderYahoo, ProviderAlphaVantage)
	}
	if (c.RangeStart == "") != (c.RangeEnd == "") {
		return fmt.Errorf("RANGE_START and RANGE_END must be set together")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}
	if _, err := time.LoadLocation(c.MarketTimezone); err != nil {
		return fmt.Errorf("invalid MARKET_TIMEZONE %q: %w", c.MarketTimezone, err)
	}
	return nil
}

// Location returns the market time zone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.MarketTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
