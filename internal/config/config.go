package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Ledger backends for the donation report
const (
	LedgerWarehouse = "warehouse"
	LedgerPostgres  = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port        string
	CORSOrigins []string
	Env         string
	LogLevel    string

	// Upstream fetching
	Fetch FetchConfig

	// Series pipeline
	SourcesFile      string
	BatchConcurrency int
	RedisURL         string
	CacheDefaultTTL  time.Duration
	RefreshSchedule  string // empty disables the refresh worker

	// Rate limiting
	RateLimitPerMinute int
	RateLimitBurst     int

	// Donations
	Donations DonationsConfig
}

// FetchConfig holds upstream HTTP client configuration
type FetchConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// DonationsConfig holds donation ledger configuration
type DonationsConfig struct {
	Ledger string

	// warehouse ledger
	WarehouseURL      string
	WarehouseAPIKey   string
	WarehouseDatabase int

	// postgres ledger
	DatabaseURL string

	Status         string
	Since          *time.Time
	RecencyMonths  int
	RowLimit       int
	Location       *time.Location
	YearCorrection *YearCorrection
}

// YearCorrection restamps ledger rows dated in From to year To
type YearCorrection struct {
	From int
	To   int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		Env:             getEnv("ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		SourcesFile:     getEnv("SOURCES_FILE", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		RefreshSchedule: os.Getenv("REFRESH_SCHEDULE"),
		Donations: DonationsConfig{
			Ledger:          strings.ToLower(getEnv("DONATIONS_LEDGER", LedgerWarehouse)),
			WarehouseURL:    getEnv("DONATIONS_WAREHOUSE_URL", ""),
			WarehouseAPIKey: getEnv("DONATIONS_WAREHOUSE_API_KEY", ""),
			DatabaseURL:     getEnv("DATABASE_URL", ""),
			Status:          getEnv("DONATIONS_STATUS", "S"),
		},
	}

	var err error
	cfg.Fetch.Timeout, err = getDuration("FETCH_TIMEOUT", 10*time.Second)
	collect(err)
	maxBody, err := getInt("FETCH_MAX_BODY_BYTES", 16<<20)
	collect(err)
	cfg.Fetch.MaxBodyBytes = int64(maxBody)
	cfg.Fetch.UserAgent = getEnv("FETCH_USER_AGENT", "EFB-Dashboard/1.0")

	cfg.BatchConcurrency, err = getInt("SERIES_BATCH_CONCURRENCY", 8)
	collect(err)
	cfg.CacheDefaultTTL, err = getDuration("CACHE_DEFAULT_TTL", time.Hour)
	collect(err)

	cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 120)
	collect(err)
	cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 30)
	collect(err)

	cfg.Donations.WarehouseDatabase, err = getInt("DONATIONS_WAREHOUSE_DATABASE", 2)
	collect(err)
	cfg.Donations.RecencyMonths, err = getInt("DONATIONS_RECENCY_MONTHS", 12)
	collect(err)
	cfg.Donations.RowLimit, err = getInt("DONATIONS_ROW_LIMIT", 5000)
	collect(err)

	if raw := os.Getenv("DONATIONS_SINCE"); raw != "" {
		since, err := time.Parse("2006-01-02", raw)
		if err != nil {
			collect(fmt.Errorf("DONATIONS_SINCE must be YYYY-MM-DD: %w", err))
		} else {
			cfg.Donations.Since = &since
		}
	}

	loc, err := time.LoadLocation(getEnv("DONATIONS_TIMEZONE", "UTC"))
	if err != nil {
		collect(fmt.Errorf("DONATIONS_TIMEZONE is invalid: %w", err))
	}
	cfg.Donations.Location = loc

	cfg.Donations.YearCorrection, err = parseYearCorrection(os.Getenv("DONATIONS_YEAR_CORRECTION"))
	collect(err)

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	switch c.Donations.Ledger {
	case LedgerWarehouse:
		if c.Donations.WarehouseURL == "" {
			return fmt.Errorf("DONATIONS_WAREHOUSE_URL is required")
		}
		if c.Donations.WarehouseAPIKey == "" {
			return fmt.Errorf("DONATIONS_WAREHOUSE_API_KEY is required")
		}
	case LedgerPostgres:
		if c.Donations.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	default:
		return fmt.Errorf("DONATIONS_LEDGER must be %q or %q", LedgerWarehouse, LedgerPostgres)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("FETCH_MAX_BODY_BYTES must be positive")
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("SERIES_BATCH_CONCURRENCY must be positive")
	}
	if c.Donations.RecencyMonths < 0 {
		return fmt.Errorf("DONATIONS_RECENCY_MONTHS must not be negative")
	}
	if c.Donations.RowLimit <= 0 {
		return fmt.Errorf("DONATIONS_ROW_LIMIT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be a duration such as 10s", key)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseYearCorrection parses FROM:TO, e.g. 2025:2024. Empty disables the correction.
func parseYearCorrection(raw string) (*YearCorrection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	from, to, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, fmt.Errorf("DONATIONS_YEAR_CORRECTION must be FROM:TO")
	}
	fromYear, err1 := strconv.Atoi(strings.TrimSpace(from))
	toYear, err2 := strconv.Atoi(strings.TrimSpace(to))
	if err1 != nil || err2 != nil || fromYear <= 0 || toYear <= 0 {
		return nil, fmt.Errorf("DONATIONS_YEAR_CORRECTION must be FROM:TO with numeric years")
	}
	return &YearCorrection{From: fromYear, To: toYear}, nil
}
