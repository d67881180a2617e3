package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration, read from environment variables.
type Config struct {
	DatabaseURL string
	Port        int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MarketAPIURL   string
	MarketAPIToken string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Fetch tuning
	FetchWorkers       int
	RetryCeiling       int
	RetryBaseDelay     time.Duration
	RequestTimeout     time.Duration
	RequestsPerMinute  int
	PaginationCeiling  int
	PageSize           int
	ProductBatchCap    int
	ThrottleThreshold  int
	ThrottlePause      time.Duration

	// Offset from midnight UTC for the daily pipeline run.
	DailyRunAt time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Port:              envInt("PORT", 8080),
		RedisAddr:         envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           envInt("REDIS_DB", 0),
		MarketAPIURL:      envString("MARKET_API_URL", "https://graphql.market.example"),
		MarketAPIToken:    os.Getenv("MARKET_API_TOKEN"),
		MinioEndpoint:     os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:    os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:    os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:       envString("MINIO_BUCKET", "marketscan-raw"),
		MinioUseSSL:       os.Getenv("MINIO_USE_SSL") == "true",
		FetchWorkers:      envInt("FETCH_WORKERS", 30),
		RetryCeiling:      envInt("FETCH_RETRY_CEILING", 3),
		RetryBaseDelay:    envDuration("FETCH_RETRY_BASE_DELAY", 500*time.Millisecond),
		RequestTimeout:    envDuration("FETCH_REQUEST_TIMEOUT", 60*time.Second),
		RequestsPerMinute: envInt("FETCH_REQUESTS_PER_MINUTE", 600),
		PaginationCeiling: envInt("PAGINATION_CEILING", 10000),
		PageSize:          envInt("SEARCH_PAGE_SIZE", 100),
		ProductBatchCap:   envInt("PRODUCT_BATCH_CAP", 25000),
		ThrottleThreshold: envInt("THROTTLE_THRESHOLD", 4000),
		ThrottlePause:     envDuration("THROTTLE_PAUSE", 10*time.Second),
		DailyRunAt:        envDuration("DAILY_RUN_AT", 3*time.Hour),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
