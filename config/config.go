package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultUpstreamURL = "https://sedeaplicaciones.minetur.gob.es/ServiciosRESTCarburantes/PreciosCarburantes/EstacionesTerrestres/"

	defaultRequestTimeout = 30 * time.Second
	defaultPort           = 8080
	defaultMaxConns       = 10
	defaultDefaultLimit   = 100
	defaultMaxLimit       = 1000
	defaultDefaultDays    = 30
)

// Config holds environment-driven settings for the service.
type Config struct {
	DatabaseURL    string
	UpstreamURL    string
	RequestTimeout time.Duration
	Port           int
	BearerToken    string
	DBMaxConns     int32
	DefaultLimit   int
	MaxLimit       int
	DefaultDays    int
	SyncInterval   time.Duration // zero disables the scheduler
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		UpstreamURL:    defaultUpstreamURL,
		RequestTimeout: defaultRequestTimeout,
		Port:           defaultPort,
		DBMaxConns:     defaultMaxConns,
		DefaultLimit:   defaultDefaultLimit,
		MaxLimit:       defaultMaxLimit,
		DefaultDays:    defaultDefaultDays,
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	if v := strings.TrimSpace(os.Getenv("GOBIERNO_API_URL")); v != "" {
		cfg.UpstreamURL = v
	}

	if v := strings.TrimSpace(os.Getenv("API_TIMEOUT")); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid API_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
		cfg.Port = port
	}

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid DB_MAX_CONNS: %s", v)
		}
		cfg.DBMaxConns = int32(n)
	}

	if v := os.Getenv("API_DEFAULT_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid API_DEFAULT_LIMIT: %s", v)
		}
		cfg.DefaultLimit = n
	}

	if v := os.Getenv("API_MAX_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid API_MAX_LIMIT: %s", v)
		}
		cfg.MaxLimit = n
	}

	if v := os.Getenv("API_DEFAULT_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid API_DEFAULT_DAYS: %s", v)
		}
		cfg.DefaultDays = n
	}

	if v := strings.TrimSpace(os.Getenv("SYNC_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
		}
		cfg.SyncInterval = d
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	return cfg, nil
}

// parseTimeout accepts either a Go duration ("30s") or a bare number of
// seconds ("30"), the format the original deployment used.
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("must be positive: %s", v)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive: %s", v)
	}
	return d, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
