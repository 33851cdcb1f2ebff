package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPort         = "5050"
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"
)

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://localhost:8000",
}

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// Config holds the server settings read from the environment.
type Config struct {
	Port           string
	DatabaseURL    string
	AllowedOrigins []string
	SessionTTL     time.Duration

	NominatimURL   string
	SearchRate     float64 // outbound requests per second
	SearchCacheTTL time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	MetricsEnabled bool
}

// LoadFromEnv loads configuration from environment variables.
//
// Environment variables:
//   - PORT (default 5050)
//   - DATABASE_URL (required)
//   - ALLOWED_ORIGINS: comma separated CORS allow-list
//   - SESSION_TTL_HOURS (default 6)
//   - NOMINATIM_URL (default https://nominatim.openstreetmap.org/search)
//   - SEARCH_RATE_PER_SEC (default 1, the public Nominatim limit)
//   - SEARCH_CACHE_TTL_MINUTES (default 60)
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB: search cache, disabled when REDIS_ADDR is empty
//   - METRICS_ENABLED (default true)
func LoadFromEnv() Config {
	cfg := Config{
		Port:           getenv("PORT", DefaultPort),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AllowedOrigins: defaultOrigins,
		SessionTTL:     time.Duration(getenvInt("SESSION_TTL_HOURS", 6)) * time.Hour,
		NominatimURL:   getenv("NOMINATIM_URL", DefaultNominatimURL),
		SearchRate:     getenvFloat("SEARCH_RATE_PER_SEC", 1),
		SearchCacheTTL: time.Duration(getenvInt("SEARCH_CACHE_TTL_MINUTES", 60)) * time.Minute,
		RedisAddr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getenvInt("REDIS_DB", 0),
		MetricsEnabled: getenv("METRICS_ENABLED", "true") != "false",
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.AllowedOrigins = origins
	}
	return cfg
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.SearchRate <= 0 {
		return errors.New("SEARCH_RATE_PER_SEC must be positive")
	}
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
