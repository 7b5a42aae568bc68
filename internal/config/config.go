package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	ProviderURL            string
	ProviderAPIKey         string
	ProviderRetryMax       int
	ProviderRetryBaseDelay time.Duration
	ProviderRateLimit      float64
	DatabaseURL            string
	HTTPPort               string
	Currency               string
	ThresholdFilter        bool
	MinValue               decimal.Decimal
	CacheTTL               time.Duration
	RefreshInterval        time.Duration
	RefreshConcurrency     int
	TrackedWallets         []string
	RegistryFile           string
	AdminAPIKey            string
	LogLevel               string
	LogFormat              string
	GoogleSheetsID         string
	GoogleCredentialsJSON  string
	XLSXExportDir          string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		ProviderURL:            envOrDefault("PROVIDER_URL", "https://positions.example.invalid"),
		ProviderAPIKey:         envOrDefault("PROVIDER_API_KEY", ""),
		ProviderRetryMax:       envOrDefaultInt("PROVIDER_RETRY_MAX", 5),
		ProviderRetryBaseDelay: envOrDefaultDuration("PROVIDER_RETRY_BASE_DELAY", 2*time.Second),
		ProviderRateLimit:      envOrDefaultFloat("PROVIDER_RATE_LIMIT", 5),
		DatabaseURL:            envOrDefaultWarn("DATABASE_URL", ""),
		HTTPPort:               envOrDefault("HTTP_PORT", "8080"),
		Currency:               strings.ToUpper(envOrDefault("CURRENCY", "USD")),
		ThresholdFilter:        envOrDefaultBool("DEFI_POSITIONS_THRESHOLD_FILTER", false),
		MinValue:               envOrDefaultDecimal("DEFI_POSITIONS_MIN_VALUE", decimal.NewFromInt(1)),
		CacheTTL:               envOrDefaultDuration("POSITIONS_CACHE_TTL", 5*time.Minute),
		RefreshInterval:        envOrDefaultPositiveDuration("REFRESH_WORKER_INTERVAL", 15*time.Minute),
		RefreshConcurrency:     envOrDefaultInt("REFRESH_CONCURRENCY", 4),
		TrackedWallets:         envList("TRACKED_WALLETS"),
		RegistryFile:           envOrDefault("PROTOCOL_REGISTRY_FILE", ""),
		AdminAPIKey:            envOrDefaultWarn("ADMIN_API_KEY", ""),
		LogLevel:               envOrDefault("LOG_LEVEL", "info"),
		LogFormat:              envOrDefault("LOG_FORMAT", "json"),
		GoogleSheetsID:         envOrDefault("GOOGLE_SHEETS_ID", ""),
		GoogleCredentialsJSON:  envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
		XLSXExportDir:          envOrDefault("XLSX_EXPORT_DIR", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return b
	}
	return defaultVal
}

func envOrDefaultDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			slog.Warn("invalid decimal env var, using default", "key", key, "value", v, "default", defaultVal.String())
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

// envOrDefaultPositiveDuration is envOrDefaultDuration for values that must be greater than zero.
func envOrDefaultPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	d := envOrDefaultDuration(key, defaultVal)
	if d <= 0 {
		slog.Warn("non-positive duration env var, using default", "key", key, "value", d, "default", defaultVal)
		return defaultVal
	}
	return d
}

// envList splits a comma-separated variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
