package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	// Server
	Env      string `envconfig:"ENV" default:"development"`
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL"`
	APIKey   string `envconfig:"API_KEY"` // required in X-API-Key when set

	// Requests per second and burst allowed per client IP; 0 disables limiting.
	RateLimit      float64 `envconfig:"RATE_LIMIT" default:"20"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"40"`

	// Database
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"kasa"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"kasa"`
	DBName     string `envconfig:"DB_NAME" default:"kasa"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// Exchange rates
	FXProvider       string        `envconfig:"FX_PROVIDER" default:"tcmb"` // tcmb or static
	FXBaseURL        string        `envconfig:"FX_BASE_URL" default:"https://www.tcmb.gov.tr/kurlar"`
	FXRequestTimeout time.Duration `envconfig:"FX_REQUEST_TIMEOUT" default:"10s"`
	FXLookbackDays   int           `envconfig:"FX_LOOKBACK_DAYS" default:"7"`
	FXStaticRates    StaticRates   `envconfig:"FX_STATIC_RATES"`
	FXCacheTTL       time.Duration `envconfig:"FX_CACHE_TTL" default:"1m"` // 0 disables the in-memory cache

	// Events
	RabbitMQURI      string `envconfig:"RABBITMQ_URI"`
	RabbitMQExchange string `envconfig:"RABBITMQ_LEDGER_EXCHANGE" default:"kasa_ledger"`

	// Commissions
	EnforcePayoutLimit bool `envconfig:"COMMISSION_ENFORCE_PAYOUT_LIMIT" default:"false"`
}

// StaticRates maps a currency code to a buying/selling pair, decoded from
// "USD=32.00/32.10;EUR=35.00/35.20".
type StaticRates map[string][2]string

// Decode implements envconfig.Decoder.
func (s *StaticRates) Decode(value string) error {
	rates := StaticRates{}
	for _, pair := range strings.Split(value, ";") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		code, quote, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid rate item: %q", pair)
		}
		buying, selling, ok := strings.Cut(quote, "/")
		if !ok {
			selling = buying
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = [2]string{strings.TrimSpace(buying), strings.TrimSpace(selling)}
	}
	*s = rates
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// MigrationURL returns the postgres:// URL form used by golang-migrate.
func (c *Config) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Load loads configuration from the environment, reading a .env file first if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if cfg.FXLookbackDays < 0 {
		return nil, fmt.Errorf("FX_LOOKBACK_DAYS must not be negative, got %d", cfg.FXLookbackDays)
	}
	if cfg.FXRequestTimeout <= 0 {
		return nil, fmt.Errorf("FX_REQUEST_TIMEOUT must be positive, got %v", cfg.FXRequestTimeout)
	}
	if cfg.FXCacheTTL < 0 {
		return nil, fmt.Errorf("FX_CACHE_TTL must not be negative, got %v", cfg.FXCacheTTL)
	}
	if cfg.RateLimit < 0 || cfg.RateLimitBurst < 0 {
		return nil, fmt.Errorf("RATE_LIMIT and RATE_LIMIT_BURST must not be negative")
	}
	switch cfg.FXProvider {
	case "tcmb", "static":
	default:
		return nil, fmt.Errorf("invalid FX_PROVIDER %q: must be tcmb or static", cfg.FXProvider)
	}

	return cfg, nil
}
