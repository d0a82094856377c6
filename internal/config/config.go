package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds the application configuration
type Config struct {
	// HTTP listen port
	Port string

	// postgres or memory
	StoreDriver string

	Database DatabaseConfig
	JWT      JWTConfig

	// Maximum number of items accepted by a bulk assignment call
	BulkMaxItems int

	// Entries kept in the access snapshot cache; 0 disables caching
	AccessCacheSize int

	// Interval of the role expiry sweep; 0 disables it
	RoleExpirySweep time.Duration

	// Bootstrap administrator, created by the seeding routine when both are set
	AdminEmail    string
	AdminPassword string

	LogLevel slog.Level
	Debug    bool
}

type DatabaseConfig struct {
	// Full DSN; takes precedence over the individual fields
	URL      string
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	TimeZone string
}

// DSN returns the connection string for the postgres driver.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.TimeZone,
	)
}

type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "3000"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			Port:     getEnv("DB_PORT", "5432"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-super-secret-key-change-in-production"),
			Issuer: getEnv("JWT_ISSUER", "go-fund-admin"),
		},
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (expected %q or %q)", cfg.StoreDriver, StoreDriverPostgres, StoreDriverMemory)
	}

	var err error
	if cfg.JWT.TTL, err = getDuration("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RoleExpirySweep, err = getDuration("ROLE_EXPIRY_SWEEP", 0); err != nil {
		return nil, err
	}
	if cfg.BulkMaxItems, err = getInt("BULK_MAX_ITEMS", 100); err != nil {
		return nil, err
	}
	if cfg.BulkMaxItems <= 0 {
		return nil, fmt.Errorf("BULK_MAX_ITEMS must be positive, got %d", cfg.BulkMaxItems)
	}
	if cfg.AccessCacheSize, err = getInt("ACCESS_CACHE_SIZE", 0); err != nil {
		return nil, err
	}
	if cfg.Debug, err = getBool("DEBUG", false); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
