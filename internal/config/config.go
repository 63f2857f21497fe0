// Package config loads lotwatch configuration from config files,
// environment variables, and .env files via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default values.
const (
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 8000
	DefaultGuardFraction = 0.25
	DefaultSource        = "file"
)

// Config holds the service configuration.
type Config struct {
	// HTTP server
	Host        string
	Port        int
	CORSOrigins []string

	// Store; an empty DatabaseURL selects the in-memory backend.
	DatabaseURL string

	// Snapshot producer: "file" or "http".
	SnapshotSource string
	SnapshotPath   string
	SnapshotURL    string

	// Reconciliation
	GuardFraction float64

	// Periodic pipeline runs; zero disables the ticker.
	SyncInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration in order of precedence: environment
// variables (LOTWATCH_ prefix), .env files, an optional config file,
// then defaults.
func Load(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix("LOTWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("cors_origins", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("database_url", "")
	v.SetDefault("snapshot.source", DefaultSource)
	v.SetDefault("snapshot.path", "snapshot.yaml")
	v.SetDefault("snapshot.url", "")
	v.SetDefault("sync.guard_fraction", DefaultGuardFraction)
	v.SetDefault("sync.interval", time.Duration(0))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("lotwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		// Missing default config file is fine.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	cfg := &Config{
		Host:           v.GetString("host"),
		Port:           v.GetInt("port"),
		CORSOrigins:    splitOrigins(v.GetString("cors_origins")),
		DatabaseURL:    v.GetString("database_url"),
		SnapshotSource: v.GetString("snapshot.source"),
		SnapshotPath:   v.GetString("snapshot.path"),
		SnapshotURL:    v.GetString("snapshot.url"),
		GuardFraction:  v.GetFloat64("sync.guard_fraction"),
		SyncInterval:   v.GetDuration("sync.interval"),
		LogLevel:       v.GetString("log.level"),
		LogFormat:      v.GetString("log.format"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.GuardFraction < 0 || c.GuardFraction > 1 {
		return fmt.Errorf("sync.guard_fraction must be within [0, 1], got %v", c.GuardFraction)
	}
	switch c.SnapshotSource {
	case "file", "http":
	default:
		return fmt.Errorf("unknown snapshot.source %q (want file or http)", c.SnapshotSource)
	}
	return nil
}

// Addr returns the host:port bind address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// loadEnvFiles loads .env files before Viper env binding. Missing files
// are not an error.
func loadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

func splitOrigins(s string) []string {
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
