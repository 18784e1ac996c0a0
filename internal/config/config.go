// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port        int    `env:"COST_SHARING_PORT" envDefault:"8080"`
	Storage     string `env:"COST_SHARING_STORAGE" envDefault:"sqlite"`
	DBPath      string `env:"COST_SHARING_DB_PATH" envDefault:"./data/cost-sharing.db"`
	DatabaseURL string `env:"COST_SHARING_DATABASE_URL"`

	JWTSecret string        `env:"COST_SHARING_JWT_SECRET,required,notEmpty"`
	JWTTTL    time.Duration `env:"COST_SHARING_JWT_TTL" envDefault:"168h"`

	BaseURL            string `env:"COST_SHARING_BASE_URL" envDefault:"http://localhost:8080"`
	GoogleClientID     string `env:"COST_SHARING_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"COST_SHARING_GOOGLE_CLIENT_SECRET"`

	LogLevel     string `env:"COST_SHARING_LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"COST_SHARING_LOG_FORMAT" envDefault:"text"`
	OTelEndpoint string `env:"COST_SHARING_OTEL_ENDPOINT"`
	StaticPath   string `env:"COST_SHARING_STATIC_PATH" envDefault:"./static"`
}

// Load reads envFiles (".env" when none are given) into the process
// environment, parses the environment and validates the result. Missing
// env files are ignored; variables already set take precedence.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("COST_SHARING_PORT must be between 1 and 65535, got %d", c.Port))
	}

	switch c.Storage {
	case StorageSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("COST_SHARING_DB_PATH is required for sqlite storage"))
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("COST_SHARING_DATABASE_URL is required for postgres storage"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("COST_SHARING_STORAGE must be one of sqlite, postgres, memory, got %q", c.Storage))
	}

	if c.JWTTTL <= 0 {
		errs = append(errs, fmt.Errorf("COST_SHARING_JWT_TTL must be positive, got %s", c.JWTTTL))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("COST_SHARING_LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// OAuthConfigured reports whether Google sign-in credentials are present.
func (c *Config) OAuthConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
