// Package config loads run settings from a YAML file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/strategy"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Environment variables. Values from the environment override the file.
const (
	EnvPostgresDSN   = "BACKTEST_POSTGRES_DSN"
	EnvClickhouseDSN = "BACKTEST_CLICKHOUSE_DSN"
	EnvWorkers       = "BACKTEST_WORKERS"
	EnvHTTPAddr      = "BACKTEST_HTTP_ADDR"
	EnvOutputDir     = "BACKTEST_OUTPUT_DIR"
)

// Config holds all settings for one process.
type Config struct {
	Strategy domain.StrategyConfig `yaml:"strategy"`

	Workers   int    `yaml:"workers"`
	OutputDir string `yaml:"output_dir"`

	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	HTTPAddr      string `yaml:"http_addr"`
}

// Default returns the reference settings.
func Default() Config {
	return Config{
		Strategy:  domain.DefaultStrategyConfig(),
		Workers:   4,
		OutputDir: "out",
		HTTPAddr:  ":8080",
	}
}

// Load builds the config: defaults, then the YAML file at path (optional),
// then the environment (a .env file in the working directory is honored).
func Load(path string) (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		if err := Decode(f, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode reads YAML over cfg. Keys absent from the document keep their
// current values; unknown keys are rejected so typos do not pass silently.
func Decode(r io.Reader, cfg *Config) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// applyEnv overrides fields from getenv. Empty values are ignored.
func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(EnvPostgresDSN); v != "" {
		cfg.PostgresDSN = v
	}
	if v := getenv(EnvClickhouseDSN); v != "" {
		cfg.ClickhouseDSN = v
	}
	if v := getenv(EnvHTTPAddr); v != "" {
		cfg.HTTPAddr = v
	}
	if v := getenv(EnvOutputDir); v != "" {
		cfg.OutputDir = v
	}
	if v := strings.TrimSpace(getenv(EnvWorkers)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvWorkers, err)
		}
		cfg.Workers = n
	}
	return nil
}

// Validate checks run settings and the strategy parameters.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if err := strategy.ValidateConfig(c.Strategy); err != nil {
		return fmt.Errorf("%w: strategy: %w", ErrInvalidConfig, err)
	}
	return nil
}

// HasDatabases reports whether both database DSNs are set.
func (c *Config) HasDatabases() bool {
	return c.PostgresDSN != "" && c.ClickhouseDSN != ""
}
