// Package config loads the menuforged configuration from a YAML file
// with environment overrides for the settings that differ per
// deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/menuforge/menuforge/pkg/catalog"
	"github.com/menuforge/menuforge/pkg/orchestrator"
	"github.com/menuforge/menuforge/pkg/store"
	"github.com/menuforge/menuforge/pkg/telemetry"
)

// Config is the full menuforged configuration tree.
type Config struct {
	Server       ServerConfig            `yaml:"server"`
	Redis        RedisConfig             `yaml:"redis"`
	StoreRetry   store.RetryConfig       `yaml:"store_retry"`
	Orchestrator orchestrator.Config     `yaml:"orchestrator"`
	Worker       WorkerConfig            `yaml:"worker"`
	Catalog      catalog.ProviderConfig  `yaml:"catalog"`
	Logging      telemetry.LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig configures the store connection.
type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"required"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	PoolSize int    `yaml:"pool_size" validate:"gte=0"`
}

// WorkerConfig configures the subprocess pool.
type WorkerConfig struct {
	// PoolSize bounds concurrent optimizer subprocesses. Zero means
	// NumCPU-1.
	PoolSize int `yaml:"pool_size" validate:"gte=0"`

	// BinPath is the planworker executable. Empty selects in-process
	// execution, used by the CLI and tests.
	BinPath string `yaml:"bin_path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		StoreRetry:   store.DefaultRetryConfig(),
		Orchestrator: orchestrator.DefaultConfig(),
		Catalog: catalog.ProviderConfig{
			Timeout:  5 * time.Second,
			CacheTTL: time.Hour,
		},
		Logging: telemetry.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// Load reads the YAML file at path (skipped when empty), applies
// environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides the deployment-specific settings. Only the knobs
// that routinely differ between environments are exposed this way.
func applyEnv(cfg *Config) {
	if v := os.Getenv("MENUFORGE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("MENUFORGE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("MENUFORGE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("MENUFORGE_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("MENUFORGE_CATALOG_URL"); v != "" {
		cfg.Catalog.BaseURL = v
	}
	if v := os.Getenv("MENUFORGE_WORKER_BIN"); v != "" {
		cfg.Worker.BinPath = v
	}
	if v := os.Getenv("MENUFORGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
