package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "menuforged.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Orchestrator.LockTTL != 10*time.Minute {
		t.Errorf("LockTTL = %v, want 10m", cfg.Orchestrator.LockTTL)
	}
	if cfg.Orchestrator.TaskTTL != time.Hour {
		t.Errorf("TaskTTL = %v, want 1h", cfg.Orchestrator.TaskTTL)
	}
	if cfg.Orchestrator.Optimizer.PopulationSize != 50 {
		t.Errorf("PopulationSize = %d, want 50", cfg.Orchestrator.Optimizer.PopulationSize)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  read_timeout: 5s
redis:
  addr: "redis.internal:6379"
  db: 2
orchestrator:
  lock_ttl: 5m
  plan_cache_ttl: 48h
  optimizer:
    generations: 80
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Redis.DB != 2 {
		t.Errorf("Redis.DB = %d, want 2", cfg.Redis.DB)
	}
	if cfg.Orchestrator.LockTTL != 5*time.Minute {
		t.Errorf("LockTTL = %v, want 5m", cfg.Orchestrator.LockTTL)
	}
	if cfg.Orchestrator.PlanCacheTTL != 48*time.Hour {
		t.Errorf("PlanCacheTTL = %v, want 48h", cfg.Orchestrator.PlanCacheTTL)
	}
	if cfg.Orchestrator.Optimizer.Generations != 80 {
		t.Errorf("Generations = %d, want 80", cfg.Orchestrator.Optimizer.Generations)
	}
	// Untouched sections keep their defaults.
	if cfg.Orchestrator.Optimizer.PopulationSize != 50 {
		t.Errorf("PopulationSize = %d, want default 50", cfg.Orchestrator.Optimizer.PopulationSize)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
redis:
  addr: "from-file:6379"
`)
	t.Setenv("MENUFORGE_REDIS_ADDR", "from-env:6379")
	t.Setenv("MENUFORGE_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Redis.Addr != "from-env:6379" {
		t.Errorf("Redis.Addr = %q, want env value", cfg.Redis.Addr)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ""
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted an empty server addr")
	}

	path = writeConfig(t, `
orchestrator:
  optimizer:
    crossover_rate: 1.5
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted crossover_rate > 1")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load accepted a missing file")
	}
}
