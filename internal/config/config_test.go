package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
console:
  server: https://monitor.example.com
  data_dir: /var/lib/easymon-console
  refresh_sec: 10
poll:
  interval_sec: 45
  window_min: 30
  status: FAIL
rate:
  enabled: true
  requests_per_sec: 20
  burst: 40
`

func TestLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "console.yaml")

	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(ctx, path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Console.Server != "https://monitor.example.com" {
		t.Fatalf("unexpected server: %s", cfg.Console.Server)
	}
	if cfg.Poll.Status != "FAIL" {
		t.Fatalf("unexpected poll status: %s", cfg.Poll.Status)
	}
	if !cfg.Rate.Enabled || cfg.Rate.RequestsPerSecond != 20 {
		t.Fatalf("unexpected rate config: %+v", cfg.Rate)
	}
	if cfg.PollInterval() != 45*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.PollWindow() != 30*time.Minute {
		t.Fatalf("unexpected poll window: %s", cfg.PollWindow())
	}
}

func TestLoadFromEnv(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "console.yaml")

	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(envConfigPath, path)

	cfg, err := LoadFromEnv(ctx)
	if err != nil {
		t.Fatalf("LoadFromEnv returned error: %v", err)
	}
	if cfg.Console.DataDir != "/var/lib/easymon-console" {
		t.Fatalf("unexpected data dir: %s", cfg.Console.DataDir)
	}
}

func TestPollDefaultsApplyFloors(t *testing.T) {
	var cfg Config
	if cfg.PollInterval() != 30*time.Second {
		t.Fatalf("unexpected default interval: %s", cfg.PollInterval())
	}
	if cfg.PollWindow() != 60*time.Minute {
		t.Fatalf("unexpected default window: %s", cfg.PollWindow())
	}
}
