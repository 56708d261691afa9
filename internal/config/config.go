package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const envConfigPath = "EASYMON_CONSOLE_CONFIG"

type Config struct {
	Console ConsoleConfig `yaml:"console"`
	Poll    PollConfig    `yaml:"poll"`
	Rate    RateConfig    `yaml:"rate"`
}

type ConsoleConfig struct {
	Server     string `yaml:"server"`
	BasePath   string `yaml:"base_path"`
	DataDir    string `yaml:"data_dir"`
	RefreshSec int    `yaml:"refresh_sec"`
}

type PollConfig struct {
	IntervalSec int    `yaml:"interval_sec"`
	WindowMin   int    `yaml:"window_min"`
	Status      string `yaml:"status"`
}

// RateConfig caps outbound request rate against the service.
type RateConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_sec"`
	Burst             int     `yaml:"burst"`
}

// DefaultConfigPath resolves the per-user config location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/etc", "easymon", "console.yaml")
	}
	return filepath.Join(home, ".config", "easymon", "console.yaml")
}

// DefaultDataDir resolves the per-user state directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/var", "lib", "easymon-console")
	}
	return filepath.Join(home, ".local", "share", "easymon-console")
}

func Load(ctx context.Context, path string) (Config, error) {
	var cfg Config

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	return cfg, nil
}

func LoadFromEnv(ctx context.Context) (Config, error) {
	path := os.Getenv(envConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}
	return Load(ctx, path)
}

// PollInterval returns the configured polling cadence with a floor.
func (c Config) PollInterval() time.Duration {
	if c.Poll.IntervalSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Poll.IntervalSec) * time.Second
}

// PollWindow returns the trailing recency window for failure lookups.
func (c Config) PollWindow() time.Duration {
	if c.Poll.WindowMin <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(c.Poll.WindowMin) * time.Minute
}
