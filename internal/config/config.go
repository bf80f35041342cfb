// Package config loads intake configuration from .intake/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all intake configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Collaborator endpoints
	Scorer ScorerConfig `yaml:"scorer"`

	// Session store
	Store StoreConfig `yaml:"store"`

	// Stage catalog override
	Catalog CatalogConfig `yaml:"catalog"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ScorerConfig configures the scorer/bootstrap/completion collaborators.
// All four contracts are served from one base URL in the reference
// deployment; the paths are fixed by the client.
type ScorerConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
	// Local switches to the in-process heuristic scorer; no network calls.
	Local bool `yaml:"local"`
}

// StoreConfig configures session persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// CatalogConfig optionally points at a YAML stage catalog overriding the
// embedded default dialogue.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures the category file logger. The logging package
// reads this section itself to avoid an import cycle; the struct is kept
// here so config files validate as one document.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "intake",
		Version: "1.0.0",
		Scorer: ScorerConfig{
			Timeout: "60s",
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(".intake", "sessions.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads .intake/config.yaml under the workspace, applies env overrides,
// and falls back to defaults for anything unset. A missing file is not an
// error; env overrides still apply.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(workspace, ".intake", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if cfg.Store.DatabasePath != "" && !filepath.IsAbs(cfg.Store.DatabasePath) {
		cfg.Store.DatabasePath = filepath.Join(workspace, cfg.Store.DatabasePath)
	}

	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("INTAKE_SCORER_URL"); v != "" {
		c.Scorer.BaseURL = v
	}
	if v := os.Getenv("INTAKE_SCORER_KEY"); v != "" {
		c.Scorer.APIKey = v
	}
	if v := os.Getenv("INTAKE_DB_PATH"); v != "" {
		c.Store.DatabasePath = v
	}
}

// TimeoutDuration parses the scorer timeout, defaulting to 60s.
func (s ScorerConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Save writes the config back to .intake/config.yaml under the workspace.
func (c *Config) Save(workspace string) error {
	dir := filepath.Join(workspace, ".intake")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644)
}
