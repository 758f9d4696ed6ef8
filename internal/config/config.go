// Package config loads the application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port        int `yaml:"port"`
		MetricsPort int `yaml:"metrics_port"`
	} `yaml:"server"`

	Auth struct {
		// Secret signs session tokens. CONCIERGE_JWT_SECRET overrides it.
		Secret string `yaml:"secret"`
	} `yaml:"auth"`

	Model struct {
		Provider    string  `yaml:"provider"` // "openai" or "azure"
		Name        string  `yaml:"name"`
		APIKey      string  `yaml:"api_key"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"model"`

	Catalog struct {
		Path string `yaml:"path"`
	} `yaml:"catalog"`

	Retrieval struct {
		CorpusPath string `yaml:"corpus_path"`
		TopK       int    `yaml:"top_k"`
	} `yaml:"retrieval"`

	Archive struct {
		Enabled bool   `yaml:"enabled"`
		Dialect string `yaml:"dialect"` // "sqlite3" or "postgres"
		DSN     string `yaml:"dsn"`
	} `yaml:"archive"`

	LogLevel string `yaml:"log_level"`
}

// Load reads the configuration file and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if cfg.Catalog.Path == "" {
		return nil, fmt.Errorf("catalog path is required")
	}
	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth secret is required (set auth.secret or CONCIERGE_JWT_SECRET)")
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = 9090
	}
	if c.Model.Provider == "" {
		c.Model.Provider = "openai"
	}
	if c.Model.Name == "" {
		c.Model.Name = "gpt-4"
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 10
	}
	if c.Archive.Dialect == "" {
		c.Archive.Dialect = "sqlite3"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Model.APIKey == "" {
		c.Model.APIKey = v
	}
	if v := os.Getenv("CONCIERGE_JWT_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("CONCIERGE_ARCHIVE_DSN"); v != "" {
		c.Archive.DSN = v
	}
}
