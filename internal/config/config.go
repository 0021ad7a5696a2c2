package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all mangadome configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// HTTP server
	Server ServerConfig `yaml:"server"`

	// Upstream catalog API (Jikan)
	Catalog CatalogConfig `yaml:"catalog"`

	// LLM provider
	Gemini GeminiConfig `yaml:"gemini"`

	// Assistant relay and context cache
	Assistant AssistantConfig `yaml:"assistant"`

	// Library store
	Library LibraryConfig `yaml:"library"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// CatalogConfig configures the rate-limited catalog fetch client.
type CatalogConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`

	// Limiter parameters. Capacity/Window mirror the upstream's published
	// rate limit (Jikan allows 3 requests per second).
	RateCapacity int    `yaml:"rate_capacity"`
	RateWindow   string `yaml:"rate_window"`

	// Retry policy for local denies and upstream 429s.
	Retries int    `yaml:"retries"`
	Backoff string `yaml:"backoff"`

	// Cache-Control max-age hint sent with catalog GETs, in seconds.
	CacheMaxAge int `yaml:"cache_max_age"`
}

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	Timeout         string `yaml:"timeout"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

// AssistantConfig configures the streaming relay and the library context cache.
type AssistantConfig struct {
	ContextTTL   string `yaml:"context_ttl"`
	HistoryLimit int    `yaml:"history_limit"`
}

// LibraryConfig configures the library store.
type LibraryConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "mangadome",
		Version: "0.3.0",

		Server: ServerConfig{
			Addr:            ":8585",
			ReadTimeout:     "15s",
			WriteTimeout:    "0s", // streaming responses must not be cut off
			ShutdownTimeout: "10s",
		},

		Catalog: CatalogConfig{
			BaseURL:      "https://api.jikan.moe/v4",
			Timeout:      "20s",
			RateCapacity: 3,
			RateWindow:   "1s",
			Retries:      3,
			Backoff:      "1s",
			CacheMaxAge:  3600,
		},

		Gemini: GeminiConfig{
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			Model:           "gemini-2.0-flash",
			Timeout:         "120s",
			MaxOutputTokens: 8192,
		},

		Assistant: AssistantConfig{
			ContextTTL:   "24h",
			HistoryLimit: 40,
		},

		Library: LibraryConfig{
			DatabasePath: "data/mangadome.db",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if addr := os.Getenv("MANGADOME_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("MANGADOME_DB"); path != "" {
		c.Library.DatabasePath = path
	}
	if url := os.Getenv("JIKAN_BASE_URL"); url != "" {
		c.Catalog.BaseURL = url
	}
}

// GetCatalogTimeout returns the catalog HTTP timeout as a duration.
func (c *Config) GetCatalogTimeout() time.Duration {
	return parseDuration(c.Catalog.Timeout, 20*time.Second)
}

// GetRateWindow returns the limiter window as a duration.
func (c *Config) GetRateWindow() time.Duration {
	return parseDuration(c.Catalog.RateWindow, time.Second)
}

// GetBackoff returns the catalog retry backoff as a duration.
func (c *Config) GetBackoff() time.Duration {
	return parseDuration(c.Catalog.Backoff, time.Second)
}

// GetGeminiTimeout returns the Gemini timeout as a duration.
func (c *Config) GetGeminiTimeout() time.Duration {
	return parseDuration(c.Gemini.Timeout, 120*time.Second)
}

// GetContextTTL returns the library context cache TTL as a duration.
func (c *Config) GetContextTTL() time.Duration {
	return parseDuration(c.Assistant.ContextTTL, 24*time.Hour)
}

// GetShutdownTimeout returns the server shutdown grace period as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
