// Package config loads the plant backend configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"gopkg.in/yaml.v3"

	"github.com/vsinha/cashew/pkg/infrastructure/logging"
)

// Config holds all configuration for the cashew backend
type Config struct {
	Plant     PlantConfig     `yaml:"plant"`
	Storage   StorageConfig   `yaml:"storage"`
	HTTP      HTTPConfig      `yaml:"http"`
	Inventory InventoryConfig `yaml:"inventory"`
	AI        AIConfig        `yaml:"ai"`
	Events    EventsConfig    `yaml:"events"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PlantConfig describes the site
type PlantConfig struct {
	// Timezone is an IANA zone name. Report days run from local midnight
	// and dates without a zone are read in it.
	Timezone string `yaml:"timezone"`
}

// StorageConfig selects the repository backend
type StorageConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite
	Path   string `yaml:"path"`
}

// HTTPConfig configures the API server
type HTTPConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// InventoryConfig configures the stock ledger
type InventoryConfig struct {
	AllowNegative bool              `yaml:"allow_negative"`
	ReorderLevels map[string]string `yaml:"reorder_levels"` // item name -> quantity
}

// AIConfig configures the summary model
type AIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// EventsConfig configures event forwarding
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Plant: PlantConfig{
			Timezone: "UTC",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   filepath.Join("data", "cashew.db"),
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: "10s",
		},
		Inventory: InventoryConfig{
			ReorderLevels: map[string]string{
				"Raw Cashew Nuts": "5000",
				"Vacuum Bags":     "200",
			},
		},
		AI: AIConfig{
			Model: "gemini-2.5-flash",
		},
		Events: EventsConfig{
			SubjectPrefix: "cashew",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration with Read and validates it
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads configuration from a YAML file without validating it, so callers
// can apply flag overrides first. A missing file yields defaults.
// Environment variables are applied last.
func Read(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
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

// Write encodes the configuration as YAML
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}

// Validate checks option values
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s (expected: memory or sqlite)", c.Storage.Driver)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("unsupported log level: %s", c.Logging.Level)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the plant time zone; empty means UTC
func (c *Config) Location() (*time.Location, error) {
	if c.Plant.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Plant.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid plant.timezone %q: %w", c.Plant.Timezone, err)
	}
	return loc, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CASHEW_TIMEZONE"); v != "" {
		c.Plant.Timezone = v
	}
	if v := os.Getenv("CASHEW_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("CASHEW_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("CASHEW_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("CASHEW_ALLOW_NEGATIVE_STOCK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Inventory.AllowNegative = b
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" && c.AI.APIKey == "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("CASHEW_AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("CASHEW_NATS_URL"); v != "" {
		c.Events.NATSURL = v
	}
	if v := os.Getenv("CASHEW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
