package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is read from draftengine.yaml. Environment variables override single fields.
type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// Driver is "memory" or "postgres".
		Driver  string `yaml:"driver"`
		Migrate bool   `yaml:"migrate"`
		// SeedFile is applied at startup when set. See internal/draft/fixture.
		SeedFile string `yaml:"seed_file"`
	} `yaml:"storage"`

	Draft struct {
		TickInterval   time.Duration `yaml:"tick_interval"`
		ThinkDelay     time.Duration `yaml:"think_delay"`
		Workers        int           `yaml:"workers"`
		QueueSize      int           `yaml:"queue_size"`
		OutboxSize     int           `yaml:"outbox_size"`
		NotifyDebounce time.Duration `yaml:"notify_debounce"`
	} `yaml:"draft"`

	NATS struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"nats"`
}

func defaultConfig() *Config {
	var c Config
	c.Server.Port = "8080"
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.AllowedOrigins = []string{"*"}
	c.Storage.Driver = "memory"
	c.Storage.Migrate = true
	c.Draft.TickInterval = time.Second
	c.Draft.ThinkDelay = 2 * time.Second
	c.Draft.Workers = 4
	c.Draft.QueueSize = 256
	c.Draft.OutboxSize = 1024
	c.Draft.NotifyDebounce = 300 * time.Millisecond
	c.NATS.URL = "nats://127.0.0.1:4222"
	return &c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// loadConfig reads path on top of the defaults. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.Storage.Driver = getEnv("STORAGE_DRIVER", config.Storage.Driver)
	config.Storage.SeedFile = getEnv("SEED_FILE", config.Storage.SeedFile)
	config.Draft.Workers = getEnvAsInt("DRAFT_WORKERS", config.Draft.Workers)
	config.NATS.Enabled = getEnvAsBool("NATS_ENABLED", config.NATS.Enabled)
	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Draft.TickInterval <= 0 {
		return fmt.Errorf("draft.tick_interval must be positive")
	}
	if c.Draft.ThinkDelay < 0 {
		return fmt.Errorf("draft.think_delay must not be negative")
	}
	if c.Draft.Workers < 1 {
		return fmt.Errorf("draft.workers must be at least 1")
	}
	return nil
}
