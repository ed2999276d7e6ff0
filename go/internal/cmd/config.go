package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the engine's tunables, loaded from a YAML file with env
// overrides for the connection strings.
type Config struct {
	Season struct {
		// StartMonth is the 1-12 month in which a new season begins.
		StartMonth int `yaml:"start_month"`
	} `yaml:"season"`

	Stats struct {
		CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	} `yaml:"stats"`

	Outbox struct {
		PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
		BatchSize           int32  `yaml:"batch_size"`
		NotifyChannel       string `yaml:"notify_channel"`
	} `yaml:"outbox"`

	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
}

func defaultConfig() *Config {
	var cfg Config
	cfg.Season.StartMonth = int(time.August)
	cfg.Stats.CacheTTLSeconds = 60
	cfg.Outbox.PollIntervalSeconds = 5
	cfg.Outbox.BatchSize = 100
	cfg.Outbox.NotifyChannel = "officiating_outbox_events"
	cfg.NATS.URL = getEnv("NATS_URL", "nats://localhost:4222")
	cfg.NATS.SubjectPrefix = "officiating.events"
	return &cfg
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Season.StartMonth < 1 || cfg.Season.StartMonth > 12 {
		return nil, fmt.Errorf("season.start_month must be 1-12, got %d", cfg.Season.StartMonth)
	}
	return cfg, nil
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
