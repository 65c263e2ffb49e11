package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all agent configuration.
type Config struct {
	Logging LogConfig
	Stream  StreamConfig
	Proc    ProcConfig
	Search  SearchConfig
}

// LogConfig holds logging configuration. Logs go to stderr by default;
// stdout carries the protocol.
type LogConfig struct {
	Level       string `envconfig:"HOSTLINK_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"HOSTLINK_LOG_DEV" default:"false"`
	File        string `envconfig:"HOSTLINK_LOG_FILE" default:""`
}

// StreamConfig holds chunked-transfer configuration.
type StreamConfig struct {
	ChunkSize int `envconfig:"HOSTLINK_CHUNK_SIZE" default:"65536"`
}

// ProcConfig holds process supervision configuration.
type ProcConfig struct {
	PollInterval time.Duration `envconfig:"HOSTLINK_POLL_INTERVAL" default:"50ms"`
	KillGrace    time.Duration `envconfig:"HOSTLINK_KILL_GRACE" default:"2s"`
	DrainTimeout time.Duration `envconfig:"HOSTLINK_DRAIN_TIMEOUT" default:"5s"`
	SudoCmd      string        `envconfig:"HOSTLINK_SUDO_CMD" default:"sudo"`
	Shell        string        `envconfig:"HOSTLINK_SHELL" default:""`
}

// SearchConfig holds find/grep result caps.
type SearchConfig struct {
	FindLimit int `envconfig:"HOSTLINK_FIND_LIMIT" default:"10000"`
	GrepLimit int `envconfig:"HOSTLINK_GREP_LIMIT" default:"100"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Stream: StreamConfig{
			ChunkSize: 65536,
		},
		Proc: ProcConfig{
			PollInterval: 50 * time.Millisecond,
			KillGrace:    2 * time.Second,
			DrainTimeout: 5 * time.Second,
			SudoCmd:      "sudo",
		},
		Search: SearchConfig{
			FindLimit: 10000,
			GrepLimit: 100,
		},
	}
}
