// Package config holds the startup configuration for the central logger.
// Values are read once at startup; runtime reconfiguration is not supported.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full configuration for a centrallogd instance.
type Config struct {
	Intake  IntakeConfig `yaml:"intake"`
	Buffers BufferConfig `yaml:"buffers"`
	Server  ServerConfig `yaml:"server"`
	Sink    SinkConfig   `yaml:"sink"`
	Redis   RedisConfig  `yaml:"redis"`
}

type IntakeConfig struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
}

type BufferConfig struct {
	PriorityCapacityBytes int     `yaml:"priority_capacity_bytes"`
	DeadLetterCapacityMB  int     `yaml:"deadletter_capacity_mb"`
	DeadLetterSoft        float64 `yaml:"deadletter_soft"`
	DeadLetterHard        float64 `yaml:"deadletter_hard"`
	DeadLetterHardStop    float64 `yaml:"deadletter_hard_stop"`
}

type ServerConfig struct {
	TCPPort int `yaml:"tcp_port"`
	UDPPort int `yaml:"udp_port"`
}

type SinkConfig struct {
	Type string `yaml:"type"` // file, console, http or fanout
	Path string `yaml:"path"`
	URL  string `yaml:"url"`

	// Outputs are the child sinks of a fanout sink.
	Outputs []SinkConfig `yaml:"outputs"`
}

type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	ConfigKey string `yaml:"config_key"`
	Channel   string `yaml:"channel"` // PubSub channel for config change signals
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() *Config {
	return &Config{
		Intake: IntakeConfig{
			Workers:   4,
			BatchSize: 50,
		},
		Buffers: BufferConfig{
			PriorityCapacityBytes: 15 * 1024 * 1024,
			DeadLetterCapacityMB:  10,
			DeadLetterSoft:        0.6,
			DeadLetterHard:        0.9,
			DeadLetterHardStop:    0.7,
		},
		Server: ServerConfig{
			TCPPort: 8081,
			UDPPort: 8082,
		},
		Sink: SinkConfig{
			Type: "file",
			Path: "all_logs.log",
		},
		Redis: RedisConfig{
			Address:   "localhost:6379",
			ConfigKey: "centrallog_appconfig",
			Channel:   "centrallog_updates",
		},
	}
}

// Load reads a YAML config file over the defaults. Keys absent from the file
// keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks internal consistency. It is called by Load and again after
// flag overrides are applied.
func (c *Config) Validate() error {
	if c.Intake.Workers < 1 {
		return fmt.Errorf("intake.workers must be >= 1, got %d", c.Intake.Workers)
	}
	if c.Intake.BatchSize < 1 {
		return fmt.Errorf("intake.batch_size must be >= 1, got %d", c.Intake.BatchSize)
	}
	if c.Buffers.PriorityCapacityBytes <= 0 {
		return fmt.Errorf("buffers.priority_capacity_bytes must be positive")
	}
	if c.Buffers.DeadLetterCapacityMB <= 0 {
		return fmt.Errorf("buffers.deadletter_capacity_mb must be positive")
	}
	b := c.Buffers
	if b.DeadLetterHardStop >= b.DeadLetterHard || b.DeadLetterSoft > b.DeadLetterHard {
		return fmt.Errorf("deadletter thresholds must satisfy hard_stop < hard and soft <= hard")
	}
	return validateSink(c.Sink)
}

func validateSink(s SinkConfig) error {
	switch s.Type {
	case "file", "console":
	case "http":
		if s.URL == "" {
			return fmt.Errorf("sink.url is required for the http sink")
		}
	case "fanout":
		if len(s.Outputs) == 0 {
			return fmt.Errorf("a fanout sink needs at least one output")
		}
		for _, child := range s.Outputs {
			if err := validateSink(child); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("sink.type must be file, console, http or fanout, got %q", s.Type)
	}
	return nil
}
