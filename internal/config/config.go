// Package config loads the service configuration from YAML with environment
// overrides for deployment specific values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting of the service
type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Engine      EngineConfig       `yaml:"engine"`
	Storage     StorageConfig      `yaml:"storage"`
	Kafka       KafkaConfig        `yaml:"kafka"`
	Log         LogConfig          `yaml:"log"`
	Instruments []InstrumentConfig `yaml:"instruments"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type EngineConfig struct {
	ShardCount       int           `yaml:"shard_count"`
	QueueSize        int           `yaml:"queue_size"`
	IdempotencyTTL   time.Duration `yaml:"idempotency_ttl"`
	SnapshotInterval int64         `yaml:"snapshot_interval"` // Events between book snapshots, 0 disables
}

type StorageConfig struct {
	Dir string `yaml:"dir"` // Pebble directory, empty keeps everything in memory only
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// InstrumentConfig sets the decimal scales of one book
type InstrumentConfig struct {
	BookID     string `yaml:"book_id"`
	PriceScale int32  `yaml:"price_scale"`
	SizeScale  int32  `yaml:"size_scale"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Engine: EngineConfig{
			ShardCount:       8,
			QueueSize:        1000,
			IdempotencyTTL:   24 * time.Hour,
			SnapshotInterval: 1000,
		},
		Storage: StorageConfig{Dir: "data"},
		Kafka: KafkaConfig{
			Topic:        "book-events",
			BatchTimeout: 10 * time.Millisecond,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// An empty path loads the defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("APP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("APP_DATA_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("APP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("APP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks values the service cannot start with
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Engine.ShardCount <= 0 {
		errs = append(errs, errors.New("engine.shard_count must be positive"))
	}
	if c.Engine.QueueSize <= 0 {
		errs = append(errs, errors.New("engine.queue_size must be positive"))
	}
	if c.Engine.SnapshotInterval < 0 {
		errs = append(errs, errors.New("engine.snapshot_interval must not be negative"))
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		errs = append(errs, errors.New("kafka.brokers and kafka.topic are required when kafka is enabled"))
	}
	seen := make(map[string]bool, len(c.Instruments))
	for i, inst := range c.Instruments {
		if inst.BookID == "" {
			errs = append(errs, fmt.Errorf("instruments[%d].book_id is required", i))
		}
		if seen[inst.BookID] {
			errs = append(errs, fmt.Errorf("instruments[%d].book_id %s is duplicated", i, inst.BookID))
		}
		seen[inst.BookID] = true
		if inst.PriceScale < 0 || inst.PriceScale > 18 || inst.SizeScale < 0 || inst.SizeScale > 18 {
			errs = append(errs, fmt.Errorf("instruments[%d] scales must be within 0..18", i))
		}
	}
	return errors.Join(errs...)
}
