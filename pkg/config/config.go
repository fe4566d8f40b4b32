// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, History, Brain, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// History backends.
const (
	HistoryBackendFile     = "file"
	HistoryBackendPostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	History  HistoryConfig  `yaml:"history"`
	Brain    BrainConfig    `yaml:"brain"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables CORS handling.
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. Kafka transport is off
// unless Enabled is set; the HTTP API works without it.
type KafkaConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Brokers        []string      `yaml:"brokers"`
	ConsumerGroup  string        `yaml:"consumerGroup"`
	PublishTimeout time.Duration `yaml:"publishTimeout"`
	Topics         KafkaTopics   `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	Incoming string `yaml:"incoming"`
	Replies  string `yaml:"replies"`
}

// RedisConfig holds Redis connection parameters for the settings store.
type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"poolSize"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// HistoryConfig selects where observed phrases are persisted.
type HistoryConfig struct {
	Backend        string `yaml:"backend"`
	Path           string `yaml:"path"`
	CompactOnStart bool   `yaml:"compactOnStart"`
}

// BrainConfig controls reply generation.
type BrainConfig struct {
	ReplyProbability float64       `yaml:"replyProbability"`
	PoolPolicy       string        `yaml:"poolPolicy"`
	Seed             uint64        `yaml:"seed"`
	// ReplyBurst replies are allowed per chat every ReplyWindow. Zero
	// disables the limit.
	ReplyBurst       int           `yaml:"replyBurst"`
	ReplyWindow      time.Duration `yaml:"replyWindow"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles span logging for processed messages.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with, reporting every
// problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.History.Backend {
	case HistoryBackendFile:
		if c.History.Path == "" {
			errs = append(errs, errors.New("history.path is required for the file backend"))
		}
	case HistoryBackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown history backend %q", c.History.Backend))
	}
	if p := c.Brain.ReplyProbability; p < 0 || p > 1 {
		errs = append(errs, fmt.Errorf("brain.replyProbability must be within [0, 1], got %v", p))
	}
	switch strings.ToLower(c.Brain.PoolPolicy) {
	case "", "uniform", "weighted":
	default:
		errs = append(errs, fmt.Errorf("unknown brain.poolPolicy %q", c.Brain.PoolPolicy))
	}
	switch {
	case c.Brain.ReplyBurst < 0:
		errs = append(errs, errors.New("brain.replyBurst must not be negative"))
	case c.Brain.ReplyBurst > 0 && c.Brain.ReplyWindow <= 0:
		errs = append(errs, errors.New("brain.replyWindow is required when brain.replyBurst is set"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "phrasebot",
			User:            "phrasebot",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:        []string{"localhost:9092"},
			ConsumerGroup:  "phrasebot",
			PublishTimeout: 5 * time.Second,
			Topics: KafkaTopics{
				Incoming: "chat.incoming",
				Replies:  "chat.replies",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "phrasebot:",
		},
		History: HistoryConfig{
			Backend:        HistoryBackendFile,
			Path:           "bot_memory.txt",
			CompactOnStart: true,
		},
		Brain: BrainConfig{
			ReplyProbability: 1.0,
			PoolPolicy:       "uniform",
			ReplyWindow:      time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}
