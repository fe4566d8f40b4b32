package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// envPrefix is prepended to every override name in envOverrides.
const envPrefix = "PB_"

type envOverride struct {
	name  string
	apply func(c *Config, v string) error
}

func intVar(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func boolVar(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func floatVar(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func durationVar(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

func stringVar(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func listVar(field func(*Config) *[]string) func(*Config, string) error {
	return func(c *Config, v string) error {
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*field(c) = items
		return nil
	}
}

var envOverrides = []envOverride{
	{"SERVER_PORT", intVar(func(c *Config) *int { return &c.Server.Port })},
	{"SERVER_REQUEST_TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.Server.RequestTimeout })},
	{"SERVER_CORS_ORIGINS", listVar(func(c *Config) *[]string { return &c.Server.CORSOrigins })},
	{"POSTGRES_HOST", stringVar(func(c *Config) *string { return &c.Postgres.Host })},
	{"POSTGRES_PORT", intVar(func(c *Config) *int { return &c.Postgres.Port })},
	{"POSTGRES_DATABASE", stringVar(func(c *Config) *string { return &c.Postgres.Database })},
	{"POSTGRES_USER", stringVar(func(c *Config) *string { return &c.Postgres.User })},
	{"POSTGRES_PASSWORD", stringVar(func(c *Config) *string { return &c.Postgres.Password })},
	{"KAFKA_ENABLED", boolVar(func(c *Config) *bool { return &c.Kafka.Enabled })},
	{"KAFKA_BROKERS", listVar(func(c *Config) *[]string { return &c.Kafka.Brokers })},
	{"REDIS_ENABLED", boolVar(func(c *Config) *bool { return &c.Redis.Enabled })},
	{"REDIS_ADDR", stringVar(func(c *Config) *string { return &c.Redis.Addr })},
	{"REDIS_PASSWORD", stringVar(func(c *Config) *string { return &c.Redis.Password })},
	{"HISTORY_BACKEND", stringVar(func(c *Config) *string { return &c.History.Backend })},
	{"HISTORY_PATH", stringVar(func(c *Config) *string { return &c.History.Path })},
	{"BRAIN_REPLY_PROBABILITY", floatVar(func(c *Config) *float64 { return &c.Brain.ReplyProbability })},
	{"BRAIN_POOL_POLICY", stringVar(func(c *Config) *string { return &c.Brain.PoolPolicy })},
	{"BRAIN_REPLY_BURST", intVar(func(c *Config) *int { return &c.Brain.ReplyBurst })},
	{"BRAIN_REPLY_WINDOW", durationVar(func(c *Config) *time.Duration { return &c.Brain.ReplyWindow })},
	{"TRACING_ENABLED", boolVar(func(c *Config) *bool { return &c.Tracing.Enabled })},
	{"METRICS_ENABLED", boolVar(func(c *Config) *bool { return &c.Metrics.Enabled })},
	{"METRICS_PORT", intVar(func(c *Config) *int { return &c.Metrics.Port })},
	{"LOGGING_LEVEL", stringVar(func(c *Config) *string { return &c.Logging.Level })},
	{"LOGGING_FORMAT", stringVar(func(c *Config) *string { return &c.Logging.Format })},
}

// applyEnv overrides cfg from PB_* variables. Malformed values are errors,
// not silently ignored.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	for _, o := range envOverrides {
		v, ok := lookup(envPrefix + o.name)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(cfg, v); err != nil {
			errs = append(errs, fmt.Errorf("%s%s=%q: %w", envPrefix, o.name, v, err))
		}
	}
	return errors.Join(errs...)
}
