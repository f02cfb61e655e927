// Package config loads service configuration from an optional YAML file
// with environment-variable overrides. Environment always wins, so a
// container deployment can run without any file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/c360/retailstore/errors"
)

// MySQLConfig holds relational store connection settings
type MySQLConfig struct {
	Host     string `yaml:"host" env:"RETAIL_MYSQL_HOST"`
	Port     int    `yaml:"port" env:"RETAIL_MYSQL_PORT"`
	User     string `yaml:"user" env:"RETAIL_MYSQL_USER"`
	Password string `yaml:"password" env:"RETAIL_MYSQL_PASSWORD"`
	Database string `yaml:"database" env:"RETAIL_MYSQL_DATABASE"`

	MaxIdleConns int `yaml:"max_idle_conns" env:"RETAIL_MYSQL_MAX_IDLE_CONNS"`
	MaxOpenConns int `yaml:"max_open_conns" env:"RETAIL_MYSQL_MAX_OPEN_CONNS"`
}

// DSN returns the MySQL connection string
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// NATSConfig holds NATS connection settings
type NATSConfig struct {
	URL      string `yaml:"url" env:"RETAIL_NATS_URL"`
	Username string `yaml:"username" env:"RETAIL_NATS_USERNAME"`
	Password string `yaml:"password" env:"RETAIL_NATS_PASSWORD"`
	Token    string `yaml:"token" env:"RETAIL_NATS_TOKEN"`
}

// QueueConfig holds queue adapter tuning
type QueueConfig struct {
	// LeaseDuration is how long a received message stays invisible
	// before it is redelivered (the consumer's ack deadline).
	LeaseDuration time.Duration `yaml:"lease_duration" env:"RETAIL_QUEUE_LEASE_DURATION"`
	// BatchSize bounds ReceiveBatch and DrainQueue.
	BatchSize int `yaml:"batch_size" env:"RETAIL_QUEUE_BATCH_SIZE"`
	// FetchWait bounds how long a receive call waits for messages.
	FetchWait time.Duration `yaml:"fetch_wait" env:"RETAIL_QUEUE_FETCH_WAIT"`
}

// BlobConfig holds object store settings
type BlobConfig struct {
	// PublicBaseURL fronts the object bucket; blob URIs are
	// <PublicBaseURL>/<bucket>/<name>.
	PublicBaseURL string `yaml:"public_base_url" env:"RETAIL_BLOB_PUBLIC_BASE_URL"`
}

// ShareConfig holds file share settings
type ShareConfig struct {
	// Root is the mounted share directory holding contract documents.
	Root string `yaml:"root" env:"RETAIL_SHARE_ROOT"`
}

// CacheConfig holds entity read-cache settings
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" env:"RETAIL_CACHE_ENABLED"`
	TTL     time.Duration `yaml:"ttl" env:"RETAIL_CACHE_TTL"`
}

// Config is the root service configuration
type Config struct {
	MySQL MySQLConfig `yaml:"mysql"`
	NATS  NATSConfig  `yaml:"nats"`
	Queue QueueConfig `yaml:"queue"`
	Blob  BlobConfig  `yaml:"blob"`
	Share ShareConfig `yaml:"share"`
	Cache CacheConfig `yaml:"cache"`

	// MetricsAddr is the listen address of the Prometheus endpoint.
	MetricsAddr string `yaml:"metrics_addr" env:"RETAIL_METRICS_ADDR"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"RETAIL_LOG_LEVEL"`
}

// Default returns the built-in defaults
func Default() Config {
	return Config{
		MySQL: MySQLConfig{
			Host:         "localhost",
			Port:         3306,
			User:         "retail",
			Database:     "retailstore",
			MaxIdleConns: 10,
			MaxOpenConns: 100,
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		Queue: QueueConfig{
			LeaseDuration: 30 * time.Second,
			BatchSize:     10,
			FetchWait:     2 * time.Second,
		},
		Blob: BlobConfig{
			PublicBaseURL: "http://localhost:8222/objects",
		},
		Share: ShareConfig{
			Root: "/mnt/contracts",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
		},
		MetricsAddr: ":9090",
		LogLevel:    "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty or the file does not exist), then
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, errors.Wrap(err, "Config", "Load", "read config file")
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.WrapInvalid(err, "Config", "Load", "parse config file")
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.WrapInvalid(err, "Config", "Load", "parse environment")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks invariants the adapters rely on
func (c Config) Validate() error {
	if c.MySQL.Host == "" || c.MySQL.Database == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "check mysql settings")
	}
	if c.NATS.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "check nats url")
	}
	if c.Queue.BatchSize <= 0 {
		return errors.WrapInvalid(fmt.Errorf("queue batch size must be positive, got %d", c.Queue.BatchSize),
			"Config", "Validate", "check queue settings")
	}
	if c.Queue.LeaseDuration <= 0 {
		return errors.WrapInvalid(fmt.Errorf("queue lease duration must be positive, got %s", c.Queue.LeaseDuration),
			"Config", "Validate", "check queue settings")
	}
	if c.Share.Root == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "check share root")
	}
	return nil
}
