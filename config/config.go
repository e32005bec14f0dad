// Package config loads and validates the daemon configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/almightycouch/twittex/errors"
)

// Config is the complete daemon configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Twitter TwitterConfig `yaml:"twitter"`
	NATS    NATSConfig    `yaml:"nats"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or text.
	Format string `yaml:"format"`
}

// TwitterConfig carries API credentials and the stream endpoint.
type TwitterConfig struct {
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	Token          string `yaml:"token"`
	TokenSecret    string `yaml:"token_secret"`

	// StreamURL is the streaming endpoint the bridge consumes.
	StreamURL string `yaml:"stream_url"`

	// Track is the comma-separated keyword filter for the stream.
	Track string `yaml:"track"`
}

// NATSConfig configures the broker connection.
type NATSConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// BridgeConfig configures the firehose republisher.
type BridgeConfig struct {
	Subject string `yaml:"subject"`
	Window  int    `yaml:"window"`
}

// MetricsConfig configures the Prometheus exposition server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// Default returns a configuration with sane defaults. Credentials are left
// empty and must come from the file or environment.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Twitter: TwitterConfig{
			StreamURL: "https://stream.twitter.com/1.1/statuses/filter.json",
		},
		NATS:    NATSConfig{URL: "nats://localhost:4222", Name: "twittex"},
		Bridge:  BridgeConfig{Subject: "tweets.firehose", Window: 64},
		Metrics: MetricsConfig{Enabled: true, Port: 9090, Path: "/metrics"},
	}
}

// Load reads a YAML config file over the defaults. Values of the form
// ${VAR} are expanded from the environment, so credentials can stay out of
// the file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Load", "read config file")
	}

	expanded := os.Expand(string(raw), func(key string) string {
		return os.Getenv(key)
	})

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Load", "parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Config", "Validate", fmt.Sprintf("unknown log level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Config", "Validate", fmt.Sprintf("unknown log format %q", c.Logging.Format))
	}

	if c.Twitter.ConsumerKey == "" || c.Twitter.ConsumerSecret == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"Config", "Validate", "twitter consumer key and secret are required")
	}
	if c.Twitter.Token == "" || c.Twitter.TokenSecret == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"Config", "Validate", "twitter access token and secret are required")
	}
	if c.Twitter.StreamURL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"Config", "Validate", "twitter stream url is required")
	}

	if c.NATS.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"Config", "Validate", "nats url is required")
	}

	if c.Bridge.Subject == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"Config", "Validate", "bridge subject is required")
	}
	if c.Bridge.Window <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Config", "Validate", fmt.Sprintf("bridge window must be positive, got %d", c.Bridge.Window))
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return errors.WrapInvalid(errors.ErrInvalidConfig,
				"Config", "Validate", fmt.Sprintf("metrics port %d out of range", c.Metrics.Port))
		}
	}

	return nil
}
