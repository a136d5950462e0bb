// Package config loads routebot settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "ROUTEBOT_CONFIG"

// Config is the full runtime configuration of routebot. Durations accept Go
// duration strings in YAML and either a duration or bare seconds in the
// environment.
type Config struct {
	BaseURL           string        `yaml:"base_url"`
	MinAirportSize    int           `yaml:"min_airport_size"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`

	DiscordToken string        `yaml:"discord_token"`
	ChannelID    string        `yaml:"channel_id"`
	PostInterval time.Duration `yaml:"post_interval"`

	HTTPAddr    string `yaml:"http_addr"`
	BearerToken string `yaml:"bearer_token"`

	RedisURL      string `yaml:"redis_url"`
	DatabaseURL   string `yaml:"database_url"`
	MigrationsDir string `yaml:"migrations_dir"`

	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when neither a file nor the
// environment overrides a key.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://play.myfly.club",
		MinAirportSize: 3,
		MaxAttempts:    200,
		RequestTimeout: 30 * time.Second,
		PostInterval:   24 * time.Hour,
		MigrationsDir:  "migrations",
		AppEnv:         "development",
		LogLevel:       "info",
	}
}

// Load layers the YAML file at path (or $ROUTEBOT_CONFIG when path is empty)
// and then the environment over DefaultConfig. A missing file is only an error
// when a path was given.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	setString(&c.BaseURL, "MYFLY_BASE_URL")
	errs = append(errs,
		setInt(&c.MinAirportSize, "MIN_AIRPORT_SIZE"),
		setInt(&c.MaxAttempts, "MAX_ATTEMPTS"),
		setDuration(&c.RetryDelay, "RETRY_DELAY"),
		setDuration(&c.RequestTimeout, "REQUEST_TIMEOUT"),
		setFloat(&c.RequestsPerSecond, "MYFLY_REQUESTS_PER_SECOND"),
		setDuration(&c.PostInterval, "POST_INTERVAL"),
	)
	setString(&c.DiscordToken, "DISCORD_TOKEN")
	setString(&c.ChannelID, "DISCORD_CHANNEL_ID")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.BearerToken, "API_BEARER_TOKEN")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.MigrationsDir, "MIGRATIONS_DIR")
	setString(&c.AppEnv, "APP_ENV")
	setString(&c.LogLevel, "LOG_LEVEL")

	return errors.Join(errs...)
}

// Validate checks the loaded values. Delivery commands also need Discord
// credentials.
func (c *Config) Validate(delivery bool) error {
	var errs []error

	if c.BaseURL == "" {
		errs = append(errs, errors.New("base_url must not be empty"))
	}
	if c.MinAirportSize < 0 {
		errs = append(errs, fmt.Errorf("min_airport_size must be >= 0, got %d", c.MinAirportSize))
	}
	if c.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry_delay must be >= 0, got %s", c.RetryDelay))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests_per_second must be >= 0, got %v", c.RequestsPerSecond))
	}
	if c.PostInterval <= 0 {
		errs = append(errs, fmt.Errorf("post_interval must be positive, got %s", c.PostInterval))
	}
	if c.HTTPAddr != "" && c.BearerToken == "" {
		errs = append(errs, errors.New("bearer_token is required when http_addr is set"))
	}

	if delivery {
		if c.DiscordToken == "" {
			errs = append(errs, errors.New("discord_token is required (DISCORD_TOKEN)"))
		}
		if c.ChannelID == "" {
			errs = append(errs, errors.New("channel_id is required (DISCORD_CHANNEL_ID)"))
		}
	}

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// setDuration accepts Go durations ("90s") and bare numbers of seconds.
func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(secs * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
