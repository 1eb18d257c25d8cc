package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/openshift/oncall-chat-bot/pkg/pagerduty"
)

// Config is the bot's configuration file.
type Config struct {
	// Scheme and Host select the PagerDuty API endpoint.
	Scheme string `yaml:"scheme"`
	Host   string `yaml:"host"`
	// Concurrency is the number of upstream requests allowed in flight at once,
	// shared by every caller.
	Concurrency int `yaml:"concurrency"`
	// SearchLimit caps the escalation policies an on-call lookup fans out to.
	SearchLimit int `yaml:"search_limit"`
	// ResultLimit caps the users a user search returns.
	ResultLimit int `yaml:"result_limit"`

	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RetryMax          int           `yaml:"retry_max"`
	RetryWaitMin      time.Duration `yaml:"retry_wait_min"`
	RetryWaitMax      time.Duration `yaml:"retry_wait_max"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`

	// UserCacheTTL keeps fetched user records for on-call lookups. Zero disables
	// the cache.
	UserCacheTTL time.Duration `yaml:"user_cache_ttl"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Scheme:         "https",
		Host:           pagerduty.DefaultHost,
		Concurrency:    3,
		SearchLimit:    3,
		ResultLimit:    3,
		RequestTimeout: 30 * time.Second,
		RetryMax:       2,
		RetryWaitMin:   500 * time.Millisecond,
		RetryWaitMax:   5 * time.Second,
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for values the bot cannot run with.
func (c Config) Validate() error {
	if c.Scheme != "http" && c.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", c.Scheme)
	}
	if c.Host == "" {
		return fmt.Errorf("host must be set")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.SearchLimit < 1 {
		return fmt.Errorf("search_limit must be at least 1, got %d", c.SearchLimit)
	}
	if c.ResultLimit < 1 {
		return fmt.Errorf("result_limit must be at least 1, got %d", c.ResultLimit)
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("retry_max may not be negative, got %d", c.RetryMax)
	}
	if c.RequestTimeout < 0 || c.RetryWaitMin < 0 || c.RetryWaitMax < 0 || c.UserCacheTTL < 0 {
		return fmt.Errorf("durations may not be negative")
	}
	if c.RetryWaitMax < c.RetryWaitMin {
		return fmt.Errorf("retry_wait_max (%s) must not be less than retry_wait_min (%s)", c.RetryWaitMax, c.RetryWaitMin)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second may not be negative")
	}
	return nil
}

// ExecutorOptions maps the configuration onto the HTTP execution unit.
func (c Config) ExecutorOptions() pagerduty.ExecutorOptions {
	return pagerduty.ExecutorOptions{
		Timeout:           c.RequestTimeout,
		RetryMax:          c.RetryMax,
		RetryWaitMin:      c.RetryWaitMin,
		RetryWaitMax:      c.RetryWaitMax,
		RequestsPerSecond: c.RequestsPerSecond,
	}
}
