package harvest

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/moisson/harvest/internal/fetch"
)

// Config holds all harvest configuration.
type Config struct {
	// BaseURL is the reference site root.
	BaseURL string `yaml:"base_url"`

	// DataDir holds roster.csv, stats.csv, and journal.db.
	DataDir string `yaml:"data_dir"`

	UserAgent string `yaml:"user_agent"`

	// Politeness: requests per minute across the whole run, retries
	// included. The site bans aggressive crawlers; keep this low.
	RatePerMinute int `yaml:"rate_per_minute"`
	Burst         int `yaml:"burst"`

	TimeoutMs      int `yaml:"timeout_ms"`
	RetryMax       int `yaml:"retry_max"`
	RetryBackoffMs int `yaml:"retry_backoff_ms"`

	// Listen enables the status API when non-empty (e.g. ":8085").
	Listen string `yaml:"listen"`

	// Limit stops a run after this many processed players (0 = all).
	Limit int `yaml:"limit"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.pro-football-reference.com"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.UserAgent == "" {
		c.UserAgent = "moisson/1.0"
	}
	if c.RatePerMinute <= 0 {
		c.RatePerMinute = 10
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.TimeoutMs <= 0 {
		c.TimeoutMs = 30_000
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	} else if c.RetryMax == 0 {
		c.RetryMax = 10
	}
	if c.RetryBackoffMs <= 0 {
		c.RetryBackoffMs = 10_000
	}
}

// RosterPath is the roster table location under DataDir.
func (c *Config) RosterPath() string { return filepath.Join(c.DataDir, "roster.csv") }

// StatsPath is the stats table location under DataDir.
func (c *Config) StatsPath() string { return filepath.Join(c.DataDir, "stats.csv") }

// JournalPath is the attempt journal location under DataDir.
func (c *Config) JournalPath() string { return filepath.Join(c.DataDir, "journal.db") }

func (c *Config) fetchConfig() fetch.Config {
	return fetch.Config{
		BaseURL:       c.BaseURL,
		UserAgent:     c.UserAgent,
		RatePerMinute: c.RatePerMinute,
		Burst:         c.Burst,
		Timeout:       time.Duration(c.TimeoutMs) * time.Millisecond,
		RetryMax:      c.RetryMax,
		RetryBackoff:  time.Duration(c.RetryBackoffMs) * time.Millisecond,
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
