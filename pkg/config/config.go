// Package config provides YAML configuration parsing for the feed aggregator
// daemon and CLI.
//
// Config values come from a YAML file with sensible defaults, then from
// RP_-prefixed environment variables, which take precedence over the file.
// This lets an operator keep one checked-in config.yaml and override a
// handful of values per-deployment without templating the file itself.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MaxFeedsInFile caps the number of feed entries read from a feeds file; any
// entries beyond this are dropped with a warning rather than silently loaded.
const MaxFeedsInFile = 150

// Config is the root configuration object.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	API       APIConfig       `yaml:"api"`
	Site      SiteConfig      `yaml:"site"`
	FeedsPath string          `yaml:"feeds_path"`
}

// SiteConfig holds the metadata and output settings for the optional static
// HTML rendering (`rp generate`); the polling engine itself never reads this.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	OwnerName   string `yaml:"owner_name"`
	OwnerEmail  string `yaml:"owner_email"`
	OutputDir   string `yaml:"output_dir"`
	Template    string `yaml:"template"`
	Days        int    `yaml:"days"`
	GroupByDate bool   `yaml:"group_by_date"`
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig holds polling-engine settings.
type SchedulerConfig struct {
	DefaultIntervalSeconds int    `yaml:"default_interval_seconds"`
	MaxWorkers             int    `yaml:"max_workers"`
	MaintenanceCron        string `yaml:"maintenance_cron"`
	DegradationCron        string `yaml:"degradation_cron"`
	DegradationTTLHours    int    `yaml:"degradation_ttl_hours"`
	FetchLogRetentionDays  int    `yaml:"fetch_log_retention_days"`
	ItemCap                int64  `yaml:"item_cap"`
}

// RateLimitConfig holds per-host and global throttling settings.
type RateLimitConfig struct {
	HostRate          float64 `yaml:"host_rate"`
	HostBurst         int     `yaml:"host_burst"`
	GlobalConcurrency int     `yaml:"global_concurrency"`
}

// HTTPConfig holds crawler HTTP client settings.
type HTTPConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// APIConfig holds the status/search HTTP API settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns a configuration with production-sane defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "./data/rp.db",
		},
		Scheduler: SchedulerConfig{
			DefaultIntervalSeconds: 3600,
			MaxWorkers:             8,
			MaintenanceCron:        "0 3 * * *",
			DegradationCron:        "0 * * * *",
			DegradationTTLHours:    48,
			FetchLogRetentionDays:  30,
			ItemCap:                50000,
		},
		RateLimit: RateLimitConfig{
			HostRate:          0.5,
			HostBurst:         10,
			GlobalConcurrency: 5,
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: 20,
			UserAgent:      "Feeder/2026 (+https://github.com/adewale/rogue_planet; contato: ops@rogueplanet.example)",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		API: APIConfig{
			Enabled: true,
			Addr:    ":8420",
		},
		Site: SiteConfig{
			Title:       "My Planet",
			OutputDir:   "./public",
			Days:        7,
			GroupByDate: true,
		},
		FeedsPath: "./feeds.yaml",
	}
}

// LoadFromFile reads and parses a YAML config file, falling back to Default
// for any field the file omits, then applies RP_ environment overrides.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides lets an operator override knobs without editing the
// checked-in file, e.g. RP_DATABASE_PATH=/var/lib/rp/rp.db. Every field has an
// RP_ variable except site.link, site.owner_name, site.owner_email,
// site.template and site.group_by_date, which are read from the file only.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("RP_DATABASE_PATH"); ok {
		cfg.Database.Path = v
	}
	if v, ok := envInt("RP_SCHEDULER_DEFAULT_INTERVAL_SECONDS"); ok {
		cfg.Scheduler.DefaultIntervalSeconds = v
	}
	if v, ok := envInt("RP_SCHEDULER_MAX_WORKERS"); ok {
		cfg.Scheduler.MaxWorkers = v
	}
	if v, ok := os.LookupEnv("RP_SCHEDULER_MAINTENANCE_CRON"); ok {
		cfg.Scheduler.MaintenanceCron = v
	}
	if v, ok := os.LookupEnv("RP_SCHEDULER_DEGRADATION_CRON"); ok {
		cfg.Scheduler.DegradationCron = v
	}
	if v, ok := envInt("RP_SCHEDULER_DEGRADATION_TTL_HOURS"); ok {
		cfg.Scheduler.DegradationTTLHours = v
	}
	if v, ok := envInt("RP_SCHEDULER_FETCH_LOG_RETENTION_DAYS"); ok {
		cfg.Scheduler.FetchLogRetentionDays = v
	}
	if v, ok := envInt64("RP_SCHEDULER_ITEM_CAP"); ok {
		cfg.Scheduler.ItemCap = v
	}
	if v, ok := envFloat("RP_RATE_LIMIT_HOST_RATE"); ok {
		cfg.RateLimit.HostRate = v
	}
	if v, ok := envInt("RP_RATE_LIMIT_HOST_BURST"); ok {
		cfg.RateLimit.HostBurst = v
	}
	if v, ok := envInt("RP_RATE_LIMIT_GLOBAL_CONCURRENCY"); ok {
		cfg.RateLimit.GlobalConcurrency = v
	}
	if v, ok := envInt("RP_HTTP_TIMEOUT_SECONDS"); ok {
		cfg.HTTP.TimeoutSeconds = v
	}
	if v, ok := os.LookupEnv("RP_HTTP_USER_AGENT"); ok {
		cfg.HTTP.UserAgent = v
	}
	if v, ok := os.LookupEnv("RP_LOGGING_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := envBool("RP_API_ENABLED"); ok {
		cfg.API.Enabled = v
	}
	if v, ok := os.LookupEnv("RP_API_ADDR"); ok {
		cfg.API.Addr = v
	}
	if v, ok := os.LookupEnv("RP_FEEDS_PATH"); ok {
		cfg.FeedsPath = v
	}
	if v, ok := os.LookupEnv("RP_SITE_TITLE"); ok {
		cfg.Site.Title = v
	}
	if v, ok := os.LookupEnv("RP_SITE_OUTPUT_DIR"); ok {
		cfg.Site.OutputDir = v
	}
	if v, ok := envInt("RP_SITE_DAYS"); ok {
		cfg.Site.Days = v
	}
}

func envInt(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envInt64(name string) (int64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(name string) (float64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(name string) (bool, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Validate checks invariants Default alone can't guarantee once a file or env
// override has been applied.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Scheduler.DefaultIntervalSeconds < 60 {
		return fmt.Errorf("scheduler.default_interval_seconds must be >= 60")
	}
	if c.Scheduler.MaxWorkers < 1 || c.Scheduler.MaxWorkers > 256 {
		return fmt.Errorf("scheduler.max_workers must be between 1 and 256")
	}
	if c.RateLimit.HostRate <= 0 {
		return fmt.Errorf("rate_limit.host_rate must be > 0")
	}
	if c.RateLimit.HostBurst < 1 {
		return fmt.Errorf("rate_limit.host_burst must be >= 1")
	}
	if c.RateLimit.GlobalConcurrency < 1 {
		return fmt.Errorf("rate_limit.global_concurrency must be >= 1")
	}
	if c.HTTP.TimeoutSeconds < 1 {
		return fmt.Errorf("http.timeout_seconds must be >= 1")
	}
	return nil
}

// FeedDef is one entry in the feeds file.
type FeedDef struct {
	Name            string `yaml:"name"`
	URL             string `yaml:"url"`
	IntervalSeconds int    `yaml:"interval_seconds"`
}

type feedsFile struct {
	Feeds []FeedDef `yaml:"feeds"`
}

// LoadFeedsFile loads feed definitions from a YAML file, capping the result at
// MaxFeedsInFile and reporting whether truncation occurred.
func LoadFeedsFile(path string) ([]FeedDef, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read feeds file: %w", err)
	}

	var parsed feedsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, false, fmt.Errorf("parse feeds file: %w", err)
	}

	if len(parsed.Feeds) > MaxFeedsInFile {
		return parsed.Feeds[:MaxFeedsInFile], true, nil
	}
	return parsed.Feeds, false, nil
}
