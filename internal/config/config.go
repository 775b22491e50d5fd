package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"timegrid/internal/database"

	"gopkg.in/yaml.v3"
)

// Config is the root service configuration, loaded from YAML with
// ${ENV_VAR} placeholder support.
type Config struct {
	Server struct {
		Port   int    `yaml:"port"`
		APIKey string `yaml:"api_key"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup database.BackupConfig `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Scheduling struct {
		SiteTimezone    string `yaml:"site_timezone"`
		SlotMinutes     int    `yaml:"slot_minutes"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"scheduling"`

	Reminders struct {
		Enabled              bool    `yaml:"enabled"`
		CheckIntervalMinutes int     `yaml:"check_interval_minutes"`
		LeadHours            int     `yaml:"lead_hours"`
		RatePerSecond        float64 `yaml:"rate_per_second"`
		Burst                int     `yaml:"burst"`
	} `yaml:"reminders"`

	DirectoryConfigPath string `yaml:"directory_config_path"`
}

// Load reads configuration from path, expanding ${ENV_VAR} placeholders and
// applying defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/timegrid.db"
	}
	if cfg.Scheduling.SlotMinutes <= 0 {
		cfg.Scheduling.SlotMinutes = 30
	}
	if cfg.DirectoryConfigPath == "" {
		cfg.DirectoryConfigPath = "configs/directory.yaml"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SiteLocation resolves the configured site timezone, defaulting to UTC.
func (c *Config) SiteLocation() (*time.Location, error) {
	if c.Scheduling.SiteTimezone == "" {
		return time.UTC, nil
	}
	tz, err := time.LoadLocation(c.Scheduling.SiteTimezone)
	if err != nil {
		return nil, fmt.Errorf("site timezone %q: %w", c.Scheduling.SiteTimezone, err)
	}
	return tz, nil
}

// CacheTTL returns the schedule cache TTL; zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	if c.Scheduling.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Scheduling.CacheTTLSeconds) * time.Second
}

// ReminderCheckInterval returns how often the reminder loop scans.
func (c *Config) ReminderCheckInterval() time.Duration {
	if c.Reminders.CheckIntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Reminders.CheckIntervalMinutes) * time.Minute
}

// ReminderLead returns how far ahead reminders look for appointments.
func (c *Config) ReminderLead() time.Duration {
	if c.Reminders.LeadHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Reminders.LeadHours) * time.Hour
}
