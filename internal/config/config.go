// Package config defines service configuration and its loading from
// defaults, an optional YAML file and CLASSROOM_ environment variables.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Storage backends: memory, redis (history only) or sqlite.
	HistoryBackend  string `koanf:"history_backend"`
	HallPassBackend string `koanf:"hall_pass_backend"`
	AuditBackend    string `koanf:"audit_backend"`

	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	RedisNamespace string `koanf:"redis_namespace"`

	// SQLitePath is the database file shared by every sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// Timezone is the IANA zone that defines a "day" of picks.
	Timezone string `koanf:"timezone"`

	// Rosters maps class id to student names.
	Rosters map[string][]string `koanf:"rosters"`

	// FallbackRoster is used for classes without a roster.
	FallbackRoster []string `koanf:"fallback_roster"`

	// SeatingCharts maps class id to a desk grid. A chart's students are
	// the class roster when Rosters has none for the class.
	SeatingCharts map[string]SeatingChart `koanf:"seating_charts"`

	DashboardCacheTTLMS int `koanf:"dashboard_cache_ttl_ms"`

	AuditQueueSize   int `koanf:"audit_queue_size"`
	AuditWorkerCount int `koanf:"audit_worker_count"`
	DedupeSize       int `koanf:"dedupe_size"`

	HallPassOverdueGraceMinutes int `koanf:"hall_pass_overdue_grace_minutes"`

	// RandomSeed seeds the picker; 0 seeds from the clock.
	RandomSeed int64 `koanf:"random_seed"`

	// MetricsEnabled turns the Prometheus recorders on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`
	// MetricsRefreshIntervalMS is how often gauges are refreshed and expired
	// dashboard entries purged.
	MetricsRefreshIntervalMS int `koanf:"metrics_refresh_interval_ms"`
}

// SeatingChart configures one class's desk grid. Zero rows or cols use the
// seating defaults. Seats maps "row,col" to a student; without seats the
// students are arranged left to right.
type SeatingChart struct {
	Title    string            `koanf:"title"`
	Rows     int               `koanf:"rows"`
	Cols     int               `koanf:"cols"`
	Students []string          `koanf:"students"`
	Seats    map[string]string `koanf:"seats"`
}

// DefaultRoster is the demo class used when nothing else is configured.
func DefaultRoster() []string {
	return []string{
		"Alice Johnson", "Bob Smith", "Carol Williams", "David Brown",
		"Emma Davis", "Frank Miller", "Grace Wilson", "Henry Moore",
		"Ivy Taylor", "Jack Anderson", "Kate Thomas", "Liam Jackson",
		"Maya White", "Noah Harris", "Olivia Martin", "Paul Thompson",
	}
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:                    "info",
		Addr:                        ":9080",
		HistoryBackend:              "memory",
		HallPassBackend:             "memory",
		AuditBackend:                "memory",
		RedisAddr:                   "localhost:6379",
		RedisNamespace:              "classroom",
		SQLitePath:                  "classroom.db",
		Timezone:                    "Local",
		Rosters:                     map[string][]string{},
		FallbackRoster:              DefaultRoster(),
		SeatingCharts:               map[string]SeatingChart{},
		DashboardCacheTTLMS:         60_000,
		AuditQueueSize:              1024,
		AuditWorkerCount:            2,
		DedupeSize:                  10_000,
		HallPassOverdueGraceMinutes: 5,
		MetricsEnabled:              true,
		MetricsRefreshIntervalMS:    10_000,
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, ErrInvalidConfig)
	}
	return loc, nil
}

// DashboardCacheTTL is DashboardCacheTTLMS as a duration.
func (c *Config) DashboardCacheTTL() time.Duration {
	return time.Duration(c.DashboardCacheTTLMS) * time.Millisecond
}

// MetricsRefreshInterval is MetricsRefreshIntervalMS as a duration.
func (c *Config) MetricsRefreshInterval() time.Duration {
	return time.Duration(c.MetricsRefreshIntervalMS) * time.Millisecond
}

// OverdueGrace is HallPassOverdueGraceMinutes as a duration.
func (c *Config) OverdueGrace() time.Duration {
	return time.Duration(c.HallPassOverdueGraceMinutes) * time.Minute
}

// Validate reports the first invalid setting, wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	}
	backends := []struct {
		name, value string
		redisOK     bool
	}{
		{"history_backend", c.HistoryBackend, true},
		{"hall_pass_backend", c.HallPassBackend, false},
		{"audit_backend", c.AuditBackend, false},
	}
	for _, b := range backends {
		switch b.value {
		case "memory":
		case "sqlite":
			if c.SQLitePath == "" {
				return fmt.Errorf("%s sqlite needs sqlite_path: %w", b.name, ErrInvalidConfig)
			}
		case "redis":
			if !b.redisOK {
				return fmt.Errorf("%s does not support redis: %w", b.name, ErrInvalidConfig)
			}
			if c.RedisAddr == "" {
				return fmt.Errorf("%s redis needs redis_addr: %w", b.name, ErrInvalidConfig)
			}
		default:
			return fmt.Errorf("%s %q: %w", b.name, b.value, ErrInvalidConfig)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch {
	case c.DashboardCacheTTLMS < 0:
		return fmt.Errorf("dashboard_cache_ttl_ms must be >= 0: %w", ErrInvalidConfig)
	case c.AuditQueueSize < 1:
		return fmt.Errorf("audit_queue_size must be > 0: %w", ErrInvalidConfig)
	case c.AuditWorkerCount < 1:
		return fmt.Errorf("audit_worker_count must be > 0: %w", ErrInvalidConfig)
	case c.HallPassOverdueGraceMinutes < 0:
		return fmt.Errorf("hall_pass_overdue_grace_minutes must be >= 0: %w", ErrInvalidConfig)
	case c.RedisDB < 0:
		return fmt.Errorf("redis_db must be >= 0: %w", ErrInvalidConfig)
	case c.MetricsRefreshIntervalMS < 1:
		return fmt.Errorf("metrics_refresh_interval_ms must be > 0: %w", ErrInvalidConfig)
	}
	return nil
}
