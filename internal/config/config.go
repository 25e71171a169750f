// Package config loads the process configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"apptbot/internal/calendar"
	"apptbot/internal/catalog"
	"apptbot/internal/slots"
)

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	HTTP struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"http"`

	Calendar struct {
		Provider string `yaml:"provider"` // "google" or "sqlite"
		Google   struct {
			CredentialsFile string `yaml:"credentials_file"`
			CalendarID      string `yaml:"calendar_id"`
		} `yaml:"google"`
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
		Backup calendar.BackupConfig `yaml:"backup"`
	} `yaml:"calendar"`

	Redis struct {
		Address             string `yaml:"address"`
		Password            string `yaml:"password"`
		DB                  int    `yaml:"db"`
		SlotCacheTTLSeconds int    `yaml:"slot_cache_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		BusinessStartHour   int    `yaml:"business_start_hour"`
		BusinessEndHour     int    `yaml:"business_end_hour"`
		WorkingWeekdays     []int  `yaml:"working_weekdays"` // 1=Monday .. 7=Sunday
		SlotIntervalMinutes int    `yaml:"slot_interval_minutes"`
		BufferMinutes       int    `yaml:"buffer_minutes"`
		MinNoticeHours      int    `yaml:"min_notice_hours"`
		MaxAdvanceDays      int    `yaml:"max_advance_days"`
		Timezone            string `yaml:"timezone"`
	} `yaml:"booking"`

	Notifications struct {
		Enabled       bool    `yaml:"enabled"`
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"notifications"`

	Reminders struct {
		Enabled              bool `yaml:"enabled"`
		HoursBefore          int  `yaml:"hours_before"`
		CheckIntervalMinutes int  `yaml:"check_interval_minutes"`
	} `yaml:"reminders"`

	Services []catalog.Service `yaml:"services"`

	Managers []int64 `yaml:"managers"`
}

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

	if cfg.Calendar.Provider == "" {
		cfg.Calendar.Provider = "sqlite"
	}
	if cfg.Calendar.SQLite.Path == "" {
		cfg.Calendar.SQLite.Path = "data/apptbot.db"
	}
	if cfg.Calendar.Provider == "sqlite" {
		if err = os.MkdirAll(filepath.Dir(cfg.Calendar.SQLite.Path), 0o755); err != nil {
			return nil, err
		}
	}

	if cfg.Booking.BusinessStartHour == 0 && cfg.Booking.BusinessEndHour == 0 {
		cfg.Booking.BusinessStartHour = 9
		cfg.Booking.BusinessEndHour = 17
	}
	if cfg.Booking.BusinessEndHour <= cfg.Booking.BusinessStartHour {
		return nil, fmt.Errorf("booking.business_end_hour must be after business_start_hour")
	}
	if len(cfg.Booking.WorkingWeekdays) == 0 {
		cfg.Booking.WorkingWeekdays = []int{1, 2, 3, 4, 5}
	}

	return &cfg, nil
}

// Policy builds the immutable booking-window policy from configuration.
func (c *Config) Policy() (slots.Policy, error) {
	loc := time.Local
	if c.Booking.Timezone != "" {
		parsed, err := time.LoadLocation(c.Booking.Timezone)
		if err != nil {
			return slots.Policy{}, fmt.Errorf("booking.timezone: %w", err)
		}
		loc = parsed
	}

	weekdays := make(map[time.Weekday]bool, len(c.Booking.WorkingWeekdays))
	for _, d := range c.Booking.WorkingWeekdays {
		if d < 1 || d > 7 {
			return slots.Policy{}, fmt.Errorf("booking.working_weekdays: %d out of range 1..7", d)
		}
		// 7 is Sunday; time.Weekday has Sunday == 0.
		weekdays[time.Weekday(d%7)] = true
	}

	pol := slots.Policy{
		BusinessStartHour:   c.Booking.BusinessStartHour,
		BusinessEndHour:     c.Booking.BusinessEndHour,
		WorkingWeekdays:     weekdays,
		SlotIntervalMinutes: c.Booking.SlotIntervalMinutes,
		BufferMinutes:       c.Booking.BufferMinutes,
		MinNoticeHours:      c.Booking.MinNoticeHours,
		MaxAdvanceDays:      c.Booking.MaxAdvanceDays,
		Location:            loc,
	}
	if pol.SlotIntervalMinutes <= 0 {
		pol.SlotIntervalMinutes = 30
	}
	return pol, nil
}

// SlotCacheTTL returns the redis slot-cache TTL, zero when caching is off.
func (c *Config) SlotCacheTTL() time.Duration {
	if c.Redis.Address == "" || c.Redis.SlotCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.SlotCacheTTLSeconds) * time.Second
}
