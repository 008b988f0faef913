// path: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the engine. Loaded once per process;
// every tunable has a default so a bare environment still boots.
type Config struct {
	Environment string
	LogLevel    string

	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Security  SecurityConfig
	Scheduler SchedulerConfig
	Queue     QueueConfig
	Checkback CheckbackConfig
	Lens      LensConfig
	Relay     RelayConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	JWTSecret string
}

// SchedulerConfig carries the inventory-aware planning tunables.
type SchedulerConfig struct {
	HorizonMonths    int
	MinPerDayShort   float64
	MaxPerDayShort   float64
	MinPerDayLong    float64
	MaxPerDayLong    float64
	ShortMaxDuration time.Duration
	PreferredHours   []int
	Platforms        []string
	PlatformWindows  bool
	LockTTL          time.Duration
}

// QueueConfig carries dispatcher and lease tunables.
type QueueConfig struct {
	LeaseTTL        time.Duration
	MaxAttempts     int
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	BatchSize       int
	BatchSizeMax    int
	PollInterval    time.Duration
	ReaperInterval  time.Duration
	PublishTimeout  time.Duration
	MetricsTimeout  time.Duration
	LatencyTarget   time.Duration
	WorkerCount     int
}

// CheckbackConfig carries the metric-pull pipeline tunables.
type CheckbackConfig struct {
	OffsetsHours  []int
	GraceWindow   time.Duration
	PollInterval  time.Duration
	MaxAttempts   int
	RecentWindow  time.Duration
}

type LensConfig struct {
	WindowDays     int
	SweepInterval  time.Duration
}

// RelayConfig configures the HTTP relay adapter.
type RelayConfig struct {
	Enabled   bool
	BaseURL   string
	APIKey    string
	Platforms []string
}

// Load reads configuration from environment variables and an optional
// config.yaml, applying spec defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		Environment: v.GetString("environment"),
		LogLevel:    v.GetString("log.level"),
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			DBName:   v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Security: SecurityConfig{
			JWTSecret: v.GetString("security.jwt_secret"),
		},
		Scheduler: SchedulerConfig{
			HorizonMonths:    v.GetInt("scheduler.horizon_months"),
			MinPerDayShort:   v.GetFloat64("scheduler.min_per_day_short"),
			MaxPerDayShort:   v.GetFloat64("scheduler.max_per_day_short"),
			MinPerDayLong:    v.GetFloat64("scheduler.min_per_day_long"),
			MaxPerDayLong:    v.GetFloat64("scheduler.max_per_day_long"),
			ShortMaxDuration: v.GetDuration("scheduler.short_max_duration"),
			PreferredHours:   v.GetIntSlice("scheduler.preferred_hours"),
			Platforms:        v.GetStringSlice("scheduler.platforms"),
			PlatformWindows:  v.GetBool("scheduler.platform_windows"),
			LockTTL:          v.GetDuration("scheduler.lock_ttl"),
		},
		Queue: QueueConfig{
			LeaseTTL:       v.GetDuration("queue.lease_ttl"),
			MaxAttempts:    v.GetInt("queue.max_attempts"),
			BackoffBase:    v.GetDuration("queue.backoff_base"),
			BackoffCap:     v.GetDuration("queue.backoff_cap"),
			BatchSize:      v.GetInt("queue.batch_size"),
			BatchSizeMax:   v.GetInt("queue.batch_size_max"),
			PollInterval:   v.GetDuration("queue.poll_interval"),
			ReaperInterval: v.GetDuration("queue.reaper_interval"),
			PublishTimeout: v.GetDuration("queue.publish_timeout"),
			MetricsTimeout: v.GetDuration("queue.metrics_timeout"),
			LatencyTarget:  v.GetDuration("queue.latency_target"),
			WorkerCount:    v.GetInt("queue.worker_count"),
		},
		Checkback: CheckbackConfig{
			OffsetsHours: v.GetIntSlice("checkback.offsets_hours"),
			GraceWindow:  v.GetDuration("checkback.grace_window"),
			PollInterval: v.GetDuration("checkback.poll_interval"),
			MaxAttempts:  v.GetInt("checkback.max_attempts"),
			RecentWindow: v.GetDuration("checkback.recent_window"),
		},
		Lens: LensConfig{
			WindowDays:    v.GetInt("lens.window_days"),
			SweepInterval: v.GetDuration("lens.sweep_interval"),
		},
		Relay: RelayConfig{
			Enabled:   v.GetBool("relay.enabled"),
			BaseURL:   v.GetString("relay.base_url"),
			APIKey:    v.GetString("relay.api_key"),
			Platforms: v.GetStringSlice("relay.platforms"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log.level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "mediaposter")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("scheduler.horizon_months", 2)
	v.SetDefault("scheduler.min_per_day_short", 1.0)
	v.SetDefault("scheduler.max_per_day_short", 3.0)
	v.SetDefault("scheduler.min_per_day_long", 0.2)
	v.SetDefault("scheduler.max_per_day_long", 1.0)
	v.SetDefault("scheduler.short_max_duration", 60*time.Second)
	v.SetDefault("scheduler.preferred_hours", []int{9, 13, 18})
	v.SetDefault("scheduler.platforms", []string{"instagram", "tiktok"})
	v.SetDefault("scheduler.platform_windows", false)
	v.SetDefault("scheduler.lock_ttl", 5*time.Minute)

	v.SetDefault("queue.lease_ttl", 5*time.Minute)
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.backoff_base", time.Minute)
	v.SetDefault("queue.backoff_cap", time.Hour)
	v.SetDefault("queue.batch_size", 10)
	v.SetDefault("queue.batch_size_max", 50)
	v.SetDefault("queue.poll_interval", 15*time.Second)
	v.SetDefault("queue.reaper_interval", time.Minute)
	v.SetDefault("queue.publish_timeout", 120*time.Second)
	v.SetDefault("queue.metrics_timeout", 30*time.Second)
	v.SetDefault("queue.latency_target", 10*time.Second)
	v.SetDefault("queue.worker_count", 4)

	v.SetDefault("checkback.offsets_hours", []int{1, 6, 24, 72, 168})
	v.SetDefault("checkback.grace_window", time.Hour)
	v.SetDefault("checkback.poll_interval", time.Minute)
	v.SetDefault("checkback.max_attempts", 3)
	v.SetDefault("checkback.recent_window", 48*time.Hour)

	v.SetDefault("lens.window_days", 90)
	v.SetDefault("lens.sweep_interval", 6*time.Hour)

	v.SetDefault("relay.enabled", false)
	v.SetDefault("relay.base_url", "https://backend.blotato.com/v2")
	v.SetDefault("relay.platforms", []string{})
}

func (c *Config) validate() error {
	s := c.Scheduler
	if s.HorizonMonths < 1 {
		return fmt.Errorf("scheduler.horizon_months must be >= 1, got %d", s.HorizonMonths)
	}
	if s.MinPerDayShort > s.MaxPerDayShort {
		return fmt.Errorf("scheduler short cadence: min %v > max %v", s.MinPerDayShort, s.MaxPerDayShort)
	}
	if s.MinPerDayLong > s.MaxPerDayLong {
		return fmt.Errorf("scheduler long cadence: min %v > max %v", s.MinPerDayLong, s.MaxPerDayLong)
	}
	if len(s.PreferredHours) == 0 {
		return fmt.Errorf("scheduler.preferred_hours must not be empty")
	}
	for _, h := range s.PreferredHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("scheduler.preferred_hours: %d out of range", h)
		}
	}
	if c.Queue.MaxAttempts < 1 {
		return fmt.Errorf("queue.max_attempts must be >= 1")
	}
	if c.Queue.BackoffBase <= 0 || c.Queue.BackoffCap < c.Queue.BackoffBase {
		return fmt.Errorf("queue backoff: base %v cap %v invalid", c.Queue.BackoffBase, c.Queue.BackoffCap)
	}
	if len(c.Checkback.OffsetsHours) == 0 {
		return fmt.Errorf("checkback.offsets_hours must not be empty")
	}
	return nil
}
