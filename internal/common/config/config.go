// Package config provides configuration management for threadwarden.
// It supports loading configuration from environment variables, config files, and defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration sections for threadwarden.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Discord  DiscordConfig  `mapstructure:"discord"`
	Watchdog WatchdogConfig `mapstructure:"watchdog"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration for the admin API.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`  // in seconds
	WriteTimeout int    `mapstructure:"writeTimeout"` // in seconds
}

// DiscordConfig holds the Discord bot configuration.
type DiscordConfig struct {
	Token string `mapstructure:"token"`
	// GuildID is the guild the bot operates in.
	GuildID string `mapstructure:"guildId"`
	// ForumChannelID is the help forum channel whose threads are monitored.
	ForumChannelID string `mapstructure:"forumChannelId"`
	// ResolvedTagID marks a thread as answered; tagged threads are never scanned.
	ResolvedTagID string `mapstructure:"resolvedTagId"`
	// AdminRoleID gates the manual sweep and exclusion commands.
	AdminRoleID string `mapstructure:"adminRoleId"`
}

// WatchdogConfig holds the inactivity lifecycle parameters.
type WatchdogConfig struct {
	// InactivityThreshold is how long a thread must be quiet before the owner is prompted.
	InactivityThreshold time.Duration `mapstructure:"inactivityThreshold"`
	// GracePeriod is the window between the prompt and automatic archival.
	GracePeriod time.Duration `mapstructure:"gracePeriod"`
	// ScanSchedule is a cron expression for the inactivity scan passes.
	ScanSchedule string `mapstructure:"scanSchedule"`
	// SweepSchedule is a cron expression for the closure sweep.
	SweepSchedule string `mapstructure:"sweepSchedule"`
	// NotifyDelay is the pause between successive notification sends within one pass.
	NotifyDelay time.Duration `mapstructure:"notifyDelay"`
	// ExclusionCacheTTL bounds how stale the in-memory exclusion cache may get.
	ExclusionCacheTTL time.Duration `mapstructure:"exclusionCacheTtl"`
	// ExclusionCleanupEnabled turns on deletion of exclusion records older than
	// ExclusionMaxAge during cache refreshes. Off by default: an exclusion is
	// expected to persist until explicitly removed.
	ExclusionCleanupEnabled bool          `mapstructure:"exclusionCleanupEnabled"`
	ExclusionMaxAge         time.Duration `mapstructure:"exclusionMaxAge"`
}

// DatabaseConfig holds the embedded database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// NATSConfig holds NATS messaging configuration.
// An empty URL means lifecycle events stay on the in-memory bus.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// ReadTimeoutDuration returns the read timeout as a time.Duration.
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a time.Duration.
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// detectDefaultLogFormat returns the appropriate log format based on environment.
func detectDefaultLogFormat() string {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "json"
	}
	if env := os.Getenv("THREADWARDEN_ENV"); env == "production" || env == "prod" {
		return "json"
	}
	return "text"
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8084)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Discord defaults - token and ids must come from env or config file
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.guildId", "")
	v.SetDefault("discord.forumChannelId", "")
	v.SetDefault("discord.resolvedTagId", "")
	v.SetDefault("discord.adminRoleId", "")

	// Watchdog defaults: prompt after two quiet days, archive a day later.
	// Scans run three times a day, the closure sweep hourly.
	v.SetDefault("watchdog.inactivityThreshold", 48*time.Hour)
	v.SetDefault("watchdog.gracePeriod", 24*time.Hour)
	v.SetDefault("watchdog.scanSchedule", "0 9,15,21 * * *")
	v.SetDefault("watchdog.sweepSchedule", "0 * * * *")
	v.SetDefault("watchdog.notifyDelay", 2*time.Second)
	v.SetDefault("watchdog.exclusionCacheTtl", 5*time.Minute)
	v.SetDefault("watchdog.exclusionCleanupEnabled", false)
	v.SetDefault("watchdog.exclusionMaxAge", 30*24*time.Hour)

	// Database defaults
	v.SetDefault("database.path", "threadwarden.db")

	// NATS defaults - empty URL means use in-memory event bus
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clientId", "threadwarden")
	v.SetDefault("nats.maxReconnects", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix THREADWARDEN_ with snake_case naming.
// Config file should be named config.yaml and placed in the current directory
// or /etc/threadwarden/.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("THREADWARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bindings for snake_case env vars (camelCase config keys).
	// AutomaticEnv does not handle camelCase to SNAKE_CASE conversion.
	_ = v.BindEnv("discord.token", "THREADWARDEN_DISCORD_TOKEN", "DISCORD_TOKEN")
	_ = v.BindEnv("discord.guildId", "THREADWARDEN_DISCORD_GUILD_ID")
	_ = v.BindEnv("discord.forumChannelId", "THREADWARDEN_DISCORD_FORUM_CHANNEL_ID")
	_ = v.BindEnv("discord.resolvedTagId", "THREADWARDEN_DISCORD_RESOLVED_TAG_ID")
	_ = v.BindEnv("discord.adminRoleId", "THREADWARDEN_DISCORD_ADMIN_ROLE_ID")
	_ = v.BindEnv("database.path", "THREADWARDEN_DATABASE_PATH")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/threadwarden/")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required configuration fields are set.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if cfg.Watchdog.InactivityThreshold <= 0 {
		errs = append(errs, "watchdog.inactivityThreshold must be positive")
	}
	if cfg.Watchdog.GracePeriod <= 0 {
		errs = append(errs, "watchdog.gracePeriod must be positive")
	}
	if cfg.Watchdog.ExclusionCacheTTL <= 0 {
		errs = append(errs, "watchdog.exclusionCacheTtl must be positive")
	}
	if cfg.Watchdog.ExclusionCleanupEnabled && cfg.Watchdog.ExclusionMaxAge <= 0 {
		errs = append(errs, "watchdog.exclusionMaxAge must be positive when cleanup is enabled")
	}
	if strings.TrimSpace(cfg.Watchdog.ScanSchedule) == "" {
		errs = append(errs, "watchdog.scanSchedule is required")
	}
	if strings.TrimSpace(cfg.Watchdog.SweepSchedule) == "" {
		errs = append(errs, "watchdog.sweepSchedule is required")
	}

	if cfg.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}
