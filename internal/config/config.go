package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken              string       `yaml:"discord_token"`
	DatabasePath              string       `yaml:"database_path"`
	LogLevel                  string       `yaml:"log_level"`
	Mode                      string       `yaml:"mode"`
	DefaultSecurityLogChannel string       `yaml:"default_security_log_channel"`
	RetentionDays             int          `yaml:"retention_days"`
	SweepIntervalMinutes      int          `yaml:"sweep_interval_minutes"`
	Health                    HealthConfig `yaml:"health"`
	Guild                     GuildConfig  `yaml:"guild_defaults"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// GuildConfig is the per-tenant detector configuration. The engine treats it
// as read-only input per call; the bot layer merges stored overrides over the
// process defaults.
type GuildConfig struct {
	Spam           SpamConfig          `yaml:"spam"`
	Links          LinkConfig          `yaml:"links"`
	Mentions       MentionConfig       `yaml:"mentions"`
	RaidProtection RaidConfig          `yaml:"raid_protection"`
	ContentFilter  ContentFilterConfig `yaml:"content_filter"`
	Security       SecurityConfig      `yaml:"security"`
}

type SpamConfig struct {
	Enabled              bool `yaml:"enabled"`
	MaxDuplicateMessages int  `yaml:"max_duplicate_messages"`
	MaxMessagesPerMinute int  `yaml:"max_messages_per_minute"`
}

type LinkConfig struct {
	Whitelist []string `yaml:"whitelist"`
}

type MentionConfig struct {
	MaxMentions int `yaml:"max_mentions"`
}

type RaidConfig struct {
	Enabled           bool             `yaml:"enabled"`
	JoinThreshold     int              `yaml:"join_threshold"`
	TimeWindowSeconds int              `yaml:"time_window_seconds"`
	AccountAge        AccountAgeConfig `yaml:"account_age"`
	Actions           RaidActions      `yaml:"actions"`
}

type AccountAgeConfig struct {
	MinimumAgeHours int    `yaml:"minimum_age_hours"`
	Action          string `yaml:"action"`
}

type RaidActions struct {
	Lockdown        bool `yaml:"lockdown"`
	LockdownMinutes int  `yaml:"lockdown_minutes"`
	Alert           bool `yaml:"alert"`
}

type ContentFilterConfig struct {
	Enabled          bool     `yaml:"enabled"`
	StrictMode       bool     `yaml:"strict_mode"`
	Languages        []string `yaml:"languages"`
	CustomWords      []string `yaml:"custom_words"`
	Whitelist        []string `yaml:"whitelist"`
	AllowedFileTypes []string `yaml:"allowed_file_types"`
	MaxFileSize      int64    `yaml:"max_file_size"`
}

type SecurityConfig struct {
	Enabled bool `yaml:"enabled"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:         "/data/securitybot.db",
		LogLevel:             "info",
		Mode:                 "normal",
		RetentionDays:        14,
		SweepIntervalMinutes: 5,
		Health:               HealthConfig{Enabled: false, Addr: ":8080"},
		Guild:                DefaultGuildConfig(),
	}
}

func DefaultGuildConfig() GuildConfig {
	return GuildConfig{
		Spam: SpamConfig{
			Enabled:              true,
			MaxDuplicateMessages: 3,
			MaxMessagesPerMinute: 10,
		},
		Links:    LinkConfig{},
		Mentions: MentionConfig{MaxMentions: 5},
		RaidProtection: RaidConfig{
			Enabled:           true,
			JoinThreshold:     5,
			TimeWindowSeconds: 60,
			AccountAge:        AccountAgeConfig{MinimumAgeHours: 24, Action: "alert"},
			Actions:           RaidActions{Lockdown: true, LockdownMinutes: 10, Alert: true},
		},
		ContentFilter: ContentFilterConfig{
			Enabled:     true,
			StrictMode:  false,
			Languages:   []string{"en"},
			MaxFileSize: 8 << 20,
		},
		Security: SecurityConfig{Enabled: true},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	cfg.Mode = normalizeMode(cfg.Mode)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Mode = envString("MODE", cfg.Mode)
	cfg.DefaultSecurityLogChannel = envString("DEFAULT_SECURITY_LOG_CHANNEL", cfg.DefaultSecurityLogChannel)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.SweepIntervalMinutes = envInt("SWEEP_INTERVAL_MINUTES", cfg.SweepIntervalMinutes)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Guild.Spam.MaxDuplicateMessages = envInt("SPAM_MAX_DUPLICATES", cfg.Guild.Spam.MaxDuplicateMessages)
	cfg.Guild.Spam.MaxMessagesPerMinute = envInt("SPAM_MAX_PER_MINUTE", cfg.Guild.Spam.MaxMessagesPerMinute)
	cfg.Guild.Mentions.MaxMentions = envInt("MAX_MENTIONS", cfg.Guild.Mentions.MaxMentions)
	cfg.Guild.RaidProtection.JoinThreshold = envInt("RAID_JOIN_THRESHOLD", cfg.Guild.RaidProtection.JoinThreshold)
	cfg.Guild.RaidProtection.TimeWindowSeconds = envInt("RAID_WINDOW_SECONDS", cfg.Guild.RaidProtection.TimeWindowSeconds)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func normalizeMode(value string) string {
	switch strings.ToLower(value) {
	case "audit":
		return "audit"
	default:
		return "normal"
	}
}
