package config

import (
	"time"
)

const (
	// DefaultTimezone is used for schedules and day-window math when the
	// config does not say otherwise.
	DefaultTimezone = "America/New_York"

	// DefaultScheduleAt is the daily reminder time registered when the
	// config lists no schedules of its own.
	DefaultScheduleAt = "20:00"

	defaultRequestTimeout = 15 * time.Second
	defaultCacheTTL       = time.Hour
)

type Config struct {
	GitHub   GitHubConfig    `json:"github"`
	Email    EmailConfig     `json:"email"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`

	// Schedules lists daily firing times. When empty, a single schedule at
	// DefaultScheduleAt in Timezone is registered.
	Schedules []ScheduleConfig `json:"schedules,omitempty"`

	// Timezone is the IANA zone for day-window math and for schedules that
	// do not carry their own zone.
	Timezone string `json:"timezone,omitempty"`

	Checker   CheckerConfig   `json:"checker,omitempty"`
	Scheduler SchedulerConfig `json:"scheduler,omitempty"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
	Storage   *StorageConfig  `json:"storage,omitempty"`

	// Environment is free-form ("production", "development", ...); it only
	// shows up in logs.
	Environment string `json:"environment,omitempty"`
}

// GitHubConfig identifies the account whose contribution activity is checked.
// The token is never read from the config file; it comes from
// STREAKWATCH_GITHUB_TOKEN (see Secrets).
type GitHubConfig struct {
	Login   string `json:"login" validate:"required"`
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`

	Token string `json:"-"`
}

// EmailConfig configures the reminder email channel.
// The API key comes from STREAKWATCH_RESEND_API_KEY.
type EmailConfig struct {
	From    string `json:"from" validate:"required,email"`
	To      string `json:"to" validate:"required,email"`
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`

	// RequestTimeout is a Go duration string (e.g. "15s").
	RequestTimeout string `json:"request_timeout,omitempty"`

	APIKey string `json:"-"`
}

// TelegramConfig enables an additional reminder channel.
// The bot token comes from STREAKWATCH_TELEGRAM_TOKEN.
type TelegramConfig struct {
	ChatID int64 `json:"chat_id" validate:"required"`

	Token string `json:"-"`
}

type ScheduleConfig struct {
	// At is a wall-clock time "HH:MM".
	At string `json:"at" validate:"required"`

	// Timezone overrides the top-level zone for this schedule only.
	Timezone string `json:"timezone,omitempty"`

	Label string `json:"label,omitempty"`
}

// CheckerConfig controls the contribution query.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1h").
type CheckerConfig struct {
	// CacheTTL bounds how long a (login, zone, date) count is reused.
	// "0s" disables the cache entirely.
	CacheTTL *string `json:"cache_ttl,omitempty"`

	RequestTimeout string `json:"request_timeout,omitempty"`

	// RatePerMinute caps provider queries; 0 means no limit.
	RatePerMinute int `json:"rate_per_minute,omitempty"`
}

type SchedulerConfig struct {
	// SkipIfRunning skips a firing while the previous one is still in
	// flight. Off by default: overlapping firings are allowed, matching the
	// fire-and-forget contract.
	SkipIfRunning bool `json:"skip_if_running,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console *bool         `json:"console,omitempty"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig enables the outcome journal.
//
// Driver values:
//   - "file": dependency-free jsonl backend
//   - "sqlite": SQLite database file
//
// If the section is omitted or Driver is "none", nothing is persisted.
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

func (c *Config) ConsoleLogging() bool {
	if c.Logging.Console == nil {
		return true
	}
	return *c.Logging.Console
}

// CacheTTL resolves the checker cache TTL, defaulting to one hour.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Checker.CacheTTL == nil {
		return defaultCacheTTL, nil
	}
	return ParseDurationField("checker.cache_ttl", *c.Checker.CacheTTL)
}

func (c *Config) CheckerTimeout() (time.Duration, error) {
	return ParseDurationOrDefault("checker.request_timeout", c.Checker.RequestTimeout, defaultRequestTimeout)
}

func (c *Config) EmailTimeout() (time.Duration, error) {
	return ParseDurationOrDefault("email.request_timeout", c.Email.RequestTimeout, defaultRequestTimeout)
}
