package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// Validate checks a full config snapshot (secrets already applied).
// Any error here is fatal at startup: the process must exit before the
// scheduler starts.
func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(parts, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if strings.TrimSpace(c.GitHub.Token) == "" {
		return errors.New("invalid config: STREAKWATCH_GITHUB_TOKEN is not set")
	}
	if strings.TrimSpace(c.Email.APIKey) == "" {
		return errors.New("invalid config: STREAKWATCH_RESEND_API_KEY is not set")
	}
	if c.Telegram != nil && strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("invalid config: telegram is configured but STREAKWATCH_TELEGRAM_TOKEN is not set")
	}

	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("invalid config: timezone %q: %w", tz, err)
		}
	}
	for i, sc := range c.Schedules {
		if _, _, err := ParseHHMM(sc.At); err != nil {
			return fmt.Errorf("invalid config: schedules[%d]: %w", i, err)
		}
		if tz := strings.TrimSpace(sc.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("invalid config: schedules[%d].timezone %q: %w", i, tz, err)
			}
		}
	}

	if c.Checker.CacheTTL != nil {
		if _, err := ParseDurationField("checker.cache_ttl", *c.Checker.CacheTTL); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	for path, raw := range map[string]string{
		"checker.request_timeout": c.Checker.RequestTimeout,
		"email.request_timeout":   c.Email.RequestTimeout,
	} {
		if _, err := ParseDurationField(path, raw); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	if c.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("invalid config: unknown storage driver %q", c.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	return nil
}

// ParseHHMM parses a wall-clock time like "07:45".
func ParseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
