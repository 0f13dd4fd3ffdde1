// Package scheduler fires the check-and-notify job at configured wall-clock
// times.
package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Schedule is one daily trigger: fire at Hour:Minute on the zone's wall
// clock, once per matching local day. Immutable after construction.
type Schedule struct {
	Hour     int
	Minute   int
	Timezone string // IANA zone; empty means the process-local zone
	Label    string
}

func (s Schedule) Validate() error {
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("schedule %q: hour %d out of range", s.Label, s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("schedule %q: minute %d out of range", s.Label, s.Minute)
	}
	if tz := strings.TrimSpace(s.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("schedule %q: timezone %q: %w", s.Label, tz, err)
		}
	}
	return nil
}

// cronSpec renders the schedule as a 5-field cron spec. The CRON_TZ prefix
// makes the entry tick on its own zone's wall clock regardless of the
// process zone.
func (s Schedule) cronSpec() string {
	spec := fmt.Sprintf("%d %d * * *", s.Minute, s.Hour)
	if tz := strings.TrimSpace(s.Timezone); tz != "" {
		spec = "CRON_TZ=" + tz + " " + spec
	}
	return spec
}

// FiringRecord is one entry of the bounded in-memory firing history.
type FiringRecord struct {
	Label    string
	Started  time.Time
	Duration time.Duration
	Skipped  bool
	Panicked bool
}

type Config struct {
	// SkipIfRunning enables the opt-in non-blocking overlap guard: a firing
	// is skipped while a previous one is still in flight. Default false
	// keeps the fire-and-forget contract with no mutual exclusion.
	SkipIfRunning bool

	// HistorySize bounds the firing history ring (default 100).
	HistorySize int
}
