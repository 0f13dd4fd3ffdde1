package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the outcome journal.
//
// Driver values:
//   - "file": dependency-free jsonl backend
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry records one orchestrator invocation.
// Keep it compact and schema-stable.
type Entry struct {
	RunID  string    `json:"run_id"`
	At     time.Time `json:"at"`
	Login  string    `json:"login"`
	Sent   bool      `json:"sent"`
	Reason string    `json:"reason,omitempty"`
	Error  string    `json:"error,omitempty"`
}
