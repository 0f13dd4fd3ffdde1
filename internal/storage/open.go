// Package storage persists orchestrator outcomes for later inspection.
// The journal is additive observability: check/notify behavior is identical
// when it is disabled.
package storage

import (
	"context"
	"errors"
	"strings"

	"streakwatch/pkg/logx"
)

// Store is the journal API used by the app and the history command.
type Store interface {
	AppendOutcome(ctx context.Context, e Entry) error
	ListRecent(ctx context.Context, n int) ([]Entry, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
