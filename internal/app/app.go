// Package app wires configuration, logging, storage, and the workflow
// services into one process.
package app

import (
	"context"
	"fmt"
	"time"

	"streakwatch/internal/config"
	"streakwatch/internal/github"
	"streakwatch/internal/notify"
	"streakwatch/internal/orchestrator"
	"streakwatch/internal/scheduler"
	"streakwatch/internal/storage"
	"streakwatch/internal/streak"
	"streakwatch/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store storage.Store
	sched *scheduler.Service
	orch  *orchestrator.Orchestrator

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// New loads and validates configuration, then builds the full service graph.
// Any configuration problem is returned before anything starts; callers must
// treat it as fatal and exit non-zero.
func New(cfgPath string) (*App, error) {
	secrets, err := config.LoadSecrets()
	if err != nil {
		return nil, err
	}
	mgr := config.NewManager(cfgPath, secrets)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.ConsoleLogging(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	mgr.SetLogger(log)

	a := &App{cfgMgr: mgr, logSvc: logSvc, log: log}

	if cfg.Storage != nil {
		busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		st, err := storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, log)
		if err != nil {
			_ = logSvc.Close()
			return nil, fmt.Errorf("open storage: %w", err)
		}
		a.store = st
	}

	orch, err := buildOrchestrator(cfg, log)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}
	a.orch = orch

	a.sched = scheduler.New(scheduler.Config{
		SkipIfRunning: cfg.Scheduler.SkipIfRunning,
	}, a.runScheduled, log)

	scheds, err := buildSchedules(cfg)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}
	for _, sc := range scheds {
		if err := a.sched.Add(sc); err != nil {
			_ = a.closeResources()
			return nil, err
		}
	}

	log.Info("app initialized",
		logx.String("login", cfg.GitHub.Login),
		logx.String("recipient", cfg.Email.To),
		logx.String("tz", cfg.Timezone),
		logx.Int("schedules", len(scheds)),
		logx.String("environment", cfg.Environment),
	)
	return a, nil
}

func buildOrchestrator(cfg *config.Config, log logx.Logger) (*orchestrator.Orchestrator, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	checkTimeout, err := cfg.CheckerTimeout()
	if err != nil {
		return nil, err
	}
	cacheTTL, err := cfg.CacheTTL()
	if err != nil {
		return nil, err
	}
	emailTimeout, err := cfg.EmailTimeout()
	if err != nil {
		return nil, err
	}

	client := github.NewClient(github.Config{
		Token:         cfg.GitHub.Token,
		BaseURL:       cfg.GitHub.BaseURL,
		Timeout:       checkTimeout,
		RatePerMinute: cfg.Checker.RatePerMinute,
	}, log)
	checker := streak.NewChecker(client, cacheTTL, log)

	var tg *notify.TelegramConfig
	if cfg.Telegram != nil {
		tg = &notify.TelegramConfig{
			Token:   cfg.Telegram.Token,
			ChatID:  cfg.Telegram.ChatID,
			Timeout: emailTimeout,
		}
	}
	channels, err := notify.BuildChannels(notify.ResendConfig{
		APIKey:  cfg.Email.APIKey,
		BaseURL: cfg.Email.BaseURL,
		Timeout: emailTimeout,
	}, tg)
	if err != nil {
		return nil, err
	}
	notifier := notify.NewNotifier(channels, cfg.Email.From, cfg.Email.To, log)

	return orchestrator.New(checker, notifier, cfg.GitHub.Login, loc, log), nil
}

func buildSchedules(cfg *config.Config) ([]scheduler.Schedule, error) {
	out := make([]scheduler.Schedule, 0, len(cfg.Schedules))
	for i, sc := range cfg.Schedules {
		h, m, err := config.ParseHHMM(sc.At)
		if err != nil {
			return nil, fmt.Errorf("schedules[%d]: %w", i, err)
		}
		out = append(out, scheduler.Schedule{
			Hour:     h,
			Minute:   m,
			Timezone: sc.Timezone,
			Label:    sc.Label,
		})
	}
	return out, nil
}

// Start begins scheduled operation and config watching. Non-blocking.
func (a *App) Start(ctx context.Context) error {
	a.sched.Start(ctx)

	watchCtx, cancel := context.WithCancel(context.Background())
	a.watchCancel = cancel
	a.watchDone = make(chan struct{})
	updates := a.cfgMgr.Subscribe(1)
	go func() {
		defer close(a.watchDone)
		a.watchLoop(watchCtx, updates)
	}()
	go func() {
		if err := a.cfgMgr.Watch(watchCtx); err != nil && watchCtx.Err() == nil {
			a.log.Warn("config watcher exited", logx.Err(err))
		}
	}()
	return nil
}

// watchLoop applies hot-reloadable settings from published config snapshots.
// Identity, credential, and storage changes need a restart and are only
// logged.
func (a *App) watchLoop(ctx context.Context, updates chan *config.Config) {
	defer a.cfgMgr.Unsubscribe(updates)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.ConsoleLogging(),
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			scheds, err := buildSchedules(cfg)
			if err != nil {
				a.log.Warn("reloaded schedules invalid; keeping previous", logx.Err(err))
				continue
			}
			if err := a.sched.ReplaceAll(scheds); err != nil {
				a.log.Warn("schedule replacement failed", logx.Err(err))
				continue
			}
			a.log.Info("hot reload applied; identity/credential/storage changes require restart")
		}
	}
}

// Stop halts the scheduler (no firings after return), then releases
// resources. An in-flight invocation runs to completion.
func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
		if a.watchDone != nil {
			<-a.watchDone
		}
		a.watchCancel = nil
	}
	a.sched.Stop(ctx)
	return a.closeResources()
}

func (a *App) closeResources() error {
	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.store = nil
	}
	if a.logSvc != nil {
		_ = a.logSvc.Close()
	}
	return firstErr
}

// runScheduled is the job bound to every trigger.
func (a *App) runScheduled(ctx context.Context) {
	out := a.orch.CheckAndNotify(ctx)
	a.record(ctx, out)
}

// RunOnce performs exactly one orchestrator invocation (manual trigger).
func (a *App) RunOnce(ctx context.Context) orchestrator.Outcome {
	out := a.orch.CheckAndNotify(ctx)
	a.record(ctx, out)
	return out
}

// TestNotification sends unconditionally, bypassing the check.
func (a *App) TestNotification(ctx context.Context) orchestrator.Outcome {
	out := a.orch.TestNotification(ctx)
	a.record(ctx, out)
	return out
}

// History returns the most recent journal entries, oldest first.
func (a *App) History(ctx context.Context, n int) ([]storage.Entry, error) {
	if a.store == nil {
		return nil, storage.ErrDisabled
	}
	return a.store.ListRecent(ctx, n)
}

// ActiveSchedules reports the number of registered triggers.
func (a *App) ActiveSchedules() int { return a.sched.ActiveCount() }

func (a *App) record(ctx context.Context, out orchestrator.Outcome) {
	if a.store == nil {
		return
	}
	login := a.cfgMgr.Get().GitHub.Login
	e := storage.Entry{
		RunID:  out.RunID,
		At:     out.At,
		Login:  login,
		Sent:   out.Sent,
		Reason: out.Reason,
	}
	if out.Err != nil {
		e.Error = out.Err.Error()
	}
	if err := a.store.AppendOutcome(ctx, e); err != nil {
		a.log.Warn("journal append failed", logx.Err(err))
	}
}
