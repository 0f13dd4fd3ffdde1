package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"streakwatch/pkg/logx"
)

// Job is the work dispatched on every firing.
type Job func(ctx context.Context)

// Service registers daily triggers on a cron runner. Firings are
// fire-and-forget: each runs in its own goroutine, a panic or failure is
// contained at the trigger boundary, and a schedule is never auto-disabled.
type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	job Job

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	runCtx    context.Context
	runCancel context.CancelFunc

	// inFlight backs the opt-in skip-if-running guard.
	inFlight atomic.Bool

	hmu     sync.Mutex
	history []FiringRecord
}

type scheduleDef struct {
	sched   Schedule
	entryID cron.EntryID
}

func New(cfg Config, job Job, log logx.Logger) *Service {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	return &Service{
		cfg: cfg,
		job: job,
		log: log,
		parser: cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
	}
}

// Start begins wall-clock ticking and returns immediately. Schedules added
// before Start are registered on the new runner.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.runCtx, s.runCancel = context.WithCancel(context.Background())
	s.c = cron.New(cron.WithParser(s.parser))
	for i := range s.defs {
		s.addLocked(&s.defs[i])
	}
	s.c.Start()
	s.log.Info("scheduler started", logx.Int("schedules", len(s.defs)))
}

// Stop cancels all triggers. After it returns no further firings occur;
// an in-flight invocation is not interrupted and runs to completion.
// Idempotent.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	cancel := s.runCancel
	s.runCancel = nil
	for i := range s.defs {
		s.defs[i].entryID = 0
	}
	s.mu.Unlock()

	if c == nil {
		return
	}
	// Stop() prevents further firings immediately; its context completes
	// when in-flight jobs drain. An in-flight invocation is never canceled,
	// so the run context is released only after the drain finishes.
	drained := c.Stop()
	go func() {
		<-drained.Done()
		if cancel != nil {
			cancel()
		}
	}()
	// Wait for the drain only as long as the caller allows.
	select {
	case <-drained.Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

// Add registers one more trigger. Works before or after Start; there is no
// upper bound on the number of schedules.
func (s *Service) Add(sched Schedule) error {
	if err := sched.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := scheduleDef{sched: sched}
	s.defs = append(s.defs, d)
	if s.c != nil {
		return s.addLocked(&s.defs[len(s.defs)-1])
	}
	return nil
}

// ReplaceAll swaps the registered schedule set, used on config reload.
func (s *Service) ReplaceAll(scheds []Schedule) error {
	for _, sc := range scheds {
		if err := sc.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		for _, d := range s.defs {
			if d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
		}
	}
	s.defs = s.defs[:0]
	for _, sc := range scheds {
		s.defs = append(s.defs, scheduleDef{sched: sc})
		if s.c != nil {
			if err := s.addLocked(&s.defs[len(s.defs)-1]); err != nil {
				return err
			}
		}
	}
	s.log.Info("schedules replaced", logx.Int("count", len(scheds)))
	return nil
}

// ActiveCount returns the number of currently registered triggers.
func (s *Service) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return 0
	}
	return len(s.c.Entries())
}

// History returns a copy of the bounded firing history, oldest first.
func (s *Service) History() []FiringRecord {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	out := make([]FiringRecord, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Service) addLocked(d *scheduleDef) error {
	sched := d.sched
	runCtx := s.runCtx
	id, err := s.c.AddFunc(sched.cronSpec(), func() {
		s.fire(runCtx, sched)
	})
	if err != nil {
		return err
	}
	d.entryID = id
	return nil
}

// fire runs one invocation. cron dispatches each firing on its own
// goroutine, so consecutive firings never wait on each other.
func (s *Service) fire(ctx context.Context, sched Schedule) {
	rec := FiringRecord{Label: sched.Label, Started: time.Now()}

	if s.cfg.SkipIfRunning && !s.inFlight.CompareAndSwap(false, true) {
		rec.Skipped = true
		s.appendHistory(rec)
		s.log.Warn("firing skipped, previous invocation still running", logx.String("label", sched.Label))
		return
	}

	defer func() {
		if s.cfg.SkipIfRunning {
			s.inFlight.Store(false)
		}
		if r := recover(); r != nil {
			rec.Panicked = true
			s.log.Error("panic in scheduled invocation",
				logx.String("label", sched.Label),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())),
			)
		}
		rec.Duration = time.Since(rec.Started)
		s.appendHistory(rec)
	}()

	s.log.Info("schedule fired", logx.String("label", sched.Label))
	s.job(ctx)
}

func (s *Service) appendHistory(rec FiringRecord) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.history = append(s.history, rec)
	if len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}
}
