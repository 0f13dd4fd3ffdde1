package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"streakwatch/pkg/logx"
)

func TestCronSpec(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		sched Schedule
		want  string
	}{
		{
			name:  "zone prefixed",
			sched: Schedule{Hour: 20, Minute: 0, Timezone: "America/New_York"},
			want:  "CRON_TZ=America/New_York 0 20 * * *",
		},
		{
			name:  "no zone",
			sched: Schedule{Hour: 7, Minute: 45},
			want:  "45 7 * * *",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.sched.cronSpec(); got != tt.want {
				t.Fatalf("cronSpec() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScheduleValidate(t *testing.T) {
	t.Parallel()
	bad := []Schedule{
		{Hour: 24, Minute: 0},
		{Hour: -1, Minute: 0},
		{Hour: 0, Minute: 60},
		{Hour: 0, Minute: 0, Timezone: "Not/AZone"},
	}
	for _, s := range bad {
		if err := s.Validate(); err == nil {
			t.Fatalf("Validate(%+v) = nil, want error", s)
		}
	}
	good := Schedule{Hour: 23, Minute: 59, Timezone: "America/New_York", Label: "late"}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate(%+v): %v", good, err)
	}
}

func TestActiveCountAndStop(t *testing.T) {
	t.Parallel()
	var fired atomic.Int64
	s := New(Config{}, func(ctx context.Context) { fired.Add(1) }, logx.Nop())

	// Registration before start is kept and counted once started.
	if err := s.Add(Schedule{Hour: 1, Minute: 0, Timezone: "UTC", Label: "a"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := s.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount before start = %d, want 0", got)
	}

	s.Start(context.Background())
	if got := s.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount = %d, want 1", got)
	}

	// Runtime registration has no upper bound.
	for i := 0; i < 5; i++ {
		if err := s.Add(Schedule{Hour: 2 + i, Minute: 30, Timezone: "UTC"}); err != nil {
			t.Fatalf("Add #%d: %v", i, err)
		}
	}
	if got := s.ActiveCount(); got != 6 {
		t.Fatalf("ActiveCount = %d, want 6", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
	if got := s.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount after stop = %d, want 0", got)
	}

	// Idempotent.
	s.Stop(ctx)

	// No firing may happen after Stop returns.
	before := fired.Load()
	time.Sleep(100 * time.Millisecond)
	if after := fired.Load(); after != before {
		t.Fatalf("job fired after stop: %d -> %d", before, after)
	}
}

func TestReplaceAll(t *testing.T) {
	t.Parallel()
	s := New(Config{}, func(ctx context.Context) {}, logx.Nop())
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Add(Schedule{Hour: 1, Minute: 0, Timezone: "UTC"}); err != nil {
		t.Fatal(err)
	}
	err := s.ReplaceAll([]Schedule{
		{Hour: 8, Minute: 0, Timezone: "UTC", Label: "x"},
		{Hour: 9, Minute: 0, Timezone: "UTC", Label: "y"},
		{Hour: 10, Minute: 0, Timezone: "UTC", Label: "z"},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if got := s.ActiveCount(); got != 3 {
		t.Fatalf("ActiveCount = %d, want 3", got)
	}
}

func TestFireRecoversPanic(t *testing.T) {
	t.Parallel()
	s := New(Config{}, func(ctx context.Context) { panic("boom") }, logx.Nop())

	// Must not propagate; the schedule stays registered for the next day.
	s.fire(context.Background(), Schedule{Label: "panicky"})

	hist := s.History()
	if len(hist) != 1 {
		t.Fatalf("history len = %d, want 1", len(hist))
	}
	if !hist[0].Panicked {
		t.Fatal("expected panic to be recorded")
	}
}

func TestFireOverlapAllowedByDefault(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	var running sync.WaitGroup
	s := New(Config{}, func(ctx context.Context) {
		running.Done()
		<-release
	}, logx.Nop())

	running.Add(2)
	go s.fire(context.Background(), Schedule{Label: "one"})
	go s.fire(context.Background(), Schedule{Label: "two"})

	done := make(chan struct{})
	go func() { running.Wait(); close(done) }()
	select {
	case <-done:
		// both invocations entered the job concurrently
	case <-time.After(2 * time.Second):
		t.Fatal("overlapping firings were serialized")
	}
	close(release)
}

func TestFireSkipIfRunning(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int64
	s := New(Config{SkipIfRunning: true}, func(ctx context.Context) {
		runs.Add(1)
		close(started)
		<-release
	}, logx.Nop())

	go s.fire(context.Background(), Schedule{Label: "first"})
	<-started

	s.fire(context.Background(), Schedule{Label: "second"})
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1 (second firing should skip)", got)
	}

	var skipped bool
	for _, rec := range s.History() {
		if rec.Skipped {
			skipped = true
		}
	}
	if !skipped {
		t.Fatal("expected a skipped firing record")
	}
	close(release)
}
