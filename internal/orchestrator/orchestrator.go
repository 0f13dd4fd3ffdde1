// Package orchestrator runs the check-and-notify workflow.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"streakwatch/pkg/logx"
)

// Reason strings attached to non-sent outcomes.
const (
	ReasonAlreadyContributed = "already contributed today"
	ReasonSendFailed         = "failed to send email"
	ReasonCheckFailed        = "exception occurred during check"
)

// Outcome summarizes one invocation.
//
// Invariant: Sent implies empty Reason and nil Err; otherwise Reason says why
// nothing was sent, and Err carries the check failure when there was one.
type Outcome struct {
	RunID  string
	At     time.Time
	Sent   bool
	Reason string
	Err    error
}

type Checker interface {
	HasContributionToday(ctx context.Context, login string, loc *time.Location) (bool, error)
}

type Notifier interface {
	SendReminder(ctx context.Context, login string) bool
}

// Orchestrator is stateless between invocations; every call is a fresh run
// of check → (conditional) send.
type Orchestrator struct {
	checker  Checker
	notifier Notifier
	login    string
	loc      *time.Location
	log      logx.Logger
}

func New(checker Checker, notifier Notifier, login string, loc *time.Location, log logx.Logger) *Orchestrator {
	return &Orchestrator{
		checker:  checker,
		notifier: notifier,
		login:    login,
		loc:      loc,
		log:      log,
	}
}

// CheckAndNotify queries today's contribution state and sends a reminder
// only on a definitive "no contributions" answer. Check and send failures
// come back as outcome values, never as errors.
func (o *Orchestrator) CheckAndNotify(ctx context.Context) Outcome {
	out := Outcome{RunID: uuid.NewString(), At: time.Now()}

	contributed, err := o.checker.HasContributionToday(ctx, o.login, o.loc)
	if err != nil {
		out.Reason = ReasonCheckFailed
		out.Err = err
		o.logOutcome(out)
		return out
	}

	if contributed {
		// The intentional no-op branch, not an error.
		out.Reason = ReasonAlreadyContributed
		o.logOutcome(out)
		return out
	}

	if o.notifier.SendReminder(ctx, o.login) {
		out.Sent = true
	} else {
		out.Reason = ReasonSendFailed
	}
	o.logOutcome(out)
	return out
}

// TestNotification skips the check and sends unconditionally. Used for
// manual delivery verification; shares the Outcome shape.
func (o *Orchestrator) TestNotification(ctx context.Context) Outcome {
	out := Outcome{RunID: uuid.NewString(), At: time.Now()}
	if o.notifier.SendReminder(ctx, o.login) {
		out.Sent = true
	} else {
		out.Reason = ReasonSendFailed
	}
	o.logOutcome(out)
	return out
}

func (o *Orchestrator) logOutcome(out Outcome) {
	fields := []logx.Field{
		logx.String("run_id", out.RunID),
		logx.String("login", o.login),
		logx.Bool("sent", out.Sent),
	}
	if out.Reason != "" {
		fields = append(fields, logx.String("reason", out.Reason))
	}
	if out.Err != nil {
		fields = append(fields, logx.Err(out.Err))
		o.log.Error("check-and-notify failed", fields...)
		return
	}
	o.log.Info("check-and-notify finished", fields...)
}
