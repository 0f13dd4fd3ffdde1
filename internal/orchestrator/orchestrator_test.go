package orchestrator

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"streakwatch/pkg/logx"
)

type fakeChecker struct {
	contributed bool
	err         error
	calls       *[]string
}

func (c *fakeChecker) HasContributionToday(ctx context.Context, login string, loc *time.Location) (bool, error) {
	*c.calls = append(*c.calls, "check")
	return c.contributed, c.err
}

type fakeNotifier struct {
	ok    bool
	calls *[]string
}

func (n *fakeNotifier) SendReminder(ctx context.Context, login string) bool {
	*n.calls = append(*n.calls, "send")
	return n.ok
}

func newTestOrchestrator(t *testing.T, contributed bool, checkErr error, sendOK bool) (*Orchestrator, *[]string) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	calls := &[]string{}
	o := New(
		&fakeChecker{contributed: contributed, err: checkErr, calls: calls},
		&fakeNotifier{ok: sendOK, calls: calls},
		"octocat", loc, logx.Nop(),
	)
	return o, calls
}

func TestCheckAndNotifyAlreadyContributed(t *testing.T) {
	t.Parallel()
	o, calls := newTestOrchestrator(t, true, nil, true)

	out := o.CheckAndNotify(context.Background())

	require.False(t, out.Sent)
	require.Equal(t, ReasonAlreadyContributed, out.Reason)
	require.NoError(t, out.Err)
	require.Equal(t, []string{"check"}, *calls, "notifier must never run after a positive check")
	require.NotEmpty(t, out.RunID)
}

func TestCheckAndNotifySends(t *testing.T) {
	t.Parallel()
	o, calls := newTestOrchestrator(t, false, nil, true)

	out := o.CheckAndNotify(context.Background())

	require.True(t, out.Sent)
	require.Empty(t, out.Reason)
	require.NoError(t, out.Err)
	require.Equal(t, []string{"check", "send"}, *calls)
}

func TestCheckAndNotifySendFailure(t *testing.T) {
	t.Parallel()
	o, calls := newTestOrchestrator(t, false, nil, false)

	out := o.CheckAndNotify(context.Background())

	require.False(t, out.Sent)
	require.Equal(t, ReasonSendFailed, out.Reason)
	require.NoError(t, out.Err, "send failure is a reason, not an error")
	require.Equal(t, []string{"check", "send"}, *calls)
}

func TestCheckAndNotifyCheckFailure(t *testing.T) {
	t.Parallel()
	boom := errors.New("provider unreachable")
	o, calls := newTestOrchestrator(t, false, boom, true)

	out := o.CheckAndNotify(context.Background())

	require.False(t, out.Sent)
	require.Equal(t, ReasonCheckFailed, out.Reason)
	require.ErrorIs(t, out.Err, boom)
	require.Equal(t, []string{"check"}, *calls, "notifier must never run when the check fails")
}

func TestTestNotificationSkipsCheck(t *testing.T) {
	t.Parallel()
	o, calls := newTestOrchestrator(t, true, nil, true)

	out := o.TestNotification(context.Background())

	require.True(t, out.Sent)
	require.Equal(t, []string{"send"}, *calls)
}

func TestTestNotificationSendFailure(t *testing.T) {
	t.Parallel()
	o, _ := newTestOrchestrator(t, false, nil, false)

	out := o.TestNotification(context.Background())

	require.False(t, out.Sent)
	require.Equal(t, ReasonSendFailed, out.Reason)
}

// TestInvocationOrderProperty drives many randomized checker/notifier
// behaviors and asserts the structural invariants of every outcome:
// check precedes send, send never happens after a positive or failed
// check, and sent outcomes carry no reason or error.
func TestInvocationOrderProperty(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		contributed := rng.Intn(2) == 0
		sendOK := rng.Intn(2) == 0
		var checkErr error
		if rng.Intn(4) == 0 {
			checkErr = errors.New("simulated provider failure")
		}

		o, calls := newTestOrchestrator(t, contributed, checkErr, sendOK)
		out := o.CheckAndNotify(context.Background())

		got := *calls
		require.Equal(t, "check", got[0], "check must always run first")
		if len(got) > 1 {
			require.Equal(t, []string{"check", "send"}, got)
			require.NoError(t, checkErr)
			require.False(t, contributed)
		}
		if out.Sent {
			require.Empty(t, out.Reason)
			require.NoError(t, out.Err)
		} else {
			require.NotEmpty(t, out.Reason)
		}
		if checkErr != nil {
			require.Equal(t, []string{"check"}, got)
			require.Equal(t, ReasonCheckFailed, out.Reason)
		}
	}
}
