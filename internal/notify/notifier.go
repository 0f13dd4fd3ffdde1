package notify

import (
	"context"
	"fmt"
	"html"
	"time"

	"streakwatch/pkg/logx"
)

// Notifier formats one reminder per call and dispatches it through every
// configured channel. Channel errors never escape: they are logged with full
// context and collapsed into the boolean result, so the caller's flow does
// not depend on the failure cause.
type Notifier struct {
	channels []Channel
	from     string
	to       string
	log      logx.Logger
}

func NewNotifier(channels []Channel, from, to string, log logx.Logger) *Notifier {
	return &Notifier{channels: channels, from: from, to: to, log: log}
}

// SendReminder makes at most one delivery attempt per channel and reports
// whether every channel accepted the message.
func (n *Notifier) SendReminder(ctx context.Context, login string) bool {
	if len(n.channels) == 0 {
		n.log.Error("no notification channels configured")
		return false
	}

	msg := buildReminder(n.from, n.to, login)

	ok := true
	for _, ch := range n.channels {
		start := time.Now()
		id, err := ch.Send(ctx, msg)
		if err != nil {
			ok = false
			n.log.Error("reminder send failed",
				logx.String("channel", ch.Name()),
				logx.String("login", login),
				logx.String("recipient", msg.To),
				logx.Duration("took", time.Since(start)),
				logx.Err(err),
			)
			continue
		}
		n.log.Info("reminder sent",
			logx.String("channel", ch.Name()),
			logx.String("login", login),
			logx.String("recipient", msg.To),
			logx.String("delivery_id", id),
			logx.Duration("took", time.Since(start)),
		)
	}
	return ok
}

func buildReminder(from, to, login string) Message {
	safe := html.EscapeString(login)
	return Message{
		From:    from,
		To:      to,
		Subject: fmt.Sprintf("No GitHub contributions yet today, %s", login),
		HTML: fmt.Sprintf(
			"<p>Hi <b>%s</b>,</p>"+
				"<p>You haven't made any GitHub contributions today. "+
				"A single commit, issue, or review keeps the streak alive.</p>"+
				"<p>- streakwatch</p>",
			safe,
		),
	}
}
