// Package notify composes and dispatches reminder messages.
package notify

import "context"

// Message is one outbound reminder.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Channel delivers a message through one provider.
// Send returns the provider's delivery identifier on acceptance.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) (string, error)
}
