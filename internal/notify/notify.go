// Package notify delivers out-of-band notifications to back-office users.
// Delivery failures are never fatal to the request that triggered them.
package notify

import "context"

// Notification is a single message for one recipient.
type Notification struct {
	Recipient string `json:"recipient"`
	Title     string `json:"title"`
	ActionURL string `json:"action_url"`
	Icon      string `json:"icon"`
}

// Notifier delivers notifications asynchronously or out-of-band.
type Notifier interface {
	Send(ctx context.Context, notifications []Notification) error
}

// Noop is a Notifier that discards everything. Used when no broker is
// configured and in tests.
type Noop struct{}

func (Noop) Send(context.Context, []Notification) error { return nil }
