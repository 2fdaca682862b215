// Package notify defines alarms raised to operators outside of the logs.
package notify

import (
	"context"
	"log/slog"
	"time"
)

type Notification struct {
	Timestamp time.Time
	Level     slog.Level
	Source    string
	Message   string
	Fields    map[string]any
}

// Notifier dispatches notifications to a backend.
// Implementations MUST be safe for concurrent use by multiple goroutines.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Send(context.Context, Notification) error { return nil }
