// Package observe fans out container mutation events to caller-supplied
// hooks. Hooks exist for observation only: the container discards hook
// errors and never rolls a mutation back.
package observe

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Mutation identifies the operation that produced an event.
type Mutation string

const (
	// OpSet records a key being written (created or overwritten).
	OpSet Mutation = "set"
	// OpDelete records a key being removed.
	OpDelete Mutation = "delete"
)

// Event describes one mutation of a container.
type Event struct {
	Op         Mutation
	Key        string
	Path       string
	Channel    string
	OccurredAt time.Time
}

// NormalizeEvent fills derivable fields so hooks receive consistent events.
func NormalizeEvent(event Event) Event {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	event.Channel = strings.TrimSpace(event.Channel)
	return event
}

// Hook receives normalized mutation events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. Events without an operation or key are dropped.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Op == "" || normalized.Key == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
