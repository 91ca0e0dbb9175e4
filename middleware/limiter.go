// Package middleware provides reusable decorators for completion adapters.
//
// Each decorator wraps an llm.Completer and adds one concern: bounding
// in-flight calls, enforcing deadlines, or retrying transient failures.
// None of them are applied by default; agents opt in per concern.
package middleware

import (
	"context"

	"github.com/openpond/openpond-go/adapter/llm"
)

// LimitCompleter bounds the number of concurrent in-flight completion
// calls with a fixed-size semaphore. Callers beyond the bound block until
// a slot frees or their context is cancelled.
//
// This is useful when the transport delivers messages faster than
// completions finish and the downstream API must not see unbounded
// concurrency.
type LimitCompleter struct {
	completer llm.Completer
	slots     chan struct{}
}

// Verify that LimitCompleter implements the Completer interface.
var _ llm.Completer = (*LimitCompleter)(nil)

// NewLimitCompleter wraps a completer with a concurrency bound.
// maxInFlight < 1 is treated as 1.
func NewLimitCompleter(completer llm.Completer, maxInFlight int) *LimitCompleter {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &LimitCompleter{
		completer: completer,
		slots:     make(chan struct{}, maxInFlight),
	}
}

// Complete acquires a slot, forwards the call, and releases the slot.
func (l *LimitCompleter) Complete(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (llm.Message, error) {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return llm.Message{}, ctx.Err()
	}
	defer func() { <-l.slots }()

	return l.completer.Complete(ctx, messages, opts...)
}

// Model returns the underlying completer's model identifier.
func (l *LimitCompleter) Model() string {
	return l.completer.Model()
}
