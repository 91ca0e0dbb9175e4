package middleware

import (
	"context"
	"time"

	"github.com/openpond/openpond-go/adapter/llm"
)

// TimeoutCompleter enforces a per-call deadline on completion calls.
type TimeoutCompleter struct {
	completer llm.Completer
	timeout   time.Duration
}

// Verify that TimeoutCompleter implements the Completer interface.
var _ llm.Completer = (*TimeoutCompleter)(nil)

// NewTimeoutCompleter wraps a completer with a per-call deadline.
// timeout <= 0 defaults to 30 seconds.
func NewTimeoutCompleter(completer llm.Completer, timeout time.Duration) *TimeoutCompleter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TimeoutCompleter{
		completer: completer,
		timeout:   timeout,
	}
}

// Complete forwards the call under a deadline-bounded context.
func (t *TimeoutCompleter) Complete(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (llm.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	return t.completer.Complete(ctx, messages, opts...)
}

// Model returns the underlying completer's model identifier.
func (t *TimeoutCompleter) Model() string {
	return t.completer.Model()
}
