package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/openpond/openpond-go/adapter/llm"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the
	// initial one. Default: 3.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry. Default: 100ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff growth. Default: 10s.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the backoff between attempts. Default: 2.0.
	BackoffMultiplier float64

	// ShouldRetry decides whether an error triggers a retry. Nil retries
	// every error.
	ShouldRetry func(error) bool
}

// DefaultRetryConfig returns a retry config with sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryCompleter retries failed completion calls with exponential backoff.
type RetryCompleter struct {
	completer llm.Completer
	config    RetryConfig
}

// Verify that RetryCompleter implements the Completer interface.
var _ llm.Completer = (*RetryCompleter)(nil)

// NewRetryCompleter wraps a completer with retry logic.
func NewRetryCompleter(completer llm.Completer, config RetryConfig) *RetryCompleter {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 100 * time.Millisecond
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 10 * time.Second
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}
	return &RetryCompleter{
		completer: completer,
		config:    config,
	}
}

// Complete forwards the call, retrying on failure until the attempt
// budget is spent.
func (r *RetryCompleter) Complete(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (llm.Message, error) {
	var lastErr error
	backoff := r.config.InitialBackoff

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		reply, err := r.completer.Complete(ctx, messages, opts...)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if r.config.ShouldRetry != nil && !r.config.ShouldRetry(err) {
			return llm.Message{}, fmt.Errorf("non-retryable error on attempt %d/%d: %w", attempt, r.config.MaxAttempts, err)
		}
		if attempt == r.config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return llm.Message{}, fmt.Errorf("retry cancelled after %d attempts: %w", attempt, ctx.Err())
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * r.config.BackoffMultiplier)
			if backoff > r.config.MaxBackoff {
				backoff = r.config.MaxBackoff
			}
		}
	}

	return llm.Message{}, fmt.Errorf("all %d attempts failed: %w", r.config.MaxAttempts, lastErr)
}

// Model returns the underlying completer's model identifier.
func (r *RetryCompleter) Model() string {
	return r.completer.Model()
}
