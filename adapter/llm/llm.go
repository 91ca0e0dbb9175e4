// Package llm provides the completion adapter for OpenPond agents.
//
// The package defines the minimal contract an agent needs from a hosted
// language model: a conversation goes in, one reply comes out. Provider
// adapters convert between this contract and each provider's wire format.
//
// Design principles:
//   - Minimal: one required call (Complete)
//   - Flexible: CallOptions carry provider-specific knobs
//   - Swappable: change providers without changing agent code
package llm

import (
	"context"
)

// Message is a single chat turn sent to or received from the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles understood by the completion providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Completer is the minimal interface for agent-to-model interaction.
//
// Example:
//
//	completer := NewOpenAICompleter("sk-...", "")
//	reply, err := completer.Complete(ctx, []llm.Message{
//	    {Role: llm.RoleSystem, Content: "You are helpful."},
//	    {Role: llm.RoleUser, Content: "Hello!"},
//	}, llm.WithTemperature(0.7))
type Completer interface {
	// Complete sends the conversation to the model and returns a single
	// assistant reply. Failures surface as *errors.CompletionError, or
	// *errors.AuthenticationError when the credential is rejected.
	Complete(ctx context.Context, messages []Message, opts ...CallOption) (Message, error)

	// Model returns the model identifier this completer targets.
	Model() string
}

// CallOptions holds per-call options for completion requests.
type CallOptions struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64

	// Extra carries provider-specific options.
	Extra map[string]interface{}
}

// CallOption is a functional option for configuring a completion call.
type CallOption func(*CallOptions)

// WithTemperature sets the sampling temperature (typically 0.0-2.0).
func WithTemperature(temperature float64) CallOption {
	return func(opts *CallOptions) {
		opts.Temperature = &temperature
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int) CallOption {
	return func(opts *CallOptions) {
		opts.MaxTokens = &maxTokens
	}
}

// WithTopP sets the nucleus sampling parameter.
func WithTopP(topP float64) CallOption {
	return func(opts *CallOptions) {
		opts.TopP = &topP
	}
}

// WithExtra adds a provider-specific option.
func WithExtra(key string, value interface{}) CallOption {
	return func(opts *CallOptions) {
		if opts.Extra == nil {
			opts.Extra = make(map[string]interface{})
		}
		opts.Extra[key] = value
	}
}

// BuildCallOptions creates CallOptions from functional options.
func BuildCallOptions(opts ...CallOption) *CallOptions {
	options := &CallOptions{
		Extra: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
