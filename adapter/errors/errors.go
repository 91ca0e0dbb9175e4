// Package errors defines error types for the OpenPond adapters.
package errors

import "fmt"

// AuthenticationError indicates a credential was rejected by an external
// service, either the network gateway or the completion API.
type AuthenticationError struct {
	Service string
	Message string
	Cause   error
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication error (%s): %s: %v", e.Service, e.Message, e.Cause)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Service, e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// NewAuthenticationError creates a new authentication error for the named
// service.
func NewAuthenticationError(service, message string, cause error) *AuthenticationError {
	return &AuthenticationError{Service: service, Message: message, Cause: cause}
}

// ConnectionError indicates the transport could not join, or has lost, the
// network.
type ConnectionError struct {
	Message string
	Cause   error
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("connection error: %s", e.Message)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates a new connection error.
func NewConnectionError(message string, cause error) *ConnectionError {
	return &ConnectionError{Message: message, Cause: cause}
}

// SendError indicates an outbound message could not be delivered.
type SendError struct {
	ToAgentID string
	Message   string
	Cause     error
}

func (e *SendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("send error to '%s': %s: %v", e.ToAgentID, e.Message, e.Cause)
	}
	return fmt.Sprintf("send error to '%s': %s", e.ToAgentID, e.Message)
}

func (e *SendError) Unwrap() error {
	return e.Cause
}

// NewSendError creates a new send error addressed to the given peer.
func NewSendError(toAgentID, message string, cause error) *SendError {
	return &SendError{ToAgentID: toAgentID, Message: message, Cause: cause}
}

// CompletionError indicates the completion API call failed: rate limit,
// network failure, or a malformed response.
type CompletionError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *CompletionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("completion error (%s): %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("completion error (%s): %s", e.Provider, e.Message)
}

func (e *CompletionError) Unwrap() error {
	return e.Cause
}

// NewCompletionError creates a new completion error for the named provider.
func NewCompletionError(provider, message string, cause error) *CompletionError {
	return &CompletionError{Provider: provider, Message: message, Cause: cause}
}

// InvalidMessageError indicates a message that does not conform to the
// network's wire format or size constraints.
type InvalidMessageError struct {
	Message string
	Cause   error
}

func (e *InvalidMessageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid message: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid message: %s", e.Message)
}

func (e *InvalidMessageError) Unwrap() error {
	return e.Cause
}

// NewInvalidMessageError creates a new invalid message error.
func NewInvalidMessageError(message string, cause error) *InvalidMessageError {
	return &InvalidMessageError{Message: message, Cause: cause}
}
