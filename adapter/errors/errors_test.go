package errors

import (
	"errors"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "authentication error",
			err:  NewAuthenticationError("openpond", "api key rejected", nil),
			want: "authentication error (openpond): api key rejected",
		},
		{
			name: "connection error",
			err:  NewConnectionError("gateway unreachable", nil),
			want: "connection error: gateway unreachable",
		},
		{
			name: "send error",
			err:  NewSendError("peerA", "not connected", nil),
			want: "send error to 'peerA': not connected",
		},
		{
			name: "completion error",
			err:  NewCompletionError("openai", "rate limited", nil),
			want: "completion error (openai): rate limited",
		},
		{
			name: "invalid message error",
			err:  NewInvalidMessageError("content too large", nil),
			want: "invalid message: content too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestErrorMessagesWithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewConnectionError("gateway unreachable", cause)

	want := "connection error: gateway unreachable: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("Expected '%s', got '%s'", want, got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying failure")

	tests := []struct {
		name string
		err  error
	}{
		{name: "authentication error", err: NewAuthenticationError("openai", "rejected", cause)},
		{name: "connection error", err: NewConnectionError("lost", cause)},
		{name: "send error", err: NewSendError("peerA", "failed", cause)},
		{name: "completion error", err: NewCompletionError("openai", "failed", cause)},
		{name: "invalid message error", err: NewInvalidMessageError("malformed", cause)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, cause) {
				t.Errorf("Expected errors.Is to find the cause through %T", tt.err)
			}
		})
	}
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	inner := NewAuthenticationError("openpond", "api key rejected", nil)
	wrapped := NewConnectionError("connect failed", inner)

	var authErr *AuthenticationError
	if !errors.As(wrapped, &authErr) {
		t.Fatal("Expected errors.As to find the wrapped AuthenticationError")
	}
	if authErr.Service != "openpond" {
		t.Errorf("Expected service 'openpond', got '%s'", authErr.Service)
	}
}
