package openpond

import (
	"strings"
	"testing"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage("peer-1", "hello")

	if msg.FromAgentID != "peer-1" {
		t.Errorf("Expected sender 'peer-1', got '%s'", msg.FromAgentID)
	}
	if msg.Content != "hello" {
		t.Errorf("Expected content 'hello', got '%s'", msg.Content)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{
			name: "valid message",
			msg:  Message{FromAgentID: "peer-1", Content: "hello"},
		},
		{
			name: "empty content is valid",
			msg:  Message{FromAgentID: "peer-1"},
		},
		{
			name:    "empty sender",
			msg:     Message{Content: "hello"},
			wantErr: true,
		},
		{
			name:    "sender too long",
			msg:     Message{FromAgentID: strings.Repeat("x", 129), Content: "hello"},
			wantErr: true,
		},
		{
			name:    "content too large",
			msg:     Message{FromAgentID: "peer-1", Content: strings.Repeat("x", MaxContentSize+1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}
