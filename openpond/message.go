// Package openpond provides core types for the OpenPond agent SDK.
package openpond

import (
	"context"
	"fmt"
	"time"
)

// Message is an inbound unit of text delivered by the network, together
// with the identity of the peer that sent it.
type Message struct {
	FromAgentID    string    `json:"fromAgentId"`
	Content        string    `json:"content"`
	ConversationID string    `json:"conversationId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewMessage creates a message from the given peer with the given content.
// NOTE: This function does not validate the message; call Validate()
// explicitly where untrusted input crosses a boundary.
func NewMessage(fromAgentID, content string) Message {
	return Message{
		FromAgentID: fromAgentID,
		Content:     content,
		Timestamp:   time.Now().UTC(),
	}
}

// MaxContentSize is the largest message body the SDK accepts, in bytes.
const MaxContentSize = 1024 * 1024 // 1MB

// Validate checks the message against the network's constraints.
func (m Message) Validate() error {
	if m.FromAgentID == "" {
		return fmt.Errorf("message sender cannot be empty")
	}
	if len(m.FromAgentID) > 128 {
		return fmt.Errorf("message sender exceeds maximum length of 128 characters (got %d)", len(m.FromAgentID))
	}
	if len(m.Content) > MaxContentSize {
		return fmt.Errorf("message content exceeds maximum size of %d bytes (got %d bytes)", MaxContentSize, len(m.Content))
	}
	return nil
}

// Handler is the inbound-message callback. The transport invokes it once
// per received message.
type Handler func(ctx context.Context, msg Message)
