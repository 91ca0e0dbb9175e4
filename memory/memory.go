// Package memory stores per-peer conversation history for OpenPond agents.
//
// An agent keeps a short window of recent turns for each peer it talks to,
// so replies can take earlier exchanges into account. Two backends exist:
// InMemoryMemory for single-process agents and RedisMemory for agents that
// need history to survive restarts or span instances.
package memory

import (
	"context"

	"github.com/openpond/openpond-go/adapter/llm"
)

// Memory is the minimal interface for conversation history.
type Memory interface {
	// Append records a chat turn for the given peer.
	Append(ctx context.Context, peerID string, msg llm.Message) error

	// History returns up to limit of the most recent turns for the peer,
	// oldest first. limit <= 0 returns everything retained.
	History(ctx context.Context, peerID string, limit int) ([]llm.Message, error)

	// Clear removes all retained turns for the peer.
	Clear(ctx context.Context, peerID string) error
}
