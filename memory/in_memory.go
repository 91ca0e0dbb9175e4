package memory

import (
	"context"
	"sync"

	"github.com/openpond/openpond-go/adapter/llm"
)

// InMemoryMemory retains conversation history in process memory with
// oldest-first eviction per peer.
//
// Use cases:
//   - Single-process agents
//   - Testing
//   - When persistence is not needed
//
// Example:
//
//	mem := NewInMemoryMemory(10)
//	_ = mem.Append(ctx, "peer-1", llm.Message{Role: llm.RoleUser, Content: "Hello"})
//	turns, _ := mem.History(ctx, "peer-1", 10)
type InMemoryMemory struct {
	maxTurns int
	mu       sync.RWMutex
	turns    map[string][]llm.Message
}

// NewInMemoryMemory creates an in-memory history store retaining at most
// maxTurns turns per peer. maxTurns <= 0 retains everything.
func NewInMemoryMemory(maxTurns int) *InMemoryMemory {
	return &InMemoryMemory{
		maxTurns: maxTurns,
		turns:    make(map[string][]llm.Message),
	}
}

// Append records a chat turn for the peer, evicting the oldest turn when
// the retention limit is exceeded.
func (m *InMemoryMemory) Append(ctx context.Context, peerID string, msg llm.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns[peerID] = append(m.turns[peerID], msg)
	if m.maxTurns > 0 && len(m.turns[peerID]) > m.maxTurns {
		m.turns[peerID] = m.turns[peerID][len(m.turns[peerID])-m.maxTurns:]
	}
	return nil
}

// History returns up to limit of the most recent turns, oldest first.
func (m *InMemoryMemory) History(ctx context.Context, peerID string, limit int) ([]llm.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	turns := m.turns[peerID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	out := make([]llm.Message, len(turns))
	copy(out, turns)
	return out, nil
}

// Clear removes all retained turns for the peer.
func (m *InMemoryMemory) Clear(ctx context.Context, peerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.turns, peerID)
	return nil
}
