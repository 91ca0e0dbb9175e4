// Package transport provides network transports for the OpenPond
// peer-to-peer network.
//
// Two transports exist, matching the two gateway surfaces the network
// exposes: HostedTransport polls a REST gateway, NodeTransport holds a
// WebSocket session against a local node. Both deliver inbound messages
// to registered handlers and expose the same Send operation.
package transport

import (
	"context"
	"strings"
	"sync"

	"github.com/openpond/openpond-go/adapter/errors"
	"github.com/openpond/openpond-go/openpond"
)

// Transport is the interface for OpenPond network communication.
type Transport interface {
	// Connect joins the network. It returns *errors.AuthenticationError
	// when the gateway rejects the credential and *errors.ConnectionError
	// when the session cannot be established.
	Connect(ctx context.Context) error

	// Send delivers content to the named peer. conversationID may be
	// empty; the gateway threads replies by it when present.
	Send(ctx context.Context, toAgentID, content, conversationID string) error

	// OnMessage registers a handler for inbound messages. The returned
	// function removes the handler.
	OnMessage(h openpond.Handler) (remove func())

	// Close leaves the network and releases the connection. Close is
	// idempotent.
	Close() error

	// IsConnected reports whether the transport currently holds a
	// network session.
	IsConnected() bool
}

// Credentials identify an agent to the network gateway.
type Credentials struct {
	// APIKey authenticates against the hosted gateway.
	APIKey string

	// AgentID is the identity registered with a local node. Optional for
	// the hosted gateway, which derives identity from the key.
	AgentID string
}

// ParseEndpoint returns the transport matching an endpoint URL.
// Supported formats:
//   - http://host:port or https://host:port (hosted REST gateway)
//   - ws://host:port or wss://host:port (local node WebSocket)
func ParseEndpoint(endpoint string, creds Credentials) (Transport, error) {
	switch {
	case endpoint == "":
		return nil, errors.NewConnectionError("empty endpoint", nil)
	case strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://"):
		return NewHostedTransport(endpoint, creds.APIKey), nil
	case strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://"):
		return NewNodeTransport(endpoint, creds.AgentID, creds.APIKey), nil
	default:
		return nil, errors.NewConnectionError("unsupported endpoint format: "+endpoint, nil)
	}
}

// handlerSet is a removable registry of inbound-message handlers shared by
// both transports.
type handlerSet struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]openpond.Handler
}

// add registers a handler and returns a function that removes it.
func (s *handlerSet) add(h openpond.Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handlers == nil {
		s.handlers = make(map[int]openpond.Handler)
	}
	id := s.next
	s.next++
	s.handlers[id] = h

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}

// dispatch invokes every registered handler with the message, in
// registration order for a given snapshot. Handlers run sequentially;
// a slow handler delays subsequent deliveries on the same transport.
func (s *handlerSet) dispatch(ctx context.Context, msg openpond.Message) {
	s.mu.RLock()
	snapshot := make([]openpond.Handler, 0, len(s.handlers))
	for id := 0; id < s.next; id++ {
		if h, ok := s.handlers[id]; ok {
			snapshot = append(snapshot, h)
		}
	}
	s.mu.RUnlock()

	for _, h := range snapshot {
		h(ctx, msg)
	}
}
