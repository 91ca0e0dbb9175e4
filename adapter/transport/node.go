package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openpond/openpond-go/adapter/errors"
	"github.com/openpond/openpond-go/openpond"
)

const (
	defaultReconnectDelay   = 5 * time.Second
	defaultHandshakeTimeout = 45 * time.Second
)

// NodeTransport holds a WebSocket session against a local OpenPond node.
// The node pushes inbound messages as JSON frames; outbound messages are
// written as frames on the same connection. A dropped connection is
// redialed after a delay for as long as the transport is open.
type NodeTransport struct {
	url            string
	agentID        string
	apiKey         string
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	logger         *slog.Logger

	handlers handlerSet

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	running bool
}

// NodeOptions configures node transport behavior.
type NodeOptions struct {
	// ReconnectDelay is the pause before redialing a dropped connection.
	// Default: 5s.
	ReconnectDelay time.Duration

	// HandshakeTimeout bounds the WebSocket handshake. Default: 45s.
	HandshakeTimeout time.Duration

	// Logger receives read-loop and reconnect failures.
	// Default: slog.Default().
	Logger *slog.Logger
}

// NewNodeTransport creates a node transport with default options.
// agentID, when non-empty, is registered with the node on connect.
func NewNodeTransport(url, agentID, apiKey string) *NodeTransport {
	return NewNodeTransportWithOptions(url, agentID, apiKey, NodeOptions{})
}

// NewNodeTransportWithOptions creates a node transport with custom options.
func NewNodeTransportWithOptions(url, agentID, apiKey string, opts NodeOptions) *NodeTransport {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &NodeTransport{
		url:     url,
		agentID: agentID,
		apiKey:  apiKey,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
		reconnectDelay: opts.ReconnectDelay,
		logger:         opts.Logger,
	}
}

// nodeFrame is the envelope for every frame exchanged with the node.
type nodeFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	AgentID string          `json:"agentId,omitempty"`
}

// nodePayload is the message payload inside a "message" frame.
type nodePayload struct {
	FromAgentID    string `json:"fromAgentId,omitempty"`
	ToAgentID      string `json:"toAgentId,omitempty"`
	Content        string `json:"content"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Connect dials the node, registers the agent identity, and starts the
// read loop.
func (t *NodeTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}

	t.conn = conn
	t.running = true
	go t.readLoop(conn)

	return nil
}

// dial establishes the WebSocket session and sends the register frame.
func (t *NodeTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	var header http.Header
	if t.apiKey != "" {
		header = http.Header{"X-API-Key": []string{t.apiKey}}
	}

	conn, resp, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, errors.NewAuthenticationError("openpond", "credentials rejected by node", err)
		}
		return nil, errors.NewConnectionError("failed to connect to node at "+t.url, err)
	}

	if t.agentID != "" {
		if err := conn.WriteJSON(nodeFrame{Type: "register", AgentID: t.agentID}); err != nil {
			conn.Close()
			return nil, errors.NewConnectionError("failed to register agent", err)
		}
	}

	return conn, nil
}

// readLoop consumes frames until the transport closes, redialing the node
// when the connection drops.
func (t *NodeTransport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			running := t.running
			t.mu.Unlock()
			if !running {
				return
			}

			t.logger.Warn("node connection lost, reconnecting", "error", err, "delay", t.reconnectDelay)
			conn = t.redial()
			if conn == nil {
				return
			}
			continue
		}

		var frame nodeFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.logger.Warn("dropping malformed frame", "error", err)
			continue
		}
		if frame.Type != "message" {
			continue
		}

		var payload nodePayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			t.logger.Warn("dropping malformed message payload", "error", err)
			continue
		}

		msg := openpond.Message{
			FromAgentID:    payload.FromAgentID,
			Content:        payload.Content,
			ConversationID: payload.ConversationID,
			Timestamp:      time.Now().UTC(),
		}
		if err := msg.Validate(); err != nil {
			t.logger.Warn("dropping malformed inbound message", "error", err)
			continue
		}

		t.handlers.dispatch(context.Background(), msg)
	}
}

// redial re-establishes the session after a drop. Returns nil once the
// transport has been closed.
func (t *NodeTransport) redial() *websocket.Conn {
	for {
		time.Sleep(t.reconnectDelay)

		t.mu.Lock()
		if !t.running {
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		conn, err := t.dial(context.Background())
		if err != nil {
			t.logger.Error("reconnect failed", "error", err)
			continue
		}

		t.mu.Lock()
		if !t.running {
			t.mu.Unlock()
			conn.Close()
			return nil
		}
		t.conn = conn
		t.mu.Unlock()
		return conn
	}
}

// Send writes a message frame addressed to the given peer.
func (t *NodeTransport) Send(ctx context.Context, toAgentID, content, conversationID string) error {
	t.mu.Lock()
	conn := t.conn
	running := t.running
	t.mu.Unlock()

	if !running || conn == nil {
		return errors.NewSendError(toAgentID, "not connected", nil)
	}

	payload, err := json.Marshal(nodePayload{
		ToAgentID:      toAgentID,
		Content:        content,
		ConversationID: conversationID,
	})
	if err != nil {
		return errors.NewSendError(toAgentID, "failed to encode payload", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
		defer conn.SetWriteDeadline(time.Time{})
	}

	if err := conn.WriteJSON(nodeFrame{Type: "message", Payload: payload}); err != nil {
		return errors.NewSendError(toAgentID, "failed to write frame", err)
	}
	return nil
}

// OnMessage registers an inbound-message handler.
func (t *NodeTransport) OnMessage(h openpond.Handler) func() {
	return t.handlers.add(h)
}

// Close ends the session. Close is idempotent.
func (t *NodeTransport) Close() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		t.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		t.writeMu.Unlock()
		return conn.Close()
	}
	return nil
}

// IsConnected reports whether the transport holds a session.
func (t *NodeTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running && t.conn != nil
}
