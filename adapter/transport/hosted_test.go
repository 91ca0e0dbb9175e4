package transport

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/openpond/openpond-go/adapter/errors"
	"github.com/openpond/openpond-go/openpond"
)

// gatewayStub is a minimal hosted gateway for tests.
type gatewayStub struct {
	mu     sync.Mutex
	apiKey string
	inbox  []hostedMessage
	posts  []hostedOutbound
}

func (g *gatewayStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.apiKey != "" && r.Header.Get("X-API-Key") != g.apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodGet:
			since, _ := strconv.ParseFloat(r.URL.Query().Get("since"), 64)
			g.mu.Lock()
			var fresh []hostedMessage
			for _, m := range g.inbox {
				if m.Timestamp > since {
					fresh = append(fresh, m)
				}
			}
			g.mu.Unlock()
			json.NewEncoder(w).Encode(hostedInbox{Messages: fresh})
		case http.MethodPost:
			var out hostedOutbound
			json.NewDecoder(r.Body).Decode(&out)
			g.mu.Lock()
			g.posts = append(g.posts, out)
			g.mu.Unlock()
			w.Write([]byte(`{}`))
		}
	}
}

func (g *gatewayStub) sent() []hostedOutbound {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]hostedOutbound, len(g.posts))
	copy(out, g.posts)
	return out
}

func newTestHostedTransport(t *testing.T, stub *gatewayStub) *HostedTransport {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	return NewHostedTransportWithOptions(srv.URL, "key-1", HostedOptions{
		PollInterval: 20 * time.Millisecond,
	})
}

func TestHostedConnectAndReceive(t *testing.T) {
	stub := &gatewayStub{
		apiKey: "key-1",
		inbox: []hostedMessage{
			{FromAgentID: "peerA", Content: "hello", ConversationID: "conv-1", Timestamp: 1.5},
		},
	}
	tr := newTestHostedTransport(t, stub)

	received := make(chan openpond.Message, 10)
	tr.OnMessage(func(ctx context.Context, msg openpond.Message) {
		received <- msg
	})

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer tr.Close()

	if !tr.IsConnected() {
		t.Error("Expected transport to be connected")
	}

	select {
	case msg := <-received:
		if msg.FromAgentID != "peerA" {
			t.Errorf("Expected sender 'peerA', got '%s'", msg.FromAgentID)
		}
		if msg.Content != "hello" {
			t.Errorf("Expected content 'hello', got '%s'", msg.Content)
		}
		if msg.ConversationID != "conv-1" {
			t.Errorf("Expected conversation 'conv-1', got '%s'", msg.ConversationID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for inbound message")
	}

	// Watermark must advance: the same message may not be redelivered.
	select {
	case msg := <-received:
		t.Fatalf("Message redelivered: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHostedSend(t *testing.T) {
	stub := &gatewayStub{apiKey: "key-1"}
	tr := newTestHostedTransport(t, stub)

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer tr.Close()

	if err := tr.Send(context.Background(), "peerB", "pong", "conv-2"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	sent := stub.sent()
	if len(sent) != 1 {
		t.Fatalf("Expected 1 posted message, got %d", len(sent))
	}
	if sent[0].ToAgentID != "peerB" || sent[0].Content != "pong" || sent[0].ConversationID != "conv-2" {
		t.Errorf("Unexpected posted message: %+v", sent[0])
	}
}

func TestHostedConnectAuthFailure(t *testing.T) {
	stub := &gatewayStub{apiKey: "other-key"}
	tr := newTestHostedTransport(t, stub)

	err := tr.Connect(context.Background())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var authErr *errors.AuthenticationError
	if !stderrors.As(err, &authErr) {
		t.Fatalf("Expected AuthenticationError, got %T: %v", err, err)
	}
	if tr.IsConnected() {
		t.Error("Expected no connection left open after auth failure")
	}
}

func TestHostedConnectUnreachable(t *testing.T) {
	tr := NewHostedTransport("http://127.0.0.1:1", "key-1")

	err := tr.Connect(context.Background())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var connErr *errors.ConnectionError
	if !stderrors.As(err, &connErr) {
		t.Fatalf("Expected ConnectionError, got %T: %v", err, err)
	}
}

func TestHostedCloseIdempotent(t *testing.T) {
	stub := &gatewayStub{apiKey: "key-1"}
	tr := newTestHostedTransport(t, stub)

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
	if tr.IsConnected() {
		t.Error("Expected transport to be disconnected")
	}

	err := tr.Send(context.Background(), "peerB", "late", "")
	var sendErr *errors.SendError
	if !stderrors.As(err, &sendErr) {
		t.Fatalf("Expected SendError after Close, got %T: %v", err, err)
	}
}
