package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/openpond/openpond-go/adapter/errors"
	"github.com/openpond/openpond-go/openpond"
)

const defaultPollInterval = 5 * time.Second

// HostedTransport talks to the hosted REST gateway. Inbound messages are
// fetched by polling GET /messages with a timestamp watermark; outbound
// messages are posted to POST /messages. The API key travels in the
// X-API-Key header on every request.
type HostedTransport struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	pollInterval time.Duration
	logger       *slog.Logger

	handlers handlerSet

	mu        sync.Mutex
	connected bool
	since     float64
	stop      chan struct{}
	done      chan struct{}
}

// HostedOptions configures hosted transport behavior.
type HostedOptions struct {
	// PollInterval is the delay between message fetches. Default: 5s.
	PollInterval time.Duration

	// HTTPClient overrides the default http.Client.
	HTTPClient *http.Client

	// Logger receives poll-loop failures. Default: slog.Default().
	Logger *slog.Logger
}

// NewHostedTransport creates a hosted gateway transport with default
// options.
func NewHostedTransport(baseURL, apiKey string) *HostedTransport {
	return NewHostedTransportWithOptions(baseURL, apiKey, HostedOptions{})
}

// NewHostedTransportWithOptions creates a hosted gateway transport with
// custom options.
func NewHostedTransportWithOptions(baseURL, apiKey string, opts HostedOptions) *HostedTransport {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &HostedTransport{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		client:       opts.HTTPClient,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
}

// hostedMessage is the gateway's wire representation of a message.
// Timestamps are Unix seconds with fractional precision.
type hostedMessage struct {
	FromAgentID    string  `json:"fromAgentId"`
	Content        string  `json:"content"`
	ConversationID string  `json:"conversationId,omitempty"`
	Timestamp      float64 `json:"timestamp"`
}

// hostedInbox is the response body of GET /messages.
type hostedInbox struct {
	Messages []hostedMessage `json:"messages"`
}

// hostedOutbound is the request body of POST /messages.
type hostedOutbound struct {
	ToAgentID      string `json:"toAgentId"`
	Content        string `json:"content"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Connect probes the gateway with an authenticated fetch and starts the
// poll loop. A 401 or 403 from the gateway surfaces as
// *errors.AuthenticationError; an unreachable gateway as
// *errors.ConnectionError.
func (t *HostedTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connected {
		return nil
	}

	if _, err := t.fetch(ctx, t.since); err != nil {
		return err
	}

	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	t.connected = true
	go t.pollLoop(t.stop, t.done)

	return nil
}

// pollLoop fetches new messages on a fixed interval until stopped. Fetch
// failures are logged and the next tick retries; a transient gateway
// outage does not end the session.
func (t *HostedTransport) pollLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx := context.Background()

			t.mu.Lock()
			since := t.since
			t.mu.Unlock()

			msgs, err := t.fetch(ctx, since)
			if err != nil {
				t.logger.Error("polling messages failed", "error", err)
				continue
			}

			for _, wire := range msgs {
				msg := openpond.Message{
					FromAgentID:    wire.FromAgentID,
					Content:        wire.Content,
					ConversationID: wire.ConversationID,
					Timestamp:      unixFloatToTime(wire.Timestamp),
				}
				if err := msg.Validate(); err != nil {
					t.logger.Warn("dropping malformed inbound message", "error", err)
					continue
				}

				t.handlers.dispatch(ctx, msg)

				t.mu.Lock()
				if wire.Timestamp > t.since {
					t.since = wire.Timestamp
				}
				t.mu.Unlock()
			}
		}
	}
}

// fetch retrieves messages newer than the watermark.
func (t *HostedTransport) fetch(ctx context.Context, since float64) ([]hostedMessage, error) {
	endpoint := fmt.Sprintf("%s/messages?since=%s", t.baseURL,
		url.QueryEscape(strconv.FormatFloat(since, 'f', -1, 64)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewConnectionError("failed to create fetch request", err)
	}
	t.setHeaders(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.NewConnectionError("gateway unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.NewAuthenticationError("openpond", "api key rejected by gateway", nil)
	case resp.StatusCode != http.StatusOK:
		detail, _ := io.ReadAll(resp.Body)
		return nil, errors.NewConnectionError(
			fmt.Sprintf("gateway returned status %d: %s", resp.StatusCode, string(detail)), nil)
	}

	var inbox hostedInbox
	if err := json.NewDecoder(resp.Body).Decode(&inbox); err != nil {
		return nil, errors.NewInvalidMessageError("failed to decode inbox", err)
	}
	return inbox.Messages, nil
}

// Send posts a message to the gateway addressed to the given peer.
func (t *HostedTransport) Send(ctx context.Context, toAgentID, content, conversationID string) error {
	if !t.IsConnected() {
		return errors.NewSendError(toAgentID, "not connected", nil)
	}

	body, err := json.Marshal(hostedOutbound{
		ToAgentID:      toAgentID,
		Content:        content,
		ConversationID: conversationID,
	})
	if err != nil {
		return errors.NewSendError(toAgentID, "failed to encode message", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/messages", strings.NewReader(string(body)))
	if err != nil {
		return errors.NewSendError(toAgentID, "failed to create request", err)
	}
	t.setHeaders(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.NewSendError(toAgentID, "gateway unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(resp.Body)
		return errors.NewSendError(toAgentID,
			fmt.Sprintf("gateway returned status %d: %s", resp.StatusCode, string(detail)), nil)
	}
	return nil
}

// OnMessage registers an inbound-message handler.
func (t *HostedTransport) OnMessage(h openpond.Handler) func() {
	return t.handlers.add(h)
}

// Close stops the poll loop and releases the session. Close is idempotent.
func (t *HostedTransport) Close() error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil
	}
	t.connected = false
	close(t.stop)
	done := t.done
	t.mu.Unlock()

	<-done
	return nil
}

// IsConnected reports whether the transport holds a session.
func (t *HostedTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *HostedTransport) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", t.apiKey)
}

// unixFloatToTime converts gateway timestamps (fractional Unix seconds)
// to time.Time.
func unixFloatToTime(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
