// Package agent implements the OpenPond agent loop.
//
// An agent is a thin coordinator binding one network transport to one
// completion backend: every inbound peer message becomes a completion
// call, and the model's reply is sent back to the originating peer. The
// loop holds only ephemeral per-call state; conversation history lives in
// a memory backend.
//
// Example:
//
//	a, err := agent.New(ctx, agent.Config{
//	    APIKey:           os.Getenv("OPENPOND_API_KEY"),
//	    CompletionAPIKey: os.Getenv("OPENAI_API_KEY"),
//	    Endpoint:         "http://localhost:3000",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Stop()
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openpond/openpond-go/adapter/llm"
	"github.com/openpond/openpond-go/adapter/transport"
	"github.com/openpond/openpond-go/memory"
	"github.com/openpond/openpond-go/middleware"
	"github.com/openpond/openpond-go/observability"
	"github.com/openpond/openpond-go/openpond"
)

const (
	// DefaultEndpoint is the hosted gateway used when no endpoint is
	// configured.
	DefaultEndpoint = "http://localhost:3000"

	// DefaultHistoryLimit is the number of conversation turns retained
	// per peer.
	DefaultHistoryLimit = 10

	// DefaultTemperature is the sampling temperature applied to
	// completion calls.
	DefaultTemperature = 0.7
)

// Config configures an agent.
type Config struct {
	// APIKey is the network credential. Required for the hosted gateway;
	// a local node accepts an empty key.
	APIKey string

	// CompletionAPIKey is the completion-API credential. Required unless
	// Completer is injected.
	CompletionAPIKey string

	// Endpoint is the network endpoint URL. http(s):// selects the
	// hosted REST gateway, ws(s):// a local node. Default:
	// DefaultEndpoint.
	Endpoint string

	// AgentID is the identity registered with a local node. Optional.
	AgentID string

	// Name identifies the agent in logs and metrics. Defaults to
	// AgentID, or a generated identifier when both are empty.
	Name string

	// SystemPrompt is prepended to every conversation. Optional.
	SystemPrompt string

	// Model overrides the completion model. Empty selects the adapter
	// default.
	Model string

	// Temperature overrides the sampling temperature. Nil selects
	// DefaultTemperature.
	Temperature *float64

	// HistoryLimit is the number of turns retained per peer. Zero
	// selects DefaultHistoryLimit; negative disables history.
	HistoryLimit int

	// MaxInFlight bounds concurrent completion calls. Zero leaves them
	// unbounded, matching the network's delivery semantics.
	MaxInFlight int

	// CompletionTimeout bounds each completion call. Zero applies no
	// deadline.
	CompletionTimeout time.Duration

	// Transport overrides the endpoint-derived transport.
	Transport transport.Transport

	// Completer overrides the OpenAI completer built from
	// CompletionAPIKey.
	Completer llm.Completer

	// Memory overrides the in-memory history store.
	Memory memory.Memory

	// Logger receives per-message failures. Default: slog.Default().
	Logger *slog.Logger

	// Metrics overrides the default agent counters.
	Metrics *observability.AgentMetrics
}

// Agent is a live, connected agent handle.
type Agent struct {
	name         string
	transport    transport.Transport
	completer    llm.Completer
	memory       memory.Memory
	logger       *slog.Logger
	metrics      *observability.AgentMetrics
	tracer       trace.Tracer
	systemPrompt string
	historyLimit int
	temperature  float64

	// buildPrompt derives the user turn from inbound content.
	buildPrompt func(string) string

	removeHandler func()
	wg            sync.WaitGroup

	mu      sync.Mutex
	stopped bool

	stopOnce sync.Once
	stopErr  error
}

// Verify that Agent implements the openpond.Agent lifecycle contract.
var _ openpond.Agent = (*Agent)(nil)

// New constructs and connects an agent. The transport session is
// established before New returns; a rejected credential surfaces as
// *errors.AuthenticationError and an unreachable network as
// *errors.ConnectionError, and in both cases no connection is left open.
func New(ctx context.Context, cfg Config) (*Agent, error) {
	return newAgent(ctx, cfg, func(content string) string { return content })
}

func newAgent(ctx context.Context, cfg Config, buildPrompt func(string) string) (*Agent, error) {
	if cfg.Completer == nil && cfg.CompletionAPIKey == "" {
		return nil, fmt.Errorf("completion API key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	if cfg.Transport == nil && cfg.APIKey == "" && !strings.HasPrefix(endpoint, "ws") {
		return nil, fmt.Errorf("network API key is required for the hosted gateway")
	}

	name := cfg.Name
	if name == "" {
		name = cfg.AgentID
	}
	if name == "" {
		name = "agent-" + uuid.NewString()[:8]
	}

	historyLimit := cfg.HistoryLimit
	switch {
	case historyLimit == 0:
		historyLimit = DefaultHistoryLimit
	case historyLimit < 0:
		historyLimit = 0
	}

	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}

	completer := cfg.Completer
	if completer == nil {
		completer = llm.NewOpenAICompleter(cfg.CompletionAPIKey, cfg.Model)
	}
	if cfg.MaxInFlight > 0 {
		completer = middleware.NewLimitCompleter(completer, cfg.MaxInFlight)
	}
	if cfg.CompletionTimeout > 0 {
		completer = middleware.NewTimeoutCompleter(completer, cfg.CompletionTimeout)
	}

	mem := cfg.Memory
	if mem == nil {
		mem = memory.NewInMemoryMemory(historyLimit)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		var err error
		metrics, err = observability.NewAgentMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to create agent metrics: %w", err)
		}
	}

	tr := cfg.Transport
	if tr == nil {
		var err error
		tr, err = transport.ParseEndpoint(endpoint, transport.Credentials{
			APIKey:  cfg.APIKey,
			AgentID: cfg.AgentID,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tr.Connect(ctx); err != nil {
		return nil, err
	}

	a := &Agent{
		name:         name,
		transport:    tr,
		completer:    completer,
		memory:       mem,
		logger:       logger.With("agent", name),
		metrics:      metrics,
		tracer:       observability.GetTracer("openpond.agent"),
		systemPrompt: cfg.SystemPrompt,
		historyLimit: historyLimit,
		temperature:  temperature,
		buildPrompt:  buildPrompt,
	}
	a.removeHandler = tr.OnMessage(a.handleMessage)

	a.logger.Info("agent connected", "endpoint", endpoint, "model", completer.Model())
	return a, nil
}

// Name returns the agent's identifier.
func (a *Agent) Name() string {
	return a.name
}

// Connected reports whether the agent still holds a network session.
func (a *Agent) Connected() bool {
	return a.transport.IsConnected()
}

// handleMessage answers one inbound message. A completion failure is
// contained to this message: it is logged and counted, no reply is sent,
// and the agent keeps processing subsequent messages.
func (a *Agent) handleMessage(ctx context.Context, msg openpond.Message) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	ctx, span := a.tracer.Start(ctx, "agent.handle_message",
		trace.WithAttributes(
			attribute.String("agent", a.name),
			attribute.String("from_agent_id", msg.FromAgentID),
		))
	defer span.End()

	a.metrics.RecordReceived(ctx, a.name)
	a.logger.Debug("message received", "from", msg.FromAgentID, "conversation", msg.ConversationID)

	prompt := a.buildPrompt(msg.Content)
	turns := a.conversation(ctx, msg.FromAgentID, prompt)

	reply, err := a.completer.Complete(ctx, turns, llm.WithTemperature(a.temperature))
	if err != nil {
		a.metrics.RecordCompletionFailure(ctx, a.name)
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		a.logger.Error("completion failed, dropping reply", "from", msg.FromAgentID, "error", err)
		return
	}

	conversationID := msg.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	if err := a.transport.Send(ctx, msg.FromAgentID, reply.Content, conversationID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		a.logger.Error("failed to send reply", "to", msg.FromAgentID, "error", err)
		return
	}
	a.metrics.RecordReply(ctx, a.name)

	a.remember(ctx, msg.FromAgentID, prompt, reply.Content)
}

// conversation assembles the chat turns for one completion call: system
// prompt, retained history for the peer, then the new user turn.
func (a *Agent) conversation(ctx context.Context, peerID, prompt string) []llm.Message {
	turns := make([]llm.Message, 0, a.historyLimit+2)
	if a.systemPrompt != "" {
		turns = append(turns, llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt})
	}

	if a.historyLimit > 0 {
		history, err := a.memory.History(ctx, peerID, a.historyLimit)
		if err != nil {
			a.logger.Warn("failed to load history, continuing without", "peer", peerID, "error", err)
		} else {
			turns = append(turns, history...)
		}
	}

	return append(turns, llm.Message{Role: llm.RoleUser, Content: prompt})
}

// remember records the exchanged turns for future context.
func (a *Agent) remember(ctx context.Context, peerID, prompt, reply string) {
	if a.historyLimit <= 0 {
		return
	}
	if err := a.memory.Append(ctx, peerID, llm.Message{Role: llm.RoleUser, Content: prompt}); err != nil {
		a.logger.Warn("failed to record user turn", "peer", peerID, "error", err)
		return
	}
	if err := a.memory.Append(ctx, peerID, llm.Message{Role: llm.RoleAssistant, Content: reply}); err != nil {
		a.logger.Warn("failed to record assistant turn", "peer", peerID, "error", err)
	}
}

// Stop disconnects the agent: no further inbound messages are processed,
// in-flight handlers drain, and the transport session is released. Stop
// is idempotent; repeated calls return the first result.
func (a *Agent) Stop() error {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.stopped = true
		a.mu.Unlock()

		a.removeHandler()
		a.wg.Wait()
		a.stopErr = a.transport.Close()
		a.logger.Info("agent stopped")
	})
	return a.stopErr
}
