package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

var globalMeterProvider *sdkmetric.MeterProvider

// InitMetrics initializes OpenTelemetry metrics with Prometheus export.
func InitMetrics(serviceName string) (*sdkmetric.MeterProvider, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	globalMeterProvider = provider
	return provider, nil
}

// GetMeter returns a meter from the current global meter provider.
func GetMeter(name string) metric.Meter {
	return otel.Meter(name)
}

// AgentMetrics collects message-loop counters for one or more agents.
type AgentMetrics struct {
	received metric.Int64Counter
	replies  metric.Int64Counter
	failures metric.Int64Counter
}

// NewAgentMetrics creates the agent message-loop counters.
func NewAgentMetrics() (*AgentMetrics, error) {
	meter := GetMeter("openpond.agent")

	received, err := meter.Int64Counter(
		"openpond.agent.messages_received",
		metric.WithDescription("Inbound messages delivered to the agent"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create received counter: %w", err)
	}

	replies, err := meter.Int64Counter(
		"openpond.agent.replies_sent",
		metric.WithDescription("Replies sent back to peers"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create replies counter: %w", err)
	}

	failures, err := meter.Int64Counter(
		"openpond.agent.completion_failures",
		metric.WithDescription("Completion calls that failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failures counter: %w", err)
	}

	return &AgentMetrics{
		received: received,
		replies:  replies,
		failures: failures,
	}, nil
}

// RecordReceived counts an inbound message for the named agent.
func (m *AgentMetrics) RecordReceived(ctx context.Context, agentName string) {
	m.received.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agentName)))
}

// RecordReply counts a reply sent by the named agent.
func (m *AgentMetrics) RecordReply(ctx context.Context, agentName string) {
	m.replies.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agentName)))
}

// RecordCompletionFailure counts a failed completion call for the named
// agent.
func (m *AgentMetrics) RecordCompletionFailure(ctx context.Context, agentName string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agentName)))
}
