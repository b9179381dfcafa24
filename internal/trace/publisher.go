// Package trace publishes per-request span events to a Kafka topic so an
// external collector can reconstruct agent runs across services. Publishing
// is fire-and-forget: a broker outage never affects request handling.
package trace

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Envelope event types.
const (
	EnvelopeSpan  = "span"
	EnvelopeAudit = "audit"
)

// Envelope is the wire format for trace events.
type Envelope struct {
	Type          string    `json:"type"`
	CorrelationID string    `json:"correlation_id"`
	SenderID      string    `json:"sender_id"`
	Timestamp     time.Time `json:"timestamp"`
	Payload       any       `json:"payload,omitempty"`
}

// SpanPayload describes one model call or action execution.
type SpanPayload struct {
	SpanID     string `json:"span_id"`
	TraceID    string `json:"trace_id"`
	SpanType   string `json:"span_type"`
	Title      string `json:"title"`
	TenantID   string `json:"tenant_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Publisher writes trace envelopes to a single Kafka topic.
type Publisher struct {
	writer  *kafka.Writer
	agentID string
}

// NewPublisher builds a publisher for the given comma-separated broker list.
// An empty broker list or topic yields an inactive publisher.
func NewPublisher(brokers, topic, agentID string) *Publisher {
	brokers = strings.TrimSpace(brokers)
	topic = strings.TrimSpace(topic)
	if brokers == "" || topic == "" {
		return &Publisher{agentID: agentID}
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}
	return &Publisher{writer: w, agentID: agentID}
}

// Active reports whether the publisher has a configured writer.
func (p *Publisher) Active() bool {
	return p != nil && p.writer != nil
}

// PublishSpan emits one span event keyed by trace id.
func (p *Publisher) PublishSpan(ctx context.Context, span SpanPayload) {
	if !p.Active() {
		return
	}
	env := Envelope{
		Type:          EnvelopeSpan,
		CorrelationID: span.TraceID,
		SenderID:      p.agentID,
		Timestamp:     time.Now(),
		Payload:       span,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(span.TraceID),
		Value: data,
	}); err != nil {
		slog.Warn("trace publish failed", "trace_id", span.TraceID, "error", err)
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if !p.Active() {
		return nil
	}
	return p.writer.Close()
}
