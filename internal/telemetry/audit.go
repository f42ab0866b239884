package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level  string         `json:"level"`
	Text   string         `json:"text"`
	Action string         `json:"action,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// LogFields describes the envelope for the noop publisher.
func (e AuditEnvelope) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("event_type", e.EventType),
		zap.String("service", e.Service),
		zap.String("request_id", e.RequestID),
		zap.String("action", e.Payload.Action),
	}
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes a free-text audit line.
func (e *AuditEmitter) Emit(ctx context.Context, level, text, requestID string, userID *int64) {
	e.publish(ctx, requestID, userID, AuditPayload{Level: level, Text: text})
}

// Action records a privileged operation such as a role change or a ticket
// update.
func (e *AuditEmitter) Action(ctx context.Context, action, requestID string, userID *int64, fields map[string]any) {
	e.publish(ctx, requestID, userID, AuditPayload{Level: "INFO", Text: action, Action: action, Fields: fields})
}

func (e *AuditEmitter) publish(ctx context.Context, requestID string, userID *int64, payload AuditPayload) {
	if e == nil || e.publisher == nil {
		return
	}

	var uid *string
	if userID != nil {
		s := strconv.FormatInt(*userID, 10)
		uid = &s
	}

	zap.L().Debug("audit_emit", zap.String("level", payload.Level), zap.String("request_id", requestID), zap.String("text", payload.Text))
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        uid,
		Payload:       payload,
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		zap.L().Warn("audit_publish_failed", zap.String("request_id", requestID), zap.Error(err))
	}
}
