// Package functions invokes serverless functions by publishing invocation
// requests to RabbitMQ. Workers bound to functions.<name> pick them up.
package functions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"social-service/internal/models"
	"social-service/internal/observability"
	"social-service/internal/rabbitmq"
)

const (
	routingPrefix = "functions."

	SendSupportEmail = "send_support_email"
)

var ErrNoFunction = errors.New("function name is required")

// Invocation is the message body a function worker receives.
type Invocation struct {
	Function     string    `json:"function"`
	InvocationID string    `json:"invocation_id"`
	RequestedAt  time.Time `json:"requested_at"`
	Payload      any       `json:"payload"`
}

func (i Invocation) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("function", i.Function),
		zap.String("invocation_id", i.InvocationID),
	}
}

// RoutingKey returns the routing key a function listens on.
func RoutingKey(name string) string {
	return routingPrefix + name
}

type Invoker struct {
	publisher rabbitmq.Publisher
	now       func() time.Time
}

func NewInvoker(publisher rabbitmq.Publisher) *Invoker {
	return &Invoker{publisher: publisher, now: time.Now}
}

// Invoke publishes an invocation of name and returns its id.
func (i *Invoker) Invoke(ctx context.Context, name string, payload any) (string, error) {
	if name == "" {
		return "", ErrNoFunction
	}
	inv := Invocation{
		Function:     name,
		InvocationID: uuid.NewString(),
		RequestedAt:  i.now().UTC(),
		Payload:      payload,
	}

	err := i.publisher.Publish(ctx, RoutingKey(name), inv)
	observability.IncFunctionInvocation(name, err == nil)
	if err != nil {
		zap.L().Warn("function_invoke_failed", append(inv.LogFields(), zap.Error(err))...)
		return "", fmt.Errorf("invoke %s: %w", name, err)
	}
	zap.L().Info("function_invoked", inv.LogFields()...)
	return inv.InvocationID, nil
}

// SupportEmail is the payload of send_support_email.
type SupportEmail struct {
	TicketID    int    `json:"ticket_id"`
	UserID      int    `json:"user_id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// SendSupportEmail notifies support staff about a new ticket.
func (i *Invoker) SendSupportEmail(ctx context.Context, ticket models.SupportTicket) (string, error) {
	return i.Invoke(ctx, SendSupportEmail, SupportEmail{
		TicketID:    ticket.ID,
		UserID:      ticket.UserID,
		Subject:     ticket.Subject,
		Description: ticket.Description,
		Priority:    string(ticket.Priority),
	})
}
