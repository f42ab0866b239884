package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"social-service/internal/models"
	"social-service/internal/realtime"
)

// PublisherMock stands in for the RabbitMQ publisher.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// RealtimePublisherMock stands in for the realtime broker's publish side.
type RealtimePublisherMock struct {
	mock.Mock
}

func (m *RealtimePublisherMock) Publish(ctx context.Context, topic string, msg realtime.Message) error {
	args := m.Called(ctx, topic, msg)
	return args.Error(0)
}

type SupportNotifierMock struct {
	mock.Mock
}

func (m *SupportNotifierMock) SendSupportEmail(ctx context.Context, ticket models.SupportTicket) (string, error) {
	args := m.Called(ctx, ticket)
	return args.String(0), args.Error(1)
}
