package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	return m.Called(ctx, routingKey, event).Error(0)
}

func (m *publisherMock) Close() error { return m.Called().Error(0) }

func TestActionPublishesEnvelope(t *testing.T) {
	pub := &publisherMock{}
	pub.On("Publish", mock.Anything, "audit.social", mock.AnythingOfType("telemetry.AuditEnvelope")).Return(nil).Once()

	uid := int64(7)
	NewAuditEmitter(pub, "audit.social", "social-service", "test").
		Action(context.Background(), "group_role_changed", "req-1", &uid, map[string]any{"group_id": 3})

	pub.AssertExpectations(t)
	env := pub.Calls[0].Arguments.Get(2).(AuditEnvelope)
	require.NotNil(t, env.UserID)
	assert.Equal(t, "7", *env.UserID)
	assert.Equal(t, "group_role_changed", env.Payload.Action)
	assert.Equal(t, "social-service", env.Service)
	assert.Equal(t, 1, env.SchemaVersion)
}

func TestNilEmitterIsSafe(t *testing.T) {
	var e *AuditEmitter
	assert.NotPanics(t, func() { e.Emit(context.Background(), "INFO", "x", "req", nil) })
}
