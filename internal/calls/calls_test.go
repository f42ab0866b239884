package calls

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-service/internal/models"
	"social-service/internal/realtime"
	"social-service/internal/repositories"
)

func next(t *testing.T, sub *realtime.Subscription) realtime.Message {
	t.Helper()
	select {
	case msg := <-sub.C:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message")
	}
	return realtime.Message{}
}

func TestPresets(t *testing.T) {
	p, err := PresetFor(QualityHigh)
	require.NoError(t, err)
	assert.Equal(t, 1080, p.Height)

	_, err = PresetFor("ultra")
	assert.ErrorIs(t, err, ErrInvalidQuality)
}

func TestSignalValidate(t *testing.T) {
	assert.NoError(t, Signal{Type: SignalOffer, From: 1, Payload: json.RawMessage(`{"sdp":"x"}`)}.Validate())
	assert.NoError(t, Signal{Type: SignalHangup, From: 1}.Validate())
	assert.ErrorIs(t, Signal{Type: SignalAnswer, From: 1}.Validate(), ErrInvalidSignal)
	assert.ErrorIs(t, Signal{Type: "renegotiate", From: 1}.Validate(), ErrInvalidSignal)
	assert.ErrorIs(t, Signal{Type: SignalHangup}.Validate(), ErrInvalidSignal)

	assert.True(t, Signal{From: 1}.For(2))
	assert.False(t, Signal{From: 1}.For(1))
	assert.False(t, Signal{From: 1, To: 3}.For(2))
}

func TestCallLifecycle(t *testing.T) {
	ctx := context.Background()
	broker := realtime.NewMemory()
	m := NewManager(broker)

	call := m.Start(KindDirect, 5, 1)
	sub, err := broker.Subscribe(ctx, realtime.CallTopic(call.ID))
	require.NoError(t, err)
	defer sub.Close()

	p, err := m.Join(ctx, call.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, QualityMedium, p.Quality)
	assert.Equal(t, EventJoined, next(t, sub).Event)

	_, err = m.Join(ctx, call.ID, 2)
	require.NoError(t, err)
	next(t, sub)

	muted, low := true, QualityLow
	p, err = m.Update(ctx, call.ID, 2, StateUpdate{Muted: &muted, Quality: &low})
	require.NoError(t, err)
	assert.True(t, p.Muted)
	assert.Equal(t, QualityLow, p.Quality)
	assert.Equal(t, EventState, next(t, sub).Event)

	bad := Quality("ultra")
	_, err = m.Update(ctx, call.ID, 2, StateUpdate{Quality: &bad})
	assert.ErrorIs(t, err, ErrInvalidQuality)

	parts, err := m.Participants(call.ID)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, QualityLow, parts[1].Quality)

	payload := json.RawMessage(`{"sdp":"v=0"}`)
	require.NoError(t, m.Relay(ctx, call.ID, Signal{Type: SignalOffer, From: 1, To: 2, Payload: payload}))
	msg := next(t, sub)
	assert.Equal(t, EventSignal, msg.Event)
	var relayed Signal
	require.NoError(t, json.Unmarshal(msg.Payload, &relayed))
	assert.JSONEq(t, string(payload), string(relayed.Payload))

	assert.ErrorIs(t, m.Relay(ctx, call.ID, Signal{Type: SignalHangup, From: 9}), ErrNotParticipant)

	require.NoError(t, m.Relay(ctx, call.ID, Signal{Type: SignalHangup, From: 1}))
	assert.Equal(t, EventSignal, next(t, sub).Event)
	assert.Equal(t, EventLeft, next(t, sub).Event)
	assert.Equal(t, 1, m.Active())

	require.NoError(t, m.Leave(ctx, call.ID, 2))
	assert.Equal(t, EventLeft, next(t, sub).Event)
	assert.Equal(t, EventEnded, next(t, sub).Event)
	assert.Equal(t, 0, m.Active())

	_, err = m.Get(call.ID)
	assert.ErrorIs(t, err, ErrCallNotFound)
}

func TestReapUnjoinedEndsAbandonedCalls(t *testing.T) {
	ctx := context.Background()
	broker := realtime.NewMemory()
	m := NewManager(broker)

	abandoned := m.Start(KindGroup, 1, 1)
	m.Start(KindGroup, 2, 1)
	joined := m.Start(KindDirect, 3, 1)
	fresh := m.Start(KindDirect, 4, 1)
	_, err := m.Join(ctx, joined.ID, 1)
	require.NoError(t, err)

	m.mu.Lock()
	for id, call := range m.calls {
		if id != fresh.ID {
			call.StartedAt = call.StartedAt.Add(-time.Hour)
		}
	}
	m.mu.Unlock()

	sub, err := broker.Subscribe(ctx, realtime.CallTopic(abandoned.ID))
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, 2, m.ReapUnjoined(ctx, time.Minute))
	assert.Equal(t, 2, m.Active())
	assert.Equal(t, EventEnded, next(t, sub).Event)

	_, err = m.Get(abandoned.ID)
	assert.ErrorIs(t, err, ErrCallNotFound)
	_, err = m.Get(joined.ID)
	assert.NoError(t, err)
	_, err = m.Get(fresh.ID)
	assert.NoError(t, err)

	assert.Equal(t, 0, m.ReapUnjoined(ctx, time.Minute))
}

func TestUnknownCall(t *testing.T) {
	m := NewManager(realtime.NewMemory())
	_, err := m.Join(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, ErrCallNotFound)
	assert.ErrorIs(t, m.Leave(context.Background(), "missing", 1), ErrCallNotFound)
}

type stubMembers struct {
	chat   bool
	group  bool
	circle error
}

func (s stubMembers) IsParticipant(ctx context.Context, chatID, userID int) (bool, error) {
	return s.chat, nil
}

func (s stubMembers) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	return s.group, nil
}

func (s stubMembers) GetMember(ctx context.Context, circleID, userID int) (models.CircleMember, error) {
	return models.CircleMember{CircleID: circleID, UserID: userID}, s.circle
}

func TestAccessAllowed(t *testing.T) {
	ctx := context.Background()
	members := stubMembers{chat: true, group: false, circle: repositories.ErrNotMember}
	access := Access{Chats: members, Groups: members, Circles: members}

	ok, err := access.Allowed(ctx, Call{Kind: KindDirect, ResourceID: 1}, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = access.Allowed(ctx, Call{Kind: KindGroup, ResourceID: 1}, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = access.Allowed(ctx, Call{Kind: KindCircle, ResourceID: 1}, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	members.circle = nil
	access.Circles = members
	ok, err = access.Allowed(ctx, Call{Kind: KindCircle, ResourceID: 1}, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}
