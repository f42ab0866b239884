package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestMemoryPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	broker := NewMemory()

	sub, err := broker.Subscribe(ctx, ChatTopic(1))
	require.NoError(t, err)
	other, err := broker.Subscribe(ctx, ChatTopic(2))
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, ChatTopic(1), NewChange(ChatTopic(1), Change{Table: "messages", Op: OpInsert, ResourceID: 1})))

	msg := receive(t, sub.C)
	assert.Equal(t, KindChange, msg.Kind)
	assert.Equal(t, OpInsert, msg.Change.Op)
	assert.Equal(t, "chat:1", msg.Topic)

	select {
	case <-other.C:
		t.Fatal("message leaked to another topic")
	default:
	}
}

func TestMemoryUnsubscribeClosesChannel(t *testing.T) {
	ctx := context.Background()
	broker := NewMemory()

	sub, err := broker.Subscribe(ctx, "t")
	require.NoError(t, err)
	sub.Close()
	sub.Close()

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Empty(t, broker.subs)
}

func TestMemoryCloseRejectsNewWork(t *testing.T) {
	ctx := context.Background()
	broker := NewMemory()
	sub, err := broker.Subscribe(ctx, "t")
	require.NoError(t, err)

	require.NoError(t, broker.Close())
	_, ok := <-sub.C
	assert.False(t, ok)

	_, err = broker.Subscribe(ctx, "t")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, broker.Publish(ctx, "t", Message{}), ErrClosed)
	sub.Close()
}

func TestChannelPresenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	broker := NewMemory()

	alice, err := Join(ctx, broker, ChatPresenceTopic(9))
	require.NoError(t, err)
	bob, err := Join(ctx, broker, ChatPresenceTopic(9))
	require.NoError(t, err)

	require.NoError(t, alice.Track(ctx, "1", PresenceState{"typing": true}))
	assert.Equal(t, KindPresence, receive(t, bob.Messages()).Kind)

	state, err := bob.PresenceState(ctx)
	require.NoError(t, err)
	require.Contains(t, state, "1")
	assert.Equal(t, true, state["1"]["typing"])

	require.NoError(t, alice.Close(ctx))
	assert.Equal(t, KindPresence, receive(t, bob.Messages()).Kind)
	state, err = bob.PresenceState(ctx)
	require.NoError(t, err)
	assert.Empty(t, state)
	require.NoError(t, alice.Close(ctx))
}

func TestControlTarget(t *testing.T) {
	msg := NewControl(GroupTopic(3), "kick", 7)
	assert.Equal(t, KindControl, msg.Kind)
	assert.Equal(t, 7, ControlTarget(msg))
	assert.Equal(t, 0, ControlTarget(Message{}))
}

func TestMemoryReapPresence(t *testing.T) {
	ctx := context.Background()
	broker := NewMemory()
	topic := LiveTopic(3)

	sub, err := broker.Subscribe(ctx, topic)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, broker.SetPresence(ctx, topic, "1", PresenceState{"user_id": 1}))
	receive(t, sub.C)

	state, err := broker.Presence(ctx, topic)
	require.NoError(t, err)
	assert.False(t, SeenAt(state["1"]).IsZero())

	n, err := broker.ReapPresence(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	time.Sleep(5 * time.Millisecond)
	n, err = broker.ReapPresence(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, KindPresence, receive(t, sub.C).Kind)

	state, err = broker.Presence(ctx, topic)
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestSeenAt(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	assert.Equal(t, ts, SeenAt(PresenceState{SeenAtKey: float64(1700000000000)}))
	assert.Equal(t, ts, SeenAt(PresenceState{SeenAtKey: int64(1700000000000)}))
	assert.True(t, SeenAt(PresenceState{}).IsZero())
}

func TestHeartbeatRefreshesWithoutNotifying(t *testing.T) {
	ctx := context.Background()
	broker := NewMemory()
	topic := LiveTopic(4)

	viewer, err := Join(ctx, broker, topic)
	require.NoError(t, err)
	watcher, err := Join(ctx, broker, topic)
	require.NoError(t, err)
	defer watcher.Close(ctx)

	require.NoError(t, viewer.Heartbeat(ctx))

	require.NoError(t, viewer.Track(ctx, "conn-a", PresenceState{"user_id": 2}))
	receive(t, watcher.Messages())
	state, err := broker.Presence(ctx, topic)
	require.NoError(t, err)
	first := SeenAt(state["conn-a"])

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, viewer.Heartbeat(ctx))

	select {
	case msg := <-watcher.Messages():
		t.Fatalf("heartbeat notified the topic: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
	state, err = broker.Presence(ctx, topic)
	require.NoError(t, err)
	assert.True(t, SeenAt(state["conn-a"]).After(first))
	assert.Equal(t, 2, state["conn-a"]["user_id"])

	ok, err := broker.TouchPresence(ctx, topic, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHeartbeatRestoresReapedEntry(t *testing.T) {
	ctx := context.Background()
	broker := NewMemory()
	topic := LiveTopic(5)

	viewer, err := Join(ctx, broker, topic)
	require.NoError(t, err)
	defer viewer.Close(ctx)
	require.NoError(t, viewer.Track(ctx, "conn-b", PresenceState{"user_id": 3}))
	receive(t, viewer.Messages())

	time.Sleep(5 * time.Millisecond)
	_, err = broker.ReapPresence(ctx, time.Millisecond)
	require.NoError(t, err)
	receive(t, viewer.Messages())

	require.NoError(t, viewer.Heartbeat(ctx))
	assert.Equal(t, KindPresence, receive(t, viewer.Messages()).Kind)
	state, err := broker.Presence(ctx, topic)
	require.NoError(t, err)
	assert.Contains(t, state, "conn-b")
}
