package realtime

import (
	"context"
	"sync"
)

// Channel is a joined topic: one subscription plus the presence key of the
// joining member. Publishing, tracking and presence reads all go through
// the same handle.
type Channel struct {
	broker Broker
	topic  string
	sub    *Subscription

	mu      sync.Mutex
	tracked string
	state   PresenceState
	closed  bool
}

// Join subscribes to topic and returns the joined channel.
func Join(ctx context.Context, broker Broker, topic string) (*Channel, error) {
	sub, err := broker.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	return &Channel{broker: broker, topic: topic, sub: sub}, nil
}

// Topic returns the joined topic.
func (c *Channel) Topic() string { return c.topic }

// Messages delivers every message published on the topic.
func (c *Channel) Messages() <-chan Message { return c.sub.C }

// Broadcast publishes an ad-hoc event to the topic.
func (c *Channel) Broadcast(ctx context.Context, event string, payload any) error {
	msg, err := NewBroadcast(c.topic, event, payload)
	if err != nil {
		return err
	}
	return c.broker.Publish(ctx, c.topic, msg)
}

// Track publishes this member's presence state under key.
func (c *Channel) Track(ctx context.Context, key string, state PresenceState) error {
	c.mu.Lock()
	c.tracked = key
	c.state = state
	c.mu.Unlock()
	return c.broker.SetPresence(ctx, c.topic, key, state)
}

// Heartbeat keeps the tracked entry alive. Other members are only notified
// when the entry had already been reaped and has to be written again.
func (c *Channel) Heartbeat(ctx context.Context) error {
	c.mu.Lock()
	key, state := c.tracked, c.state
	c.mu.Unlock()
	if key == "" {
		return nil
	}
	ok, err := c.broker.TouchPresence(ctx, c.topic, key)
	if err != nil || ok {
		return err
	}
	return c.broker.SetPresence(ctx, c.topic, key, state)
}

// Untrack removes this member's presence.
func (c *Channel) Untrack(ctx context.Context) error {
	c.mu.Lock()
	key := c.tracked
	c.tracked = ""
	c.state = nil
	c.mu.Unlock()
	if key == "" {
		return nil
	}
	return c.broker.RemovePresence(ctx, c.topic, key)
}

// PresenceState reads the current presence of the topic.
func (c *Channel) PresenceState(ctx context.Context) (map[string]PresenceState, error) {
	return c.broker.Presence(ctx, c.topic)
}

// Close untracks and unsubscribes. It is safe to call more than once.
func (c *Channel) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.Untrack(ctx)
	c.sub.Close()
	return err
}
