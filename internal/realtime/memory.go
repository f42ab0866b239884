package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const subscriptionBuffer = 64

// Memory is an in-process Broker for single-instance deployments and tests.
type Memory struct {
	mu       sync.RWMutex
	subs     map[string]map[*memorySub]struct{}
	presence map[string]map[string]PresenceState
	closed   bool
}

type memorySub struct {
	ch   chan Message
	once sync.Once
}

// NewMemory creates an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{
		subs:     make(map[string]map[*memorySub]struct{}),
		presence: make(map[string]map[string]PresenceState),
	}
}

// Publish delivers msg to every current subscriber of topic. Slow
// subscribers whose buffer is full miss the message.
func (m *Memory) Publish(ctx context.Context, topic string, msg Message) error {
	msg.Topic = topic
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	for sub := range m.subs[topic] {
		select {
		case sub.ch <- msg:
		default:
			zap.L().Warn("realtime_subscriber_overflow", zap.String("topic", topic), zap.String("kind", string(msg.Kind)))
		}
	}
	return nil
}

// Subscribe registers a new subscription on topic.
func (m *Memory) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	sub := &memorySub{ch: make(chan Message, subscriptionBuffer)}
	if _, ok := m.subs[topic]; !ok {
		m.subs[topic] = make(map[*memorySub]struct{})
	}
	m.subs[topic][sub] = struct{}{}

	return &Subscription{
		C:     sub.ch,
		topic: topic,
		stop:  func() { m.unsubscribe(topic, sub) },
	}, nil
}

func (m *Memory) unsubscribe(topic string, sub *memorySub) {
	m.mu.Lock()
	if subs, ok := m.subs[topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(m.subs, topic)
		}
	}
	m.mu.Unlock()
	sub.once.Do(func() { close(sub.ch) })
}

// SetPresence stores state for key and notifies the topic.
func (m *Memory) SetPresence(ctx context.Context, topic, key string, state PresenceState) error {
	m.mu.Lock()
	if _, ok := m.presence[topic]; !ok {
		m.presence[topic] = make(map[string]PresenceState)
	}
	stamped := clonePresence(state)
	stamped[SeenAtKey] = time.Now().UnixMilli()
	m.presence[topic][key] = stamped
	m.mu.Unlock()
	return m.Publish(ctx, topic, Message{Kind: KindPresence})
}

// TouchPresence refreshes the seen_at stamp of key in place.
func (m *Memory) TouchPresence(ctx context.Context, topic, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.presence[topic][key]
	if !ok {
		return false, nil
	}
	state[SeenAtKey] = time.Now().UnixMilli()
	return true, nil
}

// RemovePresence drops key from topic and notifies the topic.
func (m *Memory) RemovePresence(ctx context.Context, topic, key string) error {
	m.mu.Lock()
	if states, ok := m.presence[topic]; ok {
		delete(states, key)
		if len(states) == 0 {
			delete(m.presence, topic)
		}
	}
	m.mu.Unlock()
	return m.Publish(ctx, topic, Message{Kind: KindPresence})
}

// Presence returns a copy of the presence state of topic.
func (m *Memory) Presence(ctx context.Context, topic string) (map[string]PresenceState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]PresenceState, len(m.presence[topic]))
	for key, state := range m.presence[topic] {
		out[key] = clonePresence(state)
	}
	return out, nil
}

// ReapPresence drops presence entries not refreshed within maxAge and
// notifies the affected topics.
func (m *Memory) ReapPresence(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	var touched []string
	reaped := 0

	m.mu.Lock()
	for topic, states := range m.presence {
		before := reaped
		for key, state := range states {
			if SeenAt(state).Before(cutoff) {
				delete(states, key)
				reaped++
			}
		}
		if reaped > before {
			touched = append(touched, topic)
		}
		if len(states) == 0 {
			delete(m.presence, topic)
		}
	}
	m.mu.Unlock()

	for _, topic := range touched {
		if err := m.Publish(ctx, topic, Message{Kind: KindPresence}); err != nil {
			return reaped, err
		}
	}
	return reaped, nil
}

// Close stops every subscription.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := m.subs
	m.subs = make(map[string]map[*memorySub]struct{})
	m.mu.Unlock()

	for _, set := range subs {
		for sub := range set {
			sub.once.Do(func() { close(sub.ch) })
		}
	}
	return nil
}

func clonePresence(state PresenceState) PresenceState {
	out := make(PresenceState, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}
