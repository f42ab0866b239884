package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a Broker backed by Redis pub/sub with presence kept in hashes,
// so several service instances share topics.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps a connected client. ttl bounds how long presence survives
// an instance that died without untracking.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func channelKey(topic string) string  { return "rt:" + topic }
func presenceKey(topic string) string { return "rt:presence:" + topic }

// Publish sends msg to every instance subscribed to topic.
func (r *Redis) Publish(ctx context.Context, topic string, msg Message) error {
	msg.Topic = topic
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal realtime message: %w", err)
	}
	return r.client.Publish(ctx, channelKey(topic), raw).Err()
}

// Subscribe opens a Redis subscription and decodes its payloads.
func (r *Redis) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ps := r.client.Subscribe(ctx, channelKey(topic))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan Message, subscriptionBuffer)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer close(out)
		in := ps.Channel()
		for {
			select {
			case <-done:
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					zap.L().Warn("realtime_decode_failed", zap.String("topic", topic), zap.Error(err))
					continue
				}
				select {
				case out <- msg:
				case <-done:
					return
				default:
					zap.L().Warn("realtime_subscriber_overflow", zap.String("topic", topic), zap.String("kind", string(msg.Kind)))
				}
			}
		}
	}()

	return &Subscription{
		C:     out,
		topic: topic,
		stop: func() {
			once.Do(func() {
				close(done)
				_ = ps.Close()
			})
		},
	}, nil
}

// SetPresence stores state in the topic hash and notifies the topic.
func (r *Redis) SetPresence(ctx context.Context, topic, key string, state PresenceState) error {
	stamped := make(PresenceState, len(state)+1)
	for k, v := range state {
		stamped[k] = v
	}
	stamped[SeenAtKey] = time.Now().UnixMilli()
	raw, err := json.Marshal(stamped)
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, presenceKey(topic), key, raw)
	if r.ttl > 0 {
		pipe.Expire(ctx, presenceKey(topic), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return r.Publish(ctx, topic, Message{Kind: KindPresence})
}

// touchScript rewrites seen_at of an existing field atomically so a
// concurrent remove cannot be undone by the refresh.
var touchScript = redis.NewScript(`
local raw = redis.call('HGET', KEYS[1], ARGV[1])
if not raw then return 0 end
local state = cjson.decode(raw)
state['seen_at'] = tonumber(ARGV[2])
redis.call('HSET', KEYS[1], ARGV[1], cjson.encode(state))
if tonumber(ARGV[3]) > 0 then redis.call('PEXPIRE', KEYS[1], ARGV[3]) end
return 1
`)

// TouchPresence refreshes seen_at of key without publishing.
func (r *Redis) TouchPresence(ctx context.Context, topic, key string) (bool, error) {
	n, err := touchScript.Run(ctx, r.client, []string{presenceKey(topic)},
		key, time.Now().UnixMilli(), r.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("touch presence: %w", err)
	}
	return n == 1, nil
}

// RemovePresence deletes key from the topic hash and notifies the topic.
func (r *Redis) RemovePresence(ctx context.Context, topic, key string) error {
	if err := r.client.HDel(ctx, presenceKey(topic), key).Err(); err != nil {
		return fmt.Errorf("remove presence: %w", err)
	}
	return r.Publish(ctx, topic, Message{Kind: KindPresence})
}

// Presence reads the whole presence hash of topic.
func (r *Redis) Presence(ctx context.Context, topic string) (map[string]PresenceState, error) {
	raw, err := r.client.HGetAll(ctx, presenceKey(topic)).Result()
	if err != nil {
		return nil, fmt.Errorf("read presence: %w", err)
	}
	out := make(map[string]PresenceState, len(raw))
	for key, val := range raw {
		var state PresenceState
		if err := json.Unmarshal([]byte(val), &state); err != nil {
			continue
		}
		out[key] = state
	}
	return out, nil
}

// ReapPresence scans every presence hash and drops fields older than maxAge.
func (r *Redis) ReapPresence(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	reaped := 0
	iter := r.client.Scan(ctx, 0, presenceKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		hashKey := iter.Val()
		topic := strings.TrimPrefix(hashKey, presenceKey(""))
		states, err := r.Presence(ctx, topic)
		if err != nil {
			return reaped, err
		}
		var stale []string
		for key, state := range states {
			if SeenAt(state).Before(cutoff) {
				stale = append(stale, key)
			}
		}
		if len(stale) == 0 {
			continue
		}
		if err := r.client.HDel(ctx, hashKey, stale...).Err(); err != nil {
			return reaped, fmt.Errorf("reap presence: %w", err)
		}
		reaped += len(stale)
		if err := r.Publish(ctx, topic, Message{Kind: KindPresence}); err != nil {
			return reaped, err
		}
	}
	return reaped, iter.Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
