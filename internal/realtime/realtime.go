// Package realtime is the channel-based publish/subscribe layer: change
// notifications for stored rows, ad-hoc broadcasts, and per-topic presence.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind classifies a message travelling on a topic.
type Kind string

const (
	KindChange    Kind = "change"
	KindBroadcast Kind = "broadcast"
	KindPresence  Kind = "presence_sync"
	KindControl   Kind = "control"
)

// Op is the row operation a change event reports.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Change describes one row mutation.
type Change struct {
	Table          string `json:"table"`
	Op             Op     `json:"op"`
	ResourceID     int    `json:"resource_id"`
	RecordID       int    `json:"record_id"`
	ActorID        int    `json:"actor_id"`
	ParticipantIDs []int  `json:"participant_ids,omitempty"`
}

// Message is the envelope carried by the broker.
type Message struct {
	Topic   string          `json:"topic"`
	Kind    Kind            `json:"kind"`
	Event   string          `json:"event,omitempty"`
	Change  *Change         `json:"change,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PresenceState is the ephemeral state a member publishes on a topic.
type PresenceState map[string]any

var ErrClosed = errors.New("realtime: broker closed")

// Publisher publishes messages to topics.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
}

// Broker is the full pub/sub plus presence contract.
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
	SetPresence(ctx context.Context, topic, key string, state PresenceState) error
	RemovePresence(ctx context.Context, topic, key string) error
	// TouchPresence re-stamps an existing entry without notifying the
	// topic. It reports false when key is not present.
	TouchPresence(ctx context.Context, topic, key string) (bool, error)
	Presence(ctx context.Context, topic string) (map[string]PresenceState, error)
	Close() error
}

// Reaper removes presence entries that were not refreshed in time.
type Reaper interface {
	ReapPresence(ctx context.Context, maxAge time.Duration) (int, error)
}

// SeenAtKey is stamped by brokers on every presence write.
const SeenAtKey = "seen_at"

// SeenAt returns when state was last written; zero when unknown.
func SeenAt(state PresenceState) time.Time {
	switch v := state[SeenAtKey].(type) {
	case int64:
		return time.UnixMilli(v)
	case float64:
		return time.UnixMilli(int64(v))
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.UnixMilli(n)
		}
	}
	return time.Time{}
}

// UserIDKey names the member in presence states keyed by connection.
const UserIDKey = "user_id"

// PresenceUserID returns the user a presence entry belongs to; 0 when
// unknown. Values decoded from JSON arrive as float64.
func PresenceUserID(state PresenceState) int {
	switch v := state[UserIDKey].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return 0
}

// Subscription delivers messages for one topic until closed.
type Subscription struct {
	C     <-chan Message
	topic string
	stop  func()
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string { return s.topic }

// Close ends delivery; C is closed afterwards.
func (s *Subscription) Close() {
	if s != nil && s.stop != nil {
		s.stop()
	}
}

// NewChange builds a change message for topic.
func NewChange(topic string, change Change) Message {
	return Message{Topic: topic, Kind: KindChange, Change: &change}
}

// NewBroadcast builds a broadcast message with a JSON payload.
func NewBroadcast(topic, event string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal broadcast payload: %w", err)
	}
	return Message{Topic: topic, Kind: KindBroadcast, Event: event, Payload: raw}, nil
}

// Control events. A kick targets one user; the others target everyone.
const (
	ControlKicked    = "kicked"
	ControlDissolved = "dissolved"
	ControlEnded     = "ended"
)

// NewControl builds a control message such as a kick or a dissolve.
func NewControl(topic, event string, targetUserID int) Message {
	raw, _ := json.Marshal(map[string]int{"user_id": targetUserID})
	return Message{Topic: topic, Kind: KindControl, Event: event, Payload: raw}
}

// ControlTarget extracts the target user of a control message; 0 means all.
func ControlTarget(msg Message) int {
	var body struct {
		UserID int `json:"user_id"`
	}
	_ = json.Unmarshal(msg.Payload, &body)
	return body.UserID
}

// Topic helpers shared by publishers and subscribers.
func ChatTopic(chatID int) string           { return fmt.Sprintf("chat:%d", chatID) }
func GroupTopic(groupID int) string         { return fmt.Sprintf("group:%d", groupID) }
func ChatPresenceTopic(chatID int) string   { return fmt.Sprintf("presence:chat:%d", chatID) }
func GroupPresenceTopic(groupID int) string { return fmt.Sprintf("presence:group:%d", groupID) }
func LiveTopic(streamID int) string         { return fmt.Sprintf("live:%d", streamID) }
func CallTopic(callID string) string        { return "call:" + callID }
