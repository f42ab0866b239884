// Package typing implements the "X is typing" indicator on top of a joined
// presence channel.
package typing

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"social-service/internal/models"
	"social-service/internal/realtime"
)

// DefaultIdle is how long typing stays on after the last keystroke.
const DefaultIdle = 2 * time.Second

type Option func(*Indicator)

// WithTimeout overrides the inactivity window.
func WithTimeout(d time.Duration) Option {
	return func(i *Indicator) {
		if d > 0 {
			i.idle = d
		}
	}
}

// WithKey sets the presence key. Connections of the same user need
// distinct keys so closing one tab does not clear the other.
func WithKey(key string) Option {
	return func(i *Indicator) {
		if key != "" {
			i.key = key
		}
	}
}

// Indicator tracks the local user's typing state and the remote typists of
// one conversation. Publishing and presence reads share the same channel.
type Indicator struct {
	ch   *realtime.Channel
	self models.Typist
	key  string
	idle time.Duration

	// sendMu orders state changes with their presence writes, so the last
	// write always matches the local state.
	sendMu sync.Mutex

	mu     sync.Mutex
	typing bool
	timer  *time.Timer
	gen    uint64
	closed bool
	remote []models.Typist
}

func New(ch *realtime.Channel, self models.Typist, opts ...Option) *Indicator {
	i := &Indicator{
		ch:   ch,
		self: self,
		key:  strconv.Itoa(self.UserID),
		idle: DefaultIdle,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Keystroke marks the user as typing. Presence is only published on the
// false to true transition; every call re-arms the idle timer.
func (i *Indicator) Keystroke(ctx context.Context) error {
	i.sendMu.Lock()
	defer i.sendMu.Unlock()

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return realtime.ErrClosed
	}
	publish := !i.typing
	i.typing = true
	i.gen++
	gen := i.gen
	if i.timer != nil {
		i.timer.Stop()
	}
	i.timer = time.AfterFunc(i.idle, func() { i.expire(gen) })
	i.mu.Unlock()

	if !publish {
		return nil
	}
	return i.ch.Track(ctx, i.key, i.state(true))
}

// Sent clears the typing state immediately.
func (i *Indicator) Sent(ctx context.Context) error {
	return i.clear(ctx, 0)
}

// Typing reports the local typing state.
func (i *Indicator) Typing() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.typing
}

// HandlePresenceSync rebuilds the remote typing list from the channel's
// presence state. The local user is never part of the result.
func (i *Indicator) HandlePresenceSync(ctx context.Context) ([]models.Typist, error) {
	state, err := i.ch.PresenceState(ctx)
	if err != nil {
		return nil, err
	}
	typists := RemoteTypists(state, i.self.UserID)

	i.mu.Lock()
	i.remote = typists
	i.mu.Unlock()
	return typists, nil
}

// Remote returns the last list computed by HandlePresenceSync.
func (i *Indicator) Remote() []models.Typist {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]models.Typist, len(i.remote))
	copy(out, i.remote)
	return out
}

// Close stops the timer and leaves the presence channel.
func (i *Indicator) Close(ctx context.Context) error {
	i.sendMu.Lock()
	defer i.sendMu.Unlock()

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	i.typing = false
	if i.timer != nil {
		i.timer.Stop()
	}
	i.mu.Unlock()
	return i.ch.Close(ctx)
}

func (i *Indicator) expire(gen uint64) {
	if err := i.clear(context.Background(), gen); err != nil {
		zap.L().Warn("typing_clear_failed", zap.String("topic", i.ch.Topic()), zap.Error(err))
	}
}

// clear turns typing off. A non-zero gen only applies if no keystroke
// happened since the timer was armed.
func (i *Indicator) clear(ctx context.Context, gen uint64) error {
	i.sendMu.Lock()
	defer i.sendMu.Unlock()

	i.mu.Lock()
	if i.closed || !i.typing || (gen != 0 && gen != i.gen) {
		i.mu.Unlock()
		return nil
	}
	i.typing = false
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	i.mu.Unlock()
	return i.ch.Track(ctx, i.key, i.state(false))
}

func (i *Indicator) state(typing bool) realtime.PresenceState {
	return realtime.PresenceState{
		realtime.UserIDKey: i.self.UserID,
		"username":         i.self.Username,
		"typing":           typing,
	}
}

type presenceEntry struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Typing   bool   `json:"typing"`
}

// RemoteTypists extracts everyone but selfID whose presence says typing.
// A user typing from several connections is listed once.
func RemoteTypists(state map[string]realtime.PresenceState, selfID int) []models.Typist {
	out := make([]models.Typist, 0, len(state))
	seen := make(map[int]bool, len(state))
	for _, raw := range state {
		b, err := json.Marshal(raw)
		if err != nil {
			continue
		}
		var entry presenceEntry
		if err := json.Unmarshal(b, &entry); err != nil {
			continue
		}
		if !entry.Typing || entry.UserID == selfID || entry.UserID == 0 || seen[entry.UserID] {
			continue
		}
		seen[entry.UserID] = true
		out = append(out, models.Typist{UserID: entry.UserID, Username: entry.Username})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].UserID < out[b].UserID })
	return out
}
