// Package calls tracks call sessions: who is in a call, their media UI
// state, and the signalling payloads relayed between them.
package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"social-service/internal/observability"
	"social-service/internal/realtime"
)

var (
	ErrCallNotFound   = errors.New("call not found")
	ErrNotParticipant = errors.New("not a call participant")
	ErrInvalidSignal  = errors.New("invalid signal")
	ErrInvalidQuality = errors.New("invalid quality preset")
)

// Kind is what the call hangs off.
type Kind string

const (
	KindDirect Kind = "direct"
	KindGroup  Kind = "group"
	KindCircle Kind = "circle"
)

// Quality is a named capture preset.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Preset is the capture constraint set behind a Quality.
type Preset struct {
	Width       int `json:"width"`
	Height      int `json:"height"`
	FrameRate   int `json:"frame_rate"`
	BitrateKbps int `json:"bitrate_kbps"`
}

var presets = map[Quality]Preset{
	QualityLow:    {Width: 640, Height: 360, FrameRate: 15, BitrateKbps: 300},
	QualityMedium: {Width: 1280, Height: 720, FrameRate: 30, BitrateKbps: 1200},
	QualityHigh:   {Width: 1920, Height: 1080, FrameRate: 30, BitrateKbps: 2500},
}

// PresetFor returns the constraints of q.
func PresetFor(q Quality) (Preset, error) {
	p, ok := presets[q]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrInvalidQuality, q)
	}
	return p, nil
}

// SignalType is a WebRTC negotiation message.
type SignalType string

const (
	SignalOffer        SignalType = "offer"
	SignalAnswer       SignalType = "answer"
	SignalICECandidate SignalType = "ice-candidate"
	SignalHangup       SignalType = "hangup"
)

// Signal is relayed verbatim. To == 0 addresses every other participant.
type Signal struct {
	Type    SignalType      `json:"type"`
	From    int             `json:"from"`
	To      int             `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (s Signal) Validate() error {
	switch s.Type {
	case SignalOffer, SignalAnswer, SignalICECandidate:
		if len(s.Payload) == 0 {
			return fmt.Errorf("%w: %s without payload", ErrInvalidSignal, s.Type)
		}
	case SignalHangup:
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidSignal, s.Type)
	}
	if s.From == 0 {
		return fmt.Errorf("%w: missing sender", ErrInvalidSignal)
	}
	return nil
}

// For reports whether userID should receive s.
func (s Signal) For(userID int) bool {
	return s.From != userID && (s.To == 0 || s.To == userID)
}

// Participant is one member's call UI state.
type Participant struct {
	UserID        int       `json:"user_id"`
	Muted         bool      `json:"muted"`
	CameraOff     bool      `json:"camera_off"`
	ScreenSharing bool      `json:"screen_sharing"`
	AudioDeviceID string    `json:"audio_device_id,omitempty"`
	VideoDeviceID string    `json:"video_device_id,omitempty"`
	Quality       Quality   `json:"quality"`
	JoinedAt      time.Time `json:"joined_at"`
}

// StateUpdate carries the fields a participant changes; nil means unchanged.
type StateUpdate struct {
	Muted         *bool    `json:"muted,omitempty"`
	CameraOff     *bool    `json:"camera_off,omitempty"`
	ScreenSharing *bool    `json:"screen_sharing,omitempty"`
	AudioDeviceID *string  `json:"audio_device_id,omitempty"`
	VideoDeviceID *string  `json:"video_device_id,omitempty"`
	Quality       *Quality `json:"quality,omitempty"`
}

func (u StateUpdate) apply(p *Participant) error {
	if u.Quality != nil {
		if _, err := PresetFor(*u.Quality); err != nil {
			return err
		}
		p.Quality = *u.Quality
	}
	if u.Muted != nil {
		p.Muted = *u.Muted
	}
	if u.CameraOff != nil {
		p.CameraOff = *u.CameraOff
	}
	if u.ScreenSharing != nil {
		p.ScreenSharing = *u.ScreenSharing
	}
	if u.AudioDeviceID != nil {
		p.AudioDeviceID = *u.AudioDeviceID
	}
	if u.VideoDeviceID != nil {
		p.VideoDeviceID = *u.VideoDeviceID
	}
	return nil
}

// Call is an active call.
type Call struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	ResourceID int       `json:"resource_id"`
	StartedBy  int       `json:"started_by"`
	StartedAt  time.Time `json:"started_at"`

	participants map[int]*Participant
}

// Event names published on a call topic.
const (
	EventJoined = "participant_joined"
	EventLeft   = "participant_left"
	EventState  = "participant_state"
	EventSignal = "signal"
	EventEnded  = "call_ended"
)

// Manager owns the active calls of this instance.
type Manager struct {
	pub realtime.Publisher

	mu    sync.RWMutex
	calls map[string]*Call
}

func NewManager(pub realtime.Publisher) *Manager {
	return &Manager{pub: pub, calls: make(map[string]*Call)}
}

// Start opens a call and returns a copy of it.
func (m *Manager) Start(kind Kind, resourceID, startedBy int) Call {
	call := &Call{
		ID:           uuid.NewString(),
		Kind:         kind,
		ResourceID:   resourceID,
		StartedBy:    startedBy,
		StartedAt:    time.Now().UTC(),
		participants: make(map[int]*Participant),
	}
	m.mu.Lock()
	m.calls[call.ID] = call
	active := len(m.calls)
	m.mu.Unlock()
	observability.SetActiveCalls(active)
	zap.L().Info("call_started", zap.String("call_id", call.ID), zap.String("kind", string(kind)), zap.Int("resource_id", resourceID))
	return *call
}

// Get returns a copy of the call.
func (m *Manager) Get(callID string) (Call, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	call, ok := m.calls[callID]
	if !ok {
		return Call{}, ErrCallNotFound
	}
	return *call, nil
}

// Active returns how many calls are open.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// Participants lists the call members ordered by join time.
func (m *Manager) Participants(callID string) ([]Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	call, ok := m.calls[callID]
	if !ok {
		return nil, ErrCallNotFound
	}
	return snapshot(call), nil
}

// Join adds userID with default state. Joining twice keeps the old state.
func (m *Manager) Join(ctx context.Context, callID string, userID int) (Participant, error) {
	m.mu.Lock()
	call, ok := m.calls[callID]
	if !ok {
		m.mu.Unlock()
		return Participant{}, ErrCallNotFound
	}
	p, ok := call.participants[userID]
	if !ok {
		p = &Participant{UserID: userID, Quality: QualityMedium, JoinedAt: time.Now().UTC()}
		call.participants[userID] = p
	}
	out := *p
	m.mu.Unlock()

	m.broadcast(ctx, callID, EventJoined, out)
	return out, nil
}

// Update applies a UI state change for userID.
func (m *Manager) Update(ctx context.Context, callID string, userID int, upd StateUpdate) (Participant, error) {
	m.mu.Lock()
	call, ok := m.calls[callID]
	if !ok {
		m.mu.Unlock()
		return Participant{}, ErrCallNotFound
	}
	p, ok := call.participants[userID]
	if !ok {
		m.mu.Unlock()
		return Participant{}, ErrNotParticipant
	}
	next := *p
	if err := upd.apply(&next); err != nil {
		m.mu.Unlock()
		return Participant{}, err
	}
	*p = next
	m.mu.Unlock()

	m.broadcast(ctx, callID, EventState, next)
	return next, nil
}

// Leave removes userID. The call ends when its last participant leaves.
func (m *Manager) Leave(ctx context.Context, callID string, userID int) error {
	m.mu.Lock()
	call, ok := m.calls[callID]
	if !ok {
		m.mu.Unlock()
		return ErrCallNotFound
	}
	if _, ok := call.participants[userID]; !ok {
		m.mu.Unlock()
		return ErrNotParticipant
	}
	delete(call.participants, userID)
	ended := len(call.participants) == 0
	if ended {
		delete(m.calls, callID)
	}
	active := len(m.calls)
	m.mu.Unlock()
	observability.SetActiveCalls(active)

	m.broadcast(ctx, callID, EventLeft, map[string]int{"user_id": userID})
	if ended {
		m.broadcast(ctx, callID, EventEnded, map[string]string{"call_id": callID})
		zap.L().Info("call_ended", zap.String("call_id", callID))
	}
	return nil
}

// ReapUnjoined ends calls that nobody joined within maxAge of starting.
func (m *Manager) ReapUnjoined(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)
	var reaped []string
	m.mu.Lock()
	for id, call := range m.calls {
		if len(call.participants) == 0 && call.StartedAt.Before(cutoff) {
			delete(m.calls, id)
			reaped = append(reaped, id)
		}
	}
	active := len(m.calls)
	m.mu.Unlock()
	if len(reaped) == 0 {
		return 0
	}
	observability.SetActiveCalls(active)

	for _, id := range reaped {
		m.broadcast(ctx, id, EventEnded, map[string]string{"call_id": id})
		zap.L().Info("call_abandoned", zap.String("call_id", id))
	}
	return len(reaped)
}

// Relay forwards a signal from a participant. Hangup also leaves the call.
func (m *Manager) Relay(ctx context.Context, callID string, sig Signal) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	m.mu.RLock()
	call, ok := m.calls[callID]
	var member bool
	if ok {
		_, member = call.participants[sig.From]
	}
	m.mu.RUnlock()
	if !ok {
		return ErrCallNotFound
	}
	if !member {
		return ErrNotParticipant
	}

	msg, err := realtime.NewBroadcast(realtime.CallTopic(callID), EventSignal, sig)
	if err != nil {
		return err
	}
	if err := m.pub.Publish(ctx, realtime.CallTopic(callID), msg); err != nil {
		return fmt.Errorf("relay signal: %w", err)
	}
	if sig.Type == SignalHangup {
		return m.Leave(ctx, callID, sig.From)
	}
	return nil
}

func (m *Manager) broadcast(ctx context.Context, callID, event string, payload any) {
	msg, err := realtime.NewBroadcast(realtime.CallTopic(callID), event, payload)
	if err == nil {
		err = m.pub.Publish(ctx, realtime.CallTopic(callID), msg)
	}
	if err != nil {
		zap.L().Warn("call_broadcast_failed", zap.String("call_id", callID), zap.String("event", event), zap.Error(err))
	}
}

func snapshot(call *Call) []Participant {
	out := make([]Participant, 0, len(call.participants))
	for _, p := range call.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}
