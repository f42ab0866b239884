// Package convsync keeps a conversation's message list in step with remote
// inserts and deletes by refetching the whole list on every matching change.
package convsync

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"social-service/internal/observability"
	"social-service/internal/realtime"
)

// Fetcher loads the full, visible message list.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Scope decides which change events concern the conversation.
type Scope struct {
	Table        string
	ResourceID   int
	Participants []int
	Ops          []realtime.Op
}

// DefaultOps are the operations that trigger a refetch when Scope.Ops is empty.
var DefaultOps = []realtime.Op{realtime.OpInsert, realtime.OpDelete}

// Matches reports whether change falls inside the scope.
func (s Scope) Matches(change *realtime.Change) bool {
	if change == nil {
		return false
	}
	if s.Table != "" && change.Table != s.Table {
		return false
	}
	ops := s.Ops
	if len(ops) == 0 {
		ops = DefaultOps
	}
	if !containsOp(ops, change.Op) {
		return false
	}
	if change.ResourceID == s.ResourceID {
		return true
	}
	return len(s.Participants) > 0 && sameMembers(s.Participants, change.ParticipantIDs)
}

// Sync is a live, refetch-on-change view of one conversation.
type Sync[T any] struct {
	scope    Scope
	fetch    Fetcher[T]
	onUpdate func([]T)
	sub      *realtime.Subscription

	mu       sync.RWMutex
	messages []T

	cancel context.CancelFunc
	done   chan struct{}
}

// Start subscribes to topic, runs the initial fetch, and keeps refetching
// until Close. onUpdate receives every fresh snapshot, including the first.
func Start[T any](ctx context.Context, broker realtime.Broker, topic string, scope Scope, fetch Fetcher[T], onUpdate func([]T)) (*Sync[T], error) {
	sub, err := broker.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Sync[T]{
		scope:    scope,
		fetch:    fetch,
		onUpdate: onUpdate,
		sub:      sub,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	s.refetch(runCtx)
	go s.run(runCtx)
	return s, nil
}

// Messages returns the latest snapshot.
func (s *Sync[T]) Messages() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.messages))
	copy(out, s.messages)
	return out
}

// Close tears down the subscription and waits for the refetch loop.
func (s *Sync[T]) Close() {
	s.cancel()
	s.sub.Close()
	<-s.done
}

func (s *Sync[T]) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.sub.C:
			if !ok {
				zap.L().Info("convsync_subscription_closed", zap.String("topic", s.sub.Topic()))
				return
			}
			if msg.Kind != realtime.KindChange || !s.scope.Matches(msg.Change) {
				continue
			}
			if !s.drain() {
				return
			}
			s.refetch(ctx)
		}
	}
}

// drain swallows events already queued so a burst costs one refetch. It
// reports false once the subscription is gone.
func (s *Sync[T]) drain() bool {
	for {
		select {
		case _, ok := <-s.sub.C:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}

func (s *Sync[T]) refetch(ctx context.Context) {
	msgs, err := s.fetch(ctx)
	if ctx.Err() == nil {
		observability.IncSyncRefetch(s.scope.Table, err == nil)
	}
	if err != nil {
		if ctx.Err() == nil {
			zap.L().Error("convsync_fetch_failed", zap.String("topic", s.sub.Topic()), zap.Error(err))
		}
		return
	}
	s.mu.Lock()
	s.messages = msgs
	s.mu.Unlock()
	if s.onUpdate != nil {
		s.onUpdate(msgs)
	}
}

func containsOp(ops []realtime.Op, op realtime.Op) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func sameMembers(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}
