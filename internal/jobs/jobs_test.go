package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-service/internal/realtime"
)

type fakePurger struct {
	n   int64
	err error
}

func (f fakePurger) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return f.n, f.err
}

type fakeUsage map[string]int64

func (f fakeUsage) Usage() (map[string]int64, error) { return f, nil }

func TestNewSchedulerRejectsBadCron(t *testing.T) {
	_, err := NewScheduler("every minute")
	assert.Error(t, err)
}

func TestNext(t *testing.T) {
	s, err := NewScheduler("*/5 * * * *")
	require.NoError(t, err)

	ref := time.Date(2024, 5, 1, 10, 2, 30, 0, time.UTC)
	next, err := s.Next(ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC), next)
}

func TestRunOnceJoinsErrors(t *testing.T) {
	boom := errors.New("db down")
	var ran []string
	s, err := NewScheduler("* * * * *",
		Job{Name: "a", Run: func(ctx context.Context) error { ran = append(ran, "a"); return nil }},
		PurgeStories(fakePurger{err: boom}),
		Job{Name: "c", Run: func(ctx context.Context) error { ran = append(ran, "c"); return nil }},
	)
	require.NoError(t, err)

	err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "story_purge")
	assert.Equal(t, []string{"a", "c"}, ran)
}

func TestBuiltinJobs(t *testing.T) {
	ctx := context.Background()
	broker := realtime.NewMemory()
	require.NoError(t, broker.SetPresence(ctx, realtime.LiveTopic(1), "1", realtime.PresenceState{}))
	time.Sleep(5 * time.Millisecond)

	s, err := NewScheduler("* * * * *",
		PurgeStories(fakePurger{n: 3}),
		ReapPresence(broker, time.Millisecond),
		RecordStorageUsage(fakeUsage{"avatars": 10}),
	)
	require.NoError(t, err)
	require.NoError(t, s.RunOnce(ctx))

	state, err := broker.Presence(ctx, realtime.LiveTopic(1))
	require.NoError(t, err)
	assert.Empty(t, state)
}

type fakeCalls struct{ maxAge time.Duration }

func (f *fakeCalls) ReapUnjoined(ctx context.Context, maxAge time.Duration) int {
	f.maxAge = maxAge
	return 2
}

func TestReapCallsPassesDeadline(t *testing.T) {
	calls := &fakeCalls{}
	job := ReapCalls(calls, 90*time.Second)
	assert.Equal(t, "call_reap", job.Name)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 90*time.Second, calls.maxAge)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := NewScheduler("* * * * *")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
