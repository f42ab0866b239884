// Package jobs runs the periodic maintenance sweeps on a cron schedule.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"

	"social-service/internal/observability"
)

// Job is one named sweep.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler runs every job on each tick of a cron expression.
type Scheduler struct {
	cron string
	jobs []Job
	now  func() time.Time
}

func NewScheduler(cronExpr string, jobs ...Job) (*Scheduler, error) {
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid cron expression: %q", cronExpr)
	}
	return &Scheduler{cron: cronExpr, jobs: jobs, now: time.Now}, nil
}

// Next returns the tick following ref.
func (s *Scheduler) Next(ref time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.cron, ref, false)
}

// Run blocks until ctx is done, running the jobs on every tick.
func (s *Scheduler) Run(ctx context.Context) {
	zap.L().Info("jobs_scheduler_started", zap.String("cron", s.cron), zap.Int("jobs", len(s.jobs)))
	for {
		next, err := s.Next(s.now().UTC())
		if err != nil {
			zap.L().Error("jobs_next_tick_failed", zap.String("cron", s.cron), zap.Error(err))
			next = s.now().Add(time.Minute)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			zap.L().Info("jobs_scheduler_stopping")
			return
		case <-timer.C:
			_ = s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every job once and joins their errors.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, job := range s.jobs {
		start := time.Now()
		err := job.Run(ctx)
		observability.IncJobRun(job.Name, err == nil)
		if err != nil {
			zap.L().Error("job_failed", zap.String("job", job.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", job.Name, err))
			continue
		}
		zap.L().Debug("job_done", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
	}
	return errors.Join(errs...)
}

// StoryPurger deletes expired stories.
type StoryPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// PurgeStories removes stories past their 24h lifetime.
func PurgeStories(repo StoryPurger) Job {
	return Job{Name: "story_purge", Run: func(ctx context.Context) error {
		n, err := repo.PurgeExpired(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		if n > 0 {
			zap.L().Info("stories_purged", zap.Int64("count", n))
		}
		return nil
	}}
}

// PresenceReaper is the subset of a broker that can drop stale presence.
type PresenceReaper interface {
	ReapPresence(ctx context.Context, maxAge time.Duration) (int, error)
}

// ReapPresence drops presence entries not refreshed within maxAge.
func ReapPresence(broker PresenceReaper, maxAge time.Duration) Job {
	return Job{Name: "presence_reap", Run: func(ctx context.Context) error {
		n, err := broker.ReapPresence(ctx, maxAge)
		if err != nil {
			return err
		}
		if n > 0 {
			zap.L().Info("presence_reaped", zap.Int("count", n))
		}
		return nil
	}}
}

// CallReaper ends calls nobody joined.
type CallReaper interface {
	ReapUnjoined(ctx context.Context, maxAge time.Duration) int
}

// ReapCalls drops calls started over HTTP but never joined within maxAge.
func ReapCalls(manager CallReaper, maxAge time.Duration) Job {
	return Job{Name: "call_reap", Run: func(ctx context.Context) error {
		if n := manager.ReapUnjoined(ctx, maxAge); n > 0 {
			zap.L().Info("calls_reaped", zap.Int("count", n))
		}
		return nil
	}}
}

// UsageSource reports stored bytes per bucket.
type UsageSource interface {
	Usage() (map[string]int64, error)
}

// RecordStorageUsage refreshes the per-bucket storage gauge.
func RecordStorageUsage(store UsageSource) Job {
	return Job{Name: "storage_usage", Run: func(ctx context.Context) error {
		usage, err := store.Usage()
		if err != nil {
			return err
		}
		for bucket, n := range usage {
			observability.SetStorageBytes(bucket, n)
		}
		return nil
	}}
}
