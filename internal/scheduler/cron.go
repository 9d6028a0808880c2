// Package scheduler runs the periodic jobs of the library: the reminder
// sweep and audit retention cleanup.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a standard five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// GetCronDescription returns a human-readable description of a cron schedule
func GetCronDescription(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "*/15 * * * *":
		return "Every 15 minutes"
	case "*/30 * * * *":
		return "Every 30 minutes"
	case "0 3 * * *":
		return "Daily at 03:00"
	case "0 0 * * *":
		return "Daily at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}

// GetNextRunTime calculates when a schedule fires next after from.
func GetNextRunTime(schedule string, from time.Time) (*time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(from)
	return &next, nil
}

// job runs one function on a cron schedule. A run that is still going when
// the next tick fires makes that tick a no-op.
type job struct {
	name     string
	schedule string
	run      func(ctx context.Context)

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

func newJob(name, schedule string, run func(ctx context.Context)) *job {
	return &job{
		name:     name,
		schedule: schedule,
		run:      run,
	}
}

// Start schedules the job. It stops when ctx is cancelled or Stop is called.
func (j *job) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.isRunning {
		return nil
	}

	if err := ValidateCronSchedule(j.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", j.schedule, err)
	}

	j.cron = cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	j.ctx, j.cancel = context.WithCancel(ctx)
	runCtx := j.ctx
	entryID, err := j.cron.AddFunc(j.schedule, func() { j.run(runCtx) })
	if err != nil {
		j.cancel()
		return fmt.Errorf("failed to schedule %s job: %w", j.name, err)
	}
	j.entryID = entryID

	j.cron.Start()
	j.isRunning = true

	nextRun, _ := GetNextRunTime(j.schedule, time.Now())
	log.Info().
		Str("job", j.name).
		Str("schedule", j.schedule).
		Str("description", GetCronDescription(j.schedule)).
		Time("next_run", *nextRun).
		Msg("scheduler started")

	go func() {
		<-runCtx.Done()
		j.Stop()
	}()

	return nil
}

// Stop waits for a running job to finish and stops scheduling it.
func (j *job) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.isRunning {
		return
	}

	done := j.cron.Stop()
	<-done.Done()
	j.cancel()

	j.isRunning = false
	log.Info().Str("job", j.name).Msg("scheduler stopped")
}

// IsRunning returns whether the scheduler is active
func (j *job) IsRunning() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.isRunning
}

// GetNextRunTime returns when the job fires next, or nil when stopped.
func (j *job) GetNextRunTime() *time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if !j.isRunning {
		return nil
	}
	next := j.cron.Entry(j.entryID).Next
	return &next
}
