package scheduler

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/librarian/internal/reminders"
)

// ReminderSweeper runs one reminder sweep.
type ReminderSweeper interface {
	Sweep(ctx context.Context) (reminders.Result, error)
}

// SweepReporter records sweep outcomes.
type SweepReporter interface {
	LogReminder(action, description string, err error)
}

// ReminderSweepScheduler sweeps reminders on a cron schedule.
type ReminderSweepScheduler struct {
	*job
	sweeper  ReminderSweeper
	reporter SweepReporter
}

// NewReminderSweepScheduler creates a new scheduler instance. reporter may be nil.
func NewReminderSweepScheduler(schedule string, sweeper ReminderSweeper, reporter SweepReporter) *ReminderSweepScheduler {
	s := &ReminderSweepScheduler{sweeper: sweeper, reporter: reporter}
	s.job = newJob("reminder_sweep", schedule, func(ctx context.Context) {
		_, _ = s.RunNow(ctx)
	})
	return s
}

// RunNow performs a sweep immediately and reports its outcome.
func (s *ReminderSweepScheduler) RunNow(ctx context.Context) (reminders.Result, error) {
	result, err := s.sweeper.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reminder sweep failed")
	}
	if s.reporter != nil && (err != nil || result != (reminders.Result{})) {
		s.reporter.LogReminder("reminder_sweep", result.String(), err)
	}
	return result, err
}
