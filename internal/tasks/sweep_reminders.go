package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarian/internal/reminders"
)

// ReminderSweeper runs one reminder sweep.
type ReminderSweeper interface {
	Sweep(ctx context.Context) (reminders.Result, error)
}

// SweepReporter records sweep outcomes, typically in the audit log.
type SweepReporter interface {
	LogReminder(action, description string, err error)
}

// SweepRemindersTask triggers a reminder sweep outside the cron schedule.
type SweepRemindersTask struct {
	RequestedBy uint `json:"requested_by,omitempty"`
}

// Config returns the queue configuration for sweep tasks.
func (t SweepRemindersTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sweep_reminders",
		MaxAttempts: 1,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SweepRemindersProcessor creates a processor function for SweepRemindersTask.
func SweepRemindersProcessor(sweeper ReminderSweeper, reporter SweepReporter) backlite.QueueProcessor[SweepRemindersTask] {
	return func(ctx context.Context, task SweepRemindersTask) error {
		if sweeper == nil {
			return fmt.Errorf("reminder sweeper not configured")
		}
		result, err := sweeper.Sweep(ctx)
		if reporter != nil {
			reporter.LogReminder("reminder_sweep_manual", result.String(), err)
		}
		if err != nil {
			return fmt.Errorf("sweep reminders: %w", err)
		}
		return nil
	}
}

// NewSweepRemindersQueue creates a backlite queue for sweep tasks.
func NewSweepRemindersQueue(sweeper ReminderSweeper, reporter SweepReporter) backlite.Queue {
	return backlite.NewQueue(SweepRemindersProcessor(sweeper, reporter))
}
