package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/librarian/internal/notify"
)

// SendNotificationTask delivers one notice in the background.
type SendNotificationTask struct {
	Message notify.Message `json:"message"`
}

// Config allows a single attempt; notices are best-effort.
func (t SendNotificationTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "send_notification",
		MaxAttempts: 1,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: true,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SendNotificationProcessor creates a processor function for SendNotificationTask.
func SendNotificationProcessor(sender notify.Sender) backlite.QueueProcessor[SendNotificationTask] {
	return func(ctx context.Context, task SendNotificationTask) error {
		if sender == nil {
			return fmt.Errorf("notification sender not configured")
		}
		if err := notify.Deliver(ctx, sender, task.Message); err != nil {
			log.Warn().Err(err).Str("kind", string(task.Message.Kind)).Str("to", task.Message.To).
				Msg("notification not delivered")
			return err
		}
		return nil
	}
}

// NewSendNotificationQueue creates a backlite queue for notification tasks.
func NewSendNotificationQueue(sender notify.Sender) backlite.Queue {
	return backlite.NewQueue(SendNotificationProcessor(sender))
}

// Enqueuer adds tasks to the queue.
type Enqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// QueuedNotifier hands notices to the task queue. Enqueue failures are
// logged; the caller's operation has already succeeded.
type QueuedNotifier struct {
	queue Enqueuer
}

func NewQueuedNotifier(queue Enqueuer) *QueuedNotifier {
	return &QueuedNotifier{queue: queue}
}

func (n *QueuedNotifier) DueReminder(ctx context.Context, to, title string, due time.Time) {
	n.enqueue(ctx, notify.DueReminderMessage(to, title, due))
}

func (n *QueuedNotifier) OverdueNotice(ctx context.Context, to, title string, fine int) {
	n.enqueue(ctx, notify.OverdueNoticeMessage(to, title, fine))
}

func (n *QueuedNotifier) enqueue(ctx context.Context, msg notify.Message) {
	_, err := n.queue.Add(SendNotificationTask{Message: msg}).Ctx(context.WithoutCancel(ctx)).Save()
	if err != nil {
		log.Error().Err(err).Str("kind", string(msg.Kind)).Str("to", msg.To).Msg("failed to enqueue notification")
	}
}
