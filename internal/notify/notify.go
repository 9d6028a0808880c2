// Package notify delivers due reminders and overdue notices to borrowers.
//
// A Sender does the actual delivery (SMTP, AMQP or the log). Direct adapts a
// Sender to library.Notifier for synchronous best-effort dispatch; the tasks
// package provides the queued variant.
package notify

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mrlokans/librarian/internal/config"
)

// Kind identifies a notice.
type Kind string

const (
	KindDueReminder   Kind = "due_reminder"
	KindOverdueNotice Kind = "overdue_notice"
)

// Sender delivers a single notice and reports failure.
type Sender interface {
	SendDueReminder(ctx context.Context, to, title string, due time.Time) error
	SendOverdueNotice(ctx context.Context, to, title string, fine int) error
}

// Transport is a Sender holding a connection that must be released.
type Transport interface {
	Sender
	io.Closer
}

// Message is the serialized form of a notice, used on the AMQP queue and
// in queued delivery tasks.
type Message struct {
	Kind      Kind       `json:"kind"`
	To        string     `json:"to"`
	BookTitle string     `json:"bookTitle"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Fine      int        `json:"fine,omitempty"`
	Subject   string     `json:"subject,omitempty"`
	Body      string     `json:"body,omitempty"`
}

// DueReminderMessage builds the message for a due reminder.
func DueReminderMessage(to, title string, due time.Time) Message {
	due = due.UTC()
	return Message{
		Kind:      KindDueReminder,
		To:        to,
		BookTitle: title,
		DueDate:   &due,
		Subject:   DueReminderSubject,
		Body:      DueReminderBody(title, due),
	}
}

// OverdueNoticeMessage builds the message for an overdue notice.
func OverdueNoticeMessage(to, title string, fine int) Message {
	return Message{
		Kind:      KindOverdueNotice,
		To:        to,
		BookTitle: title,
		Fine:      fine,
		Subject:   OverdueNoticeSubject,
		Body:      OverdueNoticeBody(title, fine),
	}
}

// Deliver sends a message through the matching Sender method.
func Deliver(ctx context.Context, sender Sender, msg Message) error {
	switch msg.Kind {
	case KindDueReminder:
		if msg.DueDate == nil {
			return fmt.Errorf("due reminder for %s has no due date", msg.To)
		}
		return sender.SendDueReminder(ctx, msg.To, msg.BookTitle, *msg.DueDate)
	case KindOverdueNotice:
		return sender.SendOverdueNotice(ctx, msg.To, msg.BookTitle, msg.Fine)
	default:
		return fmt.Errorf("unknown notice kind %q", msg.Kind)
	}
}

// NewTransport builds the sender selected by NOTIFY_TRANSPORT.
func NewTransport(cfg *config.Config) (Transport, error) {
	switch cfg.Notify.Transport {
	case config.NotifyTransportSMTP:
		return NewSMTPSender(cfg.SMTP)
	case config.NotifyTransportAMQP:
		return NewAMQPSender(cfg.AMQP.URL, cfg.AMQP.Queue)
	case config.NotifyTransportLog, "":
		return NewLogSender(), nil
	default:
		return nil, fmt.Errorf("unknown notify transport %q", cfg.Notify.Transport)
	}
}
