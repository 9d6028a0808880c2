package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// LogSender writes notices to the log instead of delivering them.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (LogSender) SendDueReminder(_ context.Context, to, title string, due time.Time) error {
	log.Info().
		Str("to", to).
		Str("title", title).
		Time("due", due).
		Msg(DueReminderSubject)
	return nil
}

func (LogSender) SendOverdueNotice(_ context.Context, to, title string, fine int) error {
	log.Info().
		Str("to", to).
		Str("title", title).
		Int("fine", fine).
		Msg(OverdueNoticeSubject)
	return nil
}

func (LogSender) Close() error {
	return nil
}
