package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Direct sends notices on a background goroutine so a slow transport never
// holds up the request that triggered them. Failures are logged and
// swallowed so a completed return is never reported as failed.
type Direct struct {
	sender  Sender
	pending sync.WaitGroup
}

func NewDirect(sender Sender) *Direct {
	return &Direct{sender: sender}
}

func (d *Direct) DueReminder(ctx context.Context, to, title string, due time.Time) {
	d.deliver(ctx, DueReminderMessage(to, title, due))
}

func (d *Direct) OverdueNotice(ctx context.Context, to, title string, fine int) {
	d.deliver(ctx, OverdueNoticeMessage(to, title, fine))
}

// Wait blocks until every notice handed to d has been attempted.
func (d *Direct) Wait() {
	d.pending.Wait()
}

func (d *Direct) deliver(ctx context.Context, msg Message) {
	ctx = context.WithoutCancel(ctx)
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		if err := Deliver(ctx, d.sender, msg); err != nil {
			log.Warn().Err(err).Str("kind", string(msg.Kind)).Str("to", msg.To).Msg("notification not delivered")
		}
	}()
}
