// Package reminders turns reminder rows and open loans into due-soon and
// overdue notices. Every notice is claimed through a unique reminder row
// before it is sent, so repeated or concurrent sweeps never send twice.
package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
	"github.com/mrlokans/librarian/internal/notify"
)

// LoanStore lists open loans relevant to a sweep.
type LoanStore interface {
	OpenOverdue(ctx context.Context, now time.Time) ([]entities.Borrow, error)
	OpenDueBetween(ctx context.Context, from, to time.Time) ([]entities.Borrow, error)
}

// Store persists reminder rows.
type Store interface {
	EnsureDueSoon(ctx context.Context, borrowID uint, at time.Time) (bool, error)
	PendingDueSoon(ctx context.Context, now time.Time) ([]entities.Reminder, error)
	RecordOverdue(ctx context.Context, borrowID uint, fine int, at time.Time) (uint, error)
	MarkSent(ctx context.Context, id uint, at time.Time) error
	MarkSkipped(ctx context.Context, id uint, reason string) error
}

// Result counts what a sweep did.
type Result struct {
	DueSoonSent int `json:"dueSoonSent"`
	OverdueSent int `json:"overdueSent"`
	Backfilled  int `json:"backfilled"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
}

func (r Result) String() string {
	return fmt.Sprintf("sent %d due soon, %d overdue; %d skipped, %d failed, %d backfilled",
		r.DueSoonSent, r.OverdueSent, r.Skipped, r.Failed, r.Backfilled)
}

// Sweeper emits pending notices. Sweeps are serialized per Sweeper.
type Sweeper struct {
	loans  LoanStore
	store  Store
	sender notify.Sender
	policy library.Policy
	now    func() time.Time

	mu sync.Mutex
}

func NewSweeper(loans LoanStore, store Store, sender notify.Sender, policy library.Policy) *Sweeper {
	return &Sweeper{
		loans:  loans,
		store:  store,
		sender: sender,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source.
func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}

// Sweep backfills missing due-soon rows, then delivers due-soon reminders
// and overdue notices that are owed at the current time.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var result Result

	if err := s.backfill(ctx, now, &result); err != nil {
		return result, err
	}
	if err := s.sendDueSoon(ctx, now, &result); err != nil {
		return result, err
	}
	if err := s.sendOverdue(ctx, now, &result); err != nil {
		return result, err
	}

	log.Info().
		Int("due_soon_sent", result.DueSoonSent).
		Int("overdue_sent", result.OverdueSent).
		Int("backfilled", result.Backfilled).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("reminder sweep finished")
	return result, nil
}

// backfill gives open loans inside the reminder window a due-soon row if
// they were created without one.
func (s *Sweeper) backfill(ctx context.Context, now time.Time, result *Result) error {
	loans, err := s.loans.OpenDueBetween(ctx, now, now.Add(s.policy.ReminderLead))
	if err != nil {
		return fmt.Errorf("list loans due soon: %w", err)
	}
	for _, loan := range loans {
		at := loan.DueDate.Add(-s.policy.ReminderLead)
		if at.Before(loan.BorrowDate) {
			at = loan.BorrowDate
		}
		created, err := s.store.EnsureDueSoon(ctx, loan.ID, at)
		if err != nil {
			return fmt.Errorf("backfill reminder for borrow %d: %w", loan.ID, err)
		}
		if created {
			result.Backfilled++
		}
	}
	return nil
}

func (s *Sweeper) sendDueSoon(ctx context.Context, now time.Time, result *Result) error {
	pending, err := s.store.PendingDueSoon(ctx, now)
	if err != nil {
		return fmt.Errorf("list pending reminders: %w", err)
	}

	for _, reminder := range pending {
		loan := reminder.Borrow
		if reason := dueSoonSkipReason(loan, now); reason != "" {
			if err := s.store.MarkSkipped(ctx, reminder.ID, reason); err != nil {
				return fmt.Errorf("skip reminder %d: %w", reminder.ID, err)
			}
			result.Skipped++
			continue
		}

		sendErr := s.sender.SendDueReminder(ctx, loan.User.Email, loan.Book.Title, loan.DueDate)
		if err := s.settle(ctx, reminder.ID, now, sendErr, result); err != nil {
			return err
		}
		if sendErr == nil {
			result.DueSoonSent++
		}
	}
	return nil
}

func (s *Sweeper) sendOverdue(ctx context.Context, now time.Time, result *Result) error {
	loans, err := s.loans.OpenOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("list overdue loans: %w", err)
	}

	for _, loan := range loans {
		fine := library.CalculateFine(loan.DueDate, now, s.policy.FinePerDay)
		if fine <= 0 || loan.User == nil || loan.Book == nil {
			continue
		}

		id, err := s.store.RecordOverdue(ctx, loan.ID, fine, now)
		if err != nil {
			return fmt.Errorf("record overdue notice for borrow %d: %w", loan.ID, err)
		}
		if id == 0 {
			continue
		}

		sendErr := s.sender.SendOverdueNotice(ctx, loan.User.Email, loan.Book.Title, fine)
		if err := s.settle(ctx, id, now, sendErr, result); err != nil {
			return err
		}
		if sendErr == nil {
			result.OverdueSent++
		}
	}
	return nil
}

// settle records the delivery outcome of a claimed reminder.
func (s *Sweeper) settle(ctx context.Context, id uint, now time.Time, sendErr error, result *Result) error {
	if sendErr != nil {
		log.Warn().Err(sendErr).Uint("reminder_id", id).Msg("notice delivery failed")
		result.Failed++
		if err := s.store.MarkSkipped(ctx, id, sendErr.Error()); err != nil {
			return fmt.Errorf("mark reminder %d failed: %w", id, err)
		}
		return nil
	}
	if err := s.store.MarkSent(ctx, id, now); err != nil {
		return fmt.Errorf("mark reminder %d sent: %w", id, err)
	}
	return nil
}

func dueSoonSkipReason(loan *entities.Borrow, now time.Time) string {
	switch {
	case loan == nil:
		return "loan not found"
	case loan.IsReturned():
		return "loan returned"
	case !now.Before(loan.DueDate):
		return "loan already due"
	case loan.User == nil || loan.User.Email == "":
		return "borrower has no email"
	case loan.Book == nil:
		return "book not found"
	default:
		return ""
	}
}
