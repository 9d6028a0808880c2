// Package library implements the borrow/return lifecycle, catalog rules and
// review gating on top of store interfaces.
//
// # Usage
//
//	ledger := library.NewLedger(borrowsRepo, dispatcher, library.DefaultPolicy())
//	borrow, err := ledger.Borrow(ctx, userID, bookID)
//	result, err := ledger.Return(ctx, borrow.ID, userID)
package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/librarian/internal/entities"
)

// Policy holds the loan rules.
type Policy struct {
	LoanPeriod   time.Duration
	FinePerDay   int
	ReminderLead time.Duration
}

// DefaultPolicy returns the standard loan rules: 14 days, one unit per day
// late, reminder a day before the due date.
func DefaultPolicy() Policy {
	return Policy{
		LoanPeriod:   14 * day,
		FinePerDay:   1,
		ReminderLead: day,
	}
}

// ReturnResult is the outcome of a successful return.
type ReturnResult struct {
	Message string `json:"message"`
	Fine    int    `json:"fine"`
}

// Ledger coordinates borrowing and returning books.
type Ledger struct {
	store    LedgerStore
	notifier Notifier
	policy   Policy
	now      func() time.Time
}

// NewLedger creates a ledger. A nil notifier disables notices.
func NewLedger(store LedgerStore, notifier Notifier, policy Policy) *Ledger {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if policy.LoanPeriod <= 0 {
		policy.LoanPeriod = DefaultPolicy().LoanPeriod
	}
	if policy.ReminderLead <= 0 {
		policy.ReminderLead = DefaultPolicy().ReminderLead
	}
	return &Ledger{
		store:    store,
		notifier: notifier,
		policy:   policy,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

func (l *Ledger) Policy() Policy {
	return l.policy
}

// Borrow lends one copy of a book to a user.
func (l *Ledger) Borrow(ctx context.Context, userID, bookID uint) (*entities.Borrow, error) {
	if bookID == 0 {
		return nil, Invalid("bookId", "valid book ID is required")
	}

	now := l.now().UTC()
	due := now.Add(l.policy.LoanPeriod)
	remindAt := due.Add(-l.policy.ReminderLead)
	if remindAt.Before(now) {
		remindAt = now
	}

	borrow, err := l.store.OpenBorrow(ctx, NewLoan{
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: now,
		DueDate:    due,
		RemindAt:   remindAt,
	})
	if err != nil {
		return nil, fmt.Errorf("borrow book %d: %w", bookID, err)
	}

	log.Info().
		Uint("borrow_id", borrow.ID).
		Uint("book_id", bookID).
		Uint("user_id", userID).
		Time("due_date", due).
		Msg("book borrowed")
	return borrow, nil
}

// Return closes a loan owned by userID and charges the fine for late days.
func (l *Ledger) Return(ctx context.Context, borrowID, userID uint) (*ReturnResult, error) {
	borrow, err := l.store.GetBorrow(ctx, borrowID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidBorrowRecord
		}
		return nil, fmt.Errorf("load borrow %d: %w", borrowID, err)
	}
	if borrow.UserID != userID {
		return nil, ErrInvalidBorrowRecord
	}
	if borrow.IsReturned() {
		return nil, ErrAlreadyReturned
	}

	now := l.now().UTC()
	fine := CalculateFine(borrow.DueDate, now, l.policy.FinePerDay)

	err = l.store.CloseBorrow(ctx, CloseLoan{
		BorrowID:   borrow.ID,
		UserID:     userID,
		BookID:     borrow.BookID,
		ReturnedAt: now,
		Fine:       fine,
	})
	if err != nil {
		return nil, fmt.Errorf("return borrow %d: %w", borrowID, err)
	}

	if fine > 0 && borrow.User != nil && borrow.Book != nil {
		l.notifier.OverdueNotice(ctx, borrow.User.Email, borrow.Book.Title, fine)
	}

	log.Info().
		Uint("borrow_id", borrow.ID).
		Uint("book_id", borrow.BookID).
		Int("fine", fine).
		Msg("book returned")
	return &ReturnResult{Message: "Book returned successfully", Fine: fine}, nil
}

// History lists loans newest first; userID 0 lists all users.
func (l *Ledger) History(ctx context.Context, userID uint) ([]entities.Borrow, error) {
	borrows, err := l.store.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("borrow history: %w", err)
	}
	return borrows, nil
}

// BorrowID finds the loan for a (book, user) pair.
func (l *Ledger) BorrowID(ctx context.Context, bookID, userID uint) (uint, error) {
	if bookID == 0 || userID == 0 {
		return 0, Invalid("bookId", "bookId and userId are required")
	}
	return l.store.FindBorrowID(ctx, bookID, userID)
}
