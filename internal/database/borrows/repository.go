// Package borrows provides the loan ledger. Copy counters are only changed by
// conditional UPDATE statements inside the same transaction that writes the
// ledger row, so two borrowers can never take the same last copy.
//
// # Usage
//
//	repo := borrows.NewRepository(db)
//	ledger := library.NewLedger(repo, notifier, library.DefaultPolicy())
package borrows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

// Repository handles ledger database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new borrows repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// OpenBorrow reserves a copy, records the loan and schedules its due-soon reminder.
func (r *Repository) OpenBorrow(ctx context.Context, loan library.NewLoan) (*entities.Borrow, error) {
	borrow := &entities.Borrow{
		UserID:     loan.UserID,
		BookID:     loan.BookID,
		BorrowDate: loan.BorrowDate,
		DueDate:    loan.DueDate,
		Fine:       0,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entities.Book{}).
			Where("id = ? AND borrowed_copies < total_copies", loan.BookID).
			UpdateColumn("borrowed_copies", gorm.Expr("borrowed_copies + 1"))
		if result.Error != nil {
			return fmt.Errorf("reserve copy: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&entities.Book{}).Where("id = ?", loan.BookID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("book %d: %w", loan.BookID, library.ErrNotFound)
			}
			return library.ErrBookUnavailable
		}

		if err := tx.Create(borrow).Error; err != nil {
			return fmt.Errorf("create borrow: %w", err)
		}

		reminder := &entities.Reminder{
			BorrowID:     borrow.ID,
			Kind:         entities.ReminderKindDueSoon,
			ScheduledFor: loan.RemindAt,
			Status:       entities.ReminderStatusPending,
		}
		if err := tx.Create(reminder).Error; err != nil {
			return fmt.Errorf("schedule reminder: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return borrow, nil
}

// GetBorrow loads a loan with its user and book.
func (r *Repository) GetBorrow(ctx context.Context, id uint) (*entities.Borrow, error) {
	var borrow entities.Borrow
	err := r.db.WithContext(ctx).Preload("User").Preload("Book").First(&borrow, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("borrow %d: %w", id, library.ErrNotFound)
		}
		return nil, err
	}
	return &borrow, nil
}

// CloseBorrow marks an open loan returned, releases its copy and retires any
// reminder still pending for it.
func (r *Repository) CloseBorrow(ctx context.Context, loan library.CloseLoan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entities.Borrow{}).
			Where("id = ? AND user_id = ? AND return_date IS NULL", loan.BorrowID, loan.UserID).
			Updates(map[string]any{
				"return_date": loan.ReturnedAt,
				"fine":        loan.Fine,
			})
		if result.Error != nil {
			return fmt.Errorf("close borrow: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return library.ErrAlreadyReturned
		}

		if err := tx.Model(&entities.Book{}).
			Where("id = ? AND borrowed_copies > 0", loan.BookID).
			UpdateColumn("borrowed_copies", gorm.Expr("borrowed_copies - 1")).Error; err != nil {
			return fmt.Errorf("release copy: %w", err)
		}

		return tx.Model(&entities.Reminder{}).
			Where("borrow_id = ? AND status = ?", loan.BorrowID, entities.ReminderStatusPending).
			Updates(map[string]any{
				"status":     entities.ReminderStatusSkipped,
				"last_error": "loan returned",
			}).Error
	})
}

// History returns loans newest first with book and user. userID 0 returns all.
func (r *Repository) History(ctx context.Context, userID uint) ([]entities.Borrow, error) {
	query := r.db.WithContext(ctx).Preload("Book").Preload("User")
	if userID > 0 {
		query = query.Where("user_id = ?", userID)
	}

	var borrows []entities.Borrow
	err := query.Order("borrow_date DESC").Order("id DESC").Find(&borrows).Error
	return borrows, err
}

// FindBorrowID returns the open loan for the pair, falling back to the latest.
func (r *Repository) FindBorrowID(ctx context.Context, bookID, userID uint) (uint, error) {
	var borrow entities.Borrow
	err := r.db.WithContext(ctx).
		Select("id").
		Where("book_id = ? AND user_id = ?", bookID, userID).
		Order("CASE WHEN return_date IS NULL THEN 0 ELSE 1 END").
		Order("borrow_date DESC").
		First(&borrow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("borrow record: %w", library.ErrNotFound)
		}
		return 0, err
	}
	return borrow.ID, nil
}

// HasReturnedBorrow reports whether the user has returned the book at least once.
func (r *Repository) HasReturnedBorrow(ctx context.Context, userID, bookID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Borrow{}).
		Where("user_id = ? AND book_id = ? AND return_date IS NOT NULL", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

// OpenOverdue lists open loans whose due date is before now.
func (r *Repository) OpenOverdue(ctx context.Context, now time.Time) ([]entities.Borrow, error) {
	var borrows []entities.Borrow
	err := r.db.WithContext(ctx).Preload("User").Preload("Book").
		Where("return_date IS NULL AND due_date < ?", now).
		Order("due_date ASC").
		Find(&borrows).Error
	return borrows, err
}

// OpenDueBetween lists open loans due in (from, to].
func (r *Repository) OpenDueBetween(ctx context.Context, from, to time.Time) ([]entities.Borrow, error) {
	var borrows []entities.Borrow
	err := r.db.WithContext(ctx).
		Where("return_date IS NULL AND due_date > ? AND due_date <= ?", from, to).
		Order("due_date ASC").
		Find(&borrows).Error
	return borrows, err
}
