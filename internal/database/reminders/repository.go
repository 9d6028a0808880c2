// Package reminders persists reminder jobs. Inserts go through an
// ON CONFLICT DO NOTHING on the (borrow, kind, fine) key, so callers learn
// from the affected row count whether they own the notice.
package reminders

import (
	"context"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/librarian/internal/entities"
)

// Repository handles reminder database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reminders repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// EnsureDueSoon creates the due-soon reminder for a loan unless one exists.
func (r *Repository) EnsureDueSoon(ctx context.Context, borrowID uint, at time.Time) (bool, error) {
	reminder := &entities.Reminder{
		BorrowID:     borrowID,
		Kind:         entities.ReminderKindDueSoon,
		ScheduledFor: at,
		Status:       entities.ReminderStatusPending,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(reminder)
	return result.RowsAffected == 1, result.Error
}

// PendingDueSoon lists due-soon reminders scheduled at or before now, with
// the loan, its user and its book.
func (r *Repository) PendingDueSoon(ctx context.Context, now time.Time) ([]entities.Reminder, error) {
	var reminders []entities.Reminder
	err := r.db.WithContext(ctx).
		Preload("Borrow").
		Preload("Borrow.User").
		Preload("Borrow.Book").
		Where("kind = ? AND status = ? AND scheduled_for <= ?",
			entities.ReminderKindDueSoon, entities.ReminderStatusPending, now).
		Order("scheduled_for ASC").
		Find(&reminders).Error
	return reminders, err
}

// RecordOverdue claims the overdue notice for a loan at a given fine.
// It returns the new reminder id, or 0 when the notice was already claimed.
func (r *Repository) RecordOverdue(ctx context.Context, borrowID uint, fine int, at time.Time) (uint, error) {
	reminder := &entities.Reminder{
		BorrowID:     borrowID,
		Kind:         entities.ReminderKindOverdue,
		Fine:         fine,
		ScheduledFor: at,
		Status:       entities.ReminderStatusPending,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(reminder)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, nil
	}
	return reminder.ID, nil
}

func (r *Repository) MarkSent(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entities.Reminder{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":     entities.ReminderStatusSent,
			"sent_at":    at,
			"last_error": "",
		}).Error
}

func (r *Repository) MarkSkipped(ctx context.Context, id uint, reason string) error {
	return r.db.WithContext(ctx).Model(&entities.Reminder{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":     entities.ReminderStatusSkipped,
			"last_error": truncate(reason, 500),
		}).Error
}

// ForBorrow lists a loan's reminders in creation order.
func (r *Repository) ForBorrow(ctx context.Context, borrowID uint) ([]entities.Reminder, error) {
	var reminders []entities.Reminder
	err := r.db.WithContext(ctx).Where("borrow_id = ?", borrowID).Order("id ASC").Find(&reminders).Error
	return reminders, err
}

// truncate caps s at maxLen bytes without splitting a UTF-8 sequence.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
