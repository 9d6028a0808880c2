package entities

import "time"

// Borrow is one loan in the ledger. It becomes terminal once ReturnDate is set.
type Borrow struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"userId"`
	BookID     uint       `gorm:"index;not null" json:"bookId"`
	BorrowDate time.Time  `gorm:"index;not null" json:"borrowDate"`
	DueDate    time.Time  `gorm:"index;not null" json:"dueDate"`
	ReturnDate *time.Time `gorm:"index" json:"returnDate"`
	Fine       int        `gorm:"not null;default:0" json:"fine"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Book *Book `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"book,omitempty"`
}

func (Borrow) TableName() string {
	return "borrows"
}

func (b *Borrow) IsReturned() bool {
	return b.ReturnDate != nil
}

type ReminderKind string

const (
	ReminderKindDueSoon ReminderKind = "due_soon"
	ReminderKindOverdue ReminderKind = "overdue"
)

type ReminderStatus string

const (
	ReminderStatusPending ReminderStatus = "pending"
	ReminderStatusSent    ReminderStatus = "sent"
	ReminderStatusSkipped ReminderStatus = "skipped"
)

// Reminder is a durable notification job attached to a loan. The unique
// (borrow, kind, fine) key makes every notice fire at most once; overdue
// reminders get a new row each time the accrued fine grows.
type Reminder struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	BorrowID     uint           `gorm:"not null;uniqueIndex:idx_reminder_once" json:"borrowId"`
	Kind         ReminderKind   `gorm:"size:20;not null;uniqueIndex:idx_reminder_once" json:"kind"`
	Fine         int            `gorm:"not null;default:0;uniqueIndex:idx_reminder_once" json:"fine"`
	ScheduledFor time.Time      `gorm:"index;not null" json:"scheduledFor"`
	Status       ReminderStatus `gorm:"size:20;index;not null;default:pending" json:"status"`
	SentAt       *time.Time     `json:"sentAt,omitempty"`
	LastError    string         `gorm:"size:500" json:"lastError,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`

	Borrow *Borrow `gorm:"foreignKey:BorrowID;constraint:OnDelete:CASCADE" json:"borrow,omitempty"`
}

func (Reminder) TableName() string {
	return "reminders"
}
