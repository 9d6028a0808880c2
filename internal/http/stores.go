package http

import (
	"context"
	"io"

	"github.com/mikestefanello/backlite"

	auditstore "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
	"github.com/mrlokans/librarian/internal/reminders"
)

// Ledger is the borrow/return lifecycle used by BorrowsController.
type Ledger interface {
	Borrow(ctx context.Context, userID, bookID uint) (*entities.Borrow, error)
	Return(ctx context.Context, borrowID, userID uint) (*library.ReturnResult, error)
	History(ctx context.Context, userID uint) ([]entities.Borrow, error)
	ExportCSV(ctx context.Context, w io.Writer, userID uint) (int, error)
	BorrowID(ctx context.Context, bookID, userID uint) (uint, error)
}

// Catalog manages books and categories.
type Catalog interface {
	ListBooks(ctx context.Context, filter library.BookFilter) ([]entities.Book, error)
	GetBook(ctx context.Context, id uint) (*entities.Book, error)
	CreateBook(ctx context.Context, in library.BookInput) (*entities.Book, error)
	UpdateBook(ctx context.Context, id uint, changes library.BookChanges) (*entities.Book, error)
	DeleteBook(ctx context.Context, id uint) error

	ListCategories(ctx context.Context) ([]entities.Category, error)
	CreateCategory(ctx context.Context, name string) (*entities.Category, error)
	UpdateCategory(ctx context.Context, id uint, name string) (*entities.Category, error)
	DeleteCategory(ctx context.Context, id uint) error
}

// Reviews posts and lists reviews.
type Reviews interface {
	Create(ctx context.Context, userID uint, in library.ReviewInput) (*entities.Review, error)
	List(ctx context.Context, bookID uint) ([]entities.Review, error)
}

// AuditLog records and lists audit events.
type AuditLog interface {
	LogBorrow(userID, bookID, borrowID uint, err error)
	LogReturn(userID, borrowID uint, fine int, err error)
	LogExport(userID uint, rows int, err error)
	LogReview(userID, bookID uint, rating int)
	LogCatalog(userID uint, action, entityType string, entityID uint, description string)
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
	GetEvents(ctx context.Context, filter auditstore.Filter) ([]entities.AuditEvent, int64, error)
}

// TaskQueue enqueues background tasks and reports their status.
type TaskQueue interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// ReminderSweeper runs a reminder sweep in the request goroutine.
type ReminderSweeper interface {
	Sweep(ctx context.Context) (reminders.Result, error)
}

// nopAudit is used when no audit log is configured.
type nopAudit struct{}

func (nopAudit) LogBorrow(uint, uint, uint, error)                     {}
func (nopAudit) LogReturn(uint, uint, int, error)                      {}
func (nopAudit) LogExport(uint, int, error)                            {}
func (nopAudit) LogReview(uint, uint, int)                             {}
func (nopAudit) LogCatalog(uint, string, string, uint, string)         {}
func (nopAudit) LogAuth(uint, string, string, string, bool)            {}
func (nopAudit) GetEvents(context.Context, auditstore.Filter) ([]entities.AuditEvent, int64, error) {
	return nil, 0, nil
}

func auditOrNop(a AuditLog) AuditLog {
	if a == nil {
		return nopAudit{}
	}
	return a
}
