package library

import (
	"context"
	"time"

	"github.com/mrlokans/librarian/internal/entities"
)

// NewLoan describes a loan to open. RemindAt is when the due-soon reminder fires.
type NewLoan struct {
	UserID     uint
	BookID     uint
	BorrowDate time.Time
	DueDate    time.Time
	RemindAt   time.Time
}

// CloseLoan describes a return. The store must only close the loan if it is
// still open and owned by UserID.
type CloseLoan struct {
	BorrowID   uint
	UserID     uint
	BookID     uint
	ReturnedAt time.Time
	Fine       int
}

// LedgerStore persists loans together with the copy counters they reserve.
type LedgerStore interface {
	// OpenBorrow reserves a copy and records the loan and its due-soon reminder
	// atomically. Returns ErrNotFound or ErrBookUnavailable on failure.
	OpenBorrow(ctx context.Context, loan NewLoan) (*entities.Borrow, error)
	// GetBorrow loads a loan with its user and book. Returns ErrNotFound.
	GetBorrow(ctx context.Context, id uint) (*entities.Borrow, error)
	// CloseBorrow marks the loan returned and releases the copy atomically.
	// Returns ErrAlreadyReturned when no open loan matched.
	CloseBorrow(ctx context.Context, loan CloseLoan) error
	// History lists loans newest first. userID 0 lists every user.
	History(ctx context.Context, userID uint) ([]entities.Borrow, error)
	// FindBorrowID prefers the open loan for the pair, then the latest one.
	FindBorrowID(ctx context.Context, bookID, userID uint) (uint, error)
	HasReturnedBorrow(ctx context.Context, userID, bookID uint) (bool, error)
}

// BookFilter narrows the catalog listing.
type BookFilter struct {
	Category      string // exact category name
	Author        string // case-insensitive substring
	MinRating     int    // at least one review with rating >= MinRating
	AvailableOnly bool
	SortBy        string
}

const (
	SortNewest     = "newest"
	SortRating     = "rating"
	SortPopularity = "popularity"
)

// BookChanges holds the fields of a partial book update; nil fields are kept.
type BookChanges struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Description *string `json:"description"`
	CategoryID  *uint   `json:"categoryId"`
	TotalCopies *int    `json:"totalCopies"`
	CoverImage  *string `json:"coverImage"`
	EbookURL    *string `json:"ebookUrl"`
}

// CatalogStore persists books and categories.
type CatalogStore interface {
	ListBooks(ctx context.Context, filter BookFilter) ([]entities.Book, error)
	GetBook(ctx context.Context, id uint) (*entities.Book, error)
	CreateBook(ctx context.Context, book *entities.Book) error
	// UpdateBook applies changes, refusing to drop TotalCopies below the
	// copies currently on loan.
	UpdateBook(ctx context.Context, id uint, changes BookChanges) (*entities.Book, error)
	// DeleteBook refuses while copies are on loan.
	DeleteBook(ctx context.Context, id uint) error

	ListCategories(ctx context.Context) ([]entities.Category, error)
	CategoryExists(ctx context.Context, id uint) (bool, error)
	CreateCategory(ctx context.Context, category *entities.Category) error
	UpdateCategory(ctx context.Context, id uint, name string) (*entities.Category, error)
	// DeleteCategory refuses while books reference the category.
	DeleteCategory(ctx context.Context, id uint) error
}

// ReviewStore persists reviews.
type ReviewStore interface {
	CreateReview(ctx context.Context, review *entities.Review) error
	// ListReviews returns reviews with the reviewer. bookID 0 lists all.
	ListReviews(ctx context.Context, bookID uint) ([]entities.Review, error)
}

// Notifier delivers loan notices. Delivery is best-effort: implementations
// log failures and never report them to the caller.
type Notifier interface {
	DueReminder(ctx context.Context, to, bookTitle string, due time.Time)
	OverdueNotice(ctx context.Context, to, bookTitle string, fine int)
}

type nopNotifier struct{}

func (nopNotifier) DueReminder(context.Context, string, string, time.Time) {}
func (nopNotifier) OverdueNotice(context.Context, string, string, int)     {}
