package library_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/borrows"
	"github.com/mrlokans/librarian/internal/database/catalog"
	"github.com/mrlokans/librarian/internal/database/reviews"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

type overdueNotice struct {
	to, title string
	fine      int
}

type recordingNotifier struct {
	mu      sync.Mutex
	overdue []overdueNotice
}

func (n *recordingNotifier) DueReminder(context.Context, string, string, time.Time) {}

func (n *recordingNotifier) OverdueNotice(_ context.Context, to, title string, fine int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.overdue = append(n.overdue, overdueNotice{to: to, title: title, fine: fine})
}

type fixture struct {
	db       *database.Database
	ledger   *library.Ledger
	reviews  *library.Reviews
	catalog  *library.Catalog
	notifier *recordingNotifier
	category entities.Category
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDatabase(config.Database{
		Driver: config.DatabaseDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "library.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:       db,
		notifier: &recordingNotifier{},
		now:      time.Date(2023, 12, 27, 10, 0, 0, 0, time.UTC),
	}
	borrowRepo := borrows.NewRepository(db.DB)
	f.ledger = library.NewLedger(borrowRepo, f.notifier, library.DefaultPolicy())
	f.ledger.SetClock(func() time.Time { return f.now })
	f.reviews = library.NewReviews(reviews.NewRepository(db.DB), borrowRepo)
	f.catalog = library.NewCatalog(catalog.NewRepository(db.DB))

	f.category = entities.Category{Name: "Fiction"}
	require.NoError(t, db.DB.Create(&f.category).Error)
	return f
}

func (f *fixture) user(t *testing.T, email string) entities.User {
	t.Helper()
	u := entities.User{Email: email, Name: "Reader", PasswordHash: "hash", Role: entities.UserRoleUser}
	require.NoError(t, f.db.DB.Create(&u).Error)
	return u
}

func (f *fixture) book(t *testing.T, title string, copies int) entities.Book {
	t.Helper()
	b := entities.Book{
		Title:       title,
		Author:      "Ursula K. Le Guin",
		Description: "An anarchist physicist crosses worlds.",
		CategoryID:  f.category.ID,
		TotalCopies: copies,
	}
	require.NoError(t, f.db.DB.Create(&b).Error)
	return b
}

func (f *fixture) borrowed(t *testing.T, id uint) int {
	t.Helper()
	var b entities.Book
	require.NoError(t, f.db.DB.First(&b, id).Error)
	return b.BorrowedCopies
}

func TestCalculateFine(t *testing.T) {
	due := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		at       time.Time
		expected int
	}{
		{"before due", due.Add(-time.Hour), 0},
		{"exactly due", due, 0},
		{"less than a day late", due.Add(23 * time.Hour), 0},
		{"one day late", due.Add(24 * time.Hour), 1},
		{"three and a half days late", due.Add(84 * time.Hour), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, library.CalculateFine(due, tt.at, 1))
		})
	}

	assert.Equal(t, 15, library.CalculateFine(due, due.Add(72*time.Hour), 5))
}

func TestLedger_BorrowAndReturnOnTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := f.user(t, "reader@library.com")
	book := f.book(t, "The Dispossessed", 1)

	borrow, err := f.ledger.Borrow(ctx, reader.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, f.now, borrow.BorrowDate)
	assert.Equal(t, f.now.Add(14*24*time.Hour), borrow.DueDate)
	assert.Nil(t, borrow.ReturnDate)
	assert.Equal(t, 1, f.borrowed(t, book.ID))

	f.now = f.now.Add(3 * 24 * time.Hour)
	result, err := f.ledger.Return(ctx, borrow.ID, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Fine)
	assert.Equal(t, 0, f.borrowed(t, book.ID))
	assert.Empty(t, f.notifier.overdue)
}

func TestLedger_LateReturnChargesFine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := f.user(t, "late@library.com")
	book := f.book(t, "The Left Hand of Darkness", 2)

	borrow, err := f.ledger.Borrow(ctx, reader.ID, book.ID)
	require.NoError(t, err)

	// Due 2024-01-10, returned 2024-01-13
	f.now = time.Date(2024, 1, 13, 10, 0, 0, 0, time.UTC)
	result, err := f.ledger.Return(ctx, borrow.ID, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Fine)

	var stored entities.Borrow
	require.NoError(t, f.db.DB.First(&stored, borrow.ID).Error)
	assert.Equal(t, 3, stored.Fine)
	require.NotNil(t, stored.ReturnDate)

	require.Len(t, f.notifier.overdue, 1)
	assert.Equal(t, overdueNotice{to: "late@library.com", title: "The Left Hand of Darkness", fine: 3}, f.notifier.overdue[0])
}

func TestLedger_ReturnErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@library.com")
	other := f.user(t, "other@library.com")
	book := f.book(t, "A Wizard of Earthsea", 1)

	borrow, err := f.ledger.Borrow(ctx, owner.ID, book.ID)
	require.NoError(t, err)

	t.Run("unknown borrow", func(t *testing.T) {
		_, err := f.ledger.Return(ctx, 9999, owner.ID)
		assert.ErrorIs(t, err, library.ErrInvalidBorrowRecord)
	})

	t.Run("wrong owner", func(t *testing.T) {
		_, err := f.ledger.Return(ctx, borrow.ID, other.ID)
		assert.ErrorIs(t, err, library.ErrInvalidBorrowRecord)
		assert.Equal(t, 1, f.borrowed(t, book.ID))
	})

	t.Run("already returned", func(t *testing.T) {
		_, err := f.ledger.Return(ctx, borrow.ID, owner.ID)
		require.NoError(t, err)

		_, err = f.ledger.Return(ctx, borrow.ID, owner.ID)
		assert.ErrorIs(t, err, library.ErrAlreadyReturned)
		assert.Equal(t, 0, f.borrowed(t, book.ID))
	})
}

func TestLedger_BorrowUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.user(t, "first@library.com")
	second := f.user(t, "second@library.com")
	book := f.book(t, "The Lathe of Heaven", 1)

	_, err := f.ledger.Borrow(ctx, first.ID, book.ID)
	require.NoError(t, err)

	_, err = f.ledger.Borrow(ctx, second.ID, book.ID)
	assert.ErrorIs(t, err, library.ErrBookUnavailable)
	assert.Equal(t, 1, f.borrowed(t, book.ID))

	var count int64
	require.NoError(t, f.db.DB.Model(&entities.Borrow{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	t.Run("missing book", func(t *testing.T) {
		_, err := f.ledger.Borrow(ctx, first.ID, 4242)
		assert.ErrorIs(t, err, library.ErrNotFound)
	})

	t.Run("zero book id", func(t *testing.T) {
		_, err := f.ledger.Borrow(ctx, first.ID, 0)
		assert.ErrorIs(t, err, library.ErrValidation)
	})
}

func TestLedger_TwoCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a@library.com")
	b := f.user(t, "b@library.com")
	c := f.user(t, "c@library.com")
	book := f.book(t, "The Tombs of Atuan", 2)

	borrowA, err := f.ledger.Borrow(ctx, a.ID, book.ID)
	require.NoError(t, err)
	_, err = f.ledger.Borrow(ctx, b.ID, book.ID)
	require.NoError(t, err)

	_, err = f.ledger.Borrow(ctx, c.ID, book.ID)
	assert.ErrorIs(t, err, library.ErrBookUnavailable)

	_, err = f.ledger.Return(ctx, borrowA.ID, a.ID)
	require.NoError(t, err)

	_, err = f.ledger.Borrow(ctx, c.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.borrowed(t, book.ID))
}

func TestLedger_HistoryAndBorrowID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := f.user(t, "history@library.com")
	other := f.user(t, "someone@library.com")
	book := f.book(t, "Always Coming Home", 3)

	first, err := f.ledger.Borrow(ctx, reader.ID, book.ID)
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)
	_, err = f.ledger.Return(ctx, first.ID, reader.ID)
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	second, err := f.ledger.Borrow(ctx, reader.ID, book.ID)
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)
	_, err = f.ledger.Borrow(ctx, other.ID, book.ID)
	require.NoError(t, err)

	history, err := f.ledger.History(ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	require.NotNil(t, history[0].Book)
	assert.Equal(t, "Always Coming Home", history[0].Book.Title)

	all, err := f.ledger.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	id, err := f.ledger.BorrowID(ctx, book.ID, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, id)

	_, err = f.ledger.BorrowID(ctx, book.ID, 9999)
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestLedger_LastCopyHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.book(t, "The Beginning Place", 1)

	const readers = 8
	ids := make([]uint, readers)
	for i := range ids {
		ids[i] = f.user(t, fmt.Sprintf("reader%d@library.com", i)).ID
	}

	errs := make([]error, readers)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			_, errs[i] = f.ledger.Borrow(ctx, id, book.ID)
		}(i, id)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, library.ErrBookUnavailable)
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, f.borrowed(t, book.ID))

	var open int64
	require.NoError(t, f.db.DB.Model(&entities.Borrow{}).Where("book_id = ? AND return_date IS NULL", book.ID).Count(&open).Error)
	assert.Equal(t, int64(1), open)
}

func TestDeleteUser_ReleasesCopiesOnLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	leaving := f.user(t, "leaving@library.com")
	staying := f.user(t, "staying@library.com")
	single := f.book(t, "Searoad", 1)
	shared := f.book(t, "Tehanu", 3)

	_, err := f.ledger.Borrow(ctx, leaving.ID, single.ID)
	require.NoError(t, err)
	_, err = f.ledger.Borrow(ctx, leaving.ID, shared.ID)
	require.NoError(t, err)
	_, err = f.ledger.Borrow(ctx, leaving.ID, shared.ID)
	require.NoError(t, err)
	_, err = f.ledger.Borrow(ctx, staying.ID, shared.ID)
	require.NoError(t, err)

	// A returned loan must not be released twice
	returned, err := f.ledger.Borrow(ctx, leaving.ID, f.book(t, "Orsinian Tales", 1).ID)
	require.NoError(t, err)
	_, err = f.ledger.Return(ctx, returned.ID, leaving.ID)
	require.NoError(t, err)

	require.NoError(t, users.NewRepository(f.db.DB).DeleteUser(ctx, leaving.ID))

	assert.Equal(t, 0, f.borrowed(t, single.ID))
	assert.Equal(t, 1, f.borrowed(t, shared.ID))
	assert.Equal(t, 0, f.borrowed(t, returned.BookID))

	_, err = f.ledger.Borrow(ctx, staying.ID, single.ID)
	assert.NoError(t, err, "the released copy can be borrowed again")

	var left int64
	require.NoError(t, f.db.DB.Model(&entities.Borrow{}).Where("user_id = ?", leaving.ID).Count(&left).Error)
	assert.Zero(t, left)

	assert.Error(t, users.NewRepository(f.db.DB).DeleteUser(ctx, leaving.ID))
}
