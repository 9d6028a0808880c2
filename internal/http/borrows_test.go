package http

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

func TestBorrowsController_BorrowAndReturn(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "reader@example.com")
	book := s.createBook(t, "Dune", 1)

	w := s.do(http.MethodPost, "/borrows", token, payload{"bookId": book.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	borrow := decode[entities.Borrow](t, w)
	assert.Equal(t, book.ID, borrow.BookID)
	assert.Nil(t, borrow.ReturnDate)
	assert.Equal(t, 0, borrow.Fine)
	assert.WithinDuration(t, borrow.BorrowDate.Add(14*24*time.Hour), borrow.DueDate, time.Second)
	assert.Equal(t, 1, s.bookState(t, book.ID).BorrowedCopies)

	t.Run("last copy taken", func(t *testing.T) {
		_, other := s.register(t, "other@example.com")
		w := s.do(http.MethodPost, "/borrows", other, payload{"bookId": book.ID})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, CodeBookUnavailable, decode[ErrorResponse](t, w).Code)
		assert.Equal(t, 1, s.bookState(t, book.ID).BorrowedCopies)
	})

	t.Run("return by another user", func(t *testing.T) {
		_, other := s.register(t, "stranger@example.com")
		w := s.do(http.MethodPost, fmt.Sprintf("/borrows/return/%d", borrow.ID), other, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, CodeInvalidBorrowRecord, decode[ErrorResponse](t, w).Code)
	})

	t.Run("return on time", func(t *testing.T) {
		w := s.do(http.MethodPost, fmt.Sprintf("/borrows/return/%d", borrow.ID), token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result := decode[library.ReturnResult](t, w)
		assert.Equal(t, "Book returned successfully", result.Message)
		assert.Equal(t, 0, result.Fine)
		assert.Equal(t, 0, s.bookState(t, book.ID).BorrowedCopies)
	})

	t.Run("second return", func(t *testing.T) {
		w := s.do(http.MethodPost, fmt.Sprintf("/borrows/return/%d", borrow.ID), token, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, CodeAlreadyReturned, decode[ErrorResponse](t, w).Code)
		assert.Equal(t, 0, s.bookState(t, book.ID).BorrowedCopies)
	})
}

func TestBorrowsController_LateReturnChargesFine(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "late@example.com")
	book := s.createBook(t, "Emma", 2)

	borrowedAt := time.Date(2023, 12, 27, 0, 0, 0, 0, time.UTC)
	s.ledger.SetClock(func() time.Time { return borrowedAt })
	w := s.do(http.MethodPost, "/borrows", token, payload{"bookId": book.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	borrow := decode[entities.Borrow](t, w)
	assert.True(t, borrow.DueDate.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))

	s.ledger.SetClock(func() time.Time { return time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC) })
	w = s.do(http.MethodPost, fmt.Sprintf("/borrows/return/%d", borrow.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[library.ReturnResult](t, w).Fine)
}

func TestBorrowsController_Validation(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "reader@example.com")

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{name: "missing book", body: payload{}, status: http.StatusBadRequest, code: CodeValidationFailed},
		{name: "unknown book", body: payload{"bookId": 9999}, status: http.StatusNotFound, code: CodeNotFound},
		{name: "malformed body", body: "not-an-object", status: http.StatusBadRequest, code: CodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/borrows", token, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, w).Code)
		})
	}

	t.Run("requires authentication", func(t *testing.T) {
		w := s.do(http.MethodPost, "/borrows", "", payload{"bookId": 1})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid return id", func(t *testing.T) {
		w := s.do(http.MethodPost, "/borrows/return/abc", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBorrowsController_History(t *testing.T) {
	s := newTestServer(t)
	readerID, readerToken := s.register(t, "reader@example.com")
	_, otherToken := s.register(t, "other@example.com")
	book := s.createBook(t, "Dune", 5)

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/borrows", readerToken, payload{"bookId": book.ID}).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/borrows", otherToken, payload{"bookId": book.ID}).Code)

	own := decode[[]entities.Borrow](t, s.do(http.MethodGet, "/borrows/history", readerToken, nil))
	require.Len(t, own, 1)
	assert.Equal(t, readerID, own[0].UserID)
	require.NotNil(t, own[0].Book)
	assert.Equal(t, "Dune", own[0].Book.Title)

	mine := decode[[]entities.Borrow](t, s.do(http.MethodGet, "/users/borrows", readerToken, nil))
	assert.Len(t, mine, 1)

	all := decode[[]entities.Borrow](t, s.do(http.MethodGet, "/borrows/history", s.adminToken, nil))
	assert.Len(t, all, 2)
}

func TestBorrowsController_Export(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "reader@example.com")
	book := s.createBook(t, "Dune", 1)

	s.ledger.SetClock(func() time.Time { return time.Date(2023, 12, 27, 0, 0, 0, 0, time.UTC) })
	w := s.do(http.MethodPost, "/borrows", token, payload{"bookId": book.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	borrow := decode[entities.Borrow](t, w)

	t.Run("forbidden for users", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/borrows/export", token, nil).Code)
	})

	t.Run("csv attachment for admins", func(t *testing.T) {
		w := s.do(http.MethodGet, "/borrows/export", s.adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
		assert.Equal(t, `attachment; filename="borrow_history.csv"`, w.Header().Get("Content-Disposition"))

		records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, []string{"Borrow ID", "Book Title", "User Email", "Borrow Date", "Due Date", "Return Date", "Fine"}, records[0])
		assert.Equal(t, []string{
			fmt.Sprint(borrow.ID),
			"Dune",
			"reader@example.com",
			"2023-12-27T00:00:00.000Z",
			"2024-01-10T00:00:00.000Z",
			"",
			"0",
		}, records[1])
	})
}

func TestBorrowsController_BorrowID(t *testing.T) {
	s := newTestServer(t)
	readerID, token := s.register(t, "reader@example.com")
	_, otherToken := s.register(t, "other@example.com")
	book := s.createBook(t, "Dune", 1)

	w := s.do(http.MethodPost, "/borrows", token, payload{"bookId": book.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	borrow := decode[entities.Borrow](t, w)

	w = s.do(http.MethodGet, fmt.Sprintf("/borrows/borrow-id?bookId=%d", book.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, borrow.ID, decode[BorrowIDResponse](t, w).BorrowID)

	w = s.do(http.MethodGet, fmt.Sprintf("/borrows/borrow-id?bookId=%d&userId=%d", book.ID, readerID), s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, borrow.ID, decode[BorrowIDResponse](t, w).BorrowID)

	w = s.do(http.MethodGet, fmt.Sprintf("/borrows/borrow-id?bookId=%d", book.ID), otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/borrows/borrow-id?bookId=%d&userId=%d", book.ID, readerID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
