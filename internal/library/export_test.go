package library_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

func TestWriteHistoryCSV(t *testing.T) {
	borrowed := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	returned := time.Date(2024, 1, 18, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	rows := []entities.Borrow{
		{
			ID:         2,
			BorrowDate: borrowed,
			DueDate:    borrowed.Add(14 * 24 * time.Hour),
			ReturnDate: &returned,
			Fine:       3,
			Book:       &entities.Book{Title: "Dune, Part One"},
			User:       &entities.User{Email: "reader@library.com"},
		},
		{
			ID:         1,
			BorrowDate: borrowed,
			DueDate:    borrowed.Add(14 * 24 * time.Hour),
			Book:       &entities.Book{Title: "Emma"},
			User:       &entities.User{Email: "reader@library.com"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, library.WriteHistoryCSV(&buf, rows))

	expected := "Borrow ID,Book Title,User Email,Borrow Date,Due Date,Return Date,Fine\n" +
		"2,\"Dune, Part One\",reader@library.com,2024-01-01T09:30:00.000Z,2024-01-15T09:30:00.000Z,2024-01-18T11:00:00.000Z,3\n" +
		"1,Emma,reader@library.com,2024-01-01T09:30:00.000Z,2024-01-15T09:30:00.000Z,,0\n"
	assert.Equal(t, expected, buf.String())
}

func TestLedger_ExportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := f.user(t, "export@library.com")
	book := f.book(t, "Four Ways to Forgiveness", 1)

	_, err := f.ledger.Borrow(ctx, reader.ID, book.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := f.ledger.ExportCSV(ctx, &buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "Four Ways to Forgiveness,export@library.com,2023-12-27T10:00:00.000Z")

	buf.Reset()
	n, err = f.ledger.ExportCSV(ctx, &buf, reader.ID+100)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, "Borrow ID,Book Title,User Email,Borrow Date,Due Date,Return Date,Fine\n", buf.String())
}
