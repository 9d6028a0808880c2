package library

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mrlokans/librarian/internal/entities"
)

// ExportTimeLayout is ISO-8601 in UTC with millisecond precision.
const ExportTimeLayout = "2006-01-02T15:04:05.000Z07:00"

var exportHeader = []string{
	"Borrow ID",
	"Book Title",
	"User Email",
	"Borrow Date",
	"Due Date",
	"Return Date",
	"Fine",
}

// ExportCSV writes the borrow history of userID (0 for everyone) as CSV.
func (l *Ledger) ExportCSV(ctx context.Context, w io.Writer, userID uint) (int, error) {
	borrows, err := l.History(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := WriteHistoryCSV(w, borrows); err != nil {
		return 0, err
	}
	return len(borrows), nil
}

// WriteHistoryCSV serializes loans to the seven-column export table.
// The return date is blank while a loan is open.
func WriteHistoryCSV(w io.Writer, borrows []entities.Borrow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, b := range borrows {
		var title, email, returned string
		if b.Book != nil {
			title = b.Book.Title
		}
		if b.User != nil {
			email = b.User.Email
		}
		if b.ReturnDate != nil {
			returned = formatExportTime(*b.ReturnDate)
		}

		record := []string{
			strconv.FormatUint(uint64(b.ID), 10),
			title,
			email,
			formatExportTime(b.BorrowDate),
			formatExportTime(b.DueDate),
			returned,
			strconv.Itoa(b.Fine),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", b.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatExportTime(t time.Time) string {
	return t.UTC().Format(ExportTimeLayout)
}
