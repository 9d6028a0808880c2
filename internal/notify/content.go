package notify

import (
	"fmt"
	"html"
	"time"
)

const (
	DueReminderSubject   = "Book Due Reminder"
	OverdueNoticeSubject = "Overdue Book Notification"
)

// dueDateLayout renders dates like "Wed Jan 10 2024".
const dueDateLayout = "Mon Jan 02 2006"

func DueReminderBody(title string, due time.Time) string {
	return fmt.Sprintf(`<p>Your borrowed book "%s" is due on %s. Please return it on time to avoid fines.</p>`,
		html.EscapeString(title), due.UTC().Format(dueDateLayout))
}

func OverdueNoticeBody(title string, fine int) string {
	return fmt.Sprintf(`<p>Your borrowed book "%s" is overdue. You have incurred a fine of $%d. Please return the book as soon as possible.</p>`,
		html.EscapeString(title), fine)
}
