package config

import "time"

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./librarian.db"

	// DefaultLoanPeriod is how long a book may be kept before it is overdue
	DefaultLoanPeriod = 14 * 24 * time.Hour

	// DefaultFinePerDay is charged for every full day past the due date
	DefaultFinePerDay = 1

	// DefaultReminderLead is how long before the due date a reminder fires
	DefaultReminderLead = 24 * time.Hour

	// DefaultAuditRetentionDays is how long audit events are kept
	DefaultAuditRetentionDays = 90
)

// AuditRetention converts a retention in days to a duration, using
// DefaultAuditRetentionDays when days is not positive.
func AuditRetention(days int) time.Duration {
	if days <= 0 {
		days = DefaultAuditRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}
