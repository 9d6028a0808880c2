package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/borrows"
	"github.com/mrlokans/librarian/internal/database/catalog"
	reminderstore "github.com/mrlokans/librarian/internal/database/reminders"
	"github.com/mrlokans/librarian/internal/database/reviews"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/http"
	"github.com/mrlokans/librarian/internal/library"
	"github.com/mrlokans/librarian/internal/notify"
	"github.com/mrlokans/librarian/internal/oauth2"
	"github.com/mrlokans/librarian/internal/reminders"
	"github.com/mrlokans/librarian/internal/scheduler"
	"github.com/mrlokans/librarian/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ library.LedgerStore = (*borrows.Repository)(nil)
var _ library.CatalogStore = (*catalog.Repository)(nil)
var _ library.ReviewStore = (*reviews.Repository)(nil)
var _ reminders.LoanStore = (*borrows.Repository)(nil)
var _ reminders.Store = (*reminderstore.Repository)(nil)
var _ auth.UserStore = (*users.Repository)(nil)

// =============================================================================
// HTTP Dependencies
// =============================================================================

var _ http.Ledger = (*library.Ledger)(nil)
var _ http.Catalog = (*library.Catalog)(nil)
var _ http.Reviews = (*library.Reviews)(nil)
var _ http.AuditLog = (*audit.Service)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
var _ http.ReminderSweeper = (*reminders.Sweeper)(nil)
var _ http.LoginLimiter = (*auth.RateLimiter)(nil)
var _ http.Pinger = (*database.Database)(nil)
var _ oauth2.Provider = (*oauth2.GoogleProvider)(nil)

// =============================================================================
// Notifications
// =============================================================================

var _ library.Notifier = (*notify.Direct)(nil)
var _ library.Notifier = (*tasks.QueuedNotifier)(nil)
var _ tasks.Enqueuer = (*tasks.Client)(nil)
var _ notify.Transport = (*notify.SMTPSender)(nil)
var _ notify.Transport = (*notify.AMQPSender)(nil)
var _ notify.Transport = (*notify.LogSender)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.ReminderSweeper = (*reminders.Sweeper)(nil)
var _ tasks.SweepReporter = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ tasks.TokenPurger = (*auth.Service)(nil)
var _ scheduler.ReminderSweeper = (*reminders.Sweeper)(nil)
var _ scheduler.SweepReporter = (*audit.Service)(nil)
var _ scheduler.AuditEventCleaner = (*audit.Service)(nil)
