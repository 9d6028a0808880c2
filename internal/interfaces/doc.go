// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Domain Stores (internal/library/stores.go)
//
//   - LedgerStore: loans and the copy counters they reserve (database/borrows)
//   - CatalogStore: books and categories (database/catalog)
//   - ReviewStore: reviews (database/reviews)
//   - Notifier: best-effort loan notices (notify.Direct, tasks.QueuedNotifier)
//
// ## Reminder Sweep (internal/reminders/sweeper.go)
//
//   - LoanStore: open loans that are overdue or about to fall due
//   - Store: reminder rows keyed by (borrow, kind, fine)
//
// ## Notification Transports (internal/notify/notify.go)
//
//   - Sender: SendDueReminder and SendOverdueNotice
//   - Transport: a Sender that owns a connection (SMTP, AMQP, log)
//
// ## HTTP Dependencies (internal/http/stores.go)
//
//   - Ledger, Catalog, Reviews, AuditLog, TaskQueue, ReminderSweeper
//
// # Adding a New Notification Transport
//
//  1. Implement Transport in internal/notify/
//
//     type WebhookSender struct {
//         url    string
//         client *http.Client
//     }
//
//     func (s *WebhookSender) SendDueReminder(ctx context.Context, to, title string, due time.Time) error
//     func (s *WebhookSender) SendOverdueNotice(ctx context.Context, to, title string, fine int) error
//     func (s *WebhookSender) Close() error
//
//  2. Add a NOTIFY_TRANSPORT value and a case in notify.NewTransport
//
//  3. Add a compile-time check to checks.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
