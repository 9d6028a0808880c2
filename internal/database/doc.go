// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (SQLite or PostgreSQL), migrations
//	├── seed.go          # Admin user, default categories, sample books
//	├── catalog/         # Books and categories
//	├── borrows/         # Loan ledger with atomic copy counters
//	├── reminders/       # Durable due-soon and overdue reminder rows
//	├── reviews/         # Book reviews
//	├── users/           # Users and hashed access tokens
//	└── audit/           # Audit event log
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	catalogRepo := catalog.NewRepository(db.DB)
//	borrowsRepo := borrows.NewRepository(db.DB)
//
//	ledger := library.NewLedger(borrowsRepo, notifier, policy)
//
// # Interface Implementations
//
//   - catalog.Repository: implements library.CatalogStore
//   - borrows.Repository: implements library.LedgerStore and reminders.LoanStore
//   - reviews.Repository: implements library.ReviewStore
//   - reminders.Repository: implements reminders.Store
//   - users.Repository: implements auth.UserStore
//
// Repositories translate gorm.ErrRecordNotFound into library.ErrNotFound so
// callers can match with errors.Is regardless of the driver.
package database
