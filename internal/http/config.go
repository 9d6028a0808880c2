package http

import (
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/oauth2"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database Pinger
	Ledger   Ledger
	Catalog  Catalog
	Reviews  Reviews
	Audit    AuditLog // optional

	// Authentication
	AuthService *auth.Service
	RateLimiter *auth.RateLimiter // optional, guards POST /auth/login

	// Google sign-in (optional). The callback redirects to FrontendURL/?token=.
	Google      oauth2.Provider
	FrontendURL string

	// Task queue (optional). Without it admin sweeps run inline on Sweeper.
	TaskQueue TaskQueue
	Sweeper   ReminderSweeper

	// CORS origins allowed to call the API with credentials
	AllowedOrigins []string

	// Application info
	Version string
}
