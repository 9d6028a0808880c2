// Package auth provides authentication and authorization for the library API.
//
// Users sign in with email and password and receive an opaque bearer token.
// Only the SHA-256 hash of a token is stored; tokens expire after
// AUTH_TOKEN_EXPIRY. Passwords are hashed with bcrypt (AUTH_BCRYPT_COST).
//
// # Configuration
//
//	AUTH_TOKEN_EXPIRY=24h         # Bearer token lifetime
//	AUTH_BCRYPT_COST=10           # bcrypt cost factor
//	AUTH_MAX_LOGIN_ATTEMPTS=5     # Failed logins before lockout
//	AUTH_RATE_LIMIT_WINDOW=15m    # Window for counting failures
//	AUTH_LOCKOUT_DURATION=30m     # Lockout length
//
// # Usage
//
// Initialize authentication in entrypoint:
//
//	authService := auth.NewService(users.NewRepository(db), cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService)
//	protected := router.Group("/", authMiddleware.RequireAuth())
//	admin := protected.Group("/", authMiddleware.RequireRole(entities.UserRoleAdmin))
//
// Extract user in handlers:
//
//	userID := auth.GetUserID(c)
package auth
