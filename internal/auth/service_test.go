package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

func setupService(t *testing.T, cfg config.Auth) (*Service, *database.Database) {
	t.Helper()
	db, err := database.NewDatabase(config.Database{
		Driver: config.DatabaseDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "auth.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 4 // Low cost for faster tests
	}
	return NewService(users.NewRepository(db.DB), cfg), db
}

func TestService_CreateUser(t *testing.T) {
	svc, _ := setupService(t, config.Auth{})
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		userName string
		role     entities.UserRole
		field    string
	}{
		{name: "missing email", email: "", password: "secret1", userName: "Reader", role: entities.UserRoleUser, field: "email"},
		{name: "invalid email", email: "not-an-email", password: "secret1", userName: "Reader", role: entities.UserRoleUser, field: "email"},
		{name: "short password", email: "a@example.com", password: "12345", userName: "Reader", role: entities.UserRoleUser, field: "password"},
		{name: "missing name", email: "a@example.com", password: "secret1", userName: "  ", role: entities.UserRoleUser, field: "name"},
		{name: "invalid role", email: "a@example.com", password: "secret1", userName: "Reader", role: "EDITOR", field: "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tt.email, tt.password, tt.userName, tt.role)
			require.ErrorIs(t, err, library.ErrValidation)

			var verr *library.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	t.Run("valid user", func(t *testing.T) {
		user, err := svc.CreateUser(ctx, " Reader@Example.com ", "secret1", "Reader", entities.UserRoleUser)
		require.NoError(t, err)
		assert.NotZero(t, user.ID)
		assert.Equal(t, "reader@example.com", user.Email)
		assert.NotEqual(t, "secret1", user.PasswordHash)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, "reader@example.com", "secret1", "Other", entities.UserRoleUser)
		assert.ErrorIs(t, err, ErrUserExists)
	})
}

func TestService_RegisterAndValidateToken(t *testing.T) {
	svc, _ := setupService(t, config.Auth{TokenExpiry: time.Hour})
	ctx := context.Background()

	session, err := svc.Register(ctx, "reader@example.com", "secret1", "Reader")
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleUser, session.User.Role)
	assert.Len(t, session.Token, 64)

	user, err := svc.ValidateToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, user.ID)

	_, err = svc.ValidateToken(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, svc.RevokeToken(ctx, session.Token))
	_, err = svc.ValidateToken(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_TokenExpiry(t *testing.T) {
	svc, _ := setupService(t, config.Auth{TokenExpiry: time.Hour})
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	session, err := svc.Register(ctx, "reader@example.com", "secret1", "Reader")
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, err = svc.ValidateToken(ctx, session.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	purged, err := svc.PurgeExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestService_Login(t *testing.T) {
	svc, _ := setupService(t, config.Auth{MaxLoginAttempts: 3, LockoutDuration: time.Minute})
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "reader@example.com", "secret1", "Reader", entities.UserRoleUser)
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", "secret1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("success", func(t *testing.T) {
		session, err := svc.Login(ctx, "READER@example.com", "secret1")
		require.NoError(t, err)
		assert.NotEmpty(t, session.Token)
		assert.NotNil(t, session.User.LastLoginAt)
	})

	t.Run("lockout after repeated failures", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := svc.Login(ctx, "reader@example.com", "wrong-password")
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		}

		_, err := svc.Login(ctx, "reader@example.com", "secret1")
		assert.ErrorIs(t, err, ErrAccountLocked)
	})
}

func TestService_UserAdministration(t *testing.T) {
	svc, _ := setupService(t, config.Auth{})
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "reader@example.com", "secret1", "Reader", entities.UserRoleUser)
	require.NoError(t, err)

	admin := entities.UserRoleAdmin
	name := "Head Librarian"
	updated, err := svc.UpdateUser(ctx, user.ID, UserUpdate{Name: &name, Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, "Head Librarian", updated.Name)
	assert.True(t, updated.IsAdmin())

	bad := entities.UserRole("OWNER")
	_, err = svc.UpdateUser(ctx, user.ID, UserUpdate{Role: &bad})
	assert.ErrorIs(t, err, library.ErrValidation)

	_, err = svc.UpdateUser(ctx, 999, UserUpdate{Name: &name})
	assert.ErrorIs(t, err, library.ErrNotFound)

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// The only admin can be neither demoted nor deleted
	demote := entities.UserRoleUser
	_, err = svc.UpdateUser(ctx, user.ID, UserUpdate{Role: &demote})
	assert.ErrorIs(t, err, library.ErrValidation)
	assert.ErrorIs(t, svc.DeleteUser(ctx, user.ID), library.ErrValidation)

	second, err := svc.CreateUser(ctx, "deputy@example.com", "secret1", "Deputy", entities.UserRoleAdmin)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteUser(ctx, user.ID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, user.ID), ErrUserNotFound)
	assert.ErrorIs(t, svc.DeleteUser(ctx, second.ID), library.ErrValidation)

	hasUsers, err := svc.HasUsers(ctx)
	require.NoError(t, err)
	assert.True(t, hasUsers)
}
