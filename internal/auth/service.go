package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var (
	ErrUserNotFound       = fmt.Errorf("user %w", library.ErrNotFound)
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrAuthRequired       = errors.New("authentication required")
	ErrAccountLocked      = errors.New("account is locked due to too many failed login attempts")
)

// UserStore is the persistence the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *entities.User) error
	GetUserByID(ctx context.Context, id uint) (*entities.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entities.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*entities.User, error)
	LinkGoogleID(ctx context.Context, id uint, googleID string) error
	ListUsers(ctx context.Context) ([]entities.User, error)
	CountUsers(ctx context.Context) (int64, error)
	CountAdmins(ctx context.Context) (int64, error)
	UpdateUser(ctx context.Context, id uint, changes users.Changes) (*entities.User, error)
	DeleteUser(ctx context.Context, id uint) error
	RecordLogin(ctx context.Context, id uint, at time.Time) error
	RecordFailedLogin(ctx context.Context, id uint, count int, lockedUntil *time.Time) error
	CreateToken(ctx context.Context, token *entities.AccessToken) error
	FindToken(ctx context.Context, tokenHash string) (*entities.AccessToken, error)
	TouchToken(ctx context.Context, id uint, at time.Time) error
	DeleteToken(ctx context.Context, tokenHash string) error
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Session is what register and login hand back to the client.
type Session struct {
	User  *entities.User `json:"user"`
	Token string         `json:"token"`
}

// UserUpdate holds the fields an admin may change; nil fields are kept.
type UserUpdate struct {
	Email *string            `json:"email"`
	Name  *string            `json:"name"`
	Role  *entities.UserRole `json:"role"`
}

// Service handles authentication and user management.
type Service struct {
	store  UserStore
	config config.Auth
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(store UserStore, cfg config.Auth) *Service {
	return &Service{
		store:  store,
		config: cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser validates and stores a new password user.
func (s *Service) CreateUser(ctx context.Context, email, password, name string, role entities.UserRole) (*entities.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	fields := make(map[string]string)
	if email == "" {
		fields["email"] = "email is required"
	} else if len(email) > 254 || !emailPattern.MatchString(email) {
		fields["email"] = "invalid email format"
	}
	if name == "" {
		fields["name"] = "name is required"
	}
	if len(password) < MinPasswordLength {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", MinPasswordLength)
	}
	if !role.IsValid() {
		fields["role"] = "role must be USER or ADMIN"
	}
	if len(fields) > 0 {
		return nil, &library.ValidationError{Fields: fields}
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return nil, library.Invalid("password", err.Error())
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Register creates a USER account and signs it in.
func (s *Service) Register(ctx context.Context, email, password, name string) (*Session, error) {
	user, err := s.CreateUser(ctx, email, password, name, entities.UserRoleUser)
	if err != nil {
		return nil, err
	}
	token, err := s.IssueToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}

// Login checks credentials and issues a new token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	token, err := s.IssueToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}

// Authenticate validates credentials and returns the user.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entities.User, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			s.recordFailedLogin(ctx, user)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.store.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil
	return user, nil
}

// recordFailedLogin increments the failed login counter and locks the account if threshold reached.
func (s *Service) recordFailedLogin(ctx context.Context, user *entities.User) {
	user.FailedLoginCount++

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	var lockedUntil *time.Time
	if user.FailedLoginCount >= maxAttempts {
		lockoutDuration := s.config.LockoutDuration
		if lockoutDuration == 0 {
			lockoutDuration = 30 * time.Minute
		}
		until := s.now().Add(lockoutDuration)
		lockedUntil = &until
	}

	_ = s.store.RecordFailedLogin(ctx, user.ID, user.FailedLoginCount, lockedUntil)
}

// IssueToken creates a new bearer token for a user.
// Returns the plaintext token (show to user once) - only the hash is stored in DB.
func (s *Service) IssueToken(ctx context.Context, userID uint) (string, error) {
	issued, err := newBearerToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := &entities.AccessToken{UserID: userID, TokenHash: issued.digest}
	if s.config.TokenExpiry > 0 {
		expires := s.now().Add(s.config.TokenExpiry)
		token.ExpiresAt = &expires
	}
	if err := s.store.CreateToken(ctx, token); err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}
	return issued.plaintext, nil
}

// ValidateToken checks a plaintext token and returns the associated user.
// Returns ErrTokenExpired if the token is past its expiry time.
func (s *Service) ValidateToken(ctx context.Context, plaintext string) (*entities.User, error) {
	if plaintext == "" {
		return nil, ErrInvalidToken
	}
	token, err := s.store.FindToken(ctx, TokenDigest(plaintext))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	now := s.now()
	if token.IsExpired(now) {
		return nil, ErrTokenExpired
	}
	if token.User.ID == 0 {
		return nil, ErrInvalidToken
	}

	_ = s.store.TouchToken(ctx, token.ID, now)
	return &token.User, nil
}

// RevokeToken deletes a bearer token.
func (s *Service) RevokeToken(ctx context.Context, plaintext string) error {
	if err := s.store.DeleteToken(ctx, TokenDigest(plaintext)); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// PurgeExpiredTokens deletes tokens past their expiry.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredTokens(ctx, s.now())
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]entities.User, error) {
	return s.store.ListUsers(ctx)
}

// UpdateUser changes a user's email, name or role.
func (s *Service) UpdateUser(ctx context.Context, id uint, update UserUpdate) (*entities.User, error) {
	fields := make(map[string]string)
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		update.Email = &email
		if !emailPattern.MatchString(email) {
			fields["email"] = "invalid email format"
		}
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		update.Name = &name
		if name == "" {
			fields["name"] = "name is required"
		}
	}
	if update.Role != nil && !update.Role.IsValid() {
		fields["role"] = "role must be USER or ADMIN"
	}
	if len(fields) > 0 {
		return nil, &library.ValidationError{Fields: fields}
	}
	if update.Role != nil && *update.Role != entities.UserRoleAdmin {
		if err := s.keepLastAdmin(ctx, id); err != nil {
			return nil, err
		}
	}

	user, err := s.store.UpdateUser(ctx, id, users.Changes{
		Email: update.Email,
		Name:  update.Name,
		Role:  update.Role,
	})
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, id uint) error {
	if err := s.keepLastAdmin(ctx, id); err != nil {
		return err
	}
	return translate(s.store.DeleteUser(ctx, id))
}

// keepLastAdmin refuses to demote or delete the only remaining admin.
func (s *Service) keepLastAdmin(ctx context.Context, id uint) error {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return translate(err)
	}
	if !user.IsAdmin() {
		return nil
	}
	admins, err := s.store.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins <= 1 {
		return library.Invalid("role", "cannot remove the last administrator")
	}
	return nil
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrUserNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrUserExists
	default:
		return err
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
