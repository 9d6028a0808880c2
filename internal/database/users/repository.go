// Package users provides database operations for user management and
// bearer access tokens.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	token, err := repo.FindToken(ctx, auth.TokenDigest(plaintext))
package users

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

// Changes holds the editable fields of a user; nil fields are kept.
type Changes struct {
	Email *string
	Name  *string
	Role  *entities.UserRole
}

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, user *entities.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetUserByGoogleID(ctx context.Context, googleID string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("google_id = ?", googleID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LinkGoogleID attaches a Google account to a user that has none yet.
func (r *Repository) LinkGoogleID(ctx context.Context, id uint, googleID string) error {
	result := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("id = ? AND google_id IS NULL", id).
		Update("google_id", googleID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListUsers returns every user ordered by ID.
func (r *Repository) ListUsers(ctx context.Context) ([]entities.User, error) {
	var users []entities.User
	err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, err
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).Where("role = ?", entities.UserRoleAdmin).Count(&count).Error
	return count, err
}

// UpdateUser applies changes and returns the updated user.
func (r *Repository) UpdateUser(ctx context.Context, id uint, changes Changes) (*entities.User, error) {
	updates := make(map[string]any)
	if changes.Email != nil {
		updates["email"] = *changes.Email
	}
	if changes.Name != nil {
		updates["name"] = *changes.Name
	}
	if changes.Role != nil {
		updates["role"] = *changes.Role
	}

	db := r.db.WithContext(ctx)
	if len(updates) > 0 {
		result := db.Model(&entities.User{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.GetUserByID(ctx, id)
}

// DeleteUser removes a user; tokens, loans and reviews cascade. Copies the
// user still has on loan are released first so the books become available.
func (r *Repository) DeleteUser(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var onLoan []struct {
			BookID uint
			Copies int
		}
		err := tx.Model(&entities.Borrow{}).
			Select("book_id, COUNT(*) AS copies").
			Where("user_id = ? AND return_date IS NULL", id).
			Group("book_id").
			Scan(&onLoan).Error
		if err != nil {
			return fmt.Errorf("find open loans: %w", err)
		}

		for _, loan := range onLoan {
			err := tx.Model(&entities.Book{}).
				Where("id = ? AND borrowed_copies >= ?", loan.BookID, loan.Copies).
				UpdateColumn("borrowed_copies", gorm.Expr("borrowed_copies - ?", loan.Copies)).Error
			if err != nil {
				return fmt.Errorf("release copies of book %d: %w", loan.BookID, err)
			}
		}

		result := tx.Delete(&entities.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// RecordLogin resets lockout state after a successful login.
func (r *Repository) RecordLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"last_login_at":      at,
		"failed_login_count": 0,
		"locked_until":       nil,
	}).Error
}

// RecordFailedLogin stores the failure counter and an optional lock.
func (r *Repository) RecordFailedLogin(ctx context.Context, id uint, count int, lockedUntil *time.Time) error {
	updates := map[string]any{"failed_login_count": count}
	if lockedUntil != nil {
		updates["locked_until"] = *lockedUntil
	}
	return r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) CreateToken(ctx context.Context, token *entities.AccessToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindToken looks up an access token by hash together with its user.
func (r *Repository) FindToken(ctx context.Context, tokenHash string) (*entities.AccessToken, error) {
	var token entities.AccessToken
	err := r.db.WithContext(ctx).Preload("User").Where("token_hash = ?", tokenHash).First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *Repository) TouchToken(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entities.AccessToken{}).Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error
}

// DeleteToken revokes a single token by hash.
func (r *Repository) DeleteToken(ctx context.Context, tokenHash string) error {
	return r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&entities.AccessToken{}).Error
}

// DeleteExpiredTokens removes tokens that expired before now.
func (r *Repository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Delete(&entities.AccessToken{})
	return result.RowsAffected, result.Error
}
