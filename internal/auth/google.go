package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

// ErrAccountLinked is returned when the email belongs to a user already tied
// to a different Google account.
var ErrAccountLinked = errors.New("account is linked to another Google identity")

// GoogleProfile is the part of a Google account used to sign in.
type GoogleProfile struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
}

// SignInWithGoogle finds the user behind a Google account and issues a token.
// Lookup goes by Google id first, then by verified email, which links the
// existing account. Unknown accounts become new USER accounts without a
// password.
func (s *Service) SignInWithGoogle(ctx context.Context, profile GoogleProfile) (*Session, error) {
	user, err := s.googleUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	if err := s.store.RecordLogin(ctx, user.ID, s.now()); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	token, err := s.IssueToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}

func (s *Service) googleUser(ctx context.Context, profile GoogleProfile) (*entities.User, error) {
	if profile.ID == "" {
		return nil, library.Invalid("googleId", "Google account id is missing")
	}

	user, err := s.store.GetUserByGoogleID(ctx, profile.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	email := normalizeEmail(profile.Email)
	if email == "" || !profile.EmailVerified {
		return nil, library.Invalid("email", "Google account has no verified email")
	}

	user, err = s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if user.GoogleID != nil {
			return nil, ErrAccountLinked
		}
		if err := s.store.LinkGoogleID(ctx, user.ID, profile.ID); err != nil {
			return nil, fmt.Errorf("failed to link Google account: %w", err)
		}
		user.GoogleID = &profile.ID
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = email
	}
	googleID := profile.ID
	user = &entities.User{
		Email:    email,
		GoogleID: &googleID,
		Name:     name,
		Role:     entities.UserRoleUser,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, translate(err)
	}
	return user, nil
}
