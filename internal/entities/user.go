package entities

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAdmin UserRole = "ADMIN"
)

// IsValid reports whether r is one of the known roles.
func (r UserRole) IsValid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

type User struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	Email        string   `gorm:"uniqueIndex;size:254;not null" json:"email"`
	PasswordHash string   `gorm:"size:255" json:"-"`
	GoogleID     *string  `gorm:"uniqueIndex;size:100" json:"googleId,omitempty"` // External identity, never set by password sign-up
	Name         string   `gorm:"size:200;not null" json:"name"`
	Role         UserRole `gorm:"size:10;not null;default:USER" json:"role"`

	// Account lockout fields
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// AccessToken is a bearer credential issued at login. Only the SHA-256 hash
// of the token is stored; the plaintext is shown to the client once.
type AccessToken struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"userId"`
	TokenHash  string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt  *time.Time `gorm:"index" json:"expiresAt,omitempty"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AccessToken) TableName() string {
	return "access_tokens"
}

// IsExpired checks if the token is past its expiry time.
func (t *AccessToken) IsExpired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return !now.Before(*t.ExpiresAt)
}
