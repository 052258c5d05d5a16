package domain

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// User represents a registered account. Email is the identity.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Phone        string // Empty when not supplied
	CreatedAt    time.Time
}

// UserUpdate lists the profile fields to change. Nil fields are left untouched.
type UserUpdate struct {
	Email    string
	Name     *string
	Password *string
}

// UserRepository defines persistence operations for users.
// Lookups return ErrNotFound when no row matches.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Update writes the non-nil fields. PasswordHash must already be hashed.
	Update(ctx context.Context, email string, name, passwordHash *string) error
	Delete(ctx context.Context, email string) error
	Count(ctx context.Context) (int, error)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims surrounding whitespace and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email has a basic local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
