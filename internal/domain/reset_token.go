package domain

import (
	"context"
	"time"
)

// ResetToken is a single-use numeric password reset code.
type ResetToken struct {
	ID        int64
	Email     string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is no longer usable at now. A token is
// still valid at exactly ExpiresAt.
func (t *ResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// ResetTokenRepository handles reset token persistence.
type ResetTokenRepository interface {
	// Replace deletes every token for the email and stores token in one transaction.
	Replace(ctx context.Context, token *ResetToken) error
	Get(ctx context.Context, email, token string) (*ResetToken, error)
	Delete(ctx context.Context, id int64) error
	DeleteByEmail(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
