package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/msomdec/shelfly/internal/domain"
)

// DefaultResetTTL is how long an issued reset code stays valid.
const DefaultResetTTL = 2 * time.Minute

const (
	minResetCode   = 100000
	resetCodeRange = 900000
)

// ResetService issues and verifies single-use password reset codes.
// There is no delivery channel: the code is handed back to the caller.
type ResetService struct {
	tokens   domain.ResetTokenRepository
	accounts *AccountService
	ttl      time.Duration
	now      func() time.Time
	random   io.Reader
}

// ResetOption configures a ResetService.
type ResetOption func(*ResetService)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) ResetOption {
	return func(s *ResetService) { s.now = now }
}

// WithTTL overrides how long issued codes stay valid.
func WithTTL(ttl time.Duration) ResetOption {
	return func(s *ResetService) { s.ttl = ttl }
}

// WithRandom overrides the entropy source for code generation.
func WithRandom(r io.Reader) ResetOption {
	return func(s *ResetService) { s.random = r }
}

// NewResetService creates a new ResetService.
func NewResetService(tokens domain.ResetTokenRepository, accounts *AccountService, opts ...ResetOption) *ResetService {
	s := &ResetService{
		tokens:   tokens,
		accounts: accounts,
		ttl:      DefaultResetTTL,
		now:      time.Now,
		random:   rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueToken replaces any outstanding code for email with a fresh 6-digit
// code and returns it.
func (s *ResetService) IssueToken(ctx context.Context, email string) (string, error) {
	user, err := s.accounts.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", fmt.Errorf("%w: no account with this email", domain.ErrInvalidInput)
	}

	code, err := s.generateCode()
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}

	token := &domain.ResetToken{
		Email:     user.Email,
		Token:     code,
		ExpiresAt: s.now().UTC().Add(s.ttl),
	}
	if err := s.tokens.Replace(ctx, token); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	return code, nil
}

// VerifyToken consumes a code. It returns the account for a valid code and
// nil for an unknown or expired one. Expired codes are deleted on sight.
func (s *ResetService) VerifyToken(ctx context.Context, email, code string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)

	token, err := s.tokens.Get(ctx, email, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reset token: %w", err)
	}

	if token.Expired(s.now()) {
		if err := s.tokens.Delete(ctx, token.ID); err != nil {
			return nil, fmt.Errorf("delete expired reset token: %w", err)
		}
		return nil, nil
	}

	if err := s.tokens.DeleteByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("consume reset token: %w", err)
	}

	return s.accounts.GetUserByEmail(ctx, email)
}

// ResetPassword verifies code and, when valid, sets newPassword. It returns
// nil without changing anything when the code is unknown or expired.
func (s *ResetService) ResetPassword(ctx context.Context, email, code, newPassword string) (*domain.User, error) {
	if utf8.RuneCountInString(newPassword) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	user, err := s.VerifyToken(ctx, email, code)
	if err != nil || user == nil {
		return nil, err
	}

	if err := s.accounts.UpdateUser(ctx, domain.UserUpdate{Email: user.Email, Password: &newPassword}); err != nil {
		return nil, err
	}
	return user, nil
}

// PurgeExpired deletes every code that has already expired.
func (s *ResetService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, s.now().UTC())
}

func (s *ResetService) generateCode() (string, error) {
	n, err := rand.Int(s.random, big.NewInt(resetCodeRange))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+minResetCode, 10), nil
}
