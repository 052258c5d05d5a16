package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/msomdec/shelfly/internal/domain"
)

// AccountService handles registration, credential checks, profile updates
// and account deletion.
type AccountService struct {
	users  domain.UserRepository
	hasher PasswordHasher

	products domain.ProductRepository
	images   *ImageService
}

// AccountOption configures an AccountService.
type AccountOption func(*AccountService)

// WithOwnedImages makes DeleteUser release the stored images of the
// products removed along with the account.
func WithOwnedImages(products domain.ProductRepository, images *ImageService) AccountOption {
	return func(s *AccountService) {
		s.products = products
		s.images = images
	}
}

// NewAccountService creates a new AccountService.
func NewAccountService(users domain.UserRepository, hasher PasswordHasher, opts ...AccountOption) *AccountService {
	s := &AccountService{users: users, hasher: hasher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type registration struct {
	Name     string `label:"name" validate:"required"`
	Email    string `label:"email" validate:"required,email_shape"`
	Password string `label:"password" validate:"required,min=6"`
}

// CreateUser registers a new account and returns it with ID and CreatedAt set.
func (s *AccountService) CreateUser(ctx context.Context, name, email, password, phone string) (*domain.User, error) {
	in := registration{
		Name:     strings.TrimSpace(name),
		Email:    domain.NormalizeEmail(email),
		Password: password,
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(phone),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// GetUserByEmail returns the account for email, or nil if there is none.
func (s *AccountService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ValidateUser returns the account when password matches, or nil for an
// unknown email or a wrong password.
func (s *AccountService) ValidateUser(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, err
	}

	if !s.hasher.Matches(user.PasswordHash, password) {
		return nil, nil
	}
	return user, nil
}

// UpdateUser changes the name and/or password of an account.
func (s *AccountService) UpdateUser(ctx context.Context, update domain.UserUpdate) error {
	if update.Name == nil && update.Password == nil {
		return fmt.Errorf("%w: no fields to update", domain.ErrInvalidInput)
	}

	email := domain.NormalizeEmail(update.Email)
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}

	var name *string
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if trimmed == "" {
			return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
		}
		name = &trimmed
	}
	if update.Password != nil && utf8.RuneCountInString(*update.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	var hash *string
	if update.Password != nil {
		h, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return err
		}
		hash = &h
	}

	if err := s.users.Update(ctx, email, name, hash); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// DeleteUser removes an account together with its products and reset tokens.
func (s *AccountService) DeleteUser(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}

	images, err := s.ownedImages(ctx, email)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, email); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	slog.Info("account deleted", "email", email)

	for _, uri := range images {
		releaseStoredImage(ctx, s.products, s.images, uri)
	}
	return nil
}

// ownedImages lists the distinct stored image URIs of an owner's products.
func (s *AccountService) ownedImages(ctx context.Context, email string) ([]string, error) {
	if s.products == nil || s.images == nil {
		return nil, nil
	}

	products, err := s.products.ListByOwner(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	seen := make(map[string]bool)
	var uris []string
	for _, p := range products {
		if IsStoredImage(p.ImageURI) && !seen[p.ImageURI] {
			seen[p.ImageURI] = true
			uris = append(uris, p.ImageURI)
		}
	}
	return uris, nil
}

// CountUsers returns the number of registered accounts.
func (s *AccountService) CountUsers(ctx context.Context) (int, error) {
	return s.users.Count(ctx)
}
