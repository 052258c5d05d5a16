package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/shelfly/internal/domain"
)

// UserRepository implements domain.UserRepository using SQLite.
// Emails are expected to be normalized by the caller.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite-backed UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	db, err := r.db.conn(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (name, email, password, phone, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.Name, user.Email, user.PasswordHash, nullString(user.Phone), now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	db, err := r.db.conn(ctx)
	if err != nil {
		return nil, err
	}

	user := &domain.User{}
	var phone sql.NullString
	err = db.QueryRowContext(ctx,
		`SELECT id, name, email, password, phone, created_at
		 FROM users WHERE email = ? LIMIT 1`, email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &phone, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	user.Phone = phone.String
	return user, nil
}

// Update changes name and/or password hash in a single statement; a nil
// argument keeps the stored value.
func (r *UserRepository) Update(ctx context.Context, email string, name, passwordHash *string) error {
	db, err := r.db.conn(ctx)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE users SET name = COALESCE(?, name), password = COALESCE(?, password)
		 WHERE email = ?`,
		optionalString(name), optionalString(passwordHash), email,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the user. Products and reset tokens go with it through
// ON DELETE CASCADE.
func (r *UserRepository) Delete(ctx context.Context, email string) error {
	db, err := r.db.conn(ctx)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, "DELETE FROM users WHERE email = ?", email)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	db, err := r.db.conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func optionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
