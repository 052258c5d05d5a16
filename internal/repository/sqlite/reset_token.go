package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/shelfly/internal/domain"
)

// resetTokenRepo implements domain.ResetTokenRepository using SQLite.
type resetTokenRepo struct {
	db *DB
}

func (r *resetTokenRepo) Replace(ctx context.Context, token *domain.ResetToken) error {
	db, err := r.db.conn(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM reset_tokens WHERE email = ?", token.Email); err != nil {
		return fmt.Errorf("delete previous reset tokens: %w", err)
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reset_tokens (email, token, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		token.Email, token.Token, token.ExpiresAt.UTC(), now,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("%w: no account with this email", domain.ErrInvalidInput)
		}
		return fmt.Errorf("insert reset token: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	token.ID = id
	token.CreatedAt = now
	return nil
}

func (r *resetTokenRepo) Get(ctx context.Context, email, token string) (*domain.ResetToken, error) {
	db, err := r.db.conn(ctx)
	if err != nil {
		return nil, err
	}

	t := &domain.ResetToken{}
	err = db.QueryRowContext(ctx,
		`SELECT id, email, token, expires_at, created_at
		 FROM reset_tokens WHERE email = ? AND token = ?
		 ORDER BY id DESC LIMIT 1`, email, token,
	).Scan(&t.ID, &t.Email, &t.Token, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get reset token: %w", err)
	}
	return t, nil
}

func (r *resetTokenRepo) Delete(ctx context.Context, id int64) error {
	db, err := r.db.conn(ctx)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM reset_tokens WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	return nil
}

func (r *resetTokenRepo) DeleteByEmail(ctx context.Context, email string) error {
	db, err := r.db.conn(ctx)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM reset_tokens WHERE email = ?", email); err != nil {
		return fmt.Errorf("delete reset tokens: %w", err)
	}
	return nil
}

func (r *resetTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	db, err := r.db.conn(ctx)
	if err != nil {
		return 0, err
	}
	return deleteExpiredTokens(ctx, db, now)
}

func deleteExpiredTokens(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, "DELETE FROM reset_tokens WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired reset tokens: %w", err)
	}
	return result.RowsAffected()
}
