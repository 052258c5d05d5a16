package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/msomdec/shelfly/internal/domain"
	"github.com/msomdec/shelfly/internal/repository/sqlite/migrations"
)

// DB is the shared store handle. The schema is prepared lazily by
// EnsureReady, which every repository calls before touching the database.
type DB struct {
	SqlDB *sql.DB

	mu    sync.Mutex
	ready bool
}

// New opens a SQLite database at the given path and configures it for use.
// Foreign keys, WAL journaling and a busy timeout are set on every connection
// through the DSN.
func New(dbPath string) (*DB, error) {
	dsn := "file:" + dbPath +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_time_format=sqlite"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SqlDB: db}, nil
}

// EnsureReady applies pending migrations and purges expired reset tokens the
// first time it is called. Later calls return immediately. A failed attempt
// leaves the handle unready so the next call retries.
func (d *DB) EnsureReady(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ready {
		return nil
	}

	if err := d.Migrate(ctx); err != nil {
		return err
	}

	purged, err := deleteExpiredTokens(ctx, d.SqlDB, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("purge expired reset tokens: %w", err)
	}
	if purged > 0 {
		slog.Info("purged expired reset tokens", "count", purged)
	}

	d.ready = true
	return nil
}

// Migrate applies all unapplied schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	if err := migrations.Run(ctx, d.SqlDB); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	return d.SqlDB.Close()
}

// Users returns the user repository.
func (d *DB) Users() domain.UserRepository {
	return NewUserRepository(d)
}

// Products returns the product repository.
func (d *DB) Products() domain.ProductRepository {
	return &productRepo{db: d}
}

// ResetTokens returns the reset token repository.
func (d *DB) ResetTokens() domain.ResetTokenRepository {
	return &resetTokenRepo{db: d}
}

// FileStore returns the BLOB-backed file store.
func (d *DB) FileStore() domain.FileStore {
	return &fileStore{db: d}
}

func (d *DB) conn(ctx context.Context) (*sql.DB, error) {
	if err := d.EnsureReady(ctx); err != nil {
		return nil, err
	}
	return d.SqlDB, nil
}

func sqliteCode(err error) (int, bool) {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return 0, false
	}
	return se.Code(), true
}

// isUniqueConstraintError checks if the error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	code, ok := sqliteCode(err)
	if !ok {
		return false
	}
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "UNIQUE"))
}

// isForeignKeyError checks if the error is a SQLite foreign key violation.
func isForeignKeyError(err error) bool {
	code, ok := sqliteCode(err)
	if !ok {
		return false
	}
	return code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
		(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "FOREIGN KEY"))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
