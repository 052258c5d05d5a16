// Package migrations holds the ordered schema steps for the SQLite store and
// the runner that applies them.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
)

//go:embed *.sql
var FS embed.FS

// Migration is one named, idempotent schema step. Steps are applied in slice
// order and recorded by name in schema_migrations.
type Migration struct {
	Name string
	Up   func(ctx context.Context, tx *sql.Tx) error
}

// All lists every schema step in application order.
var All = []Migration{
	{Name: "001_create_users", Up: execFile("001_create_users.sql")},
	{Name: "002_add_users_phone", Up: addColumnIfMissing("users", "phone", "TEXT")},
	{Name: "003_create_products", Up: execFile("003_create_products.sql")},
	{Name: "004_create_reset_tokens", Up: execFile("004_create_reset_tokens.sql")},
	{Name: "005_create_file_blobs", Up: execFile("005_create_file_blobs.sql")},
}

// Run applies all unapplied migrations to the database.
func Run(ctx context.Context, db *sql.DB) error {
	return Apply(ctx, db, All)
}

// Apply applies the given steps that have not been recorded yet.
// It tracks applied migrations in a schema_migrations table.
func Apply(ctx context.Context, db *sql.DB, steps []Migration) error {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range steps {
		if applied[m.Name] {
			slog.Debug("migration already applied", "name", m.Name)
			continue
		}

		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		slog.Info("migration applied", "name", m.Name)
	}

	return nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func getAppliedMigrations(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM schema_migrations ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := m.Up(ctx, tx); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (name) VALUES (?)", m.Name); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}

func execFile(filename string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		content, err := fs.ReadFile(FS, filename)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute sql: %w", err)
		}
		return nil
	}
}

// addColumnIfMissing adds a column unless a table created by an older
// release already has it.
func addColumnIfMissing(table, column, definition string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		exists, err := HasColumn(ctx, tx, table, column)
		if err != nil {
			return err
		}
		if exists {
			slog.Debug("column already present", "table", table, "column", column)
			return nil
		}

		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, column, err)
		}
		return nil
	}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// HasColumn reports whether table has a column with the given name.
func HasColumn(ctx context.Context, q queryer, table, column string) (bool, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, fmt.Errorf("scan table info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
