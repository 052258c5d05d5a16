package domain

import "context"

// Database defines lifecycle operations for the underlying database.
type Database interface {
	// EnsureReady prepares the schema on first use. Later calls are no-ops.
	EnsureReady(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
