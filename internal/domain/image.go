package domain

import "context"

// FileStore abstracts raw file byte storage.
// The implementation stores BLOBs in SQLite next to the products that
// reference them.
type FileStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
