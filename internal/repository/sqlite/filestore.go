package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/shelfly/internal/domain"
)

// fileStore implements domain.FileStore using SQLite BLOBs.
type fileStore struct {
	db *DB
}

func (s *fileStore) Save(ctx context.Context, key string, data []byte) error {
	db, err := s.db.conn(ctx)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO file_blobs (storage_key, data, created_at) VALUES (?, ?, ?)",
		key, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save file blob: %w", err)
	}
	return nil
}

func (s *fileStore) Get(ctx context.Context, key string) ([]byte, error) {
	db, err := s.db.conn(ctx)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = db.QueryRowContext(ctx,
		"SELECT data FROM file_blobs WHERE storage_key = ?", key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get file blob: %w", err)
	}
	return data, nil
}

func (s *fileStore) Delete(ctx context.Context, key string) error {
	db, err := s.db.conn(ctx)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		"DELETE FROM file_blobs WHERE storage_key = ?", key,
	)
	if err != nil {
		return fmt.Errorf("delete file blob: %w", err)
	}
	return nil
}
