package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/shelfly/internal/domain"
)

// productRepo implements domain.ProductRepository using SQLite.
type productRepo struct {
	db *DB
}

const productColumns = `id, ownerEmail, name, quantity, price, imageUri, created_at`

func (r *productRepo) Create(ctx context.Context, product *domain.Product) error {
	db, err := r.db.conn(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`INSERT INTO products (ownerEmail, name, quantity, price, imageUri, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		product.OwnerEmail, product.Name, product.Quantity, product.Price,
		nullString(product.ImageURI), now,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("%w: owner not found", domain.ErrInvalidInput)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	product.ID = id
	product.CreatedAt = now
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	db, err := r.db.conn(ctx)
	if err != nil {
		return nil, err
	}

	p, err := scanProduct(db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *productRepo) ListByOwner(ctx context.Context, ownerEmail string) ([]domain.Product, error) {
	db, err := r.db.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE ownerEmail = ? ORDER BY id DESC`, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// Update rewrites the editable fields. The owner is never changed.
func (r *productRepo) Update(ctx context.Context, product *domain.Product) error {
	db, err := r.db.conn(ctx)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE products SET name = ?, quantity = ?, price = ?, imageUri = ?
		 WHERE id = ?`,
		product.Name, product.Quantity, product.Price, nullString(product.ImageURI), product.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
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

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	db, err := r.db.conn(ctx)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
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

func (r *productRepo) CountByOwner(ctx context.Context, ownerEmail string) (int, error) {
	db, err := r.db.conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE ownerEmail = ?", ownerEmail,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

func (r *productRepo) CountByImageURI(ctx context.Context, imageURI string) (int, error) {
	db, err := r.db.conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE imageUri = ?", imageURI,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count products by image: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var image sql.NullString
	if err := row.Scan(&p.ID, &p.OwnerEmail, &p.Name, &p.Quantity, &p.Price, &image, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ImageURI = image.String
	return p, nil
}
