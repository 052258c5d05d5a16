package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the quantity at or below which a product counts as low stock.
const LowStockThreshold = 3

// Product is an inventory item owned by a user.
type Product struct {
	ID         int64
	OwnerEmail string
	Name       string
	Quantity   int64
	Price      float64
	ImageURI   string // Opaque image reference, empty when none
	CreatedAt  time.Time
}

// ProductUpdate is a partial product edit. Nil fields are left untouched.
type ProductUpdate struct {
	ID       int64
	Name     *string
	Quantity *int64
	Price    *float64
	ImageURI *string
}

// InventorySummary aggregates an owner's products.
type InventorySummary struct {
	ProductCount  int
	TotalQuantity int64
	LowStockCount int
	TotalValue    decimal.Decimal
}

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	// ListByOwner returns products newest first.
	ListByOwner(ctx context.Context, ownerEmail string) ([]Product, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id int64) error
	CountByOwner(ctx context.Context, ownerEmail string) (int, error)
	// CountByImageURI returns how many products reference imageURI.
	CountByImageURI(ctx context.Context, imageURI string) (int, error)
}
