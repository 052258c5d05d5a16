package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/msomdec/shelfly/internal/domain"
)

// ProductService handles product CRUD scoped to an owner's email.
type ProductService struct {
	products domain.ProductRepository
	users    domain.UserRepository
	images   *ImageService
}

// NewProductService creates a new ProductService. images may be nil when
// stored images are not in use.
func NewProductService(products domain.ProductRepository, users domain.UserRepository, images *ImageService) *ProductService {
	return &ProductService{products: products, users: users, images: images}
}

type productInput struct {
	OwnerEmail string  `label:"owner email" validate:"required"`
	Name       string  `label:"product name" validate:"required"`
	Quantity   int64   `label:"quantity" validate:"gte=0"`
	Price      float64 `label:"price" validate:"finite,gte=0"`
}

type productEdit struct {
	ID       int64   `label:"product ID" validate:"required"`
	Name     string  `label:"product name" validate:"required"`
	Quantity int64   `label:"quantity" validate:"gte=0"`
	Price    float64 `label:"price" validate:"finite,gte=0"`
}

// InsertProduct validates and stores a product for an existing owner and
// returns its ID.
func (s *ProductService) InsertProduct(ctx context.Context, product *domain.Product) (int64, error) {
	product.OwnerEmail = domain.NormalizeEmail(product.OwnerEmail)
	product.Name = strings.TrimSpace(product.Name)

	in := productInput{
		OwnerEmail: product.OwnerEmail,
		Name:       product.Name,
		Quantity:   product.Quantity,
		Price:      product.Price,
	}
	if err := validateInput(in); err != nil {
		return 0, err
	}

	if _, err := s.users.GetByEmail(ctx, product.OwnerEmail); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("%w: owner not found", domain.ErrInvalidInput)
		}
		return 0, fmt.Errorf("get owner: %w", err)
	}

	if err := s.products.Create(ctx, product); err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}
	return product.ID, nil
}

// GetProductsByOwner returns an owner's products, most recently created first.
func (s *ProductService) GetProductsByOwner(ctx context.Context, email string) ([]domain.Product, error) {
	return s.products.ListByOwner(ctx, domain.NormalizeEmail(email))
}

// GetProductByID returns a product, or nil if there is none.
func (s *ProductService) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// UpdateProduct replaces a product's name, quantity, price and image.
// The owner cannot be changed.
func (s *ProductService) UpdateProduct(ctx context.Context, product *domain.Product) error {
	product.Name = strings.TrimSpace(product.Name)

	in := productEdit{
		ID:       product.ID,
		Name:     product.Name,
		Quantity: product.Quantity,
		Price:    product.Price,
	}
	if err := validateInput(in); err != nil {
		return err
	}

	existing, err := s.products.GetByID(ctx, product.ID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}

	if err := s.products.Update(ctx, product); err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	if existing.ImageURI != product.ImageURI {
		s.releaseImage(ctx, existing.ImageURI)
	}
	product.OwnerEmail = existing.OwnerEmail
	product.CreatedAt = existing.CreatedAt
	return nil
}

// PatchProduct applies a partial edit: only non-nil fields change.
func (s *ProductService) PatchProduct(ctx context.Context, patch domain.ProductUpdate) (*domain.Product, error) {
	if patch.Name == nil && patch.Quantity == nil && patch.Price == nil && patch.ImageURI == nil {
		return nil, fmt.Errorf("%w: no fields to update", domain.ErrInvalidInput)
	}
	if patch.ID == 0 {
		return nil, fmt.Errorf("%w: product ID is required", domain.ErrInvalidInput)
	}

	product, err := s.products.GetByID(ctx, patch.ID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Quantity != nil {
		product.Quantity = *patch.Quantity
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.ImageURI != nil {
		product.ImageURI = *patch.ImageURI
	}

	if err := s.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProductByID removes a product and any image stored for it.
func (s *ProductService) DeleteProductByID(ctx context.Context, id int64) error {
	existing, err := s.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.releaseImage(ctx, existing.ImageURI)
	return nil
}

// CountProductsForOwner returns how many products an owner has.
func (s *ProductService) CountProductsForOwner(ctx context.Context, email string) (int, error) {
	return s.products.CountByOwner(ctx, domain.NormalizeEmail(email))
}

// Summary aggregates an owner's inventory.
func (s *ProductService) Summary(ctx context.Context, email string) (*domain.InventorySummary, error) {
	products, err := s.GetProductsByOwner(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	summary := &domain.InventorySummary{TotalValue: decimal.Zero}
	for _, p := range products {
		summary.ProductCount++
		summary.TotalQuantity += p.Quantity
		if p.Quantity <= domain.LowStockThreshold {
			summary.LowStockCount++
		}
		value := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(p.Quantity))
		summary.TotalValue = summary.TotalValue.Add(value)
	}
	return summary, nil
}

func (s *ProductService) releaseImage(ctx context.Context, uri string) {
	releaseStoredImage(ctx, s.products, s.images, uri)
}

// releaseStoredImage drops a stored image once no product refers to it.
// Failures are logged and otherwise ignored.
func releaseStoredImage(ctx context.Context, products domain.ProductRepository, images *ImageService, uri string) {
	if images == nil || !IsStoredImage(uri) {
		return
	}

	refs, err := products.CountByImageURI(ctx, uri)
	if err != nil {
		slog.Warn("count image references", "uri", uri, "error", err)
		return
	}
	if refs > 0 {
		return
	}

	if err := images.Delete(ctx, uri); err != nil {
		slog.Warn("release product image", "uri", uri, "error", err)
	}
}
