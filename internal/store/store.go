package store

import (
	"context"
	"errors"

	"tiendita/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid input")
	ErrDuplicateSKU      = errors.New("duplicate sku")
	ErrDuplicateHandle   = errors.New("duplicate handle")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNonPositiveTotal  = errors.New("total must be greater than zero")
	ErrProductGone       = errors.New("product no longer exists")
)

// Repository persists whole collections per entity type. Implementations
// may assume a single concurrent writer; reads can happen at any time.
type Repository interface {
	LoadBusinesses(ctx context.Context) ([]domain.Business, error)
	SaveBusinesses(ctx context.Context, businesses []domain.Business) error
	LoadProducts(ctx context.Context) ([]domain.Product, error)
	SaveProducts(ctx context.Context, products []domain.Product) error
	LoadSales(ctx context.Context) ([]domain.Sale, error)
	SaveSales(ctx context.Context, sales []domain.Sale) error
	LoadUsers(ctx context.Context) ([]domain.UserAccount, error)
	SaveUsers(ctx context.Context, users []domain.UserAccount) error
}

// NormalizeProduct folds the legacy business_id field into the canonical
// one. Applying it twice is the same as applying it once.
func NormalizeProduct(p domain.Product) domain.Product {
	if p.BusinessID == "" && p.LegacyBusinessID != "" {
		p.BusinessID = p.LegacyBusinessID
	}
	p.LegacyBusinessID = ""
	if p.Stock < 0 {
		p.Stock = 0
	}
	return p
}

// NormalizeSale mirrors NormalizeProduct for ledger records.
func NormalizeSale(s domain.Sale) domain.Sale {
	if s.BusinessID == "" && s.LegacyBusinessID != "" {
		s.BusinessID = s.LegacyBusinessID
	}
	s.LegacyBusinessID = ""
	return s
}

// NormalizeProducts normalizes a loaded collection in place.
func NormalizeProducts(products []domain.Product) []domain.Product {
	for i := range products {
		products[i] = NormalizeProduct(products[i])
	}
	return products
}

// NormalizeSales normalizes a loaded collection in place.
func NormalizeSales(sales []domain.Sale) []domain.Sale {
	for i := range sales {
		sales[i] = NormalizeSale(sales[i])
	}
	return sales
}
