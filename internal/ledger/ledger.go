package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/store"
)

// Service is the append-only sales ledger. Sales are never mutated once
// appended; listing filters by business, inclusive date range and
// payment method.
type Service struct {
	repo store.Repository
}

func New(repo store.Repository) *Service {
	return &Service{repo: repo}
}

// Append records a completed sale. An empty id or timestamp is filled
// in; an empty payment method falls back to the default.
func (s *Service) Append(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	if sale.BusinessID == "" {
		return domain.Sale{}, fmt.Errorf("%w: sale requires a business", store.ErrValidation)
	}
	if len(sale.Items) == 0 {
		return domain.Sale{}, store.ErrEmptyCart
	}
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.PaymentMethod == "" {
		sale.PaymentMethod = domain.DefaultPaymentMethod
	}

	all, err := s.repo.LoadSales(ctx)
	if err != nil {
		return domain.Sale{}, err
	}
	all = append(all, sale)
	if err := s.repo.SaveSales(ctx, all); err != nil {
		return domain.Sale{}, err
	}
	return sale, nil
}

// Filter narrows a listing. From and To are inclusive; To extends to the
// end of its calendar day.
type Filter struct {
	From   *time.Time
	To     *time.Time
	Method string
}

func (s *Service) ListForBusiness(ctx context.Context, businessID string, filter Filter) ([]domain.Sale, error) {
	all, err := s.repo.LoadSales(ctx)
	if err != nil {
		return nil, err
	}

	var toEnd time.Time
	if filter.To != nil {
		t := *filter.To
		toEnd = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
	}

	sales := make([]domain.Sale, 0, len(all))
	for _, sale := range all {
		if sale.BusinessID != businessID {
			continue
		}
		if filter.From != nil && sale.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && sale.CreatedAt.After(toEnd) {
			continue
		}
		if filter.Method != "" && methodOf(sale) != filter.Method {
			continue
		}
		sales = append(sales, sale)
	}
	return sales, nil
}

// FindByIdempotencyKey returns the sale previously recorded under key,
// if any. An empty key never matches.
func (s *Service) FindByIdempotencyKey(ctx context.Context, businessID string, key string) (*domain.Sale, error) {
	if key == "" {
		return nil, nil
	}
	all, err := s.repo.LoadSales(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].BusinessID == businessID && all[i].IdempotencyKey == key {
			sale := all[i]
			return &sale, nil
		}
	}
	return nil, nil
}

func methodOf(sale domain.Sale) string {
	if sale.PaymentMethod == "" {
		return domain.DefaultPaymentMethod
	}
	return sale.PaymentMethod
}
