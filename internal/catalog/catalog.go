package catalog

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service owns the per-business product catalog: validated upserts,
// duplicate-SKU protection and stock mutation at checkout time.
type Service struct {
	repo store.Repository
}

func New(repo store.Repository) *Service {
	return &Service{repo: repo}
}

// List returns the business's products ordered by name ascending using
// locale-aware collation, optionally filtered by a free-text query over
// name, SKU and category.
func (s *Service) List(ctx context.Context, businessID string, query string) ([]domain.Product, error) {
	all, err := s.repo.LoadProducts(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	products := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if p.BusinessID != businessID {
			continue
		}
		if query != "" && !matchesQuery(p, query) {
			continue
		}
		products = append(products, p)
	}

	coll := collate.New(language.Spanish, collate.IgnoreCase)
	slices.SortStableFunc(products, func(a, b domain.Product) int {
		return coll.CompareString(a.Name, b.Name)
	})
	return products, nil
}

func (s *Service) Get(ctx context.Context, businessID string, productID string) (domain.Product, error) {
	all, err := s.repo.LoadProducts(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range all {
		if p.BusinessID == businessID && p.ID == productID {
			return p, nil
		}
	}
	return domain.Product{}, store.ErrNotFound
}

// Upsert creates or replaces a product. A blank SKU is generated from
// name and category; a manual SKU is normalized and checked for
// case-insensitive duplicates within the business, excluding the record
// being updated.
func (s *Service) Upsert(ctx context.Context, businessID string, req domain.ProductUpsertRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if utf8.RuneCountInString(name) < 2 {
		return domain.Product{}, fmt.Errorf("%w: name must have at least 2 characters", store.ErrValidation)
	}
	if req.PriceCents < 0 {
		return domain.Product{}, fmt.Errorf("%w: price must not be negative", store.ErrValidation)
	}
	if req.Stock < 0 {
		return domain.Product{}, fmt.Errorf("%w: stock must not be negative", store.ErrValidation)
	}
	if req.MinStock < 0 {
		req.MinStock = 0
	}

	all, err := s.repo.LoadProducts(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	sku := NormalizeSKU(req.SKU)
	if sku == "" {
		sku = GenerateSKU(name, req.Category, func(candidate string) bool {
			return skuTaken(all, businessID, candidate, req.ID)
		})
	} else if skuTaken(all, businessID, sku, req.ID) {
		return domain.Product{}, fmt.Errorf("%w: %s", store.ErrDuplicateSKU, sku)
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:         req.ID,
		BusinessID: businessID,
		Name:       name,
		Category:   strings.TrimSpace(req.Category),
		SKU:        sku,
		Unit:       strings.TrimSpace(req.Unit),
		PriceCents: req.PriceCents,
		Stock:      req.Stock,
		MinStock:   req.MinStock,
		TrackStock: req.TrackStock,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if req.ID == "" {
		product.ID = uuid.NewString()
		all = append(all, product)
	} else {
		idx := -1
		for i, p := range all {
			if p.BusinessID == businessID && p.ID == req.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.Product{}, store.ErrNotFound
		}
		product.CreatedAt = all[idx].CreatedAt
		all[idx] = product
	}

	if err := s.repo.SaveProducts(ctx, all); err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_upsert", product.ID, fmt.Sprintf("name=%s,sku=%s,price=%d,stock=%d", product.Name, product.SKU, product.PriceCents, product.Stock))
	return product, nil
}

// Delete removes a product. Deleting an id that is not present is a
// no-op; callers with an open cart are responsible for purging the line.
func (s *Service) Delete(ctx context.Context, businessID string, productID string) error {
	all, err := s.repo.LoadProducts(ctx)
	if err != nil {
		return err
	}

	kept := all[:0]
	removed := false
	for _, p := range all {
		if p.BusinessID == businessID && p.ID == productID {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if !removed {
		return nil
	}
	if err := s.repo.SaveProducts(ctx, kept); err != nil {
		return err
	}
	s.logAudit(ctx, "product_delete", productID, "")
	return nil
}

// ClearForBusiness drops every product belonging to the business.
func (s *Service) ClearForBusiness(ctx context.Context, businessID string) error {
	all, err := s.repo.LoadProducts(ctx)
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, p := range all {
		if p.BusinessID != businessID {
			kept = append(kept, p)
		}
	}
	if err := s.repo.SaveProducts(ctx, kept); err != nil {
		return err
	}
	s.logAudit(ctx, "catalog_clear", businessID, "")
	return nil
}

// PreviewSKU returns the SKU that would be generated for the given name
// and category without persisting anything.
func (s *Service) PreviewSKU(ctx context.Context, businessID string, name, category string) (string, error) {
	all, err := s.repo.LoadProducts(ctx)
	if err != nil {
		return "", err
	}
	return GenerateSKU(name, category, func(candidate string) bool {
		return skuTaken(all, businessID, candidate, "")
	}), nil
}

// CommitSale re-reads the catalog, validates every line against current
// stock and only then applies the decrements in a single save. Any
// failing line leaves the catalog untouched.
func (s *Service) CommitSale(ctx context.Context, businessID string, items []domain.SaleItem) error {
	all, err := s.repo.LoadProducts(ctx)
	if err != nil {
		return err
	}

	byID := make(map[string]int, len(all))
	for i, p := range all {
		if p.BusinessID == businessID {
			byID[p.ID] = i
		}
	}

	for _, item := range items {
		idx, ok := byID[item.ProductID]
		if !ok {
			return fmt.Errorf("%w: %s", store.ErrProductGone, item.Name)
		}
		p := all[idx]
		if p.TrackStock && p.Stock < item.Qty {
			return fmt.Errorf("%w: %s", store.ErrInsufficientStock, p.Name)
		}
	}

	now := time.Now().UTC()
	for _, item := range items {
		idx := byID[item.ProductID]
		if !all[idx].TrackStock {
			continue
		}
		all[idx].Stock = max(0, all[idx].Stock-item.Qty)
		all[idx].UpdatedAt = now
	}

	return s.repo.SaveProducts(ctx, all)
}

// IsLowStock reports whether a product should surface on the low-stock
// dashboard: under its own minimum when one is set, otherwise in the
// 1..3 range.
func IsLowStock(p domain.Product) bool {
	if !p.TrackStock {
		return false
	}
	if p.MinStock > 0 {
		return p.Stock <= p.MinStock
	}
	return p.Stock > 0 && p.Stock <= 3
}

func matchesQuery(p domain.Product, query string) bool {
	return strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.SKU), query) ||
		strings.Contains(strings.ToLower(p.Category), query)
}

func skuTaken(products []domain.Product, businessID string, sku string, excludeID string) bool {
	for _, p := range products {
		if p.BusinessID != businessID || p.ID == excludeID {
			continue
		}
		if strings.EqualFold(p.SKU, sku) {
			return true
		}
	}
	return false
}

func (s *Service) logAudit(ctx context.Context, action, entityID, detail string) {
	username := "system"
	if actor, ok := ActorFromContext(ctx); ok {
		username = actor.Username
	}
	log.Printf("[catalog] audit actor=%s action=%s entity=%s %s", username, action, entityID, detail)
}
