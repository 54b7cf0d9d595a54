package register

import (
	"context"
	"log"

	"tiendita/backend/internal/catalog"
	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/ledger"
	"tiendita/backend/internal/store"
)

// Engine turns a cart into a recorded sale: empty-cart and total checks
// first, then an all-or-nothing stock commit against the current
// catalog, and only then the ledger append.
type Engine struct {
	catalog *catalog.Service
	ledger  *ledger.Service
}

func NewEngine(cat *catalog.Service, led *ledger.Service) *Engine {
	return &Engine{catalog: cat, ledger: led}
}

type CheckoutOptions struct {
	DiscountCents  int64
	PaymentMethod  string
	EmployeeName   string
	IdempotencyKey string
}

// Checkout processes the cart. The returned bool is true when the
// idempotency key matched a previously recorded sale, in which case that
// sale is returned and nothing is charged again. On success the cart is
// cleared.
func (e *Engine) Checkout(ctx context.Context, businessID string, cart *Cart, opts CheckoutOptions) (domain.Sale, bool, error) {
	if cart.Empty() {
		return domain.Sale{}, false, store.ErrEmptyCart
	}

	if existing, err := e.ledger.FindByIdempotencyKey(ctx, businessID, opts.IdempotencyKey); err != nil {
		return domain.Sale{}, false, err
	} else if existing != nil {
		return *existing, true, nil
	}

	subtotal := cart.SubtotalCents()
	discount := opts.DiscountCents
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	total := subtotal - discount
	if total <= 0 {
		return domain.Sale{}, false, store.ErrNonPositiveTotal
	}

	items := make([]domain.SaleItem, 0, len(cart.Lines()))
	for _, line := range cart.Lines() {
		items = append(items, domain.SaleItem{
			ProductID:      line.ProductID,
			Name:           line.Name,
			UnitPriceCents: line.UnitPriceCents,
			Qty:            line.Qty,
		})
	}

	if err := e.catalog.CommitSale(ctx, businessID, items); err != nil {
		return domain.Sale{}, false, err
	}

	employee := opts.EmployeeName
	if employee == "" {
		if actor, ok := catalog.ActorFromContext(ctx); ok {
			employee = actor.Name
			if employee == "" {
				employee = actor.Username
			}
		}
	}

	sale, err := e.ledger.Append(ctx, domain.Sale{
		BusinessID:     businessID,
		Items:          items,
		SubtotalCents:  subtotal,
		DiscountCents:  discount,
		TotalCents:     total,
		PaymentMethod:  opts.PaymentMethod,
		EmployeeName:   employee,
		IdempotencyKey: opts.IdempotencyKey,
	})
	if err != nil {
		return domain.Sale{}, false, err
	}

	cart.Clear()
	log.Printf("[checkout] sale=%s biz=%s items=%d total=%d method=%s", sale.ID, businessID, len(sale.Items), sale.TotalCents, sale.PaymentMethod)
	return sale, false, nil
}
