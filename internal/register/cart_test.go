package register

import (
	"context"
	"errors"
	"testing"

	"tiendita/backend/internal/catalog"
	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/store"
	"tiendita/backend/internal/store/memory"
)

const testBiz = "biz-test"

func newCartFixture(t *testing.T) (*catalog.Service, *Cart) {
	t.Helper()
	cat := catalog.New(memory.New())
	return cat, NewCart(cat, testBiz)
}

func seedProduct(t *testing.T, cat *catalog.Service, req domain.ProductUpsertRequest) domain.Product {
	t.Helper()
	product, err := cat.Upsert(context.Background(), testBiz, req)
	if err != nil {
		t.Fatalf("seed product %q: %v", req.Name, err)
	}
	return product
}

func TestCartAddCapturesNameAndPrice(t *testing.T) {
	cat, cart := newCartFixture(t)
	ctx := context.Background()
	coca := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Coca-Cola", SKU: "COCA", PriceCents: 2000, Stock: 10, TrackStock: true})

	if err := cart.Add(ctx, coca.ID); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := cart.Add(ctx, coca.ID); err != nil {
		t.Fatalf("second add failed: %v", err)
	}

	lines := cart.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected a single merged line, got %d", len(lines))
	}
	if lines[0].Qty != 2 || lines[0].Name != "Coca-Cola" || lines[0].UnitPriceCents != 2000 {
		t.Fatalf("unexpected line %+v", lines[0])
	}
	if cart.SubtotalCents() != 4000 {
		t.Fatalf("expected subtotal 4000, got %d", cart.SubtotalCents())
	}
}

func TestCartLinePriceSurvivesCatalogEdit(t *testing.T) {
	cat, cart := newCartFixture(t)
	ctx := context.Background()
	coca := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Coca-Cola", SKU: "COCA", PriceCents: 2000, Stock: 10, TrackStock: true})

	if err := cart.Add(ctx, coca.ID); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := cat.Upsert(ctx, testBiz, domain.ProductUpsertRequest{
		ID: coca.ID, Name: "Coca-Cola", SKU: "COCA", PriceCents: 9999, Stock: 10, TrackStock: true,
	}); err != nil {
		t.Fatalf("catalog edit failed: %v", err)
	}

	if cart.SubtotalCents() != 2000 {
		t.Fatalf("line must keep the price captured at add time, got %d", cart.SubtotalCents())
	}
}

func TestCartAddRejectsOutOfStock(t *testing.T) {
	cat, cart := newCartFixture(t)
	ctx := context.Background()
	agotado := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Agotado", SKU: "AGO", PriceCents: 500, Stock: 0, TrackStock: true})

	err := cart.Add(ctx, agotado.ID)
	if !errors.Is(err, store.ErrOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}
}

func TestCartAddEnforcesStockCeiling(t *testing.T) {
	cat, cart := newCartFixture(t)
	ctx := context.Background()
	pan := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Pan dulce", SKU: "PAN", PriceCents: 1200, Stock: 2, TrackStock: true})

	if err := cart.AddQty(ctx, pan.ID, 2); err != nil {
		t.Fatalf("add within stock failed: %v", err)
	}
	if err := cart.Increment(ctx, pan.ID); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock past ceiling, got %v", err)
	}
	if got := cart.Lines()[0].Qty; got != 2 {
		t.Fatalf("failed increment must not change qty, got %d", got)
	}
}

func TestCartUntrackedProductIgnoresStock(t *testing.T) {
	cat, cart := newCartFixture(t)
	ctx := context.Background()
	servicio := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Envoltura", SKU: "SERV", PriceCents: 2500, TrackStock: false})

	if err := cart.AddQty(ctx, servicio.ID, 50); err != nil {
		t.Fatalf("untracked add must succeed, got %v", err)
	}
}

func TestCartAddValidation(t *testing.T) {
	cat, cart := newCartFixture(t)
	ctx := context.Background()
	coca := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Coca-Cola", SKU: "COCA", PriceCents: 2000, Stock: 10, TrackStock: true})

	if err := cart.AddQty(ctx, coca.ID, 0); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for zero qty, got %v", err)
	}
	if err := cart.Add(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func TestCartIncrementRequiresExistingLine(t *testing.T) {
	cat, cart := newCartFixture(t)
	coca := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Coca-Cola", SKU: "COCA", PriceCents: 2000, Stock: 10, TrackStock: true})

	if err := cart.Increment(context.Background(), coca.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for increment on empty cart, got %v", err)
	}
}

func TestCartDecrementRemovesLineAtOne(t *testing.T) {
	cat, cart := newCartFixture(t)
	ctx := context.Background()
	coca := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Coca-Cola", SKU: "COCA", PriceCents: 2000, Stock: 10, TrackStock: true})

	if err := cart.AddQty(ctx, coca.ID, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	cart.Decrement(coca.ID)
	if got := cart.Lines()[0].Qty; got != 1 {
		t.Fatalf("expected qty 1 after decrement, got %d", got)
	}
	cart.Decrement(coca.ID)
	if !cart.Empty() {
		t.Fatalf("decrementing a single-unit line must remove it")
	}
	cart.Decrement(coca.ID)
}

func TestCartPruneMissingDropsDeletedProducts(t *testing.T) {
	cat, cart := newCartFixture(t)
	ctx := context.Background()
	coca := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Coca-Cola", SKU: "COCA", PriceCents: 2000, Stock: 10, TrackStock: true})
	pan := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Pan dulce", SKU: "PAN", PriceCents: 1200, Stock: 5, TrackStock: true})

	if err := cart.Add(ctx, coca.ID); err != nil {
		t.Fatalf("add coca: %v", err)
	}
	if err := cart.Add(ctx, pan.ID); err != nil {
		t.Fatalf("add pan: %v", err)
	}

	if err := cat.Delete(ctx, testBiz, pan.ID); err != nil {
		t.Fatalf("delete pan: %v", err)
	}
	if err := cart.PruneMissing(ctx); err != nil {
		t.Fatalf("prune failed: %v", err)
	}

	lines := cart.Lines()
	if len(lines) != 1 || lines[0].ProductID != coca.ID {
		t.Fatalf("expected only the surviving line, got %+v", lines)
	}
}
