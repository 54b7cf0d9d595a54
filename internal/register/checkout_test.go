package register

import (
	"context"
	"errors"
	"testing"

	"tiendita/backend/internal/catalog"
	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/ledger"
	"tiendita/backend/internal/store"
	"tiendita/backend/internal/store/memory"
)

func newCheckoutFixture(t *testing.T) (*catalog.Service, *ledger.Service, *Engine) {
	t.Helper()
	repo := memory.New()
	cat := catalog.New(repo)
	led := ledger.New(repo)
	return cat, led, NewEngine(cat, led)
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	cat, _, engine := newCheckoutFixture(t)
	cart := NewCart(cat, testBiz)

	_, _, err := engine.Checkout(context.Background(), testBiz, cart, CheckoutOptions{})
	if !errors.Is(err, store.ErrEmptyCart) {
		t.Fatalf("expected empty cart error, got %v", err)
	}
}

func TestCheckoutRecordsSaleAndClearsCart(t *testing.T) {
	cat, led, engine := newCheckoutFixture(t)
	ctx := context.Background()
	coca := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Coca-Cola", SKU: "COCA", PriceCents: 2000, Stock: 10, TrackStock: true})

	cart := NewCart(cat, testBiz)
	if err := cart.AddQty(ctx, coca.ID, 3); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	sale, duplicate, err := engine.Checkout(ctx, testBiz, cart, CheckoutOptions{PaymentMethod: "Card", EmployeeName: "Luis"})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if duplicate {
		t.Fatalf("fresh checkout must not be duplicate")
	}
	if sale.SubtotalCents != 6000 || sale.TotalCents != 6000 {
		t.Fatalf("unexpected totals %+v", sale)
	}
	if sale.PaymentMethod != "Card" || sale.EmployeeName != "Luis" {
		t.Fatalf("unexpected sale metadata %+v", sale)
	}
	if !cart.Empty() {
		t.Fatalf("cart must be cleared after checkout")
	}

	after, err := cat.Get(ctx, testBiz, coca.ID)
	if err != nil {
		t.Fatalf("get after checkout: %v", err)
	}
	if after.Stock != 7 {
		t.Fatalf("expected stock 7 after selling 3, got %d", after.Stock)
	}

	sales, err := led.ListForBusiness(ctx, testBiz, ledger.Filter{})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 || sales[0].ID != sale.ID {
		t.Fatalf("expected the sale in the ledger, got %+v", sales)
	}
}

func TestCheckoutClampsDiscount(t *testing.T) {
	cat, _, engine := newCheckoutFixture(t)
	ctx := context.Background()
	coca := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Coca-Cola", SKU: "COCA", PriceCents: 2000, Stock: 10, TrackStock: true})

	cart := NewCart(cat, testBiz)
	if err := cart.AddQty(ctx, coca.ID, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// A discount past the subtotal clamps to it, which zeroes the total
	// and fails the positive-total check.
	_, _, err := engine.Checkout(ctx, testBiz, cart, CheckoutOptions{DiscountCents: 99999})
	if !errors.Is(err, store.ErrNonPositiveTotal) {
		t.Fatalf("expected non-positive total, got %v", err)
	}

	// Negative discounts are treated as zero.
	sale, _, err := engine.Checkout(ctx, testBiz, cart, CheckoutOptions{DiscountCents: -500})
	if err != nil {
		t.Fatalf("checkout with negative discount failed: %v", err)
	}
	if sale.DiscountCents != 0 || sale.TotalCents != 4000 {
		t.Fatalf("expected zero discount and total 4000, got %+v", sale)
	}
}

func TestCheckoutPartialDiscount(t *testing.T) {
	cat, _, engine := newCheckoutFixture(t)
	ctx := context.Background()
	coca := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Coca-Cola", SKU: "COCA", PriceCents: 2000, Stock: 10, TrackStock: true})

	cart := NewCart(cat, testBiz)
	if err := cart.AddQty(ctx, coca.ID, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	sale, _, err := engine.Checkout(ctx, testBiz, cart, CheckoutOptions{DiscountCents: 1500})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if sale.SubtotalCents != 4000 || sale.DiscountCents != 1500 || sale.TotalCents != 2500 {
		t.Fatalf("unexpected totals %+v", sale)
	}
}

func TestCheckoutFailsWhenProductDeletedMidSession(t *testing.T) {
	cat, _, engine := newCheckoutFixture(t)
	ctx := context.Background()
	coca := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Coca-Cola", SKU: "COCA", PriceCents: 2000, Stock: 10, TrackStock: true})

	cart := NewCart(cat, testBiz)
	if err := cart.Add(ctx, coca.ID); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := cat.Delete(ctx, testBiz, coca.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	_, _, err := engine.Checkout(ctx, testBiz, cart, CheckoutOptions{})
	if !errors.Is(err, store.ErrProductGone) {
		t.Fatalf("expected product gone, got %v", err)
	}
	if cart.Empty() {
		t.Fatalf("failed checkout must leave the cart intact")
	}
}

func TestCheckoutIdempotencyKeyReplaysSale(t *testing.T) {
	cat, _, engine := newCheckoutFixture(t)
	ctx := context.Background()
	coca := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Coca-Cola", SKU: "COCA", PriceCents: 2000, Stock: 10, TrackStock: true})

	cart := NewCart(cat, testBiz)
	if err := cart.AddQty(ctx, coca.ID, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	first, duplicate, err := engine.Checkout(ctx, testBiz, cart, CheckoutOptions{IdempotencyKey: "order-42"})
	if err != nil || duplicate {
		t.Fatalf("first checkout failed: %v (duplicate=%v)", err, duplicate)
	}

	replay := NewCart(cat, testBiz)
	if err := replay.AddQty(ctx, coca.ID, 2); err != nil {
		t.Fatalf("replay add failed: %v", err)
	}
	second, duplicate, err := engine.Checkout(ctx, testBiz, replay, CheckoutOptions{IdempotencyKey: "order-42"})
	if err != nil {
		t.Fatalf("replay checkout failed: %v", err)
	}
	if !duplicate {
		t.Fatalf("replay must be flagged duplicate")
	}
	if second.ID != first.ID {
		t.Fatalf("replay must return the original sale")
	}

	after, err := cat.Get(ctx, testBiz, coca.ID)
	if err != nil {
		t.Fatalf("get after replay: %v", err)
	}
	if after.Stock != 8 {
		t.Fatalf("replay must not decrement stock again, got %d", after.Stock)
	}
}

func TestCheckoutFillsEmployeeFromActor(t *testing.T) {
	cat, _, engine := newCheckoutFixture(t)
	ctx := catalog.WithActor(context.Background(), domain.Actor{Username: "luis", Name: "Luis Empleado", Role: domain.RoleEmployee, BusinessID: testBiz})
	coca := seedProduct(t, cat, domain.ProductUpsertRequest{Name: "Coca-Cola", SKU: "COCA", PriceCents: 2000, Stock: 10, TrackStock: true})

	cart := NewCart(cat, testBiz)
	if err := cart.Add(ctx, coca.ID); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	sale, _, err := engine.Checkout(ctx, testBiz, cart, CheckoutOptions{})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if sale.EmployeeName != "Luis Empleado" {
		t.Fatalf("expected employee from actor, got %q", sale.EmployeeName)
	}
	if sale.PaymentMethod != domain.DefaultPaymentMethod {
		t.Fatalf("expected default payment method, got %q", sale.PaymentMethod)
	}
}
