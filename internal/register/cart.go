package register

import (
	"context"
	"errors"
	"fmt"

	"tiendita/backend/internal/catalog"
	"tiendita/backend/internal/store"
)

// Line is a cart entry. Name and unit price are captured when the line
// is first added and are not refreshed by later catalog edits.
type Line struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
}

// Cart is a register-session working set. It holds no stock of its own:
// every add and increment consults the current catalog before growing a
// line.
type Cart struct {
	catalog    *catalog.Service
	businessID string
	lines      []Line
}

func NewCart(cat *catalog.Service, businessID string) *Cart {
	return &Cart{catalog: cat, businessID: businessID}
}

// Add puts one unit of the product in the cart, or grows an existing
// line by one.
func (c *Cart) Add(ctx context.Context, productID string) error {
	return c.AddQty(ctx, productID, 1)
}

// AddQty grows a line by qty units, checking tracked stock against the
// catalog's current value. Untracked products skip the stock checks.
func (c *Cart) AddQty(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
	}

	p, err := c.catalog.Get(ctx, c.businessID, productID)
	if err != nil {
		return err
	}

	idx := c.lineIndex(productID)
	current := 0
	if idx >= 0 {
		current = c.lines[idx].Qty
	}

	if p.TrackStock {
		if p.Stock <= 0 && current == 0 {
			return fmt.Errorf("%w: %s", store.ErrOutOfStock, p.Name)
		}
		if current+qty > p.Stock {
			return fmt.Errorf("%w: %s", store.ErrInsufficientStock, p.Name)
		}
	}

	if idx >= 0 {
		c.lines[idx].Qty += qty
		return nil
	}
	c.lines = append(c.lines, Line{
		ProductID:      p.ID,
		Name:           p.Name,
		UnitPriceCents: p.PriceCents,
		Qty:            qty,
	})
	return nil
}

// Increment grows an existing line by one, subject to the same stock
// ceiling as Add.
func (c *Cart) Increment(ctx context.Context, productID string) error {
	if c.lineIndex(productID) < 0 {
		return store.ErrNotFound
	}
	return c.AddQty(ctx, productID, 1)
}

// Decrement shrinks a line by one; at quantity one the line is removed.
func (c *Cart) Decrement(productID string) {
	idx := c.lineIndex(productID)
	if idx < 0 {
		return
	}
	if c.lines[idx].Qty > 1 {
		c.lines[idx].Qty--
		return
	}
	c.Remove(productID)
}

func (c *Cart) Remove(productID string) {
	idx := c.lineIndex(productID)
	if idx < 0 {
		return
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) SubtotalCents() int64 {
	var subtotal int64
	for _, line := range c.lines {
		subtotal += line.UnitPriceCents * int64(line.Qty)
	}
	return subtotal
}

// PruneMissing drops lines whose product has been deleted from the
// catalog since they were added.
func (c *Cart) PruneMissing(ctx context.Context) error {
	kept := c.lines[:0]
	for _, line := range c.lines {
		_, err := c.catalog.Get(ctx, c.businessID, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return err
		}
		kept = append(kept, line)
	}
	c.lines = kept
	return nil
}

func (c *Cart) lineIndex(productID string) int {
	for i, line := range c.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}
