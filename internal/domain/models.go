package domain

import "time"

type Business struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Handle    string    `json:"handle"`
	Category  string    `json:"category,omitempty"`
	LogoURL   string    `json:"logo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BusinessCreateRequest struct {
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	Category string `json:"category"`
	LogoURL  string `json:"logo_url"`
}

type BusinessUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Category *string `json:"category,omitempty"`
	LogoURL  *string `json:"logo_url,omitempty"`
}

// Product carries both the canonical biz_id field and the legacy
// business_id spelling that older exports used. store.NormalizeProduct
// folds the legacy field into the canonical one on load.
type Product struct {
	ID               string    `json:"id"`
	BusinessID       string    `json:"biz_id"`
	LegacyBusinessID string    `json:"business_id,omitempty"`
	Name             string    `json:"name"`
	Category         string    `json:"category,omitempty"`
	SKU              string    `json:"sku"`
	Unit             string    `json:"unit,omitempty"`
	PriceCents       int64     `json:"price_cents"`
	Stock            int       `json:"stock"`
	MinStock         int       `json:"min_stock,omitempty"`
	TrackStock       bool      `json:"track_stock"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type ProductUpsertRequest struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	SKU        string `json:"sku"`
	Unit       string `json:"unit"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
	MinStock   int    `json:"min_stock"`
	TrackStock bool   `json:"track_stock"`
}

// SaleItem is a denormalized line as sold: name and unit price are
// captured at cart-add time and survive later catalog edits.
type SaleItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
}

type Sale struct {
	ID               string     `json:"id"`
	BusinessID       string     `json:"biz_id"`
	LegacyBusinessID string     `json:"business_id,omitempty"`
	Items            []SaleItem `json:"items"`
	SubtotalCents    int64      `json:"subtotal_cents"`
	DiscountCents    int64      `json:"discount_cents"`
	TotalCents       int64      `json:"total_cents"`
	PaymentMethod    string     `json:"payment_method"`
	EmployeeName     string     `json:"employee_name,omitempty"`
	IdempotencyKey   string     `json:"idempotency_key,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type CheckoutItem struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type CheckoutRequest struct {
	DiscountCents  int64          `json:"discount_cents"`
	PaymentMethod  string         `json:"payment_method"`
	EmployeeName   string         `json:"employee_name"`
	IdempotencyKey string         `json:"idempotency_key"`
	Items          []CheckoutItem `json:"items"`
}

type CheckoutResponse struct {
	Sale      Sale `json:"sale"`
	Duplicate bool `json:"duplicate"`
}

type SKUPreviewRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type SKUPreviewResponse struct {
	SKU string `json:"sku"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	BusinessID  string `json:"biz_id"`
	ExpiresAt   string `json:"expires_at"`
}

type RegisterRequest struct {
	Username string                `json:"username"`
	Password string                `json:"password"`
	Name     string                `json:"name"`
	Business BusinessCreateRequest `json:"business"`
}

type EmployeeCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type EmployeeUser struct {
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Actor struct {
	Username   string
	Name       string
	Role       string
	BusinessID string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID         string
	Username   string
	Name       string
	Password   string
	Role       string
	BusinessID string
	Active     bool
	CreatedAt  time.Time
}

type DashboardResponse struct {
	TodayIncomeCents int64 `json:"today_income_cents"`
	TodaySalesCount  int   `json:"today_sales_count"`
	ProductCount     int   `json:"product_count"`
	LowStockCount    int   `json:"low_stock_count"`
}

const (
	RoleOwner    = "owner"
	RoleEmployee = "employee"
)

const (
	DefaultPaymentMethod = "Cash"
	UnassignedEmployee   = "Unassigned"
)
