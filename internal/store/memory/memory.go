package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/store"
)

// Store keeps whole collections in memory behind a single lock. Load
// returns copies, Save replaces the collection wholesale, matching the
// single-writer contract of store.Repository.
type Store struct {
	mu         sync.RWMutex
	businesses []domain.Business
	products   []domain.Product
	sales      []domain.Sale
	users      []domain.UserAccount
}

func New() *Store {
	return &Store{}
}

const DemoBusinessID = "biz-demo"

// NewSeeded builds a store with a demo business, an owner account and a
// small catalog for local runs.
func NewSeeded() *Store {
	now := time.Now().UTC()
	s := New()
	s.businesses = []domain.Business{
		{
			ID:        DemoBusinessID,
			Name:      "Tiendita Demo",
			Handle:    "tiendita_demo",
			Category:  "abarrotes",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	s.products = []domain.Product{
		{ID: uuid.NewString(), BusinessID: DemoBusinessID, Name: "Coca-Cola 600ml", Category: "Bebidas", SKU: "COCA-600", Unit: "botella", PriceCents: 2000, Stock: 24, MinStock: 6, TrackStock: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.NewString(), BusinessID: DemoBusinessID, Name: "Sabritas Original 45g", Category: "Botanas", SKU: "SAB-45", Unit: "pieza", PriceCents: 1800, Stock: 30, MinStock: 8, TrackStock: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.NewString(), BusinessID: DemoBusinessID, Name: "Pan dulce", Category: "Panadería", SKU: "PAN-01", Unit: "pieza", PriceCents: 1200, Stock: 12, TrackStock: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.NewString(), BusinessID: DemoBusinessID, Name: "Agua 1L", Category: "Bebidas", SKU: "AGUA-1L", Unit: "botella", PriceCents: 1500, Stock: 40, MinStock: 10, TrackStock: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.NewString(), BusinessID: DemoBusinessID, Name: "Servicio de envoltura", Category: "Servicios", SKU: "SERV-ENV", Unit: "servicio", PriceCents: 2500, TrackStock: false, CreatedAt: now, UpdatedAt: now},
	}
	s.users = seedUsers(now)
	return s
}

// seedUsers builds the demo accounts. Credentials come from
// SEED_OWNER_PASSWORD and SEED_EMPLOYEE_PASSWORD; hardcoded dev defaults
// are used with a warning when unset. These never reach production (the
// server uses PostgreSQL when DATABASE_URL is set).
func seedUsers(now time.Time) []domain.UserAccount {
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner123")
	employeePwd := envOr("SEED_EMPLOYEE_PASSWORD", "employee123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" || os.Getenv("SEED_EMPLOYEE_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_OWNER_PASSWORD and SEED_EMPLOYEE_PASSWORD to override.")
	}

	users := make([]domain.UserAccount, 0, 2)
	for _, u := range []struct {
		username string
		name     string
		password string
		role     string
	}{
		{"owner", "Ana Propietaria", ownerPwd, domain.RoleOwner},
		{"employee", "Luis Empleado", employeePwd, domain.RoleEmployee},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users = append(users, domain.UserAccount{
			ID:         uuid.NewString(),
			Username:   u.username,
			Name:       u.name,
			Password:   string(hash),
			Role:       u.role,
			BusinessID: DemoBusinessID,
			Active:     true,
			CreatedAt:  now,
		})
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) LoadBusinesses(_ context.Context) ([]domain.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.businesses), nil
}

func (s *Store) SaveBusinesses(_ context.Context, businesses []domain.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.businesses = slices.Clone(businesses)
	return nil
}

func (s *Store) LoadProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.NormalizeProducts(slices.Clone(s.products)), nil
}

func (s *Store) SaveProducts(_ context.Context, products []domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = store.NormalizeProducts(slices.Clone(products))
	return nil
}

func (s *Store) LoadSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sales := make([]domain.Sale, len(s.sales))
	for i, sale := range s.sales {
		sales[i] = cloneSale(sale)
	}
	return store.NormalizeSales(sales), nil
}

func (s *Store) SaveSales(_ context.Context, sales []domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]domain.Sale, len(sales))
	for i, sale := range sales {
		copied[i] = cloneSale(sale)
	}
	s.sales = store.NormalizeSales(copied)
	return nil
}

func (s *Store) LoadUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.users), nil
}

func (s *Store) SaveUsers(_ context.Context, users []domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = slices.Clone(users)
	return nil
}

func cloneSale(sale domain.Sale) domain.Sale {
	sale.Items = slices.Clone(sale.Items)
	return sale
}
