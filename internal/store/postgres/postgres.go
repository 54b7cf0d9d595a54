package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/store"
)

// Store implements store.Repository over PostgreSQL. Saves replace the
// whole collection inside a transaction, relying on the repository's
// single-writer contract.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS businesses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			handle TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			logo_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			biz_id TEXT NOT NULL,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			sku TEXT NOT NULL,
			unit TEXT NOT NULL DEFAULT '',
			price_cents BIGINT NOT NULL,
			stock INTEGER NOT NULL,
			min_stock INTEGER NOT NULL DEFAULT 0,
			track_stock BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			biz_id TEXT NOT NULL,
			items JSONB NOT NULL,
			subtotal_cents BIGINT NOT NULL,
			discount_cents BIGINT NOT NULL,
			total_cents BIGINT NOT NULL,
			payment_method TEXT NOT NULL,
			employee_name TEXT NOT NULL DEFAULT '',
			idempotency_key TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			biz_id TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) LoadBusinesses(ctx context.Context) ([]domain.Business, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, handle, category, logo_url, created_at, updated_at
		FROM businesses
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	businesses := make([]domain.Business, 0, 8)
	for rows.Next() {
		var b domain.Business
		if err := rows.Scan(&b.ID, &b.Name, &b.Handle, &b.Category, &b.LogoURL, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		businesses = append(businesses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return businesses, nil
}

func (s *Store) SaveBusinesses(ctx context.Context, businesses []domain.Business) error {
	return s.replaceAll(ctx, "businesses", func(tx *sql.Tx) error {
		for _, b := range businesses {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO businesses (id, name, handle, category, logo_url, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7)
			`, b.ID, b.Name, b.Handle, b.Category, b.LogoURL, b.CreatedAt, b.UpdatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) LoadProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, biz_id, name, category, sku, unit, price_cents, stock, min_stock, track_stock, created_at, updated_at
		FROM products
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.BusinessID, &p.Name, &p.Category, &p.SKU, &p.Unit, &p.PriceCents, &p.Stock, &p.MinStock, &p.TrackStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.NormalizeProducts(products), nil
}

func (s *Store) SaveProducts(ctx context.Context, products []domain.Product) error {
	return s.replaceAll(ctx, "products", func(tx *sql.Tx) error {
		for _, raw := range products {
			p := store.NormalizeProduct(raw)
			_, err := tx.ExecContext(ctx, `
				INSERT INTO products (id, biz_id, name, category, sku, unit, price_cents, stock, min_stock, track_stock, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			`, p.ID, p.BusinessID, p.Name, p.Category, p.SKU, p.Unit, p.PriceCents, p.Stock, p.MinStock, p.TrackStock, p.CreatedAt, p.UpdatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) LoadSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, biz_id, items, subtotal_cents, discount_cents, total_cents, payment_method, employee_name, idempotency_key, created_at
		FROM sales
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 256)
	for rows.Next() {
		var sale domain.Sale
		var itemsJSON []byte
		if err := rows.Scan(&sale.ID, &sale.BusinessID, &itemsJSON, &sale.SubtotalCents, &sale.DiscountCents, &sale.TotalCents, &sale.PaymentMethod, &sale.EmployeeName, &sale.IdempotencyKey, &sale.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(itemsJSON, &sale.Items); err != nil {
			return nil, fmt.Errorf("decode sale %s items: %w", sale.ID, err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.NormalizeSales(sales), nil
}

func (s *Store) SaveSales(ctx context.Context, sales []domain.Sale) error {
	return s.replaceAll(ctx, "sales", func(tx *sql.Tx) error {
		for _, raw := range sales {
			sale := store.NormalizeSale(raw)
			itemsJSON, err := json.Marshal(sale.Items)
			if err != nil {
				return fmt.Errorf("encode sale %s items: %w", sale.ID, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO sales (id, biz_id, items, subtotal_cents, discount_cents, total_cents, payment_method, employee_name, idempotency_key, created_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			`, sale.ID, sale.BusinessID, itemsJSON, sale.SubtotalCents, sale.DiscountCents, sale.TotalCents, sale.PaymentMethod, sale.EmployeeName, sale.IdempotencyKey, sale.CreatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) LoadUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, name, password, role, biz_id, active, created_at
		FROM users
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.Password, &u.Role, &u.BusinessID, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) SaveUsers(ctx context.Context, users []domain.UserAccount) error {
	return s.replaceAll(ctx, "users", func(tx *sql.Tx) error {
		for _, u := range users {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO users (id, username, name, password, role, biz_id, active, created_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			`, u.ID, u.Username, u.Name, u.Password, u.Role, u.BusinessID, u.Active, u.CreatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// replaceAll wipes table and reinserts rows atomically. table is always a
// compile-time constant here, never user input.
func (s *Store) replaceAll(ctx context.Context, table string, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return err
	}
	if err := insert(tx); err != nil {
		return err
	}
	return tx.Commit()
}
