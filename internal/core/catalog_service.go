package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogService reads the catalog and the stock-levels feed from PostgreSQL.
// Rows come back in id order, which is the catalog order the resolver relies on.
type CatalogService interface {
	LoadCatalog(ctx context.Context) (*CatalogData, error)
	LoadStockLevels(ctx context.Context) ([]StockRecord, error)
	// StockForProduct returns the feed rows of one product.
	StockForProduct(ctx context.Context, productID int64) ([]StockRecord, error)
}

type catalogService struct {
	pool *pgxpool.Pool
}

func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

func (s *catalogService) LoadCatalog(ctx context.Context) (*CatalogData, error) {
	products, err := s.loadProducts(ctx)
	if err != nil {
		return nil, err
	}
	stores, err := s.loadStores(ctx)
	if err != nil {
		return nil, err
	}
	suppliers, err := s.loadPartners(ctx, "suppliers")
	if err != nil {
		return nil, err
	}
	customers, err := s.loadPartners(ctx, "customers")
	if err != nil {
		return nil, err
	}
	return &CatalogData{
		Products:  products,
		Stores:    stores,
		Suppliers: suppliers,
		Customers: customers,
	}, nil
}

func (s *catalogService) loadProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.name, p.code, p.unit, p.unit_price, COALESCE(p.supplier_id, 0),
		       COALESCE(array_agg(ps.supplier_id ORDER BY ps.supplier_id)
		                FILTER (WHERE ps.supplier_id IS NOT NULL), '{}')
		FROM products p
		LEFT JOIN product_suppliers ps ON ps.product_id = p.id
		WHERE p.is_active = true
		GROUP BY p.id
		ORDER BY p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.Unit, &p.UnitPrice, &p.SupplierID, &p.SupplierIDs); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return products, nil
}

func (s *catalogService) loadStores(ctx context.Context) ([]StoreLocation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, code
		FROM stores
		WHERE is_active = true
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer rows.Close()

	var stores []StoreLocation
	for rows.Next() {
		var st StoreLocation
		if err := rows.Scan(&st.ID, &st.Name, &st.Code); err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stores: %w", err)
	}
	return stores, nil
}

// loadPartners reads suppliers or customers; table is one of two fixed names, never user input.
func (s *catalogService) loadPartners(ctx context.Context, table string) ([]Partner, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, name, phone, address
		FROM %s
		ORDER BY id
	`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var partners []Partner
	for rows.Next() {
		var p Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.Address); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return partners, nil
}

func (s *catalogService) LoadStockLevels(ctx context.Context) ([]StockRecord, error) {
	return s.queryStock(ctx, `
		SELECT product_id, store_id, quantity, max_capacity, min_capacity
		FROM stock_levels
		ORDER BY product_id, store_id
	`)
}

func (s *catalogService) StockForProduct(ctx context.Context, productID int64) ([]StockRecord, error) {
	return s.queryStock(ctx, `
		SELECT product_id, store_id, quantity, max_capacity, min_capacity
		FROM stock_levels
		WHERE product_id = $1
		ORDER BY store_id
	`, productID)
}

func (s *catalogService) queryStock(ctx context.Context, sql string, args ...any) ([]StockRecord, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var records []StockRecord
	for rows.Next() {
		var r StockRecord
		if err := rows.Scan(&r.ProductID, &r.StoreID, &r.Quantity, &r.MaxCapacity, &r.MinCapacity); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stock levels: %w", err)
	}
	return records, nil
}
