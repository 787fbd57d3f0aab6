// seed-demo loads a small demo catalog (stores, partners, products, stock) into an empty database.
// Existing rows are left alone: stores and products upsert on code, partners insert only when missing.
//
// Usage: go run ./cmd/seed-demo
package main

import (
	"context"

	"inventory-intake/internal/config"
	"inventory-intake/internal/db"
	"inventory-intake/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadEnv()
	log := logger.NewZapLogger(logger.Config{Level: "info", Encoding: "console", DisableStacktrace: true})
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatal("failed to connect", zap.Error(err))
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal("failed to begin transaction", zap.Error(err))
	}
	defer tx.Rollback(ctx)

	steps := []struct {
		name string
		sql  string
	}{
		{"stores", `
			INSERT INTO stores (code, name) VALUES
			  ('WH01', 'Kho 1'),
			  ('WH02', 'Kho 2'),
			  ('WH03', 'Kho Quận 7')
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;`},
		{"suppliers", `
			INSERT INTO suppliers (name, phone, address)
			SELECT s.name, s.phone, s.address
			FROM (VALUES
			    ('Công ty TNHH Cà phê Việt', '0901234567', '12 Lê Lợi, Q1'),
			    ('Nhà phân phối Nước Sạch',  '0281112222', '45 Nguyễn Trãi, Q5')
			) AS s(name, phone, address)
			WHERE NOT EXISTS (SELECT 1 FROM suppliers x WHERE x.name = s.name);`},
		{"customers", `
			INSERT INTO customers (name, phone, address)
			SELECT c.name, c.phone, c.address
			FROM (VALUES
			    ('Cửa hàng Minh',  '0909000111', '3 Hai Bà Trưng'),
			    ('Quán Cô Ba',     '0912333444', '88 Võ Văn Tần')
			) AS c(name, phone, address)
			WHERE NOT EXISTS (SELECT 1 FROM customers x WHERE x.name = c.name);`},
		{"products", `
			INSERT INTO products (code, name, unit, unit_price, supplier_id)
			SELECT p.code, p.name, p.unit, p.price, s.id
			FROM (VALUES
			    ('CF01', 'Cà phê sữa chai', 'chai', 15000, 'Công ty TNHH Cà phê Việt'),
			    ('CF02', 'Cà phê đen lon',  'lon',  12000, 'Công ty TNHH Cà phê Việt'),
			    ('NS01', 'Nước suối 500ml', 'chai',  5000, 'Nhà phân phối Nước Sạch'),
			    ('TX01', 'Trà xanh hộp',    'hộp',  20000, NULL)
			) AS p(code, name, unit, price, supplier)
			LEFT JOIN suppliers s ON s.name = p.supplier
			ON CONFLICT (code) DO UPDATE
			  SET name = EXCLUDED.name,
			      unit = EXCLUDED.unit,
			      unit_price = EXCLUDED.unit_price;`},
		{"stock levels", `
			INSERT INTO stock_levels (product_id, store_id, quantity, max_capacity, min_capacity)
			SELECT p.id, st.id, l.qty, l.max_cap, l.min_cap
			FROM (VALUES
			    ('CF01', 'WH01', 40,  200, 20),
			    ('CF01', 'WH02', 15,  NULL, NULL),
			    ('NS01', 'WH01', 300, 500, 50),
			    ('TX01', 'WH03', 90,  100, NULL)
			) AS l(product, store, qty, max_cap, min_cap)
			JOIN products p ON p.code = l.product
			JOIN stores st ON st.code = l.store
			ON CONFLICT (product_id, store_id) DO NOTHING;`},
	}

	for _, step := range steps {
		tag, err := tx.Exec(ctx, step.sql)
		if err != nil {
			log.Fatal("seed step failed", zap.String("step", step.name), zap.Error(err))
		}
		log.Info("seeded", zap.String("step", step.name), zap.Int64("rows", tag.RowsAffected()))
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatal("failed to commit", zap.Error(err))
	}
	log.Info("demo catalog ready")
}
