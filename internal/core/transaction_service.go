package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStockChanged is returned when an outbound item no longer fits the stock on hand at commit
// time; the caller should refresh the snapshot and resolve again.
var ErrStockChanged = errors.New("stock changed since resolution")

// TransactionService persists submitted stock transactions.
type TransactionService interface {
	// Submit stores the payload atomically: an optional new partner, the transaction header, its
	// items and the resulting stock level changes. A payload whose idempotency key was already
	// accepted returns the stored transaction with Replayed set and changes nothing.
	Submit(ctx context.Context, payload TransactionPayload) (*SubmittedTransaction, error)
	// FindByKey returns the transaction accepted under key with Replayed set, or nil if there is none.
	FindByKey(ctx context.Context, key string) (*SubmittedTransaction, error)
}

// rowQuerier is satisfied by both the pool and an open transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type transactionService struct {
	pool *pgxpool.Pool
}

func NewTransactionService(pool *pgxpool.Pool) TransactionService {
	return &transactionService{pool: pool}
}

func (s *transactionService) Submit(ctx context.Context, payload TransactionPayload) (*SubmittedTransaction, error) {
	if len(payload.Items) == 0 {
		return nil, fmt.Errorf("%w: no items to submit", ErrUnsubmittable)
	}
	if payload.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: missing idempotency key", ErrUnsubmittable)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if existing, err := s.findByKey(ctx, tx, payload.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	partnerTable := "customers"
	if payload.Direction.IsInbound() {
		partnerTable = "suppliers"
	}
	partnerID, err := s.ensurePartner(ctx, tx, partnerTable, payload.Partner)
	if err != nil {
		return nil, err
	}

	var supplierID, customerID *int64
	if payload.Direction.IsInbound() {
		supplierID = &partnerID
	} else {
		customerID = &partnerID
	}

	out := &SubmittedTransaction{
		IdempotencyKey: payload.IdempotencyKey,
		PartnerID:      partnerID,
		ItemCount:      len(payload.Items),
		Total:          payload.Total,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO stock_transactions (idempotency_key, direction, store_id, supplier_id, customer_id, note, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, payload.IdempotencyKey, string(payload.Direction), payload.StoreID, supplierID, customerID,
		payload.Note, payload.Total).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert stock transaction: %w", err)
	}

	for i, item := range payload.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d has non-positive quantity", ErrUnsubmittable, i)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO stock_transaction_items (transaction_id, product_id, store_id, quantity, unit_price, discount_percent)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, out.ID, item.ProductID, item.StoreID, item.Quantity, item.UnitPrice, item.DiscountPercent); err != nil {
			return nil, fmt.Errorf("failed to insert item %d: %w", i, err)
		}
		if err := applyStockMovement(ctx, tx, payload.Direction, item); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return out, nil
}

func (s *transactionService) FindByKey(ctx context.Context, key string) (*SubmittedTransaction, error) {
	if key == "" {
		return nil, nil
	}
	return s.findByKey(ctx, s.pool, key)
}

func (s *transactionService) findByKey(ctx context.Context, q rowQuerier, key string) (*SubmittedTransaction, error) {
	var out SubmittedTransaction
	err := q.QueryRow(ctx, `
		SELECT t.id, t.idempotency_key, COALESCE(t.supplier_id, t.customer_id, 0), t.total, t.created_at,
		       (SELECT COUNT(*) FROM stock_transaction_items i WHERE i.transaction_id = t.id)
		FROM stock_transactions t
		WHERE t.idempotency_key = $1
	`, key).Scan(&out.ID, &out.IdempotencyKey, &out.PartnerID, &out.Total, &out.CreatedAt, &out.ItemCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	out.Replayed = true
	return &out, nil
}

// ensurePartner returns the referenced partner id, inserting the new partner first when needed.
func (s *transactionService) ensurePartner(ctx context.Context, tx pgx.Tx, table string, ref PartnerRef) (int64, error) {
	if ref.ID != 0 {
		var id int64
		err := tx.QueryRow(ctx, fmt.Sprintf("SELECT id FROM %s WHERE id = $1", table), ref.ID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, fmt.Errorf("%w: %s id %d not found", ErrUnsubmittable, strings.TrimSuffix(table, "s"), ref.ID)
			}
			return 0, fmt.Errorf("failed to resolve partner: %w", err)
		}
		return id, nil
	}
	if ref.New == nil || strings.TrimSpace(ref.New.Name) == "" {
		return 0, fmt.Errorf("%w: no partner selected", ErrUnsubmittable)
	}

	var id int64
	err := tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (name, phone, address)
		VALUES ($1, $2, $3)
		RETURNING id
	`, table), strings.TrimSpace(ref.New.Name), ref.New.Phone, ref.New.Address).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create partner: %w", err)
	}
	return id, nil
}

// applyStockMovement adjusts stock_levels for one item. Outbound items lock the row and refuse to
// go below zero, which catches a stock change between resolution and submission.
func applyStockMovement(ctx context.Context, tx pgx.Tx, dir Direction, item PayloadItem) error {
	if dir.IsInbound() {
		_, err := tx.Exec(ctx, `
			INSERT INTO stock_levels (product_id, store_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (product_id, store_id)
			DO UPDATE SET quantity = stock_levels.quantity + EXCLUDED.quantity, updated_at = NOW()
		`, item.ProductID, item.StoreID, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to increase stock for product %d at store %d: %w", item.ProductID, item.StoreID, err)
		}
		return nil
	}

	tag, err := tx.Exec(ctx, `
		UPDATE stock_levels
		SET quantity = quantity - $3, updated_at = NOW()
		WHERE product_id = $1 AND store_id = $2 AND quantity >= $3
	`, item.ProductID, item.StoreID, item.Quantity)
	if err != nil {
		return fmt.Errorf("failed to decrease stock for product %d at store %d: %w", item.ProductID, item.StoreID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d at store %d has fewer than %d units", ErrStockChanged, item.ProductID, item.StoreID, item.Quantity)
	}
	return nil
}
