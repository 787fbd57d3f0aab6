package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Direction is the stock movement direction of a transaction. The values double as the
// receipt-type tag sent to the OCR extraction service.
type Direction string

const (
	DirectionInbound  Direction = "IMPORT"
	DirectionOutbound Direction = "EXPORT"
)

// ParseDirection accepts IMPORT/EXPORT as well as the inbound/outbound spellings.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IMPORT", "INBOUND", "IN":
		return DirectionInbound, nil
	case "EXPORT", "OUTBOUND", "OUT":
		return DirectionOutbound, nil
	}
	return "", fmt.Errorf("%w: unknown movement direction %q (want IMPORT or EXPORT)", ErrInvalidInput, s)
}

func (d Direction) IsInbound() bool { return d == DirectionInbound }

// Product is an immutable catalog entry.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	SupplierID  int64           `json:"supplier_id,omitempty"`  // owning supplier, 0 if none
	SupplierIDs []int64         `json:"supplier_ids,omitempty"` // eligible suppliers
}

// SuppliedBy reports whether supplierID is the owning supplier or one of the eligible ones.
// A product that declares no suppliers at all is treated as eligible for any supplier.
func (p Product) SuppliedBy(supplierID int64) bool {
	if p.SupplierID == 0 && len(p.SupplierIDs) == 0 {
		return true
	}
	if p.SupplierID == supplierID {
		return true
	}
	for _, id := range p.SupplierIDs {
		if id == supplierID {
			return true
		}
	}
	return false
}

// StoreLocation is a physical stock location (warehouse).
type StoreLocation struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Partner is a supplier or customer record.
type Partner struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// CatalogData is the already-fetched input the Catalog Index is built from.
// Slice order is the externally supplied catalog order and is preserved.
type CatalogData struct {
	Products  []Product       `json:"products"`
	Stores    []StoreLocation `json:"stores"`
	Suppliers []Partner       `json:"suppliers"`
	Customers []Partner       `json:"customers"`
}

// StockRecord is one row of the stock-levels feed.
type StockRecord struct {
	ProductID   int64  `json:"product_id"`
	StoreID     int64  `json:"store_id"`
	Quantity    int64  `json:"quantity"`
	MaxCapacity *int64 `json:"max_capacity,omitempty"`
	MinCapacity *int64 `json:"min_capacity,omitempty"`
}

// StockLevel is the stock of one product at one store.
type StockLevel struct {
	Quantity    int64  `json:"quantity"`
	MaxCapacity *int64 `json:"max_capacity,omitempty"`
	MinCapacity *int64 `json:"min_capacity,omitempty"`
}

// RawLine is an unresolved line of intent, typed by a user or produced by the OCR service.
// Numeric fields stay decimal until validation so malformed input can be reported, not truncated.
type RawLine struct {
	ProductName        string          `json:"product_name" validate:"max=255"`
	ProductCode        string          `json:"product_code,omitempty" validate:"max=64"`
	Unit               string          `json:"unit,omitempty"`
	Warehouse          string          `json:"warehouse,omitempty"`
	StoreID            int64           `json:"store_id,omitempty" validate:"gte=0"` // explicit user pick, wins over Warehouse
	Quantity           decimal.Decimal `json:"quantity" validate:"gte=0"`
	UnitPrice          decimal.Decimal `json:"unit_price" validate:"gte=0"`
	DiscountPercent    decimal.Decimal `json:"discount_percent" validate:"gte=0,lte=100"`
	PartnerHint        string          `json:"partner_hint,omitempty"`
	SuggestedProductID int64           `json:"suggested_product_id,omitempty" validate:"gte=0"`
}

// Allocation is a (store, quantity, price, discount) split of one resolved line.
type Allocation struct {
	StoreID         int64           `json:"store_id"`
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// Total is the allocation's share of the line total, rounded the same way as LineTotal.
func (a Allocation) Total() decimal.Decimal {
	return LineTotal(a.UnitPrice, a.Quantity, a.DiscountPercent)
}

// ResolvedLine is the Line Resolver's output. ProductID 0 marks an orphan line kept for
// manual correction.
type ResolvedLine struct {
	ProductID         int64           `json:"product_id"`
	Name              string          `json:"name"`
	Code              string          `json:"code"`
	Unit              string          `json:"unit"`
	Quantity          int64           `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"` // as entered; allocations carry it rounded
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	ProductTier       MatchTier       `json:"product_tier"`
	StoreID           int64           `json:"store_id,omitempty"`      // inbound destination
	StoreTier         MatchTier       `json:"store_tier"`              // confidence of StoreID
	HintStoreID       int64           `json:"hint_store_id,omitempty"` // outbound, display only
	AvailableQuantity int64           `json:"available_quantity"`
	Allocations       []Allocation    `json:"allocations"`
	Unmet             int64           `json:"unmet"`
	LineTotal         decimal.Decimal `json:"line_total"`
	Issues            []Issue         `json:"issues,omitempty"`
}

// IsOrphan reports whether the product reference could not be resolved.
func (l ResolvedLine) IsOrphan() bool { return l.ProductID == 0 }

// AllocatedQuantity sums the allocation quantities.
func (l ResolvedLine) AllocatedQuantity() int64 {
	var n int64
	for _, a := range l.Allocations {
		n += a.Quantity
	}
	return n
}
