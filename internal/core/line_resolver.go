package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BatchContext carries what is known about the transaction as a whole.
type BatchContext struct {
	Direction Direction
	// SupplierID is the inbound partner when already resolved; 0 skips the eligibility check.
	SupplierID int64
}

// BatchResult holds the resolved lines in input order (invalid lines removed) and one
// LineError per removed line.
type BatchResult struct {
	Lines  []ResolvedLine  `json:"lines"`
	Errors []LineError     `json:"-"`
	Total  decimal.Decimal `json:"total"`
}

// LineResolver turns raw lines into resolved, allocated lines.
type LineResolver struct {
	planner *AllocationPlanner
}

func NewLineResolver(opts Options) *LineResolver {
	return &LineResolver{planner: NewAllocationPlanner(opts)}
}

// Planner exposes the allocation planner the resolver was built with.
func (r *LineResolver) Planner() *AllocationPlanner { return r.planner }

// ResolveLine resolves one raw line. Unresolved references are returned as data on the line;
// only a structurally invalid line produces an error.
func (r *LineResolver) ResolveLine(raw RawLine, idx *CatalogIndex, snap *StockSnapshot, dir Direction) (ResolvedLine, error) {
	return r.resolve(raw, idx, snap, BatchContext{Direction: dir})
}

// ResolveBatch resolves lines sequentially against one catalog and one snapshot. An invalid
// line is dropped from the result and reported in Errors; its siblings are unaffected.
func (r *LineResolver) ResolveBatch(lines []RawLine, idx *CatalogIndex, snap *StockSnapshot, bctx BatchContext) BatchResult {
	res := BatchResult{Lines: make([]ResolvedLine, 0, len(lines)), Total: decimal.Zero}
	for i, raw := range lines {
		line, err := r.resolve(raw, idx, snap, bctx)
		if err != nil {
			res.Errors = append(res.Errors, LineError{Index: i, Err: err})
			continue
		}
		res.Lines = append(res.Lines, line)
	}
	res.Total = SumTotals(res.Lines)
	return res
}

func (r *LineResolver) resolve(raw RawLine, idx *CatalogIndex, snap *StockSnapshot, bctx BatchContext) (ResolvedLine, error) {
	if err := ValidateRawLine(raw); err != nil {
		return ResolvedLine{}, err
	}
	if snap == nil {
		snap = EmptySnapshot()
	}

	line := ResolvedLine{
		Name:            strings.TrimSpace(raw.ProductName),
		Code:            strings.TrimSpace(raw.ProductCode),
		Unit:            strings.TrimSpace(raw.Unit),
		Quantity:        raw.Quantity.IntPart(),
		UnitPrice:       raw.UnitPrice,
		DiscountPercent: raw.DiscountPercent,
		Allocations:     []Allocation{},
	}

	storeID, storeTier := resolveStore(raw, idx)
	if bctx.Direction.IsInbound() {
		if storeID == 0 {
			if first, ok := idx.FirstStore(); ok {
				storeID, storeTier = first.ID, TierFallback
				line.Issues = append(line.Issues, Issue{
					Kind:    IssueLowConfidence,
					Field:   "store_id",
					Message: fmt.Sprintf("warehouse %q not matched, defaulted to %s", raw.Warehouse, first.Name),
				})
			}
		}
		line.StoreID, line.StoreTier = storeID, storeTier
	} else {
		line.HintStoreID, line.StoreTier = storeID, storeTier
	}

	product, tier, ok := resolveProduct(raw, idx)
	if !ok {
		line.Unmet = line.Quantity
		line.Issues = append(line.Issues, Issue{
			Kind:     IssueUnresolved,
			Field:    "product",
			Quantity: line.Quantity,
			Message:  fmt.Sprintf("product %q not found in catalog", displayRef(raw)),
		})
		line.LineTotal = LineTotal(line.UnitPrice, line.Quantity, line.DiscountPercent)
		return line, nil
	}

	line.ProductID = product.ID
	line.ProductTier = tier
	line.Name = product.Name
	line.Code = product.Code
	if line.Unit == "" {
		line.Unit = product.Unit
	}
	if !line.UnitPrice.IsPositive() {
		line.UnitPrice = product.UnitPrice
	}

	if bctx.Direction.IsInbound() {
		if lvl, ok := snap.StockAt(product.ID, line.StoreID); ok {
			line.AvailableQuantity = lvl.Quantity
		}
		if bctx.SupplierID != 0 && !product.SuppliedBy(bctx.SupplierID) {
			line.Issues = append(line.Issues, Issue{
				Kind:    IssueSupplierMismatch,
				Field:   "product",
				Message: fmt.Sprintf("product %s is not listed for supplier %d", product.Code, bctx.SupplierID),
			})
		}
	} else {
		line.AvailableQuantity = snap.TotalStock(product.ID)
	}

	r.applyAllocation(&line, snap, bctx.Direction)
	return line, nil
}

// Revalidate re-runs allocation after the user edits quantity or discount. The product and
// store identities are kept as they are; nothing is re-resolved.
func (r *LineResolver) Revalidate(line ResolvedLine, quantity int64, discountPercent decimal.Decimal, snap *StockSnapshot, dir Direction) (ResolvedLine, error) {
	var fields []FieldError
	if quantity < 0 {
		fields = append(fields, FieldError{Field: "quantity", Rule: "gte"})
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		fields = append(fields, FieldError{Field: "discount_percent", Rule: "lte"})
	}
	if len(fields) > 0 {
		return ResolvedLine{}, &InvalidInputError{Fields: fields}
	}
	if snap == nil {
		snap = EmptySnapshot()
	}

	line.Quantity = quantity
	line.DiscountPercent = discountPercent
	line.Issues = keepResolutionIssues(line.Issues)
	line.Allocations = []Allocation{}
	line.Unmet = 0

	if line.IsOrphan() {
		line.Unmet = quantity
		for i := range line.Issues {
			if line.Issues[i].Kind == IssueUnresolved {
				line.Issues[i].Quantity = quantity
			}
		}
		line.LineTotal = LineTotal(line.UnitPrice, quantity, discountPercent)
		return line, nil
	}

	if dir.IsInbound() {
		line.AvailableQuantity = 0
		if lvl, ok := snap.StockAt(line.ProductID, line.StoreID); ok {
			line.AvailableQuantity = lvl.Quantity
		}
	} else {
		line.AvailableQuantity = snap.TotalStock(line.ProductID)
	}
	r.applyAllocation(&line, snap, dir)
	return line, nil
}

func (r *LineResolver) applyAllocation(line *ResolvedLine, snap *StockSnapshot, dir Direction) {
	res := r.planner.Allocate(AllocationRequest{
		ProductID:       line.ProductID,
		Quantity:        line.Quantity,
		Direction:       dir,
		StoreID:         line.StoreID,
		UnitPrice:       line.UnitPrice,
		DiscountPercent: line.DiscountPercent,
	}, snap)
	if res.Allocations != nil {
		line.Allocations = res.Allocations
	}
	line.Unmet = res.Unmet
	line.Issues = append(line.Issues, res.Issues...)
	line.LineTotal = LineTotal(line.UnitPrice, line.Quantity, line.DiscountPercent)
}

// keepResolutionIssues drops the issues the planner will recompute.
func keepResolutionIssues(issues []Issue) []Issue {
	var out []Issue
	for _, is := range issues {
		switch {
		case is.Kind == IssueLowConfidence, is.Kind == IssueSupplierMismatch:
			out = append(out, is)
		case is.Kind == IssueUnresolved && is.Field == "product":
			out = append(out, is)
		}
	}
	return out
}

// resolveProduct tries the OCR hint, then the code, then the name. The hint wins because it
// comes from a model that saw the image, not just the extracted text.
func resolveProduct(raw RawLine, idx *CatalogIndex) (Product, MatchTier, bool) {
	if raw.SuggestedProductID > 0 {
		if p, ok := idx.Product(raw.SuggestedProductID); ok {
			return p, TierHint, true
		}
	}
	for _, token := range []string{raw.ProductCode, raw.ProductName} {
		if strings.TrimSpace(token) == "" {
			continue
		}
		if m, ok := idx.ResolveProduct(token); ok {
			if p, ok := idx.Product(m.ID); ok {
				return p, m.Tier, true
			}
		}
	}
	return Product{}, TierNone, false
}

// resolveStore prefers an explicit store id, then the free-text warehouse label.
func resolveStore(raw RawLine, idx *CatalogIndex) (int64, MatchTier) {
	if raw.StoreID > 0 {
		if s, ok := idx.Store(raw.StoreID); ok {
			return s.ID, TierSelected
		}
	}
	if m, ok := idx.ResolveStore(raw.Warehouse); ok {
		return m.ID, m.Tier
	}
	return 0, TierNone
}

func displayRef(raw RawLine) string {
	if s := strings.TrimSpace(raw.ProductName); s != "" {
		return s
	}
	if s := strings.TrimSpace(raw.ProductCode); s != "" {
		return s
	}
	return fmt.Sprintf("#%d", raw.SuggestedProductID)
}
