package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AllocationRequest asks the planner to place Quantity units of a product.
// StoreID is required for inbound movements and ignored for outbound ones.
type AllocationRequest struct {
	ProductID       int64
	Quantity        int64
	Direction       Direction
	StoreID         int64
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
}

// AllocationResult is the planner's answer. Unmet is never silently dropped: a non-zero value
// always comes with a blocking issue describing it.
type AllocationResult struct {
	Allocations []Allocation
	Unmet       int64
	// Headroom is the inbound capacity left at the destination; zero for outbound.
	Headroom int64
	Issues   []Issue
}

// Allocated sums the allocation quantities.
func (r AllocationResult) Allocated() int64 {
	var n int64
	for _, a := range r.Allocations {
		n += a.Quantity
	}
	return n
}

// AllocationPlanner splits requested quantities across stores.
type AllocationPlanner struct {
	opts Options
}

func NewAllocationPlanner(opts Options) *AllocationPlanner {
	return &AllocationPlanner{opts: opts.withDefaults()}
}

// Allocate dispatches on direction. It is deterministic for a given request and snapshot.
func (p *AllocationPlanner) Allocate(req AllocationRequest, snap *StockSnapshot) AllocationResult {
	if snap == nil {
		snap = EmptySnapshot()
	}
	if req.Direction.IsInbound() {
		return p.allocateInbound(req, snap)
	}
	return p.allocateOutbound(req, snap)
}

// allocateOutbound walks stores with stock in ascending store id order, taking
// min(remaining, store quantity) from each until the request is covered.
func (p *AllocationPlanner) allocateOutbound(req AllocationRequest, snap *StockSnapshot) AllocationResult {
	var res AllocationResult
	remaining := req.Quantity
	if remaining <= 0 {
		return res
	}

	price := req.UnitPrice.Round(0)
	for _, st := range snap.StoresWithStock(req.ProductID) {
		if remaining == 0 {
			break
		}
		take := min(remaining, st.Quantity)
		res.Allocations = append(res.Allocations, Allocation{
			StoreID:         st.StoreID,
			Quantity:        take,
			UnitPrice:       price,
			DiscountPercent: req.DiscountPercent,
		})
		remaining -= take
	}

	res.Unmet = remaining
	if remaining > 0 {
		res.Issues = append(res.Issues, Issue{
			Kind:     IssueInsufficientStock,
			Field:    "quantity",
			Quantity: remaining,
			Message: fmt.Sprintf("requested %d, only %d available across all stores",
				req.Quantity, req.Quantity-remaining),
		})
	}
	return res
}

// allocateInbound validates a single-store receipt against the destination's headroom.
func (p *AllocationPlanner) allocateInbound(req AllocationRequest, snap *StockSnapshot) AllocationResult {
	var res AllocationResult
	requested := max(req.Quantity, 0)

	if req.StoreID == 0 {
		res.Unmet = requested
		res.Issues = append(res.Issues, Issue{
			Kind:     IssueUnresolved,
			Field:    "store_id",
			Quantity: requested,
			Message:  "no destination store selected",
		})
		return res
	}

	res.Headroom = p.Headroom(req.ProductID, req.StoreID, snap)

	if requested > 0 && requested < p.opts.MinOrderQuantity {
		res.Issues = append(res.Issues, Issue{
			Kind:    IssueBelowMinimum,
			Field:   "quantity",
			Message: fmt.Sprintf("minimum order quantity is %d", p.opts.MinOrderQuantity),
		})
	}

	allocated := min(requested, res.Headroom)
	if allocated > 0 {
		res.Allocations = append(res.Allocations, Allocation{
			StoreID:         req.StoreID,
			Quantity:        allocated,
			UnitPrice:       req.UnitPrice.Round(0),
			DiscountPercent: req.DiscountPercent,
		})
	}

	res.Unmet = requested - allocated
	if res.Unmet > 0 {
		res.Issues = append(res.Issues, Issue{
			Kind:     IssueCapacityExceeded,
			Field:    "quantity",
			Quantity: res.Unmet,
			Message: fmt.Sprintf("store %d can take %d more units, %d over capacity",
				req.StoreID, res.Headroom, res.Unmet),
		})
	}
	return res
}

// Headroom is max(0, maxCapacity - currentQuantity) when the destination declares a max
// capacity, otherwise the configured default ceiling.
func (p *AllocationPlanner) Headroom(productID, storeID int64, snap *StockSnapshot) int64 {
	lvl, ok := snap.StockAt(productID, storeID)
	if !ok || lvl.MaxCapacity == nil {
		return p.opts.DefaultInboundCeiling
	}
	return max(0, *lvl.MaxCapacity-lvl.Quantity)
}
