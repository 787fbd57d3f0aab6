package core_test

import (
	"reflect"
	"testing"

	"inventory-intake/internal/core"

	"github.com/shopspring/decimal"
)

type storeQty struct{ store, qty int64 }

func allocPairs(allocs []core.Allocation) []storeQty {
	var out []storeQty
	for _, a := range allocs {
		out = append(out, storeQty{a.StoreID, a.Quantity})
	}
	return out
}

func hasIssue(issues []core.Issue, kind core.IssueKind) bool {
	for _, is := range issues {
		if is.Kind == kind {
			return true
		}
	}
	return false
}

func TestAllocateOutbound(t *testing.T) {
	tests := []struct {
		name      string
		records   []core.StockRecord
		quantity  int64
		want      []storeQty
		wantUnmet int64
	}{
		{
			name:     "spills over in ascending store order",
			records:  []core.StockRecord{{ProductID: 1, StoreID: 3, Quantity: 8}, {ProductID: 1, StoreID: 1, Quantity: 5}},
			quantity: 10,
			want:     []storeQty{{1, 5}, {3, 5}},
		},
		{
			name:      "short stock leaves unmet",
			records:   []core.StockRecord{{ProductID: 1, StoreID: 2, Quantity: 3}},
			quantity:  10,
			want:      []storeQty{{2, 3}},
			wantUnmet: 7,
		},
		{
			name:     "single store covers request",
			records:  []core.StockRecord{{ProductID: 1, StoreID: 4, Quantity: 20}, {ProductID: 1, StoreID: 9, Quantity: 20}},
			quantity: 12,
			want:     []storeQty{{4, 12}},
		},
		{
			name:      "no stock anywhere",
			quantity:  4,
			wantUnmet: 4,
		},
		{
			name:     "zero request allocates nothing",
			records:  []core.StockRecord{{ProductID: 1, StoreID: 1, Quantity: 5}},
			quantity: 0,
		},
	}

	planner := core.NewAllocationPlanner(core.DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := core.NewStockSnapshot(tt.records)
			if err != nil {
				t.Fatal(err)
			}
			res := planner.Allocate(core.AllocationRequest{
				ProductID: 1,
				Quantity:  tt.quantity,
				Direction: core.DirectionOutbound,
				UnitPrice: decimal.RequireFromString("1000.4"),
			}, snap)

			if got := allocPairs(res.Allocations); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("allocations = %v, want %v", got, tt.want)
			}
			if res.Unmet != tt.wantUnmet {
				t.Errorf("unmet = %d, want %d", res.Unmet, tt.wantUnmet)
			}
			if res.Allocated()+res.Unmet != tt.quantity {
				t.Errorf("allocated %d + unmet %d != requested %d", res.Allocated(), res.Unmet, tt.quantity)
			}
			if got := hasIssue(res.Issues, core.IssueInsufficientStock); got != (tt.wantUnmet > 0) {
				t.Errorf("InsufficientStock issue present = %v, want %v", got, tt.wantUnmet > 0)
			}
			for _, a := range res.Allocations {
				if !a.UnitPrice.Equal(decimal.NewFromInt(1000)) {
					t.Errorf("allocation price = %s, want rounded 1000", a.UnitPrice)
				}
			}
		})
	}
}

func TestAllocateOutbound_ConservationAndOrder(t *testing.T) {
	snap, err := core.NewStockSnapshot([]core.StockRecord{
		{ProductID: 1, StoreID: 8, Quantity: 2},
		{ProductID: 1, StoreID: 2, Quantity: 4},
		{ProductID: 1, StoreID: 5, Quantity: 0},
		{ProductID: 1, StoreID: 6, Quantity: 7},
	})
	if err != nil {
		t.Fatal(err)
	}
	planner := core.NewAllocationPlanner(core.DefaultOptions())

	for q := int64(0); q <= 20; q++ {
		req := core.AllocationRequest{ProductID: 1, Quantity: q, Direction: core.DirectionOutbound}
		a := planner.Allocate(req, snap)
		b := planner.Allocate(req, snap)

		if a.Allocated()+a.Unmet != q {
			t.Fatalf("q=%d: allocated %d + unmet %d", q, a.Allocated(), a.Unmet)
		}
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("q=%d: allocation not deterministic: %+v vs %+v", q, a, b)
		}
		for i := 1; i < len(a.Allocations); i++ {
			if a.Allocations[i-1].StoreID >= a.Allocations[i].StoreID {
				t.Fatalf("q=%d: stores not strictly ascending: %v", q, allocPairs(a.Allocations))
			}
		}
		for _, al := range a.Allocations {
			if al.Quantity <= 0 {
				t.Fatalf("q=%d: non-positive allocation %+v", q, al)
			}
		}
	}
}

func TestAllocateInbound(t *testing.T) {
	snap, err := core.NewStockSnapshot([]core.StockRecord{
		{ProductID: 1, StoreID: 5, Quantity: 90, MaxCapacity: ptr(100)},
		{ProductID: 1, StoreID: 6, Quantity: 120, MaxCapacity: ptr(100)},
		{ProductID: 1, StoreID: 7, Quantity: 40},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		storeID      int64
		quantity     int64
		wantAlloc    int64
		wantUnmet    int64
		wantHeadroom int64
		wantIssues   []core.IssueKind
	}{
		{"clamped to max capacity", 5, 50, 10, 40, 10, []core.IssueKind{core.IssueCapacityExceeded}},
		{"fits within headroom", 5, 10, 10, 0, 10, nil},
		{"over capacity already", 6, 15, 0, 15, 0, []core.IssueKind{core.IssueCapacityExceeded}},
		{"no max uses default ceiling", 7, 1200, 1000, 200, 1000, []core.IssueKind{core.IssueCapacityExceeded}},
		{"no record uses default ceiling", 9, 300, 300, 0, 1000, nil},
		{"below minimum warns without clamping", 9, 4, 4, 0, 1000, []core.IssueKind{core.IssueBelowMinimum}},
		{"missing store is unresolved", 0, 25, 0, 25, 0, []core.IssueKind{core.IssueUnresolved}},
	}

	planner := core.NewAllocationPlanner(core.DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := planner.Allocate(core.AllocationRequest{
				ProductID: 1,
				Quantity:  tt.quantity,
				Direction: core.DirectionInbound,
				StoreID:   tt.storeID,
				UnitPrice: decimal.NewFromInt(500),
			}, snap)

			if res.Allocated() != tt.wantAlloc || res.Unmet != tt.wantUnmet {
				t.Errorf("allocated %d unmet %d, want %d / %d", res.Allocated(), res.Unmet, tt.wantAlloc, tt.wantUnmet)
			}
			if res.Headroom != tt.wantHeadroom {
				t.Errorf("headroom = %d, want %d", res.Headroom, tt.wantHeadroom)
			}
			if res.Allocated() > res.Headroom && tt.storeID != 0 {
				t.Errorf("allocated %d exceeds headroom %d", res.Allocated(), res.Headroom)
			}
			var kinds []core.IssueKind
			for _, is := range res.Issues {
				kinds = append(kinds, is.Kind)
			}
			if !reflect.DeepEqual(kinds, tt.wantIssues) {
				t.Errorf("issues = %v, want %v", kinds, tt.wantIssues)
			}
			for _, a := range res.Allocations {
				if a.StoreID != tt.storeID || a.Quantity <= 0 {
					t.Errorf("unexpected allocation %+v", a)
				}
			}
		})
	}
}

func TestAllocationPlanner_Options(t *testing.T) {
	planner := core.NewAllocationPlanner(core.Options{DefaultInboundCeiling: 50})
	res := planner.Allocate(core.AllocationRequest{ProductID: 1, Quantity: 3, Direction: core.DirectionInbound, StoreID: 1}, nil)
	if res.Headroom != 50 {
		t.Errorf("headroom = %d, want configured ceiling 50", res.Headroom)
	}
	if hasIssue(res.Issues, core.IssueBelowMinimum) {
		t.Error("zero MinOrderQuantity should disable the minimum warning")
	}

	negative := core.NewAllocationPlanner(core.Options{MinOrderQuantity: -1})
	res = negative.Allocate(core.AllocationRequest{ProductID: 1, Quantity: 3, Direction: core.DirectionInbound, StoreID: 1}, nil)
	if !hasIssue(res.Issues, core.IssueBelowMinimum) || res.Headroom != 1000 {
		t.Errorf("negative floor should fall back to defaults, got headroom %d issues %+v", res.Headroom, res.Issues)
	}
}
