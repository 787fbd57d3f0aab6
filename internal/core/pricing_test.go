package core_test

import (
	"testing"

	"inventory-intake/internal/core"

	"github.com/shopspring/decimal"
)

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		quantity int64
		discount string
		want     string
	}{
		{"no discount", "15000", 3, "0", "45000"},
		{"ten percent", "15000", 3, "10", "40500"},
		{"rounds to whole units", "333", 1, "33", "223"},
		{"half rounds away from zero", "5", 1, "50", "3"},
		{"fractional price", "1000.6", 2, "0", "2001"},
		{"fractional price rounds after multiplying", "10.4", 10, "0", "104"},
		{"full discount", "999", 4, "100", "0"},
		{"zero quantity", "999", 0, "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.LineTotal(decimal.RequireFromString(tt.price), tt.quantity, decimal.RequireFromString(tt.discount))
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("LineTotal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAllocationTotalsMatchLineTotal(t *testing.T) {
	snap, _ := core.NewStockSnapshot([]core.StockRecord{
		{ProductID: 1, StoreID: 1, Quantity: 4},
		{ProductID: 1, StoreID: 2, Quantity: 6},
	})
	planner := core.NewAllocationPlanner(core.DefaultOptions())
	res := planner.Allocate(core.AllocationRequest{
		ProductID:       1,
		Quantity:        10,
		Direction:       core.DirectionOutbound,
		UnitPrice:       decimal.NewFromInt(12000),
		DiscountPercent: decimal.NewFromInt(5),
	}, snap)

	sum := decimal.Zero
	for _, a := range res.Allocations {
		sum = sum.Add(a.Total())
	}
	line := core.LineTotal(decimal.NewFromInt(12000), 10, decimal.NewFromInt(5))
	if !sum.Equal(line) {
		t.Errorf("allocation totals %s != line total %s", sum, line)
	}
}
