package core

import (
	"fmt"
	"sort"
	"sync"
)

// storeStock is one store's stock for a product, kept in ascending store id order.
type storeStock struct {
	StoreID int64
	Level   StockLevel
}

// StockSnapshot is a read-only per-product, per-store view of the stock feed.
// A refreshed feed produces a new snapshot; existing snapshots are never patched.
type StockSnapshot struct {
	byProduct map[int64][]storeStock
	totals    map[int64]int64
}

// NewStockSnapshot groups the flat feed by product then store. A negative quantity rejects the
// whole feed. If a (product, store) pair appears twice the later record wins.
func NewStockSnapshot(records []StockRecord) (*StockSnapshot, error) {
	grouped := make(map[int64]map[int64]StockLevel)
	for i, r := range records {
		if r.Quantity < 0 {
			return nil, fmt.Errorf("stock record %d (product %d, store %d): negative quantity %d",
				i, r.ProductID, r.StoreID, r.Quantity)
		}
		stores, ok := grouped[r.ProductID]
		if !ok {
			stores = make(map[int64]StockLevel)
			grouped[r.ProductID] = stores
		}
		stores[r.StoreID] = StockLevel{
			Quantity:    r.Quantity,
			MaxCapacity: copyInt64(r.MaxCapacity),
			MinCapacity: copyInt64(r.MinCapacity),
		}
	}

	snap := &StockSnapshot{
		byProduct: make(map[int64][]storeStock, len(grouped)),
		totals:    make(map[int64]int64, len(grouped)),
	}
	for productID, stores := range grouped {
		list := make([]storeStock, 0, len(stores))
		var total int64
		for storeID, level := range stores {
			list = append(list, storeStock{StoreID: storeID, Level: level})
			total += level.Quantity
		}
		sort.Slice(list, func(a, b int) bool { return list[a].StoreID < list[b].StoreID })
		snap.byProduct[productID] = list
		snap.totals[productID] = total
	}
	return snap, nil
}

// EmptySnapshot is a snapshot with no stock anywhere.
func EmptySnapshot() *StockSnapshot {
	return &StockSnapshot{byProduct: map[int64][]storeStock{}, totals: map[int64]int64{}}
}

// TotalStock sums the product's quantity over all stores; unknown products have zero stock.
func (s *StockSnapshot) TotalStock(productID int64) int64 {
	return s.totals[productID]
}

// StockAt returns the stock of a product at one store.
func (s *StockSnapshot) StockAt(productID, storeID int64) (StockLevel, bool) {
	list := s.byProduct[productID]
	i := sort.Search(len(list), func(i int) bool { return list[i].StoreID >= storeID })
	if i < len(list) && list[i].StoreID == storeID {
		lvl := list[i].Level
		lvl.MaxCapacity = copyInt64(lvl.MaxCapacity)
		lvl.MinCapacity = copyInt64(lvl.MinCapacity)
		return lvl, true
	}
	return StockLevel{}, false
}

// StoreQuantity is a (store, quantity) pair.
type StoreQuantity struct {
	StoreID  int64 `json:"store_id"`
	Quantity int64 `json:"quantity"`
}

// StoresWithStock lists the stores holding a positive quantity of the product, ascending by
// store id.
func (s *StockSnapshot) StoresWithStock(productID int64) []StoreQuantity {
	list := s.byProduct[productID]
	out := make([]StoreQuantity, 0, len(list))
	for _, st := range list {
		if st.Level.Quantity > 0 {
			out = append(out, StoreQuantity{StoreID: st.StoreID, Quantity: st.Level.Quantity})
		}
	}
	return out
}

func copyInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// SnapshotHolder hands out the current snapshot to resolution batches. A batch runs inside
// View and sees one snapshot from start to finish; Replace waits for running batches before
// swapping, so a feed that arrives mid-batch only becomes visible to the next batch.
type SnapshotHolder struct {
	mu   sync.RWMutex
	snap *StockSnapshot
}

// NewSnapshotHolder starts with initial, or an empty snapshot when initial is nil.
func NewSnapshotHolder(initial *StockSnapshot) *SnapshotHolder {
	if initial == nil {
		initial = EmptySnapshot()
	}
	return &SnapshotHolder{snap: initial}
}

// View runs fn against the current snapshot, holding off any Replace until fn returns.
func (h *SnapshotHolder) View(fn func(*StockSnapshot) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return fn(h.snap)
}

// Replace swaps in a new snapshot once no batch is running.
func (h *SnapshotHolder) Replace(snap *StockSnapshot) {
	if snap == nil {
		snap = EmptySnapshot()
	}
	h.mu.Lock()
	h.snap = snap
	h.mu.Unlock()
}

// Current returns the snapshot at the time of the call, for single reads outside a batch.
func (h *SnapshotHolder) Current() *StockSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}
