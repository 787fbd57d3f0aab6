package core

import "strings"

// EntityKind selects which catalog a token is resolved against and which scoring rules apply.
type EntityKind int

const (
	KindProduct EntityKind = iota
	KindStore
	KindSupplier
	KindCustomer
)

func (k EntityKind) String() string {
	switch k {
	case KindProduct:
		return "product"
	case KindStore:
		return "store"
	case KindSupplier:
		return "supplier"
	case KindCustomer:
		return "customer"
	default:
		return "unknown"
	}
}

// CatalogEntry is the matchable view of any catalog record. Keys are lowercased once at
// index build time.
type CatalogEntry struct {
	ID      int64
	Name    string
	Code    string
	nameKey string
	codeKey string
}

func newEntry(id int64, name, code string) CatalogEntry {
	return CatalogEntry{
		ID:      id,
		Name:    name,
		Code:    code,
		nameKey: foldKey(name),
		codeKey: foldKey(code),
	}
}

// foldKey trims and case-folds a token the same way on both sides of a comparison.
func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CatalogIndex is the in-memory lookup structure built once per session. It is never
// mutated after NewCatalogIndex returns; a refreshed catalog produces a new index.
type CatalogIndex struct {
	products  []Product
	stores    []StoreLocation
	suppliers []Partner
	customers []Partner

	productByID map[int64]int
	storeByID   map[int64]int

	entries map[EntityKind][]CatalogEntry
}

// NewCatalogIndex copies the catalog slices so later changes by the caller cannot leak in.
func NewCatalogIndex(data CatalogData) *CatalogIndex {
	idx := &CatalogIndex{
		products:    append([]Product(nil), data.Products...),
		stores:      append([]StoreLocation(nil), data.Stores...),
		suppliers:   append([]Partner(nil), data.Suppliers...),
		customers:   append([]Partner(nil), data.Customers...),
		productByID: make(map[int64]int, len(data.Products)),
		storeByID:   make(map[int64]int, len(data.Stores)),
		entries:     make(map[EntityKind][]CatalogEntry, 4),
	}

	products := make([]CatalogEntry, 0, len(idx.products))
	for i, p := range idx.products {
		if _, dup := idx.productByID[p.ID]; !dup {
			idx.productByID[p.ID] = i
		}
		products = append(products, newEntry(p.ID, p.Name, p.Code))
	}
	stores := make([]CatalogEntry, 0, len(idx.stores))
	for i, s := range idx.stores {
		if _, dup := idx.storeByID[s.ID]; !dup {
			idx.storeByID[s.ID] = i
		}
		stores = append(stores, newEntry(s.ID, s.Name, s.Code))
	}

	idx.entries[KindProduct] = products
	idx.entries[KindStore] = stores
	idx.entries[KindSupplier] = partnerEntries(idx.suppliers)
	idx.entries[KindCustomer] = partnerEntries(idx.customers)
	return idx
}

func partnerEntries(partners []Partner) []CatalogEntry {
	out := make([]CatalogEntry, 0, len(partners))
	for _, p := range partners {
		out = append(out, newEntry(p.ID, p.Name, ""))
	}
	return out
}

// Entries returns the matchable entries of a kind in catalog order.
func (c *CatalogIndex) Entries(kind EntityKind) []CatalogEntry {
	return c.entries[kind]
}

// Product returns the product with the given id.
func (c *CatalogIndex) Product(id int64) (Product, bool) {
	i, ok := c.productByID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Store returns the store with the given id.
func (c *CatalogIndex) Store(id int64) (StoreLocation, bool) {
	i, ok := c.storeByID[id]
	if !ok {
		return StoreLocation{}, false
	}
	return c.stores[i], true
}

// FirstStore is the inbound fallback destination: the first store in catalog order.
func (c *CatalogIndex) FirstStore() (StoreLocation, bool) {
	if len(c.stores) == 0 {
		return StoreLocation{}, false
	}
	return c.stores[0], true
}

func (c *CatalogIndex) Products() []Product { return c.products }
func (c *CatalogIndex) Stores() []StoreLocation { return c.stores }
func (c *CatalogIndex) Suppliers() []Partner { return c.suppliers }
func (c *CatalogIndex) Customers() []Partner { return c.customers }

// Partners returns the partner list relevant to a movement direction: suppliers deliver
// inbound stock, customers receive outbound stock.
func (c *CatalogIndex) Partners(dir Direction) []Partner {
	if dir.IsInbound() {
		return c.suppliers
	}
	return c.customers
}
