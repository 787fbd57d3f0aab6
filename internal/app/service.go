package app

import (
	"context"
	"errors"

	"inventory-intake/internal/core"
)

var (
	// ErrSessionNotLoaded is returned by every resolution call made before the first Refresh.
	ErrSessionNotLoaded = errors.New("catalog not loaded, refresh the session first")
	// ErrExtractorUnavailable is returned by ScanReceipt when no OCR service is configured.
	ErrExtractorUnavailable = errors.New("receipt scanning is not configured")
	// ErrProductNotFound is returned when a product id is not in the loaded catalog.
	ErrProductNotFound = errors.New("product not found")
)

// Attachment is an uploaded receipt image.
// Supports JPG, PNG, WEBP and GIF for vision model input.
type Attachment struct {
	MimeType string // "image/jpeg", "image/png", "image/webp", "image/gif"
	Data     []byte // raw file bytes
}

// CatalogSource supplies the products, stores and partners the session resolves against.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) (*core.CatalogData, error)
}

// StockFeed supplies the flat per-product, per-store stock records.
type StockFeed interface {
	LoadStockLevels(ctx context.Context) ([]core.StockRecord, error)
}

// ProductStockReader reads one product's current stock rows straight from the feed.
// A StockFeed that also implements it gives GetStock a live view instead of the session snapshot.
type ProductStockReader interface {
	StockForProduct(ctx context.Context, productID int64) ([]core.StockRecord, error)
}

// TransactionSubmitter accepts a finished payload.
type TransactionSubmitter interface {
	Submit(ctx context.Context, payload core.TransactionPayload) (*core.SubmittedTransaction, error)
	// FindByKey returns a transaction already accepted under key, or nil.
	FindByKey(ctx context.Context, key string) (*core.SubmittedTransaction, error)
}

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// Refresh reloads the catalog and the stock feed. Batches already running finish against
	// the data they started with.
	Refresh(ctx context.Context) (*RefreshResult, error)

	// RefreshStock reloads only the stock feed.
	RefreshStock(ctx context.Context) (*RefreshResult, error)

	// Resolve turns raw lines into resolved, allocated lines against one frozen snapshot.
	// Invalid lines are reported per index and do not stop their siblings.
	Resolve(ctx context.Context, req ResolveRequest) (*ResolveResult, error)

	// Revalidate re-runs allocation for one line after a quantity or discount edit.
	Revalidate(ctx context.Context, req RevalidateRequest) (*core.ResolvedLine, error)

	// ScanReceipt extracts lines from a receipt image and resolves them.
	ScanReceipt(ctx context.Context, req ScanRequest) (*ScanResult, error)

	// SubmitTransaction re-checks the lines against current stock, builds the payload and
	// hands it to the backend. A request whose idempotency key was already accepted returns
	// the stored transaction without re-checking anything.
	SubmitTransaction(ctx context.Context, req SubmitRequest) (*SubmitResult, error)

	// GetStock returns per-store stock and inbound headroom for one product, read live when the
	// stock feed supports it and from the session snapshot otherwise.
	GetStock(ctx context.Context, productID int64) (*StockResult, error)
}
