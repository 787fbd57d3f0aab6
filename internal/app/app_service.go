package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"inventory-intake/internal/ai"
	"inventory-intake/internal/core"

	"go.uber.org/zap"
)

type appService struct {
	catalog   CatalogSource
	stock     StockFeed
	submitter TransactionSubmitter
	extractor ai.ReceiptExtractor // nil when OCR is not configured

	resolver  *core.LineResolver
	threshold int
	log       *zap.Logger

	index     atomic.Pointer[core.CatalogIndex]
	snapshots *core.SnapshotHolder
}

// NewAppService constructs an appService that satisfies ApplicationService.
// The session starts empty; call Refresh before resolving.
func NewAppService(
	catalog CatalogSource,
	stock StockFeed,
	submitter TransactionSubmitter,
	extractor ai.ReceiptExtractor,
	opts core.Options,
	log *zap.Logger,
) ApplicationService {
	if log == nil {
		log = zap.NewNop()
	}
	threshold := opts.PartnerMatchThreshold
	if threshold <= 0 {
		threshold = core.DefaultOptions().PartnerMatchThreshold
	}
	return &appService{
		catalog:   catalog,
		stock:     stock,
		submitter: submitter,
		extractor: extractor,
		resolver:  core.NewLineResolver(opts),
		threshold: threshold,
		log:       log,
		snapshots: core.NewSnapshotHolder(nil),
	}
}

// Refresh loads the catalog and the stock feed and swaps both in. On any error the previous
// session stays in place.
func (s *appService) Refresh(ctx context.Context) (*RefreshResult, error) {
	data, err := s.catalog.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	snap, records, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	idx := core.NewCatalogIndex(*data)
	s.index.Store(idx)
	s.snapshots.Replace(snap)

	s.log.Info("session refreshed",
		zap.Int("products", len(data.Products)),
		zap.Int("stores", len(data.Stores)),
		zap.Int("stock_records", records),
	)
	return refreshResult(idx, records), nil
}

// RefreshStock reloads the stock feed only.
func (s *appService) RefreshStock(ctx context.Context) (*RefreshResult, error) {
	idx := s.index.Load()
	if idx == nil {
		return nil, ErrSessionNotLoaded
	}
	snap, records, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.snapshots.Replace(snap)
	s.log.Debug("stock refreshed", zap.Int("stock_records", records))
	return refreshResult(idx, records), nil
}

func (s *appService) loadSnapshot(ctx context.Context) (*core.StockSnapshot, int, error) {
	records, err := s.stock.LoadStockLevels(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load stock levels: %w", err)
	}
	snap, err := core.NewStockSnapshot(records)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build stock snapshot: %w", err)
	}
	return snap, len(records), nil
}

func refreshResult(idx *core.CatalogIndex, records int) *RefreshResult {
	return &RefreshResult{
		Products:     len(idx.Products()),
		Stores:       len(idx.Stores()),
		Suppliers:    len(idx.Suppliers()),
		Customers:    len(idx.Customers()),
		StockRecords: records,
		LoadedAt:     time.Now().UTC(),
	}
}

// Resolve matches the partner guess (if any) and resolves the batch against one snapshot.
// An inbound batch without an explicit supplier uses the matched supplier for eligibility checks.
func (s *appService) Resolve(ctx context.Context, req ResolveRequest) (*ResolveResult, error) {
	idx := s.index.Load()
	if idx == nil {
		return nil, ErrSessionNotLoaded
	}
	dir, err := core.ParseDirection(string(req.Direction))
	if err != nil {
		return nil, err
	}

	bctx := core.BatchContext{Direction: dir, SupplierID: req.SupplierID}
	var match *core.PartnerMatch
	if req.Partner != nil {
		m := core.MatchPartner(*req.Partner, idx.Partners(dir), s.threshold)
		match = &m
		if dir.IsInbound() && bctx.SupplierID == 0 && m.Matched {
			bctx.SupplierID = m.Partner.ID
		}
	}

	var batch core.BatchResult
	err = s.snapshots.View(func(snap *core.StockSnapshot) error {
		batch = s.resolver.ResolveBatch(req.Lines, idx, snap, bctx)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &ResolveResult{
		Direction:   dir,
		Lines:       batch.Lines,
		Errors:      lineErrorResults(batch.Errors),
		Total:       batch.Total,
		Partner:     match,
		Submittable: len(batch.Errors) == 0 && submittable(batch.Lines),
	}
	s.log.Debug("batch resolved",
		zap.String("direction", string(dir)),
		zap.Int("lines", len(batch.Lines)),
		zap.Int("rejected", len(batch.Errors)),
		zap.String("total", batch.Total.String()),
	)
	return result, nil
}

func submittable(lines []core.ResolvedLine) bool {
	if len(lines) == 0 {
		return false
	}
	for _, l := range lines {
		for _, is := range l.Issues {
			if is.Blocking() {
				return false
			}
		}
	}
	return true
}

// Revalidate re-runs allocation on one line against the current snapshot.
func (s *appService) Revalidate(ctx context.Context, req RevalidateRequest) (*core.ResolvedLine, error) {
	if s.index.Load() == nil {
		return nil, ErrSessionNotLoaded
	}
	dir, err := core.ParseDirection(string(req.Direction))
	if err != nil {
		return nil, err
	}
	var line core.ResolvedLine
	err = s.snapshots.View(func(snap *core.StockSnapshot) error {
		var verr error
		line, verr = s.resolver.Revalidate(req.Line, req.Quantity, req.DiscountPercent, snap, dir)
		return verr
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// ScanReceipt extracts a receipt with the OCR service and resolves the extracted lines.
func (s *appService) ScanReceipt(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	if s.extractor == nil {
		return nil, ErrExtractorUnavailable
	}
	idx := s.index.Load()
	if idx == nil {
		return nil, ErrSessionNotLoaded
	}
	dir, err := core.ParseDirection(string(req.Direction))
	if err != nil {
		return nil, err
	}

	hints := ai.CatalogHints{Products: idx.Products(), Stores: idx.Stores()}
	img := ai.ReceiptImage{MimeType: req.Image.MimeType, Data: req.Image.Data}
	extraction, err := s.extractor.Extract(ctx, img, dir, hints)
	if err != nil {
		return nil, fmt.Errorf("failed to extract receipt: %w", err)
	}

	guess := extraction.PartnerGuess()
	resolveReq := ResolveRequest{Direction: dir, Lines: extraction.ToRawLines()}
	if guess.Name != "" {
		resolveReq.Partner = &guess
	}
	resolution, err := s.Resolve(ctx, resolveReq)
	if err != nil {
		return nil, err
	}
	s.log.Info("receipt scanned",
		zap.String("direction", string(dir)),
		zap.Int("lines", len(extraction.Lines)),
		zap.Float64("confidence", extraction.Confidence),
	)
	return &ScanResult{Extraction: extraction, Resolution: resolution}, nil
}

// SubmitTransaction re-runs allocation for every line against the current snapshot so a
// payload never carries allocations computed from stale stock, then submits it. A known
// idempotency key short-circuits before re-allocation, since the stock it would be checked
// against already includes the earlier submission.
func (s *appService) SubmitTransaction(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	idx := s.index.Load()
	if idx == nil {
		return nil, ErrSessionNotLoaded
	}
	dir, err := core.ParseDirection(string(req.Direction))
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		existing, err := s.submitter.FindByKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if existing != nil {
			s.log.Info("transaction replayed", zap.Int64("id", existing.ID), zap.String("idempotency_key", key))
			return &SubmitResult{Transaction: existing}, nil
		}
	}

	lines := make([]core.ResolvedLine, 0, len(req.Lines))
	err = s.snapshots.View(func(snap *core.StockSnapshot) error {
		for i, l := range req.Lines {
			if !l.IsOrphan() {
				if _, ok := idx.Product(l.ProductID); !ok {
					return fmt.Errorf("%w: line %d: product %d is not in the catalog", core.ErrUnsubmittable, i, l.ProductID)
				}
			}
			if dir.IsInbound() && !l.IsOrphan() {
				if _, ok := idx.Store(l.StoreID); !ok {
					return fmt.Errorf("%w: line %d: store %d is not in the catalog", core.ErrUnsubmittable, i, l.StoreID)
				}
			}
			fresh, verr := s.resolver.Revalidate(l, l.Quantity, l.DiscountPercent, snap, dir)
			if verr != nil {
				return core.LineError{Index: i, Err: verr}
			}
			lines = append(lines, fresh)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload, err := core.BuildPayload(dir, req.Partner, req.Note, key, lines)
	if err != nil {
		return nil, err
	}
	submitted, err := s.submitter.Submit(ctx, payload)
	if err != nil {
		return nil, err
	}

	s.log.Info("transaction submitted",
		zap.Int64("id", submitted.ID),
		zap.String("direction", string(dir)),
		zap.Int("items", submitted.ItemCount),
		zap.Bool("replayed", submitted.Replayed),
	)
	if _, err := s.RefreshStock(ctx); err != nil {
		s.log.Warn("stock refresh after submit failed", zap.Error(err))
	}
	return &SubmitResult{Transaction: submitted, Payload: &payload}, nil
}

// GetStock reads one product's stock live from the feed when it supports per-product reads,
// falling back to the session snapshot if it does not or the read fails.
func (s *appService) GetStock(ctx context.Context, productID int64) (*StockResult, error) {
	idx := s.index.Load()
	if idx == nil {
		return nil, ErrSessionNotLoaded
	}
	product, ok := idx.Product(productID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}

	snap := s.snapshots.Current()
	if live, err := s.liveStock(ctx, productID); err != nil {
		s.log.Warn("live stock read failed, using session snapshot", zap.Int64("product_id", productID), zap.Error(err))
	} else if live != nil {
		snap = live
	}
	planner := s.resolver.Planner()
	result := &StockResult{Product: product, Total: snap.TotalStock(productID), Stores: []StoreStock{}}
	for _, st := range idx.Stores() {
		row := StoreStock{Store: st, Headroom: planner.Headroom(productID, st.ID, snap)}
		if lvl, ok := snap.StockAt(productID, st.ID); ok {
			row.Quantity = lvl.Quantity
			row.MaxCapacity = lvl.MaxCapacity
			row.MinCapacity = lvl.MinCapacity
		}
		result.Stores = append(result.Stores, row)
	}
	return result, nil
}

// liveStock returns a snapshot of one product's current rows, or nil when the feed cannot
// read a single product.
func (s *appService) liveStock(ctx context.Context, productID int64) (*core.StockSnapshot, error) {
	reader, ok := s.stock.(ProductStockReader)
	if !ok {
		return nil, nil
	}
	records, err := reader.StockForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return core.NewStockSnapshot(records)
}
