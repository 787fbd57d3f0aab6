package app_test

import (
	"context"
	"errors"
	"testing"

	"inventory-intake/internal/ai"
	"inventory-intake/internal/app"
	"inventory-intake/internal/core"

	"github.com/shopspring/decimal"
)

type fakeCatalog struct {
	data *core.CatalogData
	err  error
}

func (f *fakeCatalog) LoadCatalog(context.Context) (*core.CatalogData, error) {
	return f.data, f.err
}

type fakeStock struct {
	records []core.StockRecord
	err     error
	calls   int
}

func (f *fakeStock) LoadStockLevels(context.Context) ([]core.StockRecord, error) {
	f.calls++
	return f.records, f.err
}

type fakeSubmitter struct {
	payloads []core.TransactionPayload
	err      error
}

func (f *fakeSubmitter) Submit(_ context.Context, p core.TransactionPayload) (*core.SubmittedTransaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, p)
	return &core.SubmittedTransaction{
		ID:             int64(len(f.payloads)),
		IdempotencyKey: p.IdempotencyKey,
		ItemCount:      len(p.Items),
		Total:          p.Total,
	}, nil
}

func (f *fakeSubmitter) FindByKey(_ context.Context, key string) (*core.SubmittedTransaction, error) {
	for i, p := range f.payloads {
		if p.IdempotencyKey == key {
			return &core.SubmittedTransaction{
				ID:             int64(i + 1),
				IdempotencyKey: key,
				ItemCount:      len(p.Items),
				Total:          p.Total,
				Replayed:       true,
			}, nil
		}
	}
	return nil, nil
}

// liveStock is a stock feed that also answers per-product reads.
type liveStock struct {
	*fakeStock
	product []core.StockRecord
	err     error
}

func (l *liveStock) StockForProduct(_ context.Context, productID int64) ([]core.StockRecord, error) {
	if l.err != nil {
		return nil, l.err
	}
	var out []core.StockRecord
	for _, r := range l.product {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeExtractor struct {
	out       *ai.ReceiptExtraction
	gotDir    core.Direction
	gotHints  ai.CatalogHints
	callCount int
}

func (f *fakeExtractor) Extract(_ context.Context, _ ai.ReceiptImage, dir core.Direction, hints ai.CatalogHints) (*ai.ReceiptExtraction, error) {
	f.callCount++
	f.gotDir = dir
	f.gotHints = hints
	return f.out, nil
}

func ptr(v int64) *int64 { return &v }

func testCatalog() *core.CatalogData {
	return &core.CatalogData{
		Products: []core.Product{
			{ID: 1, Name: "Cà phê sữa", Code: "CF01", Unit: "chai", UnitPrice: decimal.NewFromInt(15000), SupplierIDs: []int64{10}},
			{ID: 2, Name: "Trà xanh", Code: "TX01", Unit: "hộp", UnitPrice: decimal.NewFromInt(20000)},
			{ID: 3, Name: "Nước suối", Code: "NS01", Unit: "chai", UnitPrice: decimal.NewFromInt(5000), SupplierID: 11},
		},
		Stores: []core.StoreLocation{
			{ID: 1, Name: "Kho 1", Code: "WH01"},
			{ID: 3, Name: "Kho 3", Code: "WH03"},
			{ID: 5, Name: "Kho 5", Code: "WH05"},
		},
		Suppliers: []core.Partner{
			{ID: 10, Name: "Công ty ABC", Phone: "0901234567", Address: "12 Lê Lợi"},
			{ID: 11, Name: "Nhà phân phối XYZ", Phone: "0281112222"},
		},
		Customers: []core.Partner{
			{ID: 20, Name: "Cửa hàng Minh", Phone: "0909000111"},
		},
	}
}

func testStock() *fakeStock {
	return &fakeStock{records: []core.StockRecord{
		{ProductID: 1, StoreID: 3, Quantity: 8},
		{ProductID: 1, StoreID: 1, Quantity: 5},
		{ProductID: 2, StoreID: 5, Quantity: 90, MaxCapacity: ptr(100)},
	}}
}

type fixture struct {
	svc       app.ApplicationService
	stock     *fakeStock
	submitter *fakeSubmitter
	extractor *fakeExtractor
}

func newFixture(t *testing.T, withExtractor bool) fixture {
	t.Helper()
	f := fixture{stock: testStock(), submitter: &fakeSubmitter{}}
	var extractor ai.ReceiptExtractor
	if withExtractor {
		f.extractor = &fakeExtractor{}
		extractor = f.extractor
	}
	f.svc = app.NewAppService(&fakeCatalog{data: testCatalog()}, f.stock, f.submitter, extractor, core.DefaultOptions(), nil)
	if _, err := f.svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return f
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func hasIssue(l core.ResolvedLine, kind core.IssueKind) bool {
	for _, is := range l.Issues {
		if is.Kind == kind {
			return true
		}
	}
	return false
}

func TestAppService_RequiresRefresh(t *testing.T) {
	ctx := context.Background()
	svc := app.NewAppService(&fakeCatalog{data: testCatalog()}, testStock(), &fakeSubmitter{}, nil, core.Options{}, nil)

	if _, err := svc.Resolve(ctx, app.ResolveRequest{Direction: core.DirectionOutbound}); !errors.Is(err, app.ErrSessionNotLoaded) {
		t.Errorf("Resolve error = %v", err)
	}
	if _, err := svc.Revalidate(ctx, app.RevalidateRequest{Direction: core.DirectionOutbound}); !errors.Is(err, app.ErrSessionNotLoaded) {
		t.Errorf("Revalidate error = %v", err)
	}
	if _, err := svc.SubmitTransaction(ctx, app.SubmitRequest{Direction: core.DirectionOutbound}); !errors.Is(err, app.ErrSessionNotLoaded) {
		t.Errorf("SubmitTransaction error = %v", err)
	}
	if _, err := svc.GetStock(ctx, 1); !errors.Is(err, app.ErrSessionNotLoaded) {
		t.Errorf("GetStock error = %v", err)
	}
	if _, err := svc.RefreshStock(ctx); !errors.Is(err, app.ErrSessionNotLoaded) {
		t.Errorf("RefreshStock error = %v", err)
	}
}

func TestAppService_Refresh(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.svc.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Products != 3 || res.Stores != 3 || res.Suppliers != 2 || res.Customers != 1 || res.StockRecords != 3 {
		t.Errorf("refresh result = %+v", res)
	}
}

func TestAppService_FailedRefreshKeepsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	f.stock.records = []core.StockRecord{{ProductID: 1, StoreID: 1, Quantity: -4}}
	if _, err := f.svc.Refresh(ctx); err == nil {
		t.Fatal("expected a negative quantity in the feed to fail the refresh")
	}
	f.stock.err = errors.New("feed down")
	if _, err := f.svc.RefreshStock(ctx); err == nil {
		t.Fatal("expected the feed error")
	}

	stock, err := f.svc.GetStock(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if stock.Total != 13 {
		t.Errorf("total = %d, want the previous snapshot's 13", stock.Total)
	}
}

func TestAppService_ResolveOutbound(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.svc.Resolve(context.Background(), app.ResolveRequest{
		Direction: "export",
		Partner:   &core.PartnerGuess{Name: "cửa hàng minh", Phone: "0909 000 111"},
		Lines: []core.RawLine{
			{ProductCode: "CF01", Quantity: qty(10)},
			{ProductName: "", Quantity: qty(-1)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if res.Direction != core.DirectionOutbound {
		t.Errorf("direction = %q", res.Direction)
	}
	if len(res.Lines) != 1 || len(res.Errors) != 1 || res.Errors[0].Index != 1 {
		t.Fatalf("lines = %d, errors = %+v", len(res.Lines), res.Errors)
	}
	if len(res.Errors[0].Fields) == 0 {
		t.Error("expected field errors on the rejected line")
	}
	line := res.Lines[0]
	if line.Unmet != 0 || line.AllocatedQuantity() != 10 {
		t.Errorf("line = %+v", line)
	}
	if !res.Total.Equal(decimal.NewFromInt(150000)) {
		t.Errorf("total = %s, want 150000", res.Total)
	}
	if res.Partner == nil || !res.Partner.Matched || res.Partner.Partner.ID != 20 {
		t.Errorf("partner = %+v", res.Partner)
	}
	if res.Submittable {
		t.Error("a batch with a rejected line must not be submittable")
	}
}

func TestAppService_ResolveInboundUsesMatchedSupplier(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.svc.Resolve(context.Background(), app.ResolveRequest{
		Direction: core.DirectionInbound,
		Partner:   &core.PartnerGuess{Name: "Công ty ABC", Phone: "090 123 4567"},
		Lines: []core.RawLine{
			{ProductCode: "NS01", Warehouse: "Kho 1", Quantity: qty(20)},
			{ProductCode: "CF01", Warehouse: "Kho 3", Quantity: qty(20)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Lines) != 2 {
		t.Fatalf("got %d lines", len(res.Lines))
	}
	if !hasIssue(res.Lines[0], core.IssueSupplierMismatch) {
		t.Errorf("NS01 from supplier 10 should warn, issues = %+v", res.Lines[0].Issues)
	}
	if hasIssue(res.Lines[1], core.IssueSupplierMismatch) {
		t.Errorf("CF01 is supplied by 10, issues = %+v", res.Lines[1].Issues)
	}
	if !res.Submittable {
		t.Error("warnings alone should not block submission")
	}
}

func TestAppService_Revalidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	res, err := f.svc.Resolve(ctx, app.ResolveRequest{
		Direction: core.DirectionOutbound,
		Lines:     []core.RawLine{{ProductCode: "CF01", Quantity: qty(5)}},
	})
	if err != nil {
		t.Fatal(err)
	}

	line, err := f.svc.Revalidate(ctx, app.RevalidateRequest{
		Direction: core.DirectionOutbound,
		Line:      res.Lines[0],
		Quantity:  20,
	})
	if err != nil {
		t.Fatal(err)
	}
	if line.Unmet != 7 || !hasIssue(*line, core.IssueInsufficientStock) {
		t.Errorf("revalidated line = %+v", line)
	}

	_, err = f.svc.Revalidate(ctx, app.RevalidateRequest{
		Direction:       core.DirectionOutbound,
		Line:            res.Lines[0],
		Quantity:        1,
		DiscountPercent: decimal.NewFromInt(150),
	})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestAppService_SubmitTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	res, err := f.svc.Resolve(ctx, app.ResolveRequest{
		Direction: core.DirectionOutbound,
		Lines:     []core.RawLine{{ProductCode: "CF01", Quantity: qty(10)}},
	})
	if err != nil {
		t.Fatal(err)
	}

	out, err := f.svc.SubmitTransaction(ctx, app.SubmitRequest{
		Direction: core.DirectionOutbound,
		Partner:   core.PartnerRef{ID: 20},
		Note:      "  giao buổi sáng ",
		Lines:     res.Lines,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.submitter.payloads) != 1 {
		t.Fatalf("submitter called %d times", len(f.submitter.payloads))
	}
	p := f.submitter.payloads[0]
	if p.Note != "giao buổi sáng" || p.IdempotencyKey == "" || !p.Total.Equal(decimal.NewFromInt(150000)) {
		t.Errorf("payload = %+v", p)
	}
	if out.Transaction.ItemCount != len(p.Items) {
		t.Errorf("item count = %d, want %d", out.Transaction.ItemCount, len(p.Items))
	}
	if f.stock.calls != 2 {
		t.Errorf("stock feed loaded %d times, want a reload after submit", f.stock.calls)
	}
}

func TestAppService_SubmitReplaysKnownKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	res, err := f.svc.Resolve(ctx, app.ResolveRequest{
		Direction: core.DirectionOutbound,
		Lines:     []core.RawLine{{ProductCode: "CF01", Quantity: qty(10)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	req := app.SubmitRequest{
		Direction:      core.DirectionOutbound,
		Partner:        core.PartnerRef{ID: 20},
		IdempotencyKey: "phieu-xuat-0001",
		Lines:          res.Lines,
	}

	first, err := f.svc.SubmitTransaction(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if first.Transaction.Replayed || first.Payload == nil || first.Payload.IdempotencyKey != "phieu-xuat-0001" {
		t.Fatalf("first submit = %+v", first)
	}

	// The shipment used up the stock, so a retry must not be re-allocated.
	f.stock.records = []core.StockRecord{{ProductID: 1, StoreID: 3, Quantity: 3}}
	if _, err := f.svc.RefreshStock(ctx); err != nil {
		t.Fatal(err)
	}

	retry, err := f.svc.SubmitTransaction(ctx, req)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !retry.Transaction.Replayed || retry.Transaction.ID != first.Transaction.ID || retry.Payload != nil {
		t.Errorf("retry = %+v, want replay of transaction %d", retry.Transaction, first.Transaction.ID)
	}
	if len(f.submitter.payloads) != 1 {
		t.Errorf("submitter called %d times, want 1", len(f.submitter.payloads))
	}

	other := req
	other.IdempotencyKey = ""
	if _, err := f.svc.SubmitTransaction(ctx, other); !errors.Is(err, core.ErrUnsubmittable) {
		t.Errorf("new submission error = %v, want ErrUnsubmittable against the reduced stock", err)
	}
}

func TestAppService_SubmitRechecksStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	res, err := f.svc.Resolve(ctx, app.ResolveRequest{
		Direction: core.DirectionOutbound,
		Lines:     []core.RawLine{{ProductCode: "CF01", Quantity: qty(10)}},
	})
	if err != nil {
		t.Fatal(err)
	}

	f.stock.records = []core.StockRecord{{ProductID: 1, StoreID: 3, Quantity: 2}}
	if _, err := f.svc.RefreshStock(ctx); err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.SubmitTransaction(ctx, app.SubmitRequest{
		Direction: core.DirectionOutbound,
		Partner:   core.PartnerRef{ID: 20},
		Lines:     res.Lines,
	})
	if !errors.Is(err, core.ErrUnsubmittable) {
		t.Errorf("error = %v, want ErrUnsubmittable", err)
	}
	if len(f.submitter.payloads) != 0 {
		t.Error("nothing should reach the submitter")
	}
}

func TestAppService_SubmitRejectsUnknownStore(t *testing.T) {
	f := newFixture(t, false)
	line := core.ResolvedLine{ProductID: 3, Code: "NS01", Quantity: 20, StoreID: 42, UnitPrice: decimal.NewFromInt(5000)}
	_, err := f.svc.SubmitTransaction(context.Background(), app.SubmitRequest{
		Direction: core.DirectionInbound,
		Partner:   core.PartnerRef{ID: 11},
		Lines:     []core.ResolvedLine{line},
	})
	if !errors.Is(err, core.ErrUnsubmittable) {
		t.Errorf("error = %v, want ErrUnsubmittable", err)
	}
}

func TestAppService_ScanReceipt(t *testing.T) {
	ctx := context.Background()

	noOCR := newFixture(t, false)
	if _, err := noOCR.svc.ScanReceipt(ctx, app.ScanRequest{Direction: core.DirectionInbound}); !errors.Is(err, app.ErrExtractorUnavailable) {
		t.Errorf("error = %v, want ErrExtractorUnavailable", err)
	}

	f := newFixture(t, true)
	f.extractor.out = &ai.ReceiptExtraction{
		ReceiptType:  "IMPORT",
		PartnerName:  "Nhà phân phối XYZ",
		PartnerPhone: "028 111 2222",
		Lines: []ai.ExtractedLine{
			{Name: "Nước suối", Quantity: "24", UnitPrice: "5000", Warehouse: "Kho 5"},
			{Name: "Bánh quy bơ", Quantity: "3"},
		},
		Confidence: 0.8,
	}

	res, err := f.svc.ScanReceipt(ctx, app.ScanRequest{
		Direction: core.DirectionInbound,
		Image:     app.Attachment{MimeType: "image/png", Data: []byte("png")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.extractor.gotDir != core.DirectionInbound || len(f.extractor.gotHints.Products) != 3 {
		t.Errorf("extractor got dir %q and %d product hints", f.extractor.gotDir, len(f.extractor.gotHints.Products))
	}
	r := res.Resolution
	if r.Partner == nil || !r.Partner.Matched || r.Partner.Partner.ID != 11 {
		t.Errorf("partner = %+v", r.Partner)
	}
	if len(r.Lines) != 2 || r.Lines[0].ProductID != 3 || r.Lines[0].StoreID != 5 {
		t.Fatalf("lines = %+v", r.Lines)
	}
	if !r.Lines[1].IsOrphan() || r.Submittable {
		t.Errorf("unknown product should stay as an orphan and block submission")
	}
}

func TestAppService_GetStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	if _, err := f.svc.GetStock(ctx, 99); !errors.Is(err, app.ErrProductNotFound) {
		t.Errorf("error = %v, want ErrProductNotFound", err)
	}

	res, err := f.svc.GetStock(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 90 || len(res.Stores) != 3 {
		t.Fatalf("stock = %+v", res)
	}
	for _, s := range res.Stores {
		want := int64(1000)
		if s.Store.ID == 5 {
			want = 10
		}
		if s.Headroom != want {
			t.Errorf("store %d headroom = %d, want %d", s.Store.ID, s.Headroom, want)
		}
	}
}

func TestAppService_GetStockReadsLive(t *testing.T) {
	ctx := context.Background()
	stock := &liveStock{
		fakeStock: testStock(),
		product:   []core.StockRecord{{ProductID: 1, StoreID: 5, Quantity: 40, MaxCapacity: ptr(50)}},
	}
	svc := app.NewAppService(&fakeCatalog{data: testCatalog()}, stock, &fakeSubmitter{}, nil, core.DefaultOptions(), nil)
	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	res, err := svc.GetStock(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 40 {
		t.Errorf("total = %d, want live 40 rather than the session's 13", res.Total)
	}
	for _, s := range res.Stores {
		if s.Store.ID == 5 && (s.Quantity != 40 || s.Headroom != 10) {
			t.Errorf("store 5 = %+v, want quantity 40 headroom 10", s)
		}
		if s.Store.ID == 1 && s.Quantity != 0 {
			t.Errorf("store 1 quantity = %d, want 0 from the live read", s.Quantity)
		}
	}

	stock.err = errors.New("connection reset")
	res, err = svc.GetStock(ctx, 1)
	if err != nil {
		t.Fatalf("a failed live read should fall back, got %v", err)
	}
	if res.Total != 13 {
		t.Errorf("fallback total = %d, want session 13", res.Total)
	}
}
