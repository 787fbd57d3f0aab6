package app

import (
	"errors"
	"time"

	"inventory-intake/internal/ai"
	"inventory-intake/internal/core"

	"github.com/shopspring/decimal"
)

// RefreshResult is returned by Refresh and RefreshStock.
type RefreshResult struct {
	Products     int       `json:"products"`
	Stores       int       `json:"stores"`
	Suppliers    int       `json:"suppliers"`
	Customers    int       `json:"customers"`
	StockRecords int       `json:"stock_records"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// LineErrorResult reports one raw line that failed validation.
type LineErrorResult struct {
	Index   int               `json:"index"`
	Message string            `json:"message"`
	Fields  []core.FieldError `json:"fields,omitempty"`
}

func lineErrorResults(errs []core.LineError) []LineErrorResult {
	out := make([]LineErrorResult, 0, len(errs))
	for _, le := range errs {
		r := LineErrorResult{Index: le.Index, Message: le.Err.Error()}
		var inv *core.InvalidInputError
		if errors.As(le.Err, &inv) {
			r.Fields = inv.Fields
		}
		out = append(out, r)
	}
	return out
}

// ResolveResult is returned by Resolve.
type ResolveResult struct {
	Direction core.Direction      `json:"direction"`
	Lines     []core.ResolvedLine `json:"lines"`
	Errors    []LineErrorResult   `json:"errors"`
	Total     decimal.Decimal     `json:"total"`
	Partner   *core.PartnerMatch  `json:"partner,omitempty"`
	// Submittable is true when every line is free of blocking issues and no line was rejected.
	Submittable bool `json:"submittable"`
}

// ScanResult is returned by ScanReceipt.
type ScanResult struct {
	Extraction *ai.ReceiptExtraction `json:"extraction"`
	Resolution *ResolveResult        `json:"resolution"`
}

// SubmitResult is returned by SubmitTransaction. Payload is nil for a replayed submission.
type SubmitResult struct {
	Transaction *core.SubmittedTransaction `json:"transaction"`
	Payload     *core.TransactionPayload   `json:"payload,omitempty"`
}

// StoreStock is one store's row in a StockResult.
type StoreStock struct {
	Store       core.StoreLocation `json:"store"`
	Quantity    int64              `json:"quantity"`
	MaxCapacity *int64             `json:"max_capacity,omitempty"`
	MinCapacity *int64             `json:"min_capacity,omitempty"`
	Headroom    int64              `json:"headroom"`
}

// StockResult is returned by GetStock.
type StockResult struct {
	Product core.Product `json:"product"`
	Total   int64        `json:"total"`
	Stores  []StoreStock `json:"stores"`
}
