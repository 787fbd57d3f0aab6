package app

import (
	"inventory-intake/internal/core"

	"github.com/shopspring/decimal"
)

// ResolveRequest is the input for resolving a batch of raw lines.
type ResolveRequest struct {
	Direction core.Direction `json:"direction"`
	// SupplierID is the inbound supplier when the user already picked one.
	SupplierID int64 `json:"supplier_id,omitempty"`
	// Partner is the partner identity read off a receipt, matched against suppliers or customers.
	Partner *core.PartnerGuess `json:"partner,omitempty"`
	Lines   []core.RawLine     `json:"lines"`
}

// RevalidateRequest is the input for re-running allocation on an edited line.
type RevalidateRequest struct {
	Direction       core.Direction    `json:"direction"`
	Line            core.ResolvedLine `json:"line"`
	Quantity        int64             `json:"quantity"`
	DiscountPercent decimal.Decimal   `json:"discount_percent"`
}

// ScanRequest is the input for scanning a receipt image.
type ScanRequest struct {
	Direction core.Direction
	Image     Attachment
}

// SubmitRequest is the input for submitting resolved lines as one stock transaction.
type SubmitRequest struct {
	Direction core.Direction  `json:"direction"`
	Partner   core.PartnerRef `json:"partner"`
	Note      string          `json:"note,omitempty"`
	// IdempotencyKey identifies the submission across retries; empty gets a fresh key.
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
	Lines          []core.ResolvedLine `json:"lines"`
}
