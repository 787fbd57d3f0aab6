package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartnerRef names the counterparty of a transaction: either an existing partner by ID or a
// new record to be created at submission time.
type PartnerRef struct {
	ID  int64    `json:"id,omitempty"`
	New *Partner `json:"new,omitempty"`
}

// IsZero reports whether no partner was chosen.
func (p PartnerRef) IsZero() bool {
	return p.ID == 0 && (p.New == nil || strings.TrimSpace(p.New.Name) == "")
}

// PartnerRefFromMatch turns a partner match into a reference, creating a new partner from
// the guess when no existing one was accepted.
func PartnerRefFromMatch(m PartnerMatch) PartnerRef {
	if m.Matched {
		return PartnerRef{ID: m.Partner.ID}
	}
	if strings.TrimSpace(m.Guess.Name) == "" {
		return PartnerRef{}
	}
	return PartnerRef{New: &Partner{
		Name:    strings.TrimSpace(m.Guess.Name),
		Phone:   strings.TrimSpace(m.Guess.Phone),
		Address: strings.TrimSpace(m.Guess.Address),
	}}
}

// PayloadItem is one (product, store) movement sent to the backend.
type PayloadItem struct {
	ProductID       int64           `json:"product_id"`
	StoreID         int64           `json:"store_id"`
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// TransactionPayload is the submission built from resolved lines.
type TransactionPayload struct {
	Direction      Direction       `json:"direction"`
	StoreID        int64           `json:"store_id"` // default store, the first item's store
	Partner        PartnerRef      `json:"partner"`
	Note           string          `json:"note,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	Items          []PayloadItem   `json:"items"`
	Total          decimal.Decimal `json:"total"`
}

// SubmittedTransaction is what the backend returns for an accepted payload.
type SubmittedTransaction struct {
	ID             int64           `json:"id"`
	IdempotencyKey string          `json:"idempotency_key"`
	PartnerID      int64           `json:"partner_id"`
	ItemCount      int             `json:"item_count"`
	Total          decimal.Decimal `json:"total"`
	CreatedAt      time.Time       `json:"created_at"`
	// Replayed is true when the idempotency key had already been accepted.
	Replayed bool `json:"replayed"`
}

// BuildPayload flattens the allocations of resolved lines into backend items. Orphan lines,
// lines with unmet quantity, an empty item list and a missing partner are all rejected with an
// error wrapping ErrUnsubmittable. Warnings do not block. An empty key gets a fresh uuid; callers
// that retry pass the same key so the backend can recognise the repeat.
func BuildPayload(dir Direction, partner PartnerRef, note, key string, lines []ResolvedLine) (TransactionPayload, error) {
	if partner.IsZero() {
		return TransactionPayload{}, fmt.Errorf("%w: no partner selected", ErrUnsubmittable)
	}

	var items []PayloadItem
	total := decimal.Zero
	for i, l := range lines {
		if l.IsOrphan() {
			return TransactionPayload{}, fmt.Errorf("%w: line %d (%s) has no catalog product", ErrUnsubmittable, i, l.Name)
		}
		if l.Unmet > 0 {
			return TransactionPayload{}, fmt.Errorf("%w: line %d (%s) has %d unmet units", ErrUnsubmittable, i, l.Code, l.Unmet)
		}
		for _, a := range l.Allocations {
			if a.Quantity <= 0 {
				continue
			}
			items = append(items, PayloadItem{
				ProductID:       l.ProductID,
				StoreID:         a.StoreID,
				Quantity:        a.Quantity,
				UnitPrice:       a.UnitPrice,
				DiscountPercent: a.DiscountPercent,
			})
			total = total.Add(a.Total())
		}
	}
	if len(items) == 0 {
		return TransactionPayload{}, fmt.Errorf("%w: no items to submit", ErrUnsubmittable)
	}

	key = strings.TrimSpace(key)
	if key == "" {
		key = uuid.NewString()
	}
	return TransactionPayload{
		Direction:      dir,
		StoreID:        items[0].StoreID,
		Partner:        partner,
		Note:           strings.TrimSpace(note),
		IdempotencyKey: key,
		Items:          items,
		Total:          total,
	}, nil
}
