package ai_test

import (
	"testing"

	"inventory-intake/internal/ai"

	"github.com/shopspring/decimal"
)

func TestReceiptExtraction_Normalize(t *testing.T) {
	r := ai.ReceiptExtraction{
		ReceiptType: " import ",
		PartnerName: "  Công ty ABC ",
		TotalAmount: "1.230.000 đ",
		Lines: []ai.ExtractedLine{
			{Name: " Cà phê sữa ", Quantity: "12", UnitPrice: "15.000", DiscountPercent: "null", TotalPrice: "180,000"},
			{Name: "", Code: "", Quantity: "3"},
			{Name: "Đường", Quantity: "2,5", UnitPrice: "22000 VND", DiscountPercent: "", TotalPrice: "abc"},
		},
	}
	r.Normalize()

	if r.ReceiptType != "IMPORT" || r.PartnerName != "Công ty ABC" {
		t.Errorf("header not normalized: %q %q", r.ReceiptType, r.PartnerName)
	}
	if r.TotalAmount != "1230000" {
		t.Errorf("total = %q, want 1230000", r.TotalAmount)
	}
	if len(r.Lines) != 2 {
		t.Fatalf("blank row should be dropped, got %d lines", len(r.Lines))
	}

	first := r.Lines[0]
	if first.Name != "Cà phê sữa" || first.UnitPrice != "15000" || first.DiscountPercent != "0" || first.TotalPrice != "180000" {
		t.Errorf("first line = %+v", first)
	}
	second := r.Lines[1]
	if second.Quantity != "2.5" || second.UnitPrice != "22000" || second.TotalPrice != "0" {
		t.Errorf("second line = %+v", second)
	}
}

func TestReceiptExtraction_Validate(t *testing.T) {
	valid := func() ai.ReceiptExtraction {
		return ai.ReceiptExtraction{
			ReceiptType: "EXPORT",
			Confidence:  0.8,
			Lines:       []ai.ExtractedLine{{Name: "Trà xanh", Quantity: "2"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ai.ReceiptExtraction)
		wantErr bool
	}{
		{"valid", func(*ai.ReceiptExtraction) {}, false},
		{"bad receipt type", func(r *ai.ReceiptExtraction) { r.ReceiptType = "TRANSFER" }, true},
		{"confidence above 1", func(r *ai.ReceiptExtraction) { r.Confidence = 1.5 }, true},
		{"no lines", func(r *ai.ReceiptExtraction) { r.Lines = nil }, true},
		{"negative quantity", func(r *ai.ReceiptExtraction) { r.Lines[0].Quantity = "-2" }, true},
		{"zero quantity is left to the engine", func(r *ai.ReceiptExtraction) { r.Lines[0].Quantity = "0" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReceiptExtraction_ToRawLines(t *testing.T) {
	r := ai.ReceiptExtraction{
		ReceiptType:  "IMPORT",
		PartnerName:  "Công ty ABC",
		PartnerPhone: "0901234567",
		Lines: []ai.ExtractedLine{
			{Name: "Cà phê sữa", Code: "CF01", Quantity: "12.0", UnitPrice: "15000", DiscountPercent: "5", Warehouse: "Kho 1 (WH01)", SuggestedProductID: 1},
			{Name: "Trà xanh", Quantity: "4", UnitPrice: "0", TotalPrice: "82000"},
		},
	}
	lines := r.ToRawLines()
	if len(lines) != 2 {
		t.Fatalf("got %d raw lines", len(lines))
	}

	a := lines[0]
	if !a.Quantity.Equal(decimal.NewFromInt(12)) || !a.Quantity.IsInteger() {
		t.Errorf("quantity = %s, want whole 12", a.Quantity)
	}
	if a.ProductCode != "CF01" || a.Warehouse != "Kho 1 (WH01)" || a.SuggestedProductID != 1 || a.PartnerHint != "Công ty ABC" {
		t.Errorf("first raw line = %+v", a)
	}
	if !a.DiscountPercent.Equal(decimal.NewFromInt(5)) {
		t.Errorf("discount = %s", a.DiscountPercent)
	}

	if b := lines[1]; !b.UnitPrice.Equal(decimal.NewFromInt(20500)) {
		t.Errorf("price derived from total = %s, want 20500", b.UnitPrice)
	}

	if g := r.PartnerGuess(); g.Name != "Công ty ABC" || g.Phone != "0901234567" {
		t.Errorf("partner guess = %+v", g)
	}
}
