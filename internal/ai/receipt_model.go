package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"inventory-intake/internal/core"

	"github.com/shopspring/decimal"
)

// ReceiptImage is an uploaded photo or scan of a stock receipt.
type ReceiptImage struct {
	MimeType string
	Data     []byte
}

// ExtractedLine is one product row read off a receipt.
type ExtractedLine struct {
	Name               string  `json:"name" jsonschema_description:"Product name exactly as printed on the receipt"`
	Code               string  `json:"code" jsonschema_description:"Product code or SKU if printed, otherwise an empty string"`
	Quantity           string  `json:"quantity" jsonschema_description:"Quantity as a plain number string without thousand separators (e.g. '12')"`
	UnitPrice          string  `json:"unit_price" jsonschema_description:"Unit price as a plain number string without currency symbol (e.g. '15000'). Use '0' if not printed."`
	DiscountPercent    string  `json:"discount_percent" jsonschema_description:"Line discount in percent between 0 and 100 (e.g. '5'). Use '0' if none."`
	TotalPrice         string  `json:"total_price" jsonschema_description:"Line total as printed, plain number string. Use '0' if not printed."`
	Unit               string  `json:"unit" jsonschema_description:"Unit of measure as printed (e.g. 'hộp', 'chai', 'kg'), or an empty string"`
	Warehouse          string  `json:"warehouse" jsonschema_description:"Warehouse label for this line if printed, copied verbatim including any code in parentheses (e.g. 'Kho 1 (KH001)'), or an empty string"`
	SuggestedProductID int64   `json:"suggested_product_id" jsonschema_description:"ID of the catalog product this line most likely refers to, taken from the provided product list, or 0 if unsure"`
	MatchScore         float64 `json:"match_score" jsonschema_description:"Confidence between 0.0 and 1.0 that suggested_product_id is correct; 0 when suggested_product_id is 0"`
}

// ReceiptExtraction is the structured output of the OCR model.
type ReceiptExtraction struct {
	ReceiptType    string          `json:"receipt_type" jsonschema:"enum=IMPORT,enum=EXPORT" jsonschema_description:"IMPORT for a goods receipt from a supplier, EXPORT for a delivery to a customer"`
	PartnerName    string          `json:"partner_name" jsonschema_description:"Supplier name for IMPORT receipts, customer name for EXPORT receipts, or an empty string"`
	PartnerPhone   string          `json:"partner_phone" jsonschema_description:"Partner phone number as printed, or an empty string"`
	PartnerAddress string          `json:"partner_address" jsonschema_description:"Partner address as printed, or an empty string"`
	ReceiptCode    string          `json:"receipt_code" jsonschema_description:"Receipt or invoice number, or an empty string"`
	ReceiptDate    string          `json:"receipt_date" jsonschema_description:"Receipt date in YYYY-MM-DD format, or an empty string"`
	Note           string          `json:"note" jsonschema_description:"Any free-text note on the receipt, or an empty string"`
	Lines          []ExtractedLine `json:"lines" jsonschema_description:"One entry per product row, in the order printed"`
	TotalAmount    string          `json:"total_amount" jsonschema_description:"Grand total as printed, plain number string, or '0'"`
	RawText        string          `json:"raw_text" jsonschema_description:"All text read from the image, line by line"`
	Confidence     float64         `json:"confidence" jsonschema_description:"Overall extraction confidence between 0.0 and 1.0"`
}

var (
	groupedThousands = regexp.MustCompile(`^\d{1,3}([.,]\d{3})+$`)
	currencyNoise    = regexp.MustCompile(`(?i)(vnđ|vnd|đồng|đ|₫|\s)`)
)

// normalizeNumber turns printed amounts such as "1.200.000 đ", "15,000" or "null" into a plain
// decimal string. Anything unparseable becomes "0" and is caught by Validate when it matters.
func normalizeNumber(s string) string {
	s = currencyNoise.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" || strings.EqualFold(s, "null") {
		return "0"
	}
	if groupedThousands.MatchString(s) {
		s = strings.NewReplacer(".", "", ",", "").Replace(s)
	} else if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	if _, err := decimal.NewFromString(s); err != nil {
		return "0"
	}
	return s
}

var wholeUnitTolerance = decimal.New(1, -2)

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Normalize cleans up model output: trims text, coerces printed numbers, drops blank rows.
func (r *ReceiptExtraction) Normalize() {
	r.ReceiptType = strings.ToUpper(strings.TrimSpace(r.ReceiptType))
	r.PartnerName = strings.TrimSpace(r.PartnerName)
	r.PartnerPhone = strings.TrimSpace(r.PartnerPhone)
	r.PartnerAddress = strings.TrimSpace(r.PartnerAddress)
	r.ReceiptCode = strings.TrimSpace(r.ReceiptCode)
	r.ReceiptDate = strings.TrimSpace(r.ReceiptDate)
	r.Note = strings.TrimSpace(r.Note)
	r.TotalAmount = normalizeNumber(r.TotalAmount)

	lines := r.Lines[:0]
	for _, l := range r.Lines {
		l.Name = strings.TrimSpace(l.Name)
		l.Code = strings.TrimSpace(l.Code)
		l.Unit = strings.TrimSpace(l.Unit)
		l.Warehouse = strings.TrimSpace(l.Warehouse)
		l.Quantity = normalizeNumber(l.Quantity)
		l.UnitPrice = normalizeNumber(l.UnitPrice)
		l.DiscountPercent = normalizeNumber(l.DiscountPercent)
		l.TotalPrice = normalizeNumber(l.TotalPrice)
		if l.SuggestedProductID < 0 {
			l.SuggestedProductID = 0
		}
		if l.Name == "" && l.Code == "" && l.SuggestedProductID == 0 {
			continue
		}
		lines = append(lines, l)
	}
	r.Lines = lines
}

// Validate rejects output that cannot be turned into raw lines.
func (r *ReceiptExtraction) Validate() error {
	if _, err := core.ParseDirection(r.ReceiptType); err != nil {
		return fmt.Errorf("invalid receipt type: %w", err)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", r.Confidence)
	}
	if len(r.Lines) == 0 {
		return errors.New("no product lines recognised on the receipt")
	}
	for i, l := range r.Lines {
		if parseAmount(l.Quantity).IsNegative() {
			return fmt.Errorf("line %d (%s): negative quantity %s", i+1, l.Name, l.Quantity)
		}
	}
	return nil
}

// PartnerGuess returns the partner identity printed on the receipt.
func (r *ReceiptExtraction) PartnerGuess() core.PartnerGuess {
	return core.PartnerGuess{Name: r.PartnerName, Phone: r.PartnerPhone, Address: r.PartnerAddress}
}

// ToRawLines converts normalized lines into engine input. Quantities are rounded to whole
// units, since receipts occasionally print "2.0". A unit price missing from the receipt is
// derived from the printed line total when possible.
func (r *ReceiptExtraction) ToRawLines() []core.RawLine {
	out := make([]core.RawLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		quantity := parseAmount(l.Quantity)
		if quantity.Sub(quantity.Round(0)).Abs().LessThan(wholeUnitTolerance) {
			quantity = quantity.Round(0)
		}
		price := parseAmount(l.UnitPrice)
		total := parseAmount(l.TotalPrice)
		if price.IsZero() && total.IsPositive() && quantity.IsPositive() {
			price = total.Div(quantity).Round(0)
		}
		out = append(out, core.RawLine{
			ProductName:        l.Name,
			ProductCode:        l.Code,
			Unit:               l.Unit,
			Warehouse:          l.Warehouse,
			Quantity:           quantity,
			UnitPrice:          price,
			DiscountPercent:    parseAmount(l.DiscountPercent),
			PartnerHint:        r.PartnerName,
			SuggestedProductID: l.SuggestedProductID,
		})
	}
	return out
}
