package core

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// validate is safe for concurrent use and caches struct metadata, so one instance serves
// the whole package.
var validate = newValidator()

var maxQuantity = decimal.NewFromInt(math.MaxInt64)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Numeric tags (gte, lte) on decimals compare against the float value.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterStructValidation(rawLineStructLevel, RawLine{})
	return v
}

func rawLineStructLevel(sl validator.StructLevel) {
	line := sl.Current().Interface().(RawLine)
	if !line.Quantity.IsInteger() {
		sl.ReportError(line.Quantity, "quantity", "Quantity", "integral", "")
	}
	if line.Quantity.GreaterThan(maxQuantity) {
		sl.ReportError(line.Quantity, "quantity", "Quantity", "range", "")
	}
	if strings.TrimSpace(line.ProductName) == "" && strings.TrimSpace(line.ProductCode) == "" &&
		line.SuggestedProductID == 0 {
		sl.ReportError(line.ProductName, "product_name", "ProductName", "required_without_all", "product_code suggested_product_id")
	}
}

// ValidateRawLine returns an *InvalidInputError when the line is structurally malformed:
// a quantity that is negative, fractional or beyond int64, a negative price, a discount outside
// 0..100, or no product reference at all.
func ValidateRawLine(line RawLine) error {
	err := validate.Struct(line)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &InvalidInputError{Reason: err.Error()}
	}
	out := &InvalidInputError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}
