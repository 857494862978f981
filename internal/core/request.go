package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PackageRequest is a validated "produce a package" request. Immutable once
// returned by ParseRequest.
type PackageRequest struct {
	ExternalDocID    int64
	Date             time.Time
	Name             string
	UnitSalePrice    decimal.Decimal
	TaxRate          decimal.Decimal
	TotalCost        decimal.Decimal
	Warehouse        string
	ProducedQuantity decimal.Decimal
	Status           string
	Materials        []Material
}

// Material is one consumed raw-material line of a PackageRequest.
type Material struct {
	RawCode        string
	NormalizedCode string
	Quantity       decimal.Decimal
	Value          decimal.Decimal
}

// IsReversal reports whether the request undoes a prior production event.
// Reversals carry negative quantities throughout.
func (r *PackageRequest) IsReversal() bool {
	return r.ProducedQuantity.IsNegative()
}

var validTaxRates = []decimal.Decimal{
	decimal.Zero,
	decimal.NewFromInt(11),
	decimal.NewFromInt(21),
}

// ParseRequest type-checks an untyped request document and enforces the
// cross-field invariants. It is fully side-effect free: no database access,
// and the first failing rule aborts validation.
//
// The sign-aware policy applies: a negative produced quantity denotes a
// reversal, and every material quantity must carry the same sign as the
// produced quantity.
func ParseRequest(doc map[string]any) (*PackageRequest, error) {
	if doc == nil {
		return nil, validationf("request document must be a JSON object")
	}

	pkgRaw, ok := doc["package"].(map[string]any)
	if !ok {
		return nil, validationf("field 'package' is required and must be an object")
	}
	productsRaw, ok := doc["products"].([]any)
	if !ok || len(productsRaw) == 0 {
		return nil, validationf("field 'products' is required and must be a non-empty array")
	}

	req := &PackageRequest{}
	var err error

	if req.ExternalDocID, err = parseInt(pkgRaw["externalDocId"], "package.externalDocId"); err != nil {
		return nil, err
	}
	if req.Date, err = parseDate(pkgRaw["date"], "package.date"); err != nil {
		return nil, err
	}
	if req.Name, err = parseBoundedString(pkgRaw["name"], "package.name", 255); err != nil {
		return nil, err
	}
	if req.UnitSalePrice, err = parseDecimal(pkgRaw["unitSalePrice"], "package.unitSalePrice"); err != nil {
		return nil, err
	}
	if req.TaxRate, err = parseDecimal(pkgRaw["taxRate"], "package.taxRate"); err != nil {
		return nil, err
	}
	if req.TotalCost, err = parseDecimal(pkgRaw["totalCost"], "package.totalCost"); err != nil {
		return nil, err
	}
	if req.Warehouse, err = parseBoundedString(pkgRaw["warehouse"], "package.warehouse", 16); err != nil {
		return nil, err
	}
	if req.ProducedQuantity, err = parseDecimal(pkgRaw["producedQuantity"], "package.producedQuantity"); err != nil {
		return nil, err
	}
	req.Status = strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", valueOrEmpty(pkgRaw["status"]))))

	if req.ExternalDocID <= 0 {
		return nil, validationf("package.externalDocId must be > 0")
	}
	if req.Status != "pending" && req.Status != "processing" {
		return nil, validationf("package.status must be 'pending' or 'processing'")
	}
	if req.ProducedQuantity.IsZero() {
		return nil, validationf("package.producedQuantity must be non-zero")
	}
	if req.UnitSalePrice.IsNegative() {
		return nil, validationf("package.unitSalePrice must be >= 0")
	}
	if req.TotalCost.IsZero() {
		return nil, validationf("package.totalCost must be non-zero")
	}
	// A positive cost is always acceptable; a negative cost only on reversals.
	if req.TotalCost.IsNegative() && !req.ProducedQuantity.IsNegative() {
		return nil, validationf("package.totalCost sign does not match package.producedQuantity")
	}
	if !taxRateAllowed(req.TaxRate) {
		return nil, validationf("package.taxRate must be one of: 0, 11, 21")
	}

	prodSign := req.ProducedQuantity.Sign()
	total := decimal.Zero
	for i, raw := range productsRaw {
		field := fmt.Sprintf("products[%d]", i+1)
		productRaw, ok := raw.(map[string]any)
		if !ok {
			return nil, validationf("%s must be an object", field)
		}

		qty, err := parseDecimal(productRaw["quantity"], field+".quantity")
		if err != nil {
			return nil, err
		}
		if qty.IsZero() {
			return nil, validationf("%s.quantity must be non-zero", field)
		}
		if qty.Sign() != prodSign {
			return nil, validationf("%s.quantity sign does not match package.producedQuantity", field)
		}

		value, err := parseDecimal(productRaw["value"], field+".value")
		if err != nil {
			return nil, err
		}
		if value.IsZero() {
			return nil, validationf("%s.value must be non-zero", field)
		}

		rawCode := fmt.Sprintf("%v", valueOrEmpty(productRaw["code"]))
		normalized, err := NormalizeArticleCode(rawCode)
		if err != nil {
			return nil, validationf("%s.code: %v", field, err)
		}

		req.Materials = append(req.Materials, Material{
			RawCode:        strings.TrimSpace(rawCode),
			NormalizedCode: normalized,
			Quantity:       qty,
			Value:          value,
		})
		total = total.Add(value)
	}

	wantCost := QuantizeMoney(req.TotalCost)
	gotSum := QuantizeMoney(total)
	if !gotSum.Equal(wantCost) && !gotSum.Abs().Equal(wantCost.Abs()) {
		return nil, validationf(
			"package.totalCost does not match SUM(products[*].value): expected %s, got %s",
			gotSum, wantCost)
	}

	return req, nil
}

func taxRateAllowed(rate decimal.Decimal) bool {
	q := QuantizeMoney(rate)
	for _, allowed := range validTaxRates {
		if q.Equal(allowed) {
			return true
		}
	}
	return false
}

func valueOrEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

func parseInt(v any, field string) (int64, error) {
	switch value := v.(type) {
	case int:
		return int64(value), nil
	case int64:
		return value, nil
	case float64:
		if value != float64(int64(value)) {
			return 0, validationf("field '%s' must be an integer", field)
		}
		return int64(value), nil
	case json.Number:
		parsed, err := value.Int64()
		if err != nil {
			return 0, validationf("field '%s' must be an integer", field)
		}
		return parsed, nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, validationf("field '%s' must be an integer", field)
		}
		return parsed, nil
	default:
		return 0, validationf("field '%s' must be an integer", field)
	}
}

func parseDate(v any, field string) (time.Time, error) {
	raw, ok := v.(string)
	if !ok {
		return time.Time{}, validationf("field '%s' must be a string in format YYYY-MM-DD", field)
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, validationf("field '%s' has invalid date format, use YYYY-MM-DD", field)
	}
	return parsed, nil
}

func parseDecimal(v any, field string) (decimal.Decimal, error) {
	switch value := v.(type) {
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return decimal.Decimal{}, validationf("field '%s' must be numeric", field)
		}
		return parsed, nil
	case float64:
		return decimal.NewFromFloat(value), nil
	case int:
		return decimal.NewFromInt(int64(value)), nil
	case int64:
		return decimal.NewFromInt(value), nil
	case json.Number:
		parsed, err := decimal.NewFromString(value.String())
		if err != nil {
			return decimal.Decimal{}, validationf("field '%s' must be numeric", field)
		}
		return parsed, nil
	default:
		return decimal.Decimal{}, validationf("field '%s' must be numeric", field)
	}
}

func parseBoundedString(v any, field string, maxLength int) (string, error) {
	trimmed := strings.TrimSpace(fmt.Sprintf("%v", valueOrEmpty(v)))
	if trimmed == "" {
		return "", validationf("field '%s' cannot be empty", field)
	}
	if len(trimmed) > maxLength {
		return "", validationf("field '%s' exceeds max length %d", field, maxLength)
	}
	return trimmed, nil
}
