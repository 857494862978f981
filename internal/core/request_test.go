package core_test

import (
	"errors"
	"strings"
	"testing"

	"packledger/internal/core"
)

func validDoc() map[string]any {
	return map[string]any{
		"package": map[string]any{
			"externalDocId":    float64(9001),
			"date":             "2025-03-14",
			"name":             "Gift Basket Deluxe",
			"unitSalePrice":    "149.99",
			"taxRate":          "21",
			"totalCost":        "80.50",
			"warehouse":        "MAG1",
			"producedQuantity": "2",
			"status":           "pending",
		},
		"products": []any{
			map[string]any{"code": "123", "quantity": "4", "value": "50.50"},
			map[string]any{"code": "00000456        ", "quantity": "2", "value": "30.00"},
		},
	}
}

func mutatePackage(doc map[string]any, field string, value any) map[string]any {
	doc["package"].(map[string]any)[field] = value
	return doc
}

func mutateProduct(doc map[string]any, index int, field string, value any) map[string]any {
	doc["products"].([]any)[index].(map[string]any)[field] = value
	return doc
}

func TestParseRequest_Valid(t *testing.T) {
	req, err := core.ParseRequest(validDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.ExternalDocID != 9001 {
		t.Errorf("ExternalDocID = %d, want 9001", req.ExternalDocID)
	}
	if req.IsReversal() {
		t.Error("positive production request classified as reversal")
	}
	if req.Status != "pending" {
		t.Errorf("Status = %q, want %q", req.Status, "pending")
	}
	if len(req.Materials) != 2 {
		t.Fatalf("got %d materials, want 2", len(req.Materials))
	}
	if req.Materials[0].NormalizedCode != "00000123        " {
		t.Errorf("material 0 code = %q, want zero-padded CHAR(16)", req.Materials[0].NormalizedCode)
	}
	if req.Materials[1].NormalizedCode != "00000456        " {
		t.Errorf("material 1 code = %q, want unchanged CHAR(16)", req.Materials[1].NormalizedCode)
	}
}

func TestParseRequest_ValidReversal(t *testing.T) {
	doc := validDoc()
	mutatePackage(doc, "producedQuantity", "-2")
	mutatePackage(doc, "totalCost", "-80.50")
	mutateProduct(doc, 0, "quantity", "-4")
	mutateProduct(doc, 0, "value", "-50.50")
	mutateProduct(doc, 1, "quantity", "-2")
	mutateProduct(doc, 1, "value", "-30.00")

	req, err := core.ParseRequest(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !req.IsReversal() {
		t.Error("negative production request not classified as reversal")
	}
}

func TestParseRequest_ReversalToleratesAbsoluteSum(t *testing.T) {
	// Upstream systems sometimes send positive line values on reversals.
	doc := validDoc()
	mutatePackage(doc, "producedQuantity", "-2")
	mutatePackage(doc, "totalCost", "-80.50")
	mutateProduct(doc, 0, "quantity", "-4")
	mutateProduct(doc, 1, "quantity", "-2")

	if _, err := core.ParseRequest(doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseRequest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     map[string]any
		wantMsg string
	}{
		{
			name:    "nil document",
			doc:     nil,
			wantMsg: "JSON object",
		},
		{
			name: "missing package object",
			doc: map[string]any{
				"products": []any{map[string]any{"code": "1", "quantity": "1", "value": "1"}},
			},
			wantMsg: "'package'",
		},
		{
			name:    "empty products array",
			doc:     func() map[string]any { d := validDoc(); d["products"] = []any{}; return d }(),
			wantMsg: "'products'",
		},
		{
			name:    "non-positive external reference",
			doc:     mutatePackage(validDoc(), "externalDocId", float64(0)),
			wantMsg: "externalDocId",
		},
		{
			name:    "fractional external reference",
			doc:     mutatePackage(validDoc(), "externalDocId", 90.5),
			wantMsg: "externalDocId",
		},
		{
			name:    "malformed date",
			doc:     mutatePackage(validDoc(), "date", "14-03-2025"),
			wantMsg: "YYYY-MM-DD",
		},
		{
			name:    "already-imported status",
			doc:     mutatePackage(validDoc(), "status", "complete"),
			wantMsg: "status",
		},
		{
			name:    "zero produced quantity",
			doc:     mutatePackage(validDoc(), "producedQuantity", "0"),
			wantMsg: "producedQuantity",
		},
		{
			name:    "negative unit sale price",
			doc:     mutatePackage(validDoc(), "unitSalePrice", "-1"),
			wantMsg: "unitSalePrice",
		},
		{
			name:    "zero total cost",
			doc:     mutatePackage(validDoc(), "totalCost", "0"),
			wantMsg: "totalCost",
		},
		{
			name:    "negative cost on positive production",
			doc:     mutatePackage(validDoc(), "totalCost", "-80.50"),
			wantMsg: "totalCost sign",
		},
		{
			name:    "unsupported tax rate",
			doc:     mutatePackage(validDoc(), "taxRate", "19"),
			wantMsg: "taxRate",
		},
		{
			name:    "zero material quantity",
			doc:     mutateProduct(validDoc(), 0, "quantity", "0"),
			wantMsg: "quantity",
		},
		{
			name:    "material quantity sign mismatch",
			doc:     mutateProduct(validDoc(), 0, "quantity", "-4"),
			wantMsg: "sign",
		},
		{
			name:    "zero material value",
			doc:     mutateProduct(validDoc(), 0, "value", "0"),
			wantMsg: "value",
		},
		{
			name:    "invalid material code",
			doc:     mutateProduct(validDoc(), 0, "code", "12A4"),
			wantMsg: "code",
		},
		{
			name:    "total cost does not match line values",
			doc:     mutatePackage(validDoc(), "totalCost", "99.99"),
			wantMsg: "does not match SUM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := core.ParseRequest(tt.doc)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			var vErr *core.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}
