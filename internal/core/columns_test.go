package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestResolveRole(t *testing.T) {
	tests := []struct {
		column string
		kind   tableKind
		want   columnRole
	}{
		{"ID_DOC", tableKindDocs, roleExternalRef},
		{"id_doc", tableKindLines, roleExternalRef},
		{"NR_DOC", tableKindDocs, roleDocNumber},
		{"doc_number", tableKindDocs, roleDocNumber},
		{"DENUMIRE_PACHET", tableKindDocs, rolePackageName},
		{"package_name", tableKindDocs, rolePackageName},
		{"STATUS", tableKindDocs, roleStatus},
		{"TVA", tableKindDocs, roleTaxRate},
		{"tax_rate", tableKindDocs, roleTaxRate},
		{"GESTIUNE", tableKindDocs, roleWarehouse},
		{"warehouse", tableKindLines, roleWarehouse},
		{"DATA", tableKindDocs, roleDate},
		{"doc_date", tableKindLines, roleDate},
		{"CANTITATE", tableKindLines, roleQuantity},
		{"quantity", tableKindDocs, roleQuantity},
		{"PRET_VANZARE", tableKindDocs, rolePrice},
		{"sale_price", tableKindDocs, rolePrice},
		{"VAL_MATERIAL", tableKindLines, roleValue},
		{"total_cost", tableKindDocs, roleValue},
		{"COD_PRODUS", tableKindLines, roleMaterialCode},
		{"material_code", tableKindLines, roleMaterialCode},
		{"COD_PACHET", tableKindDocs, rolePackageCode},
		{"package_code", tableKindDocs, rolePackageCode},

		// Bare code column falls back to the table kind.
		{"COD", tableKindLines, roleMaterialCode},
		{"COD", tableKindDocs, rolePackageCode},

		{"OBSERVATII", tableKindDocs, roleNone},
		{"created_by", tableKindLines, roleNone},
	}

	for _, tt := range tests {
		if got := resolveRole(tt.column, tt.kind); got != tt.want {
			t.Errorf("resolveRole(%q, %d) = %s, want %s", tt.column, tt.kind, got, tt.want)
		}
	}
}

func TestSynthesizeDefault(t *testing.T) {
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		col  Column
		want any
		ok   bool
	}{
		{"numeric", Column{Type: TypeNumeric}, decimal.Zero, true},
		{"boolean", Column{Type: TypeBoolean}, false, true},
		{"date", Column{Type: TypeDate}, date, true},
		{"time", Column{Type: TypeTime}, "00:00:00", true},
		{"timestamp", Column{Type: TypeTimestamp}, date, true},
		{"character", Column{Type: TypeCharacter}, "", true},
		{"unknown", Column{Type: TypeOther}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := synthesizeDefault(tt.col, date)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if want, isDec := tt.want.(decimal.Decimal); isDec {
				if !got.(decimal.Decimal).Equal(want) {
					t.Errorf("got %v, want %v", got, want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildDynamicInsert(t *testing.T) {
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	values := map[columnRole]any{
		roleExternalRef: int64(9001),
		roleDocNumber:   int64(7),
		roleQuantity:    decimal.NewFromInt(2),
	}

	t.Run("identity skipped and roles bound in order", func(t *testing.T) {
		columns := []Column{
			{Name: "id", Type: TypeNumeric, Identity: true},
			{Name: "id_doc", Type: TypeNumeric, Required: true},
			{Name: "nr_doc", Type: TypeNumeric, Required: true},
			{Name: "quantity", Type: TypeNumeric, Required: true},
		}
		sql, args, err := buildDynamicInsert("production_docs", columns, tableKindDocs, values, date)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(sql, `"id"`) {
			t.Errorf("identity column present in %q", sql)
		}
		if !strings.Contains(sql, `INSERT INTO "production_docs" ("id_doc", "nr_doc", "quantity") VALUES ($1, $2, $3)`) {
			t.Errorf("unexpected statement %q", sql)
		}
		if len(args) != 3 || args[0] != int64(9001) || args[1] != int64(7) {
			t.Errorf("unexpected args %v", args)
		}
	})

	t.Run("unmatched optional column omitted", func(t *testing.T) {
		columns := []Column{
			{Name: "id_doc", Type: TypeNumeric, Required: true},
			{Name: "observatii", Type: TypeCharacter, Required: false},
		}
		sql, args, err := buildDynamicInsert("production_docs", columns, tableKindDocs, values, date)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(sql, "observatii") {
			t.Errorf("optional unmatched column present in %q", sql)
		}
		if len(args) != 1 {
			t.Errorf("unexpected args %v", args)
		}
	})

	t.Run("required unmatched column receives type default", func(t *testing.T) {
		columns := []Column{
			{Name: "id_doc", Type: TypeNumeric, Required: true},
			{Name: "flag", Type: TypeBoolean, Required: true},
			{Name: "created", Type: TypeDate, Required: true},
		}
		_, args, err := buildDynamicInsert("production_docs", columns, tableKindDocs, values, date)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(args) != 3 {
			t.Fatalf("unexpected args %v", args)
		}
		if args[1] != false {
			t.Errorf("boolean default = %v, want false", args[1])
		}
		if args[2] != date {
			t.Errorf("date default = %v, want request date", args[2])
		}
	})

	t.Run("required unmatched column of unknown type fails", func(t *testing.T) {
		columns := []Column{
			{Name: "id_doc", Type: TypeNumeric, Required: true},
			{Name: "payload", Type: TypeOther, Required: true},
		}
		_, _, err := buildDynamicInsert("production_docs", columns, tableKindDocs, values, date)
		if err == nil {
			t.Fatal("expected schema error, got nil")
		}
		var sErr *SchemaError
		if !errors.As(err, &sErr) {
			t.Fatalf("expected *SchemaError, got %T: %v", err, err)
		}
		if sErr.Table != "production_docs" || sErr.Column != "payload" {
			t.Errorf("error names %s.%s, want production_docs.payload", sErr.Table, sErr.Column)
		}
	})
}
