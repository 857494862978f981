package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// columnRole is the canonical meaning assigned to a detail-table column by
// name matching. Detail tables have no fixed shape, so every insert is
// driven by these resolved roles.
type columnRole int

const (
	roleNone columnRole = iota
	roleExternalRef
	roleDocNumber
	rolePackageName
	roleStatus
	roleTaxRate
	roleWarehouse
	roleDate
	roleQuantity
	rolePrice
	roleValue
	roleMaterialCode
	rolePackageCode
)

func (r columnRole) String() string {
	switch r {
	case roleExternalRef:
		return "external-reference"
	case roleDocNumber:
		return "document-number"
	case rolePackageName:
		return "package-name"
	case roleStatus:
		return "status"
	case roleTaxRate:
		return "tax-rate"
	case roleWarehouse:
		return "warehouse"
	case roleDate:
		return "date"
	case roleQuantity:
		return "quantity"
	case rolePrice:
		return "price"
	case roleValue:
		return "value"
	case roleMaterialCode:
		return "material-code"
	case rolePackageCode:
		return "package-code"
	default:
		return "unmapped"
	}
}

// tableKind selects the default interpretation of an ambiguous code column:
// the per-material lines table defaults to the material code, the summary
// docs table to the finished-good code.
type tableKind int

const (
	tableKindDocs tableKind = iota
	tableKindLines
)

// roleTokens is the fixed lookup table of field-role keywords, evaluated in
// order. Tokens cover both the legacy column vocabulary (ID_DOC, NR_DOC,
// DATA, CANTITATE, GESTIUNE, PRET, TVA, DENUMIRE, VAL) and the English
// names of newer deployments.
var roleTokens = []struct {
	role   columnRole
	tokens []string
}{
	{roleExternalRef, []string{"ID_DOC", "IDDOC", "DOC_ID", "EXT_REF", "EXTREF", "EXTERNAL"}},
	{roleDocNumber, []string{"NR_DOC", "NRDOC", "DOC_NUMBER", "DOC_NO", "DOCNUM"}},
	{rolePackageName, []string{"DENUMIRE", "NAME"}},
	{roleStatus, []string{"STATUS"}},
	{roleTaxRate, []string{"TVA", "TAX"}},
	{roleWarehouse, []string{"GESTIUNE", "GEST", "WAREHOUSE", "DEPOZIT"}},
	{roleDate, []string{"DATA", "DATE"}},
	{roleQuantity, []string{"CANTITATE", "CANT", "QTY", "QUANT"}},
	{rolePrice, []string{"PRET", "PRICE"}},
	{roleValue, []string{"VAL", "COST", "AMOUNT", "SUMA"}},
}

var codeTokens = []string{"COD", "CODE", "SKU", "ARTICOL", "ARTICLE"}

// Disambiguation of code-like columns: tokens suggesting the consumed
// material versus the finished good. "PRODUS" follows the legacy vocabulary
// where the consumed lines are the "produse".
var materialCodeTokens = []string{"MAT", "RAW", "COMP", "CONSUM", "PRODUS"}
var packageCodeTokens = []string{"PACHET", "PACK", "PKG", "FINIT", "FINISHED"}

// resolveRole maps a column name to its canonical role. Matching is
// case-insensitive and substring-based; code-like columns fall back to the
// table kind when no material/package token disambiguates them.
func resolveRole(name string, kind tableKind) columnRole {
	upper := strings.ToUpper(name)
	for _, entry := range roleTokens {
		if containsAny(upper, entry.tokens) {
			return entry.role
		}
	}
	if containsAny(upper, codeTokens) {
		switch {
		case containsAny(upper, materialCodeTokens):
			return roleMaterialCode
		case containsAny(upper, packageCodeTokens):
			return rolePackageCode
		case kind == tableKindLines:
			return roleMaterialCode
		default:
			return rolePackageCode
		}
	}
	return roleNone
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}

// synthesizeDefault builds the type-appropriate default for a required
// column that no role matched: zero for numeric and boolean, the request
// date for DATE, midnight for TIME, the request date at midnight for
// TIMESTAMP, the empty string for character types.
func synthesizeDefault(col Column, requestDate time.Time) (any, bool) {
	switch col.Type {
	case TypeNumeric:
		return decimal.Zero, true
	case TypeBoolean:
		return false, true
	case TypeDate:
		return requestDate, true
	case TypeTime:
		return "00:00:00", true
	case TypeTimestamp:
		return time.Date(requestDate.Year(), requestDate.Month(), requestDate.Day(), 0, 0, 0, 0, time.UTC), true
	case TypeCharacter:
		return "", true
	default:
		return nil, false
	}
}

// buildDynamicInsert assembles an INSERT for a dynamically-shaped detail
// table from its live column list and the per-row role values. Identity
// columns are skipped, unmatched optional columns are omitted, unmatched
// required columns receive a synthesized default or fail as unmappable.
func buildDynamicInsert(table string, columns []Column, kind tableKind, values map[columnRole]any, requestDate time.Time) (string, []any, error) {
	var names []string
	var args []any

	for _, col := range columns {
		if col.Identity {
			continue
		}
		value, matched := values[resolveRole(col.Name, kind)]
		if !matched {
			if !col.Required {
				continue
			}
			synthesized, ok := synthesizeDefault(col, requestDate)
			if !ok {
				return "", nil, schemaErrf(table, col.Name,
					"cannot map required column %s.%s to any request field or default", table, col.Name)
			}
			value = synthesized
		}
		names = append(names, pgx.Identifier{col.Name}.Sanitize())
		args = append(args, value)
	}

	if len(names) == 0 {
		return "", nil, schemaErrf(table, "", "no insertable columns resolved for table %s", table)
	}

	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "))
	return sql, args, nil
}
