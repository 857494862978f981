package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Ledger object names. Detail tables are optional per deployment and their
// column sets vary; everything else is mandatory.
const (
	tableMovements       = "movements"
	tableArticles        = "articles"
	tableProductionDocs  = "production_docs"
	tableProductionLines = "production_lines"

	columnUnitPrice    = "unit_price"
	columnSecondarySeq = "id2"

	docTypeConsumption = "BC"
	docTypeProduction  = "BP"
)

// ColumnType classifies a catalog column's base type for default synthesis.
type ColumnType int

const (
	TypeOther ColumnType = iota
	TypeNumeric
	TypeBoolean
	TypeDate
	TypeTime
	TypeTimestamp
	TypeCharacter
)

// Column describes one column of a mutable table as reported by the
// database catalog.
type Column struct {
	Name     string
	Type     ColumnType
	Required bool // non-nullable with no database-side default
	Identity bool // database-generated, excluded from inserts
}

// Catalog is the runtime schema-introspection surface. Implementations are
// per target database; all reads run inside the caller's transaction so the
// discovered shape matches what the writer will see.
type Catalog interface {
	TableExists(ctx context.Context, tx pgx.Tx, table string) (bool, error)
	HasColumn(ctx context.Context, tx pgx.Tx, table, column string) (bool, error)
	Columns(ctx context.Context, tx pgx.Tx, table string) ([]Column, error)
}

// pgCatalog reads the information_schema of a PostgreSQL deployment.
type pgCatalog struct{}

// NewPostgresCatalog returns the Catalog adapter for PostgreSQL targets.
func NewPostgresCatalog() Catalog { return pgCatalog{} }

func (pgCatalog) TableExists(ctx context.Context, tx pgx.Tx, table string) (bool, error) {
	var count int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_name = $1
	`, table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return count > 0, nil
}

func (pgCatalog) HasColumn(ctx context.Context, tx pgx.Tx, table, column string) (bool, error) {
	var count int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		  AND table_name = $1
		  AND column_name = $2
	`, table, column).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check column %s.%s: %w", table, column, err)
	}
	return count > 0, nil
}

func (pgCatalog) Columns(ctx context.Context, tx pgx.Tx, table string) ([]Column, error) {
	rows, err := tx.Query(ctx, `
		SELECT column_name, data_type, is_nullable, column_default, is_identity
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		  AND table_name = $1
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect table %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var name, dataType, nullable, identity string
		var columnDefault *string
		if err := rows.Scan(&name, &dataType, &nullable, &columnDefault, &identity); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row for %s: %w", table, err)
		}
		isIdentity := identity == "YES"
		columns = append(columns, Column{
			Name:     name,
			Type:     classifyDataType(dataType),
			Identity: isIdentity,
			Required: nullable == "NO" && columnDefault == nil && !isIdentity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog rows for %s: %w", table, err)
	}
	return columns, nil
}

func classifyDataType(dataType string) ColumnType {
	switch strings.ToLower(dataType) {
	case "smallint", "integer", "bigint", "numeric", "decimal", "real", "double precision", "money":
		return TypeNumeric
	case "boolean":
		return TypeBoolean
	case "date":
		return TypeDate
	case "time without time zone", "time with time zone":
		return TypeTime
	case "timestamp without time zone", "timestamp with time zone":
		return TypeTimestamp
	case "character", "character varying", "text":
		return TypeCharacter
	default:
		return TypeOther
	}
}

// ledgerCaps is the per-transaction snapshot of the optional schema features
// the target deployment carries. Discovered at the start of every attempt,
// never cached across transactions.
type ledgerCaps struct {
	hasUnitPrice bool
	hasSeq       bool

	// nil slices mean the table is absent from this deployment.
	docsColumns  []Column
	linesColumns []Column

	// Resolved lookup columns in production_docs; empty when unresolvable.
	docsExtRefColumn    string
	docsDocNumberColumn string
}

// legacyLayout reports whether this deployment predates the detail tables.
// Legacy ledgers store the external reference directly as the movement id.
func (c *ledgerCaps) legacyLayout() bool {
	return c.docsColumns == nil && c.linesColumns == nil
}

// detailLookupUsable reports whether prior imports can be resolved through
// the production_docs table.
func (c *ledgerCaps) detailLookupUsable() bool {
	return c.docsColumns != nil && c.docsExtRefColumn != "" && c.docsDocNumberColumn != ""
}

// discoverCaps introspects the target schema for one transaction: targeted
// probes for the fixed optional columns, full column lists for the
// dynamically-shaped detail tables.
func discoverCaps(ctx context.Context, tx pgx.Tx, catalog Catalog) (*ledgerCaps, error) {
	for _, table := range []string{tableMovements, tableArticles} {
		exists, err := catalog.TableExists(ctx, tx, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, schemaErrf(table, "", "required table %s is missing from the target schema", table)
		}
	}

	caps := &ledgerCaps{}
	var err error
	if caps.hasUnitPrice, err = catalog.HasColumn(ctx, tx, tableMovements, columnUnitPrice); err != nil {
		return nil, err
	}
	if caps.hasSeq, err = catalog.HasColumn(ctx, tx, tableMovements, columnSecondarySeq); err != nil {
		return nil, err
	}

	if caps.docsColumns, err = optionalColumns(ctx, tx, catalog, tableProductionDocs); err != nil {
		return nil, err
	}
	if caps.linesColumns, err = optionalColumns(ctx, tx, catalog, tableProductionLines); err != nil {
		return nil, err
	}

	for _, col := range caps.docsColumns {
		switch resolveRole(col.Name, tableKindDocs) {
		case roleExternalRef:
			if caps.docsExtRefColumn == "" {
				caps.docsExtRefColumn = col.Name
			}
		case roleDocNumber:
			if caps.docsDocNumberColumn == "" {
				caps.docsDocNumberColumn = col.Name
			}
		}
	}

	return caps, nil
}

func optionalColumns(ctx context.Context, tx pgx.Tx, catalog Catalog, table string) ([]Column, error) {
	exists, err := catalog.TableExists(ctx, tx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	columns, err := catalog.Columns(ctx, tx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, schemaErrf(table, "", "table %s reports no columns", table)
	}
	return columns, nil
}
