package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Producer applies validated production requests to the inventory ledger.
// Each attempt runs in exactly one database transaction; concurrent
// requests coordinate only through the database's unique constraints.
type Producer struct {
	pool    *pgxpool.Pool
	catalog Catalog
}

func NewProducer(pool *pgxpool.Pool, catalog Catalog) *Producer {
	return &Producer{pool: pool, catalog: catalog}
}

// IDRange is the span of surrogate movement ids allocated by one import.
type IDRange struct {
	First int64 `json:"first"`
	Last  int64 `json:"last"`
}

// ProductionResult reports the outcome of a production import.
type ProductionResult struct {
	Success            bool    `json:"success"`
	Message            string  `json:"message"`
	PackageCode        string  `json:"packageCode"`
	DocumentNumber     int64   `json:"documentNumber"`
	ExternalDocID      int64   `json:"externalDocId"`
	AlreadyImported    bool    `json:"alreadyImported"`
	MovementsInserted  int     `json:"movementsInserted"`
	DetailRowsInserted int     `json:"detailRowsInserted"`
	MovementIDs        IDRange `json:"movementIds"`
}

// ProducePackage validates the untyped request document and applies it to
// the ledger exactly once from the caller's perspective. Validation is
// side-effect free and runs before any connection work.
func (p *Producer) ProducePackage(ctx context.Context, doc map[string]any) (*ProductionResult, error) {
	req, err := ParseRequest(doc)
	if err != nil {
		return nil, err
	}
	return p.Produce(ctx, req)
}

// Produce applies an already-validated request. At most two attempts are
// made: the retry fires only when the first attempt lost a sequence
// allocation race, surfaced by the database as a uniqueness violation.
func (p *Producer) Produce(ctx context.Context, req *PackageRequest) (*ProductionResult, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		result, err := p.runOnce(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt == 0 && isRetryableConflict(err) {
			continue
		}
		break
	}
	if isUniqueViolation(lastErr) {
		return nil, &ConflictError{Err: lastErr}
	}
	return nil, lastErr
}

// runOnce executes a single attempt: one transaction, rolled back on any
// failure, committed only after every row landed.
func (p *Producer) runOnce(ctx context.Context, req *PackageRequest) (*ProductionResult, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	caps, err := discoverCaps(ctx, tx, p.catalog)
	if err != nil {
		return nil, err
	}

	prior, err := resolvePriorImport(ctx, tx, caps, req)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit read-only transaction: %w", err)
		}
		return &ProductionResult{
			Success:         true,
			Message:         fmt.Sprintf("external document %d was already imported", req.ExternalDocID),
			PackageCode:     trimCode(prior.packageCode),
			DocumentNumber:  prior.docNumber,
			ExternalDocID:   req.ExternalDocID,
			AlreadyImported: true,
		}, nil
	}

	result, err := p.writeLedger(ctx, tx, caps, req)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit production transaction: %w", err)
	}
	return result, nil
}

// movementRow is one movement insert, shaped by the probed capabilities.
type movementRow struct {
	id        int64
	seq       int64
	date      time.Time
	docNumber int64
	docType   string
	code      string
	quantity  decimal.Decimal
	warehouse string
	price     *decimal.Decimal
}

// writeLedger performs the ordered insert sequence: finished-good article,
// document number, consumption rows, production row, then the dynamically
// shaped detail rows.
func (p *Producer) writeLedger(ctx context.Context, tx pgx.Tx, caps *ledgerCaps, req *PackageRequest) (*ProductionResult, error) {
	packageCode, err := ensureArticle(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	docNumber, err := nextDocNumber(ctx, tx, req.Date)
	if err != nil {
		return nil, err
	}

	// Legacy deployments have no detail tables and key movement rows by
	// the external reference itself; newer ones allocate surrogate ids.
	legacy := caps.legacyLayout()
	var movementID int64
	if legacy {
		movementID = req.ExternalDocID
	} else {
		if movementID, err = nextMovementID(ctx, tx); err != nil {
			return nil, err
		}
	}

	var seq int64
	if caps.hasSeq {
		if seq, err = nextMovementSeq(ctx, tx); err != nil {
			return nil, err
		}
	}

	ids := IDRange{First: movementID, Last: movementID}
	movements := 0

	insert := func(row movementRow) error {
		if err := insertMovement(ctx, tx, caps, row); err != nil {
			return err
		}
		ids.Last = row.id
		movements++
		if !legacy {
			movementID++
		}
		if caps.hasSeq {
			seq++
		}
		return nil
	}

	for i := range req.Materials {
		material := &req.Materials[i]
		if err := insert(movementRow{
			id:        movementID,
			seq:       seq,
			date:      req.Date,
			docNumber: docNumber,
			docType:   docTypeConsumption,
			code:      material.NormalizedCode,
			quantity:  material.Quantity.Neg(),
			warehouse: req.Warehouse,
		}); err != nil {
			return nil, err
		}
	}

	price := req.UnitSalePrice
	if err := insert(movementRow{
		id:        movementID,
		seq:       seq,
		date:      req.Date,
		docNumber: docNumber,
		docType:   docTypeProduction,
		code:      packageCode,
		quantity:  req.ProducedQuantity,
		warehouse: req.Warehouse,
		price:     &price,
	}); err != nil {
		return nil, err
	}

	detailRows, err := p.writeDetailRows(ctx, tx, caps, req, packageCode, docNumber)
	if err != nil {
		return nil, err
	}

	return &ProductionResult{
		Success:            true,
		Message:            "production package imported successfully",
		PackageCode:        trimCode(packageCode),
		DocumentNumber:     docNumber,
		ExternalDocID:      req.ExternalDocID,
		MovementsInserted:  movements,
		DetailRowsInserted: detailRows,
		MovementIDs:        ids,
	}, nil
}

// insertMovement builds the movement insert to match the probed shape:
// the secondary sequence column and the unit price column are included
// only when the deployment has them.
func insertMovement(ctx context.Context, tx pgx.Tx, caps *ledgerCaps, row movementRow) error {
	columns := []string{"id", "movement_date", "doc_number", "doc_type", "article_code", "quantity", "warehouse"}
	args := []any{row.id, row.date, row.docNumber, row.docType, row.code, row.quantity, row.warehouse}

	if caps.hasSeq {
		columns = append(columns, columnSecondarySeq)
		args = append(args, row.seq)
	}
	if caps.hasUnitPrice && row.price != nil {
		columns = append(columns, columnUnitPrice)
		args = append(args, *row.price)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO movements (%s) VALUES (%s)",
		strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert %s movement row: %w", row.docType, err)
	}
	return nil
}

// writeDetailRows inserts one row per material into production_lines and
// one summary row into production_docs, skipping tables the deployment
// does not have.
func (p *Producer) writeDetailRows(ctx context.Context, tx pgx.Tx, caps *ledgerCaps, req *PackageRequest, packageCode string, docNumber int64) (int, error) {
	inserted := 0

	if caps.linesColumns != nil {
		for i := range req.Materials {
			values := detailValues(req, packageCode, docNumber, &req.Materials[i])
			if err := execDynamicInsert(ctx, tx, tableProductionLines, caps.linesColumns, tableKindLines, values, req.Date); err != nil {
				return 0, err
			}
			inserted++
		}
	}

	if caps.docsColumns != nil {
		values := detailValues(req, packageCode, docNumber, nil)
		if err := execDynamicInsert(ctx, tx, tableProductionDocs, caps.docsColumns, tableKindDocs, values, req.Date); err != nil {
			return 0, err
		}
		inserted++
	}

	return inserted, nil
}

func execDynamicInsert(ctx context.Context, tx pgx.Tx, table string, columns []Column, kind tableKind, values map[columnRole]any, date time.Time) error {
	query, args, err := buildDynamicInsert(table, columns, kind, values, date)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert detail row into %s: %w", table, err)
	}
	return nil
}

// detailValues assembles the role value map for one detail row. A nil
// material selects the production summary values.
func detailValues(req *PackageRequest, packageCode string, docNumber int64, material *Material) map[columnRole]any {
	values := map[columnRole]any{
		roleExternalRef: req.ExternalDocID,
		roleDocNumber:   docNumber,
		roleDate:        req.Date,
		rolePackageName: req.Name,
		roleStatus:      req.Status,
		roleTaxRate:     req.TaxRate,
		roleWarehouse:   req.Warehouse,
		rolePackageCode: packageCode,
	}
	if material != nil {
		values[roleMaterialCode] = material.NormalizedCode
		values[roleQuantity] = material.Quantity
		values[roleValue] = material.Value
	} else {
		values[roleQuantity] = req.ProducedQuantity
		values[roleValue] = req.TotalCost
		values[rolePrice] = req.UnitSalePrice
	}
	return values
}
