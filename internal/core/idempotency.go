package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// priorImport describes what an earlier run already recorded for an
// external document reference.
type priorImport struct {
	docNumber   int64
	packageCode string
}

// resolvePriorImport classifies the ledger's prior state for the request's
// external reference. A nil result means unprocessed; a non-nil result
// means the import completed earlier and must not be re-applied; a partial
// prior write is a fatal *InconsistentStateError.
//
// The preferred lookup goes through the production_docs detail table. The
// direct movement scan by the legacy key mapping (movement id equals the
// external reference) covers deployments, or rows, that predate the detail
// tables. In deployments that do have detail tables the legacy scan only
// accepts a full match: a single-kind hit there is a surrogate-id
// coincidence, not a partial import.
func resolvePriorImport(ctx context.Context, tx pgx.Tx, caps *ledgerCaps, req *PackageRequest) (*priorImport, error) {
	if caps.detailLookupUsable() {
		prior, found, err := resolveViaDetailTable(ctx, tx, caps, req)
		if err != nil || found {
			return prior, err
		}
		// No detail row: fall through to the legacy scan for rows written
		// before the detail tables existed, tolerating id coincidences.
		return resolveViaMovementScan(ctx, tx, req, false)
	}
	return resolveViaMovementScan(ctx, tx, req, true)
}

func resolveViaDetailTable(ctx context.Context, tx pgx.Tx, caps *ledgerCaps, req *PackageRequest) (*priorImport, bool, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s DESC LIMIT 1`,
		pgx.Identifier{caps.docsDocNumberColumn}.Sanitize(),
		pgx.Identifier{tableProductionDocs}.Sanitize(),
		pgx.Identifier{caps.docsExtRefColumn}.Sanitize(),
		pgx.Identifier{caps.docsDocNumberColumn}.Sanitize())

	var docNumber int64
	err := tx.QueryRow(ctx, query, req.ExternalDocID).Scan(&docNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up prior import of document %d: %w", req.ExternalDocID, err)
	}

	consumption, production, err := countMovementKinds(ctx, tx, `
		SELECT
			COUNT(*) FILTER (WHERE doc_type = $3),
			COUNT(*) FILTER (WHERE doc_type = $4)
		FROM movements
		WHERE movement_date = $1
		  AND doc_number = $2
	`, req.Date, docNumber)
	if err != nil {
		return nil, false, err
	}

	switch {
	case consumption > 0 && production > 0:
		packageCode, err := productionArticleCode(ctx, tx, req, docNumber)
		if err != nil {
			return nil, false, err
		}
		return &priorImport{docNumber: docNumber, packageCode: packageCode}, true, nil
	default:
		// A recorded document with missing movement rows is a partial
		// prior write, whichever half is missing.
		return nil, false, inconsistentf(
			"external document %d is partially imported (document %d has %d consumption and %d production rows); manual intervention required",
			req.ExternalDocID, docNumber, consumption, production)
	}
}

func resolveViaMovementScan(ctx context.Context, tx pgx.Tx, req *PackageRequest, strict bool) (*priorImport, error) {
	consumption, production, err := countMovementKinds(ctx, tx, `
		SELECT
			COUNT(*) FILTER (WHERE doc_type = $3),
			COUNT(*) FILTER (WHERE doc_type = $4)
		FROM movements
		WHERE id = $1
		  AND movement_date = $2
	`, req.ExternalDocID, req.Date)
	if err != nil {
		return nil, err
	}

	switch {
	case consumption > 0 && production > 0:
		var docNumber int64
		var packageCode string
		err := tx.QueryRow(ctx, `
			SELECT doc_number, article_code
			FROM movements
			WHERE id = $1
			  AND movement_date = $2
			  AND doc_type = $3
			LIMIT 1
		`, req.ExternalDocID, req.Date, docTypeProduction).Scan(&docNumber, &packageCode)
		if err != nil {
			return nil, fmt.Errorf("failed to read prior production row for document %d: %w", req.ExternalDocID, err)
		}
		return &priorImport{docNumber: docNumber, packageCode: packageCode}, nil
	case consumption == 0 && production == 0:
		return nil, nil
	default:
		if !strict {
			return nil, nil
		}
		return nil, inconsistentf(
			"external document %d is partially imported (%d consumption and %d production rows); manual intervention required",
			req.ExternalDocID, consumption, production)
	}
}

func countMovementKinds(ctx context.Context, tx pgx.Tx, query string, arg1 any, arg2 any) (int64, int64, error) {
	var consumption, production int64
	err := tx.QueryRow(ctx, query, arg1, arg2, docTypeConsumption, docTypeProduction).Scan(&consumption, &production)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count prior movement rows: %w", err)
	}
	return consumption, production, nil
}

func productionArticleCode(ctx context.Context, tx pgx.Tx, req *PackageRequest, docNumber int64) (string, error) {
	var code string
	err := tx.QueryRow(ctx, `
		SELECT article_code
		FROM movements
		WHERE movement_date = $1
		  AND doc_number = $2
		  AND doc_type = $3
		LIMIT 1
	`, req.Date, docNumber, docTypeProduction).Scan(&code)
	if err != nil {
		return "", fmt.Errorf("failed to read prior production article for document %d: %w", req.ExternalDocID, err)
	}
	return code, nil
}
