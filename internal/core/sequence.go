package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// The ledger carries no sequence objects: every counter is MAX()+1 read
// inside the open transaction. Correctness under concurrency comes from the
// unique constraints on the natural keys plus the orchestrator's single
// retry, not from locking.

// nextDocNumber returns the next production document number for the given
// date. Document numbers restart per calendar date; the same number on two
// different dates is expected.
func nextDocNumber(ctx context.Context, tx pgx.Tx, date time.Time) (int64, error) {
	var max int64
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(doc_number), 0)
		FROM movements
		WHERE movement_date = $1
		  AND doc_type = $2
	`, date, docTypeProduction).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read max document number: %w", err)
	}
	return max + 1, nil
}

// nextMovementID returns the next surrogate movement id, global over the
// whole ledger.
func nextMovementID(ctx context.Context, tx pgx.Tx) (int64, error) {
	var max int64
	err := tx.QueryRow(ctx, "SELECT COALESCE(MAX(id), 0) FROM movements").Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read max movement id: %w", err)
	}
	return max + 1, nil
}

// nextMovementSeq returns the next value of the optional secondary sequence
// column. Allocation is per row: the caller increments it for every insert
// within the transaction.
func nextMovementSeq(ctx context.Context, tx pgx.Tx) (int64, error) {
	var max int64
	err := tx.QueryRow(ctx, "SELECT COALESCE(MAX(id2), 0) FROM movements").Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read max movement sequence: %w", err)
	}
	return max + 1, nil
}

// nextArticleNumber returns the next 8-digit numeric article code, computed
// from the highest existing numeric code prefix.
func nextArticleNumber(ctx context.Context, tx pgx.Tx) (int64, error) {
	var max int64
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(BTRIM(code) FROM 1 FOR 8) AS BIGINT)), 0)
		FROM articles
		WHERE LENGTH(BTRIM(code)) >= 8
		  AND SUBSTRING(BTRIM(code) FROM 1 FOR 8) ~ '^[0-9]{8}$'
	`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read max article code: %w", err)
	}
	return max + 1, nil
}
