package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Article catalog defaults for finished goods created on first use.
const (
	articleUnit         = "BUC"
	articleCategoryName = "Produse finite"
	articleCategoryCode = "04"
)

// ensureArticle returns the CHAR(16) code of the finished-good article named
// by the request, creating the article on first use. Reversals never create:
// the article being reversed must already exist.
//
// Creation races on the MAX()+1 code with concurrent transactions; losing
// the race is reported as a retryable conflict after a re-read by name.
func ensureArticle(ctx context.Context, tx pgx.Tx, req *PackageRequest) (string, error) {
	code, err := findArticleByName(ctx, tx, req.Name)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	if req.IsReversal() {
		return "", inconsistentf("reversal for package %q: article does not exist in the catalog", req.Name)
	}

	number, err := nextArticleNumber(ctx, tx)
	if err != nil {
		return "", err
	}
	code = padCode(fmt.Sprintf("%08d", number))

	tag, err := tx.Exec(ctx, `
		INSERT INTO articles (code, name, unit, tax_rate, category_name, category_code, sale_price, sale_price_with_tax)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (code) DO NOTHING
	`, code, req.Name, articleUnit, req.TaxRate, articleCategoryName, articleCategoryCode,
		req.UnitSalePrice, req.UnitSalePrice)
	if err != nil {
		return "", fmt.Errorf("failed to insert article %q: %w", req.Name, err)
	}
	if tag.RowsAffected() == 1 {
		return code, nil
	}

	// A concurrent transaction took the code between MAX()+1 and the
	// insert. If it created this very package, use its row.
	code, err = findArticleByName(ctx, tx, req.Name)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	return "", &ConflictError{Err: fmt.Errorf("article code %s was taken by a concurrent insert", strings.TrimSpace(code))}
}

// findArticleByName looks up an article code by trimmed display name.
// Returns pgx.ErrNoRows when absent.
func findArticleByName(ctx context.Context, tx pgx.Tx, name string) (string, error) {
	var code string
	err := tx.QueryRow(ctx, `
		SELECT code
		FROM articles
		WHERE BTRIM(name) = BTRIM($1)
		ORDER BY code
		LIMIT 1
	`, name).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("failed to look up article %q: %w", name, err)
	}
	return padCode(code), nil
}
