package core

import (
	"context"
	"fmt"
	"time"
)

// SchemaReport is the read-only capability report for a target deployment,
// produced by VerifySchema for operators checking a database before use.
type SchemaReport struct {
	MovementsTable  bool               `json:"movementsTable"`
	ArticlesTable   bool               `json:"articlesTable"`
	UnitPriceColumn bool               `json:"unitPriceColumn"`
	SequenceColumn  bool               `json:"sequenceColumn"`
	LegacyLayout    bool               `json:"legacyLayout"`
	ProductionDocs  *DetailTableReport `json:"productionDocs,omitempty"`
	ProductionLines *DetailTableReport `json:"productionLines,omitempty"`
}

// DetailTableReport describes one optional detail table and the role each of
// its columns resolved to.
type DetailTableReport struct {
	Table          string               `json:"table"`
	LookupUsable   bool                 `json:"lookupUsable"`
	Columns        []DetailColumnReport `json:"columns"`
	UnmappedNeeded []string             `json:"unmappedRequired,omitempty"`
}

// DetailColumnReport is one column's resolved mapping.
type DetailColumnReport struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Required bool   `json:"required"`
	Identity bool   `json:"identity"`
}

// VerifySchema introspects the target database without writing anything and
// reports which optional features the deployment carries and how the detail
// table columns resolved.
func (p *Producer) VerifySchema(ctx context.Context) (*SchemaReport, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	report := &SchemaReport{}
	if report.MovementsTable, err = p.catalog.TableExists(ctx, tx, tableMovements); err != nil {
		return nil, err
	}
	if report.ArticlesTable, err = p.catalog.TableExists(ctx, tx, tableArticles); err != nil {
		return nil, err
	}
	if !report.MovementsTable || !report.ArticlesTable {
		return report, nil
	}

	caps, err := discoverCaps(ctx, tx, p.catalog)
	if err != nil {
		return nil, err
	}
	report.UnitPriceColumn = caps.hasUnitPrice
	report.SequenceColumn = caps.hasSeq
	report.LegacyLayout = caps.legacyLayout()

	if caps.docsColumns != nil {
		report.ProductionDocs = detailReport(tableProductionDocs, caps.docsColumns, tableKindDocs, caps.detailLookupUsable())
	}
	if caps.linesColumns != nil {
		report.ProductionLines = detailReport(tableProductionLines, caps.linesColumns, tableKindLines, false)
	}
	return report, nil
}

func detailReport(table string, columns []Column, kind tableKind, lookupUsable bool) *DetailTableReport {
	report := &DetailTableReport{Table: table, LookupUsable: lookupUsable}
	for _, col := range columns {
		role := resolveRole(col.Name, kind)
		report.Columns = append(report.Columns, DetailColumnReport{
			Name:     col.Name,
			Role:     role.String(),
			Required: col.Required,
			Identity: col.Identity,
		})
		if role == roleNone && col.Required && !col.Identity {
			if _, ok := synthesizeDefault(col, time.Time{}); !ok {
				report.UnmappedNeeded = append(report.UnmappedNeeded, col.Name)
			}
		}
	}
	return report
}
