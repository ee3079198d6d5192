package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/product"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/report"
)

const (
	insertReportSQL = `INSERT INTO reports (generated_at, total_earnings, month, year, top_product_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0)) RETURNING id`

	listReportsSQL = `SELECT r.id, r.generated_at, r.total_earnings, r.month, r.year,
		COALESCE(r.top_product_id, 0)
		FROM reports r ORDER BY r.id`
)

var _ report.Repository = (*ReportRepository)(nil)

// ReportRepository implements report.Repository backed by PostgreSQL.
// Snapshots are append-only; there is no update or delete path.
type ReportRepository struct {
	pool     *pgxpool.Pool
	products *ProductRepository
}

// NewReportRepository returns a ReportRepository that uses the given pool.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool, products: NewProductRepository(pool)}
}

// Save appends a report snapshot and fills in its generated ID. A zero top
// product ID is stored as NULL.
func (r *ReportRepository) Save(ctx context.Context, rep *report.Report) error {
	err := r.pool.QueryRow(ctx, insertReportSQL,
		rep.GeneratedAt, rep.TotalEarnings, rep.Month, rep.Year, rep.TopProductID,
	).Scan(&rep.ID)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// List returns all snapshots with their top-selling product resolved when it
// still exists.
func (r *ReportRepository) List(ctx context.Context) ([]report.Report, error) {
	rows, err := r.pool.Query(ctx, listReportsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	reports, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.Report, error) {
		var rep report.Report
		err := row.Scan(&rep.ID, &rep.GeneratedAt, &rep.TotalEarnings, &rep.Month, &rep.Year, &rep.TopProductID)
		return rep, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}

	// Resolve top products in one batch.
	var ids []int64
	for _, rep := range reports {
		if rep.TopProductID != 0 {
			ids = append(ids, rep.TopProductID)
		}
	}
	if len(ids) == 0 {
		return reports, nil
	}
	products, err := r.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving report products: %w", err)
	}
	byID := make(map[int64]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for i := range reports {
		reports[i].TopProduct = byID[reports[i].TopProductID]
	}
	return reports, nil
}
