// Package report computes earnings over completed orders and persists
// write-once report snapshots.
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/product"
)

// Report is an immutable snapshot of an earnings computation. Month and Year
// are -1 for daily reports.
type Report struct {
	ID            int64
	GeneratedAt   time.Time
	TotalEarnings decimal.Decimal
	Month         int
	Year          int
	TopProductID  int64
	// TopProduct is resolved on reads when the product still exists.
	TopProduct *product.Product
}

// ProductPerformance ranks one product's sales across completed orders.
type ProductPerformance struct {
	ProductID  int64
	Name       string
	TotalSales decimal.Decimal
	UnitsSold  int
}

// Repository defines persistence for report snapshots. Snapshots are
// append-only: never updated or deleted.
type Repository interface {
	Save(ctx context.Context, r *Report) error
	List(ctx context.Context) ([]Report, error)
}
