// Package discount owns the discount entity and the engine that materializes
// discounts into product prices.
package discount

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Discount is a percentage price reduction valid within a date window. The
// association with products is many-to-many; its effect on a product is
// cached in the product's DiscountedPrice rather than computed on read.
type Discount struct {
	ID         int64
	Name       string
	Percentage decimal.Decimal
	StartDate  time.Time
	EndDate    time.Time
}

// Active reports whether the discount window covers the given instant.
func (d *Discount) Active(at time.Time) bool {
	return !at.Before(d.StartDate) && at.Before(d.EndDate)
}

// Repository defines persistence operations for discounts.
type Repository interface {
	Add(ctx context.Context, d *Discount) error
	Update(ctx context.Context, id int64, d *Discount) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Discount, error)
	List(ctx context.Context) ([]Discount, error)
	// ListByName matches discount names containing the given substring.
	ListByName(ctx context.Context, name string) ([]Discount, error)
	// ListByDateRange returns discounts whose whole window lies inside
	// [start, end].
	ListByDateRange(ctx context.Context, start, end time.Time) ([]Discount, error)
	// ListByStartingDate and ListByEndingDate match on calendar date only.
	ListByStartingDate(ctx context.Context, start time.Time) ([]Discount, error)
	ListByEndingDate(ctx context.Context, end time.Time) ([]Discount, error)
}
