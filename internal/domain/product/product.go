// Package product defines the catalog product model and the inventory ledger
// contract over its on-hand quantity.
package product

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Ref is a resolved reference to a catalog dimension (category, brand,
// gender, color, size).
type Ref struct {
	ID   int64
	Name string
}

// AppliedDiscount is a product's view of a discount association. The full
// discount entity lives in the discount package; this projection is what the
// expiry sweep and eager-loaded reads operate on.
type AppliedDiscount struct {
	ID         int64
	Name       string
	Percentage decimal.Decimal
	StartDate  time.Time
	EndDate    time.Time
}

// Product is a catalog item. DiscountedPrice is a cached projection of the
// most recently applied discount: zero when no discount is active, otherwise
// strictly below Price. It is invalidated only by reapplying a discount or by
// the expiry sweep.
type Product struct {
	ID              int64
	Name            string
	Description     string
	Price           decimal.Decimal
	DiscountedPrice decimal.Decimal
	Quantity        int
	Category        Ref
	Brand           Ref
	Gender          Ref
	Color           Ref
	Size            Ref
	Discounts       []AppliedDiscount
}

// EffectivePrice returns DiscountedPrice when set (> 0), else Price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.DiscountedPrice.IsPositive() {
		return p.DiscountedPrice
	}
	return p.Price
}

// InStock reports whether any units are on hand.
func (p *Product) InStock() bool { return p.Quantity > 0 }

// Ledger is the single source of truth for a product's available quantity.
//
// Reserve must be atomic per product: two concurrent reservations may not
// both observe the same pre-decrement quantity. Implementations serialize via
// a conditional single-statement update (or equivalent row lock).
type Ledger interface {
	// Reserve decrements the product's quantity. It fails with
	// apperr.NotFound when the product does not exist and
	// apperr.InsufficientStock when fewer than qty units are on hand.
	Reserve(ctx context.Context, productID int64, qty int) error
	// Release increments the product's quantity. A missing product is not an
	// error; implementations log and return nil.
	Release(ctx context.Context, productID int64, qty int) error
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Ledger

	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	List(ctx context.Context) ([]Product, error)
	// ListByCategory and ListByBrand match the dimension name
	// case-insensitively.
	ListByCategory(ctx context.Context, name string) ([]Product, error)
	ListByBrand(ctx context.Context, name string) ([]Product, error)
	// Update persists price, discounted price, quantity, and the discount
	// associations of an existing product.
	Update(ctx context.Context, p *Product) error
}
