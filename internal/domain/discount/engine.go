package discount

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/apperr"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/product"
	"github.com/KaltrinaI/WebStoreManagement/internal/search"
)

var hundred = decimal.NewFromInt(100)

// DiscountedPrice returns price reduced by the given percentage:
// price * (1 - percentage/100). Negative inputs fail with
// apperr.InvalidArgument.
//
// Percentages above 100 are not clamped and yield a negative price; callers
// own that validation. Flagged in DESIGN.md rather than silently changed.
func DiscountedPrice(price, percentage decimal.Decimal) (decimal.Decimal, error) {
	if price.IsNegative() || percentage.IsNegative() {
		return decimal.Zero, apperr.New(apperr.InvalidArgument,
			"price and discount percentage must be non-negative")
	}
	return price.Sub(price.Mul(percentage).Div(hundred)), nil
}

// Engine applies discounts to products and sweeps expired ones. The engine
// writes the cached DiscountedPrice projection; it is the only invalidation
// path besides reapplication.
type Engine struct {
	products  product.Repository
	discounts Repository
	indexer   search.Indexer
	now       func() time.Time
}

// NewEngine creates a discount Engine. The indexer receives best-effort
// snapshots of every product the engine touches; pass a LogIndexer when no
// search engine is configured.
func NewEngine(products product.Repository, discounts Repository, indexer search.Indexer) *Engine {
	return &Engine{
		products:  products,
		discounts: discounts,
		indexer:   indexer,
		now:       time.Now,
	}
}

// ApplyToProduct applies the discount to a single product: recomputes the
// cached discounted price and appends the association. Applying the same
// discount twice appends a duplicate association; there is no idempotence
// check.
func (e *Engine) ApplyToProduct(ctx context.Context, productID, discountID int64) error {
	if productID <= 0 || discountID <= 0 {
		return apperr.New(apperr.InvalidArgument, "product ID and discount ID must be positive")
	}

	p, err := e.products.GetByID(ctx, productID)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return apperr.Newf(apperr.NotFound, "product %d not found", productID)
		}
		return apperr.Wrap(apperr.Unexpected, err, "fetch product")
	}

	d, err := e.discounts.GetByID(ctx, discountID)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return apperr.Newf(apperr.NotFound, "discount %d not found", discountID)
		}
		return apperr.Wrap(apperr.Unexpected, err, "fetch discount")
	}

	if err := e.apply(ctx, p, d); err != nil {
		return err
	}

	zctx.From(ctx).Info("discount applied to product",
		zap.Int64("product_id", productID), zap.Int64("discount_id", discountID))
	return nil
}

// ApplyToCategory applies the discount to every product in the named
// category (case-insensitive). Zero matching products is apperr.NotFound.
func (e *Engine) ApplyToCategory(ctx context.Context, categoryName string, discountID int64) error {
	return e.applyToGroup(ctx, "category", categoryName, discountID, e.products.ListByCategory)
}

// ApplyToBrand applies the discount to every product of the named brand
// (case-insensitive). Zero matching products is apperr.NotFound.
func (e *Engine) ApplyToBrand(ctx context.Context, brandName string, discountID int64) error {
	return e.applyToGroup(ctx, "brand", brandName, discountID, e.products.ListByBrand)
}

func (e *Engine) applyToGroup(
	ctx context.Context,
	kind, name string,
	discountID int64,
	list func(context.Context, string) ([]product.Product, error),
) error {
	if name == "" {
		return apperr.Newf(apperr.InvalidArgument, "%s name must not be empty", kind)
	}
	if discountID <= 0 {
		return apperr.New(apperr.InvalidArgument, "discount ID must be positive")
	}

	products, err := list(ctx, name)
	if err != nil {
		return apperr.Wrap(apperr.Unexpected, err, "list products")
	}
	if len(products) == 0 {
		return apperr.Newf(apperr.NotFound, "no products found for %s %q", kind, name)
	}

	d, err := e.discounts.GetByID(ctx, discountID)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return apperr.Newf(apperr.NotFound, "discount %d not found", discountID)
		}
		return apperr.Wrap(apperr.Unexpected, err, "fetch discount")
	}

	for i := range products {
		if err := e.apply(ctx, &products[i], d); err != nil {
			return err
		}
	}

	zctx.From(ctx).Info("discount applied to group",
		zap.String(kind, name),
		zap.Int64("discount_id", discountID),
		zap.Int("products", len(products)),
	)
	return nil
}

// apply recomputes the cached price, appends the association, persists, and
// feeds the index best-effort.
func (e *Engine) apply(ctx context.Context, p *product.Product, d *Discount) error {
	discounted, err := DiscountedPrice(p.Price, d.Percentage)
	if err != nil {
		return err
	}

	p.DiscountedPrice = discounted
	p.Discounts = append(p.Discounts, product.AppliedDiscount{
		ID:         d.ID,
		Name:       d.Name,
		Percentage: d.Percentage,
		StartDate:  d.StartDate,
		EndDate:    d.EndDate,
	})

	if err := e.products.Update(ctx, p); err != nil {
		return apperr.Wrap(apperr.Unexpected, err, "update product")
	}

	e.feedIndex(ctx, p)
	return nil
}

// RemoveExpired sweeps every product, drops discount associations whose end
// date has passed, and resets the cached discounted price to zero for
// products left without an active discount. Running it twice in a row is a
// no-op unless a window newly expired in between.
func (e *Engine) RemoveExpired(ctx context.Context) error {
	products, err := e.products.List(ctx)
	if err != nil {
		return apperr.Wrap(apperr.Unexpected, err, "list products")
	}
	if len(products) == 0 {
		return apperr.New(apperr.NotFound, "no products available to process discounts")
	}

	now := e.now()
	swept := 0
	for i := range products {
		p := &products[i]

		active := p.Discounts[:0]
		for _, d := range p.Discounts {
			if d.EndDate.After(now) {
				active = append(active, d)
			}
		}
		if len(active) == len(p.Discounts) && (len(active) > 0 || p.DiscountedPrice.IsZero()) {
			continue
		}

		p.Discounts = active
		if len(active) == 0 {
			p.DiscountedPrice = decimal.Zero
		}
		if err := e.products.Update(ctx, p); err != nil {
			return apperr.Wrap(apperr.Unexpected, err, "update product")
		}
		e.feedIndex(ctx, p)
		swept++
	}

	zctx.From(ctx).Info("expired discounts removed", zap.Int("products_updated", swept))
	return nil
}

func (e *Engine) feedIndex(ctx context.Context, p *product.Product) {
	if e.indexer == nil {
		return
	}
	snap := search.Snapshot{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		DiscountedPrice: p.DiscountedPrice,
		Quantity:        p.Quantity,
		Category:        p.Category.Name,
		Brand:           p.Brand.Name,
		Gender:          p.Gender.Name,
		Color:           p.Color.Name,
		Size:            p.Size.Name,
	}
	if err := e.indexer.Index(ctx, snap); err != nil {
		zctx.From(ctx).Warn("search index update failed",
			zap.Int64("product_id", p.ID), zap.Error(err))
	}
}

// Add validates and stores a new discount.
func (e *Engine) Add(ctx context.Context, d *Discount) error {
	if d == nil {
		return apperr.New(apperr.InvalidArgument, "discount data cannot be nil")
	}
	if d.Name == "" {
		return apperr.New(apperr.InvalidArgument, "discount name must not be empty")
	}
	if d.Percentage.IsNegative() {
		return apperr.New(apperr.InvalidArgument, "discount percentage must be non-negative")
	}
	if err := e.discounts.Add(ctx, d); err != nil {
		return apperr.Wrap(apperr.Unexpected, err, "add discount")
	}
	zctx.From(ctx).Info("discount added", zap.Int64("discount_id", d.ID), zap.String("name", d.Name))
	return nil
}

// Update overwrites an existing discount's fields.
func (e *Engine) Update(ctx context.Context, id int64, d *Discount) error {
	if id <= 0 {
		return apperr.New(apperr.InvalidArgument, "discount ID must be positive")
	}
	if d == nil {
		return apperr.New(apperr.InvalidArgument, "discount data cannot be nil")
	}
	if err := e.discounts.Update(ctx, id, d); err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return apperr.Newf(apperr.NotFound, "discount %d not found", id)
		}
		return apperr.Wrap(apperr.Unexpected, err, "update discount")
	}
	return nil
}

// Delete removes a discount. Deleting an absent discount is a no-op, as in
// the repository contract.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperr.New(apperr.InvalidArgument, "discount ID must be positive")
	}
	if err := e.discounts.Delete(ctx, id); err != nil {
		return apperr.Wrap(apperr.Unexpected, err, "delete discount")
	}
	return nil
}

// Get returns a discount by ID.
func (e *Engine) Get(ctx context.Context, id int64) (*Discount, error) {
	if id <= 0 {
		return nil, apperr.New(apperr.InvalidArgument, "discount ID must be positive")
	}
	d, err := e.discounts.GetByID(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return nil, apperr.Newf(apperr.NotFound, "discount %d not found", id)
		}
		return nil, apperr.Wrap(apperr.Unexpected, err, "fetch discount")
	}
	return d, nil
}

// List returns all discounts.
func (e *Engine) List(ctx context.Context) ([]Discount, error) {
	out, err := e.discounts.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, err, "list discounts")
	}
	return out, nil
}

// ListByName returns discounts whose name contains the given substring.
func (e *Engine) ListByName(ctx context.Context, name string) ([]Discount, error) {
	if name == "" {
		return nil, apperr.New(apperr.InvalidArgument, "discount name must not be empty")
	}
	out, err := e.discounts.ListByName(ctx, name)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, err, "list discounts by name")
	}
	return out, nil
}

// ListByDateRange returns discounts fully contained in [start, end].
func (e *Engine) ListByDateRange(ctx context.Context, start, end time.Time) ([]Discount, error) {
	if start.After(end) {
		return nil, apperr.New(apperr.InvalidArgument, "start date must not be after end date")
	}
	out, err := e.discounts.ListByDateRange(ctx, start, end)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, err, "list discounts by date range")
	}
	return out, nil
}

// ListByStartingDate returns discounts starting on the given calendar date.
func (e *Engine) ListByStartingDate(ctx context.Context, start time.Time) ([]Discount, error) {
	out, err := e.discounts.ListByStartingDate(ctx, start)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, err, "list discounts by starting date")
	}
	return out, nil
}

// ListByEndingDate returns discounts ending on the given calendar date.
func (e *Engine) ListByEndingDate(ctx context.Context, end time.Time) ([]Discount, error) {
	out, err := e.discounts.ListByEndingDate(ctx, end)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, err, "list discounts by ending date")
	}
	return out, nil
}
