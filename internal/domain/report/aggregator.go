package report

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/apperr"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/order"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/product"
)

// Aggregator computes earnings windows and top-seller rankings from
// completed orders.
//
// Pricing basis differs by operation on purpose (see DESIGN.md): the daily
// and monthly windows price items at the product's current effective price,
// while the all-time total falls back to the captured unit price when the
// product row is gone. The windows additionally persist a Report snapshot;
// the all-time total does not.
type Aggregator struct {
	orders   order.Repository
	products product.Repository
	reports  Repository
	now      func() time.Time
}

// NewAggregator creates an Aggregator over the given repositories.
func NewAggregator(orders order.Repository, products product.Repository, reports Repository) *Aggregator {
	return &Aggregator{
		orders:   orders,
		products: products,
		reports:  reports,
		now:      time.Now,
	}
}

// DailyEarnings sums today's completed orders (UTC day window) and persists
// a daily snapshot with month/year set to the -1 sentinel.
func (a *Aggregator) DailyEarnings(ctx context.Context) (decimal.Decimal, error) {
	day := a.now().UTC().Truncate(24 * time.Hour)
	return a.windowEarnings(ctx, day, day.AddDate(0, 0, 1), -1, -1)
}

// MonthlyEarnings sums the completed orders of the given calendar month and
// persists a monthly snapshot.
func (a *Aggregator) MonthlyEarnings(ctx context.Context, month, year int) (decimal.Decimal, error) {
	if month < 1 || month > 12 {
		return decimal.Zero, apperr.New(apperr.InvalidArgument, "month must be 1-12")
	}
	if year < 1 {
		return decimal.Zero, apperr.New(apperr.InvalidArgument, "year must be positive")
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return a.windowEarnings(ctx, from, from.AddDate(0, 1, 0), month, year)
}

func (a *Aggregator) windowEarnings(ctx context.Context, from, to time.Time, month, year int) (decimal.Decimal, error) {
	orders, err := a.orders.ListCompletedBetween(ctx, from, to)
	if err != nil {
		return decimal.Zero, apperr.Wrap(apperr.Unexpected, err, "list completed orders")
	}

	byID, err := a.currentProducts(ctx, orders)
	if err != nil {
		return decimal.Zero, err
	}

	// Items whose product no longer exists contribute nothing to the window
	// sums.
	earnings := decimal.Zero
	for _, o := range orders {
		for _, it := range o.Items {
			p, ok := byID[it.ProductID]
			if !ok {
				continue
			}
			earnings = earnings.Add(p.EffectivePrice().Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}

	// Snapshot side effect: record the window total and the current top
	// seller. Snapshot failures surface; the caller retries the whole query.
	var topID int64
	top, err := a.TopSellingProducts(ctx, 1)
	if err != nil {
		return decimal.Zero, err
	}
	if len(top) > 0 {
		topID = top[0].ProductID
	}

	r := &Report{
		GeneratedAt:   a.now().UTC(),
		TotalEarnings: earnings,
		Month:         month,
		Year:          year,
		TopProductID:  topID,
	}
	if err := a.reports.Save(ctx, r); err != nil {
		return decimal.Zero, apperr.Wrap(apperr.Unexpected, err, "save report snapshot")
	}

	zctx.From(ctx).Info("earnings report generated",
		zap.Int("month", month), zap.Int("year", year),
		zap.String("earnings", earnings.String()),
		zap.Int64("top_product_id", topID),
	)
	return earnings, nil
}

// TotalEarnings sums all completed orders, all time. Items are priced at the
// product's current effective price, falling back to the unit price captured
// at order time when the product row is gone. No snapshot is persisted.
func (a *Aggregator) TotalEarnings(ctx context.Context) (decimal.Decimal, error) {
	orders, err := a.orders.ListByStatus(ctx, order.StatusCompleted)
	if err != nil {
		return decimal.Zero, apperr.Wrap(apperr.Unexpected, err, "list completed orders")
	}

	earnings := decimal.Zero
	for _, o := range orders {
		for _, it := range o.Items {
			price := it.UnitPrice
			if it.Product != nil {
				price = it.Product.EffectivePrice()
			}
			earnings = earnings.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	return earnings, nil
}

// TopSellingProducts groups completed order items by product and ranks them
// by total sales value, descending. The sales value of an item is the
// product's discounted price when one is active, else the item's captured
// unit price. Ties keep their grouping insertion order; no secondary key is
// defined.
func (a *Aggregator) TopSellingProducts(ctx context.Context, topCount int) ([]ProductPerformance, error) {
	if topCount <= 0 {
		return nil, apperr.New(apperr.InvalidArgument, "top count must be positive")
	}

	orders, err := a.orders.ListByStatus(ctx, order.StatusCompleted)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, err, "list completed orders")
	}

	var (
		ranking []ProductPerformance
		index   = make(map[int64]int)
	)
	for _, o := range orders {
		for _, it := range o.Items {
			price := it.UnitPrice
			name := ""
			if it.Product != nil {
				name = it.Product.Name
				if it.Product.DiscountedPrice.IsPositive() {
					price = it.Product.DiscountedPrice
				}
			}
			sales := price.Mul(decimal.NewFromInt(int64(it.Quantity)))

			i, ok := index[it.ProductID]
			if !ok {
				index[it.ProductID] = len(ranking)
				ranking = append(ranking, ProductPerformance{
					ProductID: it.ProductID,
					Name:      name,
				})
				i = len(ranking) - 1
			}
			ranking[i].TotalSales = ranking[i].TotalSales.Add(sales)
			ranking[i].UnitsSold += it.Quantity
		}
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].TotalSales.GreaterThan(ranking[j].TotalSales)
	})
	if len(ranking) > topCount {
		ranking = ranking[:topCount]
	}
	return ranking, nil
}

// Reports lists the persisted snapshots.
func (a *Aggregator) Reports(ctx context.Context) ([]Report, error) {
	out, err := a.reports.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, err, "list reports")
	}
	return out, nil
}

// currentProducts batch-fetches the current product rows referenced by the
// given orders.
func (a *Aggregator) currentProducts(ctx context.Context, orders []order.Order) (map[int64]*product.Product, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, o := range orders {
		for _, it := range o.Items {
			if _, ok := seen[it.ProductID]; ok {
				continue
			}
			seen[it.ProductID] = struct{}{}
			ids = append(ids, it.ProductID)
		}
	}
	if len(ids) == 0 {
		return map[int64]*product.Product{}, nil
	}

	products, err := a.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, err, "fetch products")
	}
	byID := make(map[int64]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}
