package order

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/apperr"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/product"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/user"
)

// ItemRequest is one requested order line.
type ItemRequest struct {
	ProductID int64
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Email     string
	OrderDate time.Time
	Items     []ItemRequest
}

// Service encapsulates order placement and inventory-adjustment logic.
type Service struct {
	users    user.Repository
	products product.Repository
	orders   Repository
}

// NewService creates an order Service with the required dependencies.
func NewService(users user.Repository, products product.Repository, orders Repository) *Service {
	return &Service{
		users:    users,
		products: products,
		orders:   orders,
	}
}

// PlaceOrder resolves the buyer by email and creates the order in pending
// status with every requested line, all in one transaction. Each item's unit
// price is captured as the product's effective price at placement time.
//
// Placement does not check or reserve stock; the ledger is only touched when
// items are added through AddItem. See DESIGN.md for why this asymmetry is
// kept.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, apperr.Newf(apperr.InvalidArgument,
				"quantity must be greater than 0 for product %d", it.ProductID)
		}
	}

	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return nil, apperr.Newf(apperr.NotFound, "user with email %q does not exist", req.Email)
		}
		zctx.From(ctx).Error("resolve user", zap.String("email", req.Email), zap.Error(err))
		return nil, apperr.Wrap(apperr.Unexpected, err, "resolve user")
	}

	items := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		p, err := s.products.GetByID(ctx, it.ProductID)
		if err != nil {
			if apperr.IsKind(err, apperr.NotFound) {
				return nil, apperr.Newf(apperr.NotFound, "product %d not found", it.ProductID)
			}
			zctx.From(ctx).Error("fetch product", zap.Int64("product_id", it.ProductID), zap.Error(err))
			return nil, apperr.Wrap(apperr.Unexpected, err, "fetch product")
		}
		items = append(items, Item{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: p.EffectivePrice(),
		})
	}

	orderDate := req.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}

	o := &Order{
		OrderDate: orderDate,
		Status:    StatusPending,
		UserID:    u.ID,
		UserEmail: u.Email,
		Items:     items,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		zctx.From(ctx).Error("create order", zap.Error(err))
		return nil, apperr.Wrap(apperr.Unexpected, err, "create order")
	}

	zctx.From(ctx).Info("order placed",
		zap.Int64("order_id", o.ID),
		zap.Int64("user_id", u.ID),
		zap.Int("items", len(o.Items)),
	)
	return o, nil
}

// AddItem appends a line to an existing order, reserving stock first. The
// reservation is the serialization point: a failed insert releases the
// reserved units again.
func (s *Service) AddItem(ctx context.Context, orderID int64, req ItemRequest) (*Item, error) {
	if req.Quantity <= 0 {
		return nil, apperr.New(apperr.InvalidArgument, "quantity must be greater than 0")
	}

	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return nil, apperr.Newf(apperr.NotFound, "order %d not found", orderID)
		}
		return nil, apperr.Wrap(apperr.Unexpected, err, "fetch order")
	}

	p, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return nil, apperr.Newf(apperr.NotFound, "product %d not found", req.ProductID)
		}
		return nil, apperr.Wrap(apperr.Unexpected, err, "fetch product")
	}

	if err := s.products.Reserve(ctx, req.ProductID, req.Quantity); err != nil {
		return nil, err
	}

	item := &Item{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: p.EffectivePrice(),
	}
	if err := s.orders.InsertItem(ctx, orderID, item); err != nil {
		// Compensate the reservation so the failed insert leaves stock as it
		// was.
		if relErr := s.products.Release(ctx, req.ProductID, req.Quantity); relErr != nil {
			zctx.From(ctx).Error("release after failed insert",
				zap.Int64("product_id", req.ProductID), zap.Error(relErr))
		}
		zctx.From(ctx).Error("insert order item", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, apperr.Wrap(apperr.Unexpected, err, "insert order item")
	}

	zctx.From(ctx).Info("order item added",
		zap.Int64("order_id", orderID),
		zap.Int64("product_id", req.ProductID),
		zap.Int("quantity", req.Quantity),
	)
	return item, nil
}

// RemoveItem deletes a line from an order and releases its quantity back to
// the product.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID int64) error {
	item, err := s.orders.GetItem(ctx, orderID, itemID)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return apperr.Newf(apperr.NotFound, "order item %d not found in order %d", itemID, orderID)
		}
		return apperr.Wrap(apperr.Unexpected, err, "fetch order item")
	}

	// Delete first: a failed delete must leave stock untouched. Release after
	// a successful delete is non-fatal by the ledger contract.
	if err := s.orders.DeleteItem(ctx, orderID, itemID); err != nil {
		return apperr.Wrap(apperr.Unexpected, err, "delete order item")
	}

	if err := s.products.Release(ctx, item.ProductID, item.Quantity); err != nil {
		zctx.From(ctx).Error("release stock", zap.Int64("product_id", item.ProductID), zap.Error(err))
	}

	zctx.From(ctx).Info("order item removed",
		zap.Int64("order_id", orderID), zap.Int64("item_id", itemID))
	return nil
}

// Cancel transitions the order to canceled and restores stock for every item
// currently on it. A second cancel on the same order fails with
// apperr.AlreadyCanceled.
func (s *Service) Cancel(ctx context.Context, orderID int64) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return apperr.Newf(apperr.NotFound, "order %d not found", orderID)
		}
		return apperr.Wrap(apperr.Unexpected, err, "fetch order")
	}

	// MarkCanceled is the atomic guard; the read above only gathers the
	// items to restock.
	if err := s.orders.MarkCanceled(ctx, orderID); err != nil {
		return err
	}

	for _, it := range o.Items {
		if err := s.products.Release(ctx, it.ProductID, it.Quantity); err != nil {
			// Restock failures are logged, not fatal: the order is already
			// canceled and the missing product cannot absorb the units.
			zctx.From(ctx).Warn("restock on cancel failed",
				zap.Int64("order_id", orderID),
				zap.Int64("product_id", it.ProductID),
				zap.Error(err),
			)
		}
	}

	zctx.From(ctx).Info("order canceled", zap.Int64("order_id", orderID))
	return nil
}

// UpdateStatus overwrites the order status. No transition guard applies here
// beyond the order existing; the only guarded transition in the lifecycle is
// canceled-to-canceled, owned by Cancel.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status Status) error {
	if _, ok := ParseStatus(string(status)); !ok {
		return apperr.Newf(apperr.InvalidArgument, "unknown order status %q", status)
	}
	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return apperr.Newf(apperr.NotFound, "order %d not found", orderID)
		}
		return apperr.Wrap(apperr.Unexpected, err, "update order status")
	}
	return nil
}

// Get returns a single order with items and product dimensions populated.
func (s *Service) Get(ctx context.Context, orderID int64) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return nil, apperr.Newf(apperr.NotFound, "order %d not found", orderID)
		}
		return nil, apperr.Wrap(apperr.Unexpected, err, "fetch order")
	}
	return o, nil
}

// ListAll returns every order with its full item graph.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, err, "list orders")
	}
	return orders, nil
}

// ListByUserEmail returns the orders belonging to the given buyer.
func (s *Service) ListByUserEmail(ctx context.Context, email string) ([]Order, error) {
	if email == "" {
		return nil, apperr.New(apperr.InvalidArgument, "email must not be empty")
	}
	orders, err := s.orders.ListByUserEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, err, "list orders by user")
	}
	return orders, nil
}

// ListByStatus returns the orders currently in the given status.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	if _, ok := ParseStatus(string(status)); !ok {
		return nil, apperr.Newf(apperr.InvalidArgument, "unknown order status %q", status)
	}
	orders, err := s.orders.ListByStatus(ctx, status)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, err, "list orders by status")
	}
	return orders, nil
}

// TotalQuantitySold reports how many units of a product were sold across
// completed orders.
func (s *Service) TotalQuantitySold(ctx context.Context, productID int64) (int, error) {
	n, err := s.orders.TotalQuantitySold(ctx, productID)
	if err != nil {
		return 0, apperr.Wrap(apperr.Unexpected, err, "total quantity sold")
	}
	return n, nil
}
