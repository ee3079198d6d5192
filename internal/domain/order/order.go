// Package order owns the order aggregate: header, line items, and the status
// lifecycle, plus the service that keeps inventory consistent with order
// mutations.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/product"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCanceled   Status = "canceled"
	StatusCompleted  Status = "completed"
)

// ParseStatus validates a status string. Unknown values are rejected.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCanceled, StatusCompleted:
		return Status(s), true
	}
	return "", false
}

// Order is the aggregate root. It exclusively owns its Items.
type Order struct {
	ID        int64
	OrderDate time.Time
	Status    Status
	UserID    int64
	UserEmail string
	Items     []Item
}

// Item is a single order line. UnitPrice is captured at order time and does
// not change when the product is later discounted or repriced.
type Item struct {
	ID        int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	// Product is populated on reads with its dimension names resolved.
	Product *product.Product
}

// Repository defines persistence operations for orders. Create wraps the
// header and item writes in one all-or-nothing transaction; the mutation
// primitives (InsertItem, DeleteItem, MarkCanceled, UpdateStatus) are each
// atomic but composed by the Service, not the store.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	ListByUserEmail(ctx context.Context, email string) ([]Order, error)
	ListByStatus(ctx context.Context, status Status) ([]Order, error)
	// ListCompletedBetween returns completed orders whose order date falls in
	// [from, to), items populated.
	ListCompletedBetween(ctx context.Context, from, to time.Time) ([]Order, error)

	InsertItem(ctx context.Context, orderID int64, item *Item) error
	GetItem(ctx context.Context, orderID, itemID int64) (*Item, error)
	DeleteItem(ctx context.Context, orderID, itemID int64) error

	// MarkCanceled transitions the order to canceled, failing with
	// apperr.NotFound when the order is missing and apperr.AlreadyCanceled
	// when it is already canceled. The check-and-set is atomic.
	MarkCanceled(ctx context.Context, orderID int64) error
	UpdateStatus(ctx context.Context, orderID int64, status Status) error

	// TotalQuantitySold sums the quantity of a product across completed
	// orders.
	TotalQuantitySold(ctx context.Context, productID int64) (int, error)
}
