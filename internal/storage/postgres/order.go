package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/apperr"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/order"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/product"
)

const (
	insertOrderSQL = `INSERT INTO orders (order_date, status, user_id) VALUES ($1, $2, $3) RETURNING id`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4) RETURNING id`

	orderHeaderSQL = `SELECT o.id, o.order_date, o.status, o.user_id, u.email
		FROM orders o JOIN users u ON u.id = o.user_id`

	getOrderSQL = orderHeaderSQL + ` WHERE o.id = $1`

	listOrdersSQL = orderHeaderSQL + ` ORDER BY o.id`

	listOrdersByEmailSQL = orderHeaderSQL + ` WHERE u.email = $1 ORDER BY o.id`

	listOrdersByStatusSQL = orderHeaderSQL + ` WHERE o.status = $1 ORDER BY o.id`

	listCompletedBetweenSQL = orderHeaderSQL + `
		WHERE o.status = 'completed' AND o.order_date >= $1 AND o.order_date < $2
		ORDER BY o.id`

	orderItemsSQL = `SELECT oi.order_id, oi.id, oi.product_id, oi.quantity, oi.unit_price,
		` + productColumns + `
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		JOIN brands b     ON b.id = p.brand_id
		JOIN genders g    ON g.id = p.gender_id
		JOIN colors co    ON co.id = p.color_id
		JOIN sizes s      ON s.id = p.size_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id`

	getOrderItemSQL = `SELECT oi.id, oi.product_id, oi.quantity, oi.unit_price
		FROM order_items oi WHERE oi.id = $1 AND oi.order_id = $2`

	deleteOrderItemSQL = `DELETE FROM order_items WHERE id = $1 AND order_id = $2`

	// The status check is part of the statement so two concurrent cancels
	// cannot both succeed.
	markCanceledSQL = `UPDATE orders SET status = 'canceled' WHERE id = $1 AND status <> 'canceled'`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`

	totalQuantitySoldSQL = `SELECT COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.product_id = $1 AND o.status = 'completed'`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order header and every item in one transaction. A
// failure midway rolls back all of it.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, insertOrderSQL, o.OrderDate, o.Status, o.UserID).Scan(&o.ID); err != nil {
		return fmt.Errorf("inserting order header: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		if err := tx.QueryRow(ctx, insertOrderItemSQL,
			o.ID, it.ProductID, it.Quantity, it.UnitPrice,
		).Scan(&it.ID); err != nil {
			return fmt.Errorf("inserting order item for product %d: %w", it.ProductID, err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID returns the order with its full item graph.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrderHeader)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Newf(apperr.NotFound, "order %d not found", id)
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	out := []order.Order{o}
	if err := r.attachItems(ctx, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ListAll returns every order with items populated.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	return r.list(ctx, listOrdersSQL)
}

// ListByUserEmail returns the orders of the user with the given email.
func (r *OrderRepository) ListByUserEmail(ctx context.Context, email string) ([]order.Order, error) {
	return r.list(ctx, listOrdersByEmailSQL, email)
}

// ListByStatus returns orders currently in the given status.
func (r *OrderRepository) ListByStatus(ctx context.Context, status order.Status) ([]order.Order, error) {
	return r.list(ctx, listOrdersByStatusSQL, status)
}

// ListCompletedBetween returns completed orders with order_date in [from, to).
func (r *OrderRepository) ListCompletedBetween(ctx context.Context, from, to time.Time) ([]order.Order, error) {
	return r.list(ctx, listCompletedBetweenSQL, from, to)
}

func (r *OrderRepository) list(ctx context.Context, sql string, args ...any) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrderHeader)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// InsertItem appends an item row to an existing order.
func (r *OrderRepository) InsertItem(ctx context.Context, orderID int64, item *order.Item) error {
	err := r.pool.QueryRow(ctx, insertOrderItemSQL,
		orderID, item.ProductID, item.Quantity, item.UnitPrice,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("inserting item into order %d: %w", orderID, err)
	}
	return nil
}

// GetItem returns one item of one order.
func (r *OrderRepository) GetItem(ctx context.Context, orderID, itemID int64) (*order.Item, error) {
	var it order.Item
	err := r.pool.QueryRow(ctx, getOrderItemSQL, itemID, orderID).
		Scan(&it.ID, &it.ProductID, &it.Quantity, &it.UnitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Newf(apperr.NotFound, "order item %d not found in order %d", itemID, orderID)
		}
		return nil, fmt.Errorf("getting item %d of order %d: %w", itemID, orderID, err)
	}
	return &it, nil
}

// DeleteItem removes one item row.
func (r *OrderRepository) DeleteItem(ctx context.Context, orderID, itemID int64) error {
	tag, err := r.pool.Exec(ctx, deleteOrderItemSQL, itemID, orderID)
	if err != nil {
		return fmt.Errorf("deleting item %d of order %d: %w", itemID, orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.NotFound, "order item %d not found in order %d", itemID, orderID)
	}
	return nil
}

// MarkCanceled atomically flips the order to canceled. An order already in
// canceled status fails with AlreadyCanceled.
func (r *OrderRepository) MarkCanceled(ctx context.Context, orderID int64) error {
	tag, err := r.pool.Exec(ctx, markCanceledSQL, orderID)
	if err != nil {
		return fmt.Errorf("canceling order %d: %w", orderID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, orderID).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %d: %w", orderID, err)
	}
	if !exists {
		return apperr.Newf(apperr.NotFound, "order %d not found", orderID)
	}
	return apperr.Newf(apperr.AlreadyCanceled, "order %d is already canceled", orderID)
}

// UpdateStatus unconditionally overwrites the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID int64, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, orderID, status)
	if err != nil {
		return fmt.Errorf("updating status of order %d: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.NotFound, "order %d not found", orderID)
	}
	return nil
}

// TotalQuantitySold sums a product's quantity across completed orders.
func (r *OrderRepository) TotalQuantitySold(ctx context.Context, productID int64) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, totalQuantitySoldSQL, productID).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing sold quantity of product %d: %w", productID, err)
	}
	return total, nil
}

// attachItems loads the items of the given orders in one query, products and
// dimension names included, and distributes them.
func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	rows, err := r.pool.Query(ctx, orderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			it      order.Item
			p       product.Product
		)
		if err := rows.Scan(
			&orderID, &it.ID, &it.ProductID, &it.Quantity, &it.UnitPrice,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.DiscountedPrice, &p.Quantity,
			&p.Category.ID, &p.Category.Name,
			&p.Brand.ID, &p.Brand.Name,
			&p.Gender.ID, &p.Gender.Name,
			&p.Color.ID, &p.Color.Name,
			&p.Size.ID, &p.Size.Name,
		); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		it.Product = &p
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func scanOrderHeader(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.OrderDate, &o.Status, &o.UserID, &o.UserEmail)
	return o, err
}
