package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/apperr"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/product"
)

const productColumns = `p.id, p.name, p.description, p.price, p.discounted_price, p.quantity,
	c.id, c.name, b.id, b.name, g.id, g.name, co.id, co.name, s.id, s.name`

const productJoins = `FROM products p
	JOIN categories c ON c.id = p.category_id
	JOIN brands b     ON b.id = p.brand_id
	JOIN genders g    ON g.id = p.gender_id
	JOIN colors co    ON co.id = p.color_id
	JOIN sizes s      ON s.id = p.size_id`

const (
	getProductSQL = `SELECT ` + productColumns + ` ` + productJoins + ` WHERE p.id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` ` + productJoins + ` WHERE p.id = ANY($1) ORDER BY p.id`

	listProductsSQL = `SELECT ` + productColumns + ` ` + productJoins + ` ORDER BY p.id`

	listProductsByCategorySQL = `SELECT ` + productColumns + ` ` + productJoins + `
		WHERE LOWER(c.name) = LOWER($1) ORDER BY p.id`

	listProductsByBrandSQL = `SELECT ` + productColumns + ` ` + productJoins + `
		WHERE LOWER(b.name) = LOWER($1) ORDER BY p.id`

	productDiscountsSQL = `SELECT pd.product_id, d.id, d.name, d.percentage, d.start_date, d.end_date
		FROM product_discounts pd
		JOIN discounts d ON d.id = pd.discount_id
		WHERE pd.product_id = ANY($1)
		ORDER BY pd.id`

	// Reserve is a single conditional statement so concurrent reservations
	// against the same product serialize on the row instead of racing a
	// read-then-write.
	reserveStockSQL = `UPDATE products SET quantity = quantity - $2 WHERE id = $1 AND quantity >= $2`

	releaseStockSQL = `UPDATE products SET quantity = quantity + $2 WHERE id = $1`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`

	updateProductSQL = `UPDATE products
		SET name = $2, description = $3, price = $4, discounted_price = $5, quantity = $6
		WHERE id = $1`

	deleteProductDiscountsSQL = `DELETE FROM product_discounts WHERE product_id = $1`

	insertProductDiscountSQL = `INSERT INTO product_discounts (product_id, discount_id) VALUES ($1, $2)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository (including the inventory
// ledger) backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID returns a single product with dimension names and discount
// associations populated.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Newf(apperr.NotFound, "product %d not found", id)
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	out := []product.Product{p}
	if err := r.attachDiscounts(ctx, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	if err := r.attachDiscounts(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// List returns the whole catalog with discount associations attached.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	return r.list(ctx, listProductsSQL)
}

// ListByCategory returns products whose category name matches
// case-insensitively.
func (r *ProductRepository) ListByCategory(ctx context.Context, name string) ([]product.Product, error) {
	return r.list(ctx, listProductsByCategorySQL, name)
}

// ListByBrand returns products whose brand name matches case-insensitively.
func (r *ProductRepository) ListByBrand(ctx context.Context, name string) ([]product.Product, error) {
	return r.list(ctx, listProductsByBrandSQL, name)
}

func (r *ProductRepository) list(ctx context.Context, sql string, args ...any) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if err := r.attachDiscounts(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// Update persists mutable product fields and rewrites the discount
// association rows to match p.Discounts, duplicates included.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.DiscountedPrice, p.Quantity,
	)
	if err != nil {
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.NotFound, "product %d not found", p.ID)
	}

	if _, err := tx.Exec(ctx, deleteProductDiscountsSQL, p.ID); err != nil {
		return fmt.Errorf("clearing discounts of product %d: %w", p.ID, err)
	}
	for _, d := range p.Discounts {
		if _, err := tx.Exec(ctx, insertProductDiscountSQL, p.ID, d.ID); err != nil {
			return fmt.Errorf("linking discount %d to product %d: %w", d.ID, p.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// Reserve decrements on-hand quantity, failing with InsufficientStock when
// fewer units are available and NotFound when the product does not exist.
func (r *ProductRepository) Reserve(ctx context.Context, productID int64, qty int) error {
	tag, err := r.pool.Exec(ctx, reserveStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("reserving %d units of product %d: %w", qty, productID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, productExistsSQL, productID).Scan(&exists); err != nil {
		return fmt.Errorf("checking product %d: %w", productID, err)
	}
	if !exists {
		return apperr.Newf(apperr.NotFound, "product %d not found", productID)
	}
	return apperr.Newf(apperr.InsufficientStock, "insufficient stock for product %d", productID)
}

// Release returns units to the product. A missing product is logged and
// swallowed: the order mutation that triggered the release must not fail
// because the catalog row is gone.
func (r *ProductRepository) Release(ctx context.Context, productID int64, qty int) error {
	tag, err := r.pool.Exec(ctx, releaseStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("releasing %d units of product %d: %w", qty, productID, err)
	}
	if tag.RowsAffected() == 0 {
		zctx.From(ctx).Warn("release skipped, product missing",
			zap.Int64("product_id", productID), zap.Int("quantity", qty))
	}
	return nil
}

// attachDiscounts loads the discount associations for the given products in
// one query and distributes them.
func (r *ProductRepository) attachDiscounts(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]int64, len(products))
	byID := make(map[int64]*product.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		byID[products[i].ID] = &products[i]
	}

	rows, err := r.pool.Query(ctx, productDiscountsSQL, ids)
	if err != nil {
		return fmt.Errorf("loading product discounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID int64
			d         product.AppliedDiscount
		)
		if err := rows.Scan(&productID, &d.ID, &d.Name, &d.Percentage, &d.StartDate, &d.EndDate); err != nil {
			return fmt.Errorf("scanning product discount: %w", err)
		}
		if p, ok := byID[productID]; ok {
			p.Discounts = append(p.Discounts, d)
		}
	}
	return rows.Err()
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.DiscountedPrice, &p.Quantity,
		&p.Category.ID, &p.Category.Name,
		&p.Brand.ID, &p.Brand.Name,
		&p.Gender.ID, &p.Gender.Name,
		&p.Color.ID, &p.Color.Name,
		&p.Size.ID, &p.Size.Name,
	)
	return p, err
}
