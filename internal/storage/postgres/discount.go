package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/apperr"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/discount"
)

const (
	insertDiscountSQL = `INSERT INTO discounts (name, percentage, start_date, end_date)
		VALUES ($1, $2, $3, $4) RETURNING id`

	updateDiscountSQL = `UPDATE discounts
		SET name = $2, percentage = $3, start_date = $4, end_date = $5
		WHERE id = $1`

	deleteDiscountSQL = `DELETE FROM discounts WHERE id = $1`

	getDiscountSQL = `SELECT id, name, percentage, start_date, end_date FROM discounts WHERE id = $1`

	listDiscountsSQL = `SELECT id, name, percentage, start_date, end_date FROM discounts ORDER BY id`

	listDiscountsByNameSQL = `SELECT id, name, percentage, start_date, end_date
		FROM discounts WHERE name ILIKE '%' || $1 || '%' ORDER BY id`

	listDiscountsByRangeSQL = `SELECT id, name, percentage, start_date, end_date
		FROM discounts WHERE start_date >= $1 AND end_date <= $2 ORDER BY id`

	listDiscountsByStartSQL = `SELECT id, name, percentage, start_date, end_date
		FROM discounts WHERE start_date::date = $1::date ORDER BY id`

	listDiscountsByEndSQL = `SELECT id, name, percentage, start_date, end_date
		FROM discounts WHERE end_date::date = $1::date ORDER BY id`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// Add inserts a new discount and fills in its generated ID.
func (r *DiscountRepository) Add(ctx context.Context, d *discount.Discount) error {
	err := r.pool.QueryRow(ctx, insertDiscountSQL,
		d.Name, d.Percentage, d.StartDate, d.EndDate,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("adding discount %q: %w", d.Name, err)
	}
	return nil
}

// Update overwrites an existing discount.
func (r *DiscountRepository) Update(ctx context.Context, id int64, d *discount.Discount) error {
	tag, err := r.pool.Exec(ctx, updateDiscountSQL, id, d.Name, d.Percentage, d.StartDate, d.EndDate)
	if err != nil {
		return fmt.Errorf("updating discount %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.NotFound, "discount %d not found", id)
	}
	return nil
}

// Delete removes a discount. Deleting an absent discount is a no-op.
func (r *DiscountRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, deleteDiscountSQL, id); err != nil {
		return fmt.Errorf("deleting discount %d: %w", id, err)
	}
	return nil
}

// GetByID returns a single discount.
func (r *DiscountRepository) GetByID(ctx context.Context, id int64) (*discount.Discount, error) {
	var d discount.Discount
	err := r.pool.QueryRow(ctx, getDiscountSQL, id).
		Scan(&d.ID, &d.Name, &d.Percentage, &d.StartDate, &d.EndDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Newf(apperr.NotFound, "discount %d not found", id)
		}
		return nil, fmt.Errorf("getting discount %d: %w", id, err)
	}
	return &d, nil
}

// List returns all discounts.
func (r *DiscountRepository) List(ctx context.Context) ([]discount.Discount, error) {
	return r.list(ctx, listDiscountsSQL)
}

// ListByName returns discounts whose name contains the given substring,
// case-insensitively.
func (r *DiscountRepository) ListByName(ctx context.Context, name string) ([]discount.Discount, error) {
	return r.list(ctx, listDiscountsByNameSQL, name)
}

// ListByDateRange returns discounts fully contained in [start, end].
func (r *DiscountRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]discount.Discount, error) {
	return r.list(ctx, listDiscountsByRangeSQL, start, end)
}

// ListByStartingDate returns discounts starting on the given calendar date.
func (r *DiscountRepository) ListByStartingDate(ctx context.Context, start time.Time) ([]discount.Discount, error) {
	return r.list(ctx, listDiscountsByStartSQL, start)
}

// ListByEndingDate returns discounts ending on the given calendar date.
func (r *DiscountRepository) ListByEndingDate(ctx context.Context, end time.Time) ([]discount.Discount, error) {
	return r.list(ctx, listDiscountsByEndSQL, end)
}

func (r *DiscountRepository) list(ctx context.Context, sql string, args ...any) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing discounts: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (discount.Discount, error) {
		var d discount.Discount
		err := row.Scan(&d.ID, &d.Name, &d.Percentage, &d.StartDate, &d.EndDate)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing discounts: %w", err)
	}
	return out, nil
}
