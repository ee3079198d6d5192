package discount

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/apperr"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID    map[int64]*product.Product
	updates int
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, apperr.Newf(apperr.NotFound, "product %d not found", id)
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockProductRepo) ListByCategory(_ context.Context, name string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if strings.EqualFold(p.Category.Name, name) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) ListByBrand(_ context.Context, name string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if strings.EqualFold(p.Brand.Name, name) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Update(_ context.Context, p *product.Product) error {
	m.updates++
	cp := *p
	cp.Discounts = append([]product.AppliedDiscount(nil), p.Discounts...)
	m.byID[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) Reserve(_ context.Context, _ int64, _ int) error { return nil }
func (m *mockProductRepo) Release(_ context.Context, _ int64, _ int) error { return nil }

type mockDiscountRepo struct {
	byID map[int64]*Discount
}

func (m *mockDiscountRepo) Add(_ context.Context, d *Discount) error {
	d.ID = int64(len(m.byID) + 1)
	m.byID[d.ID] = d
	return nil
}

func (m *mockDiscountRepo) Update(_ context.Context, id int64, d *Discount) error {
	if _, ok := m.byID[id]; !ok {
		return apperr.Newf(apperr.NotFound, "discount %d not found", id)
	}
	d.ID = id
	m.byID[id] = d
	return nil
}

func (m *mockDiscountRepo) Delete(_ context.Context, id int64) error {
	delete(m.byID, id)
	return nil
}

func (m *mockDiscountRepo) GetByID(_ context.Context, id int64) (*Discount, error) {
	d, ok := m.byID[id]
	if !ok {
		return nil, apperr.Newf(apperr.NotFound, "discount %d not found", id)
	}
	return d, nil
}

func (m *mockDiscountRepo) List(_ context.Context) ([]Discount, error) {
	var out []Discount
	for _, d := range m.byID {
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockDiscountRepo) ListByName(_ context.Context, name string) ([]Discount, error) {
	var out []Discount
	for _, d := range m.byID {
		if strings.Contains(strings.ToLower(d.Name), strings.ToLower(name)) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDiscountRepo) ListByDateRange(_ context.Context, _, _ time.Time) ([]Discount, error) {
	return nil, nil
}

func (m *mockDiscountRepo) ListByStartingDate(_ context.Context, _ time.Time) ([]Discount, error) {
	return nil, nil
}

func (m *mockDiscountRepo) ListByEndingDate(_ context.Context, _ time.Time) ([]Discount, error) {
	return nil, nil
}

// --- Helpers ---

func newEngine(products ...*product.Product) (*Engine, *mockProductRepo, *mockDiscountRepo) {
	byID := make(map[int64]*product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	pr := &mockProductRepo{byID: byID}
	dr := &mockDiscountRepo{byID: make(map[int64]*Discount)}
	return NewEngine(pr, dr, nil), pr, dr
}

func testDiscount(id int64, pct string, endsIn time.Duration) *Discount {
	return &Discount{
		ID:         id,
		Name:       "Test Sale",
		Percentage: decimal.RequireFromString(pct),
		StartDate:  time.Now().Add(-time.Hour),
		EndDate:    time.Now().Add(endsIn),
	}
}

// --- Tests ---

func TestDiscountedPrice(t *testing.T) {
	got, err := DiscountedPrice(decimal.RequireFromString("100.00"), decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("80.00").Equal(got))

	got, err = DiscountedPrice(decimal.RequireFromString("59.90"), decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("29.95").Equal(got))

	got, err = DiscountedPrice(decimal.NewFromInt(80), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(80).Equal(got))
}

func TestDiscountedPrice_NegativeInputs(t *testing.T) {
	_, err := DiscountedPrice(decimal.NewFromInt(-1), decimal.NewFromInt(20))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.InvalidArgument))

	_, err = DiscountedPrice(decimal.NewFromInt(100), decimal.NewFromInt(-5))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.InvalidArgument))
}

func TestDiscountedPrice_Above100NotClamped(t *testing.T) {
	got, err := DiscountedPrice(decimal.NewFromInt(100), decimal.NewFromInt(150))
	require.NoError(t, err)
	assert.True(t, got.IsNegative())
}

func TestApplyToProduct(t *testing.T) {
	p := &product.Product{ID: 1, Name: "Jacket", Price: decimal.NewFromInt(100)}
	e, pr, dr := newEngine(p)
	dr.byID[5] = testDiscount(5, "25", 24*time.Hour)

	require.NoError(t, e.ApplyToProduct(context.Background(), 1, 5))

	got := pr.byID[1]
	assert.True(t, decimal.NewFromInt(75).Equal(got.DiscountedPrice))
	require.Len(t, got.Discounts, 1)
	assert.Equal(t, int64(5), got.Discounts[0].ID)
}

func TestApplyToProduct_DuplicateAppends(t *testing.T) {
	p := &product.Product{ID: 1, Name: "Jacket", Price: decimal.NewFromInt(100)}
	e, pr, dr := newEngine(p)
	dr.byID[5] = testDiscount(5, "25", 24*time.Hour)

	require.NoError(t, e.ApplyToProduct(context.Background(), 1, 5))
	require.NoError(t, e.ApplyToProduct(context.Background(), 1, 5))

	got := pr.byID[1]
	assert.Len(t, got.Discounts, 2)
	assert.True(t, decimal.NewFromInt(75).Equal(got.DiscountedPrice))
}

func TestApplyToProduct_MissingDiscount(t *testing.T) {
	p := &product.Product{ID: 1, Name: "Jacket", Price: decimal.NewFromInt(100)}
	e, _, _ := newEngine(p)

	err := e.ApplyToProduct(context.Background(), 1, 99)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestApplyToCategory(t *testing.T) {
	shoes1 := &product.Product{ID: 1, Price: decimal.NewFromInt(100), Category: product.Ref{Name: "Shoes"}}
	shoes2 := &product.Product{ID: 2, Price: decimal.NewFromInt(50), Category: product.Ref{Name: "shoes"}}
	hat := &product.Product{ID: 3, Price: decimal.NewFromInt(30), Category: product.Ref{Name: "Hats"}}
	e, pr, dr := newEngine(shoes1, shoes2, hat)
	dr.byID[5] = testDiscount(5, "20", 24*time.Hour)

	require.NoError(t, e.ApplyToCategory(context.Background(), "Shoes", 5))

	assert.True(t, decimal.NewFromInt(80).Equal(pr.byID[1].DiscountedPrice))
	assert.True(t, decimal.NewFromInt(40).Equal(pr.byID[2].DiscountedPrice))
	assert.True(t, pr.byID[3].DiscountedPrice.IsZero())
}

func TestApplyToCategory_NoMatches(t *testing.T) {
	e, _, dr := newEngine(&product.Product{ID: 1, Category: product.Ref{Name: "Shoes"}})
	dr.byID[5] = testDiscount(5, "20", 24*time.Hour)

	err := e.ApplyToCategory(context.Background(), "Gloves", 5)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestRemoveExpired(t *testing.T) {
	expired := product.AppliedDiscount{
		ID: 5, Percentage: decimal.NewFromInt(20),
		EndDate: time.Now().Add(-time.Hour),
	}
	active := product.AppliedDiscount{
		ID: 6, Percentage: decimal.NewFromInt(10),
		EndDate: time.Now().Add(24 * time.Hour),
	}

	both := &product.Product{
		ID: 1, Price: decimal.NewFromInt(100),
		DiscountedPrice: decimal.NewFromInt(80),
		Discounts:       []product.AppliedDiscount{expired, active},
	}
	onlyExpired := &product.Product{
		ID: 2, Price: decimal.NewFromInt(50),
		DiscountedPrice: decimal.NewFromInt(40),
		Discounts:       []product.AppliedDiscount{expired},
	}
	e, pr, _ := newEngine(both, onlyExpired)

	require.NoError(t, e.RemoveExpired(context.Background()))

	// Product with a surviving discount keeps its cached price.
	require.Len(t, pr.byID[1].Discounts, 1)
	assert.Equal(t, int64(6), pr.byID[1].Discounts[0].ID)
	assert.True(t, decimal.NewFromInt(80).Equal(pr.byID[1].DiscountedPrice))

	// Product left without discounts has its cached price reset.
	assert.Empty(t, pr.byID[2].Discounts)
	assert.True(t, pr.byID[2].DiscountedPrice.IsZero())
}

func TestRemoveExpired_Idempotent(t *testing.T) {
	p := &product.Product{
		ID: 1, Price: decimal.NewFromInt(100),
		DiscountedPrice: decimal.NewFromInt(80),
		Discounts: []product.AppliedDiscount{{
			ID: 5, EndDate: time.Now().Add(-time.Hour),
		}},
	}
	e, pr, _ := newEngine(p)

	require.NoError(t, e.RemoveExpired(context.Background()))
	updatesAfterFirst := pr.updates
	assert.Equal(t, 1, updatesAfterFirst)

	// Nothing newly expired: the second sweep writes nothing.
	require.NoError(t, e.RemoveExpired(context.Background()))
	assert.Equal(t, updatesAfterFirst, pr.updates)
}

func TestRemoveExpired_EmptyCatalog(t *testing.T) {
	e, _, _ := newEngine()

	err := e.RemoveExpired(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestAddDiscount_Validation(t *testing.T) {
	e, _, _ := newEngine()

	err := e.Add(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.InvalidArgument))

	err = e.Add(context.Background(), &Discount{Percentage: decimal.NewFromInt(10)})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.InvalidArgument))

	err = e.Add(context.Background(), &Discount{Name: "Sale", Percentage: decimal.NewFromInt(-10)})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.InvalidArgument))
}

func TestActive(t *testing.T) {
	d := Discount{
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, d.Active(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)))
	assert.False(t, d.Active(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, d.Active(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)))
}
