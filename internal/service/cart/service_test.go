package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type fixture struct {
	svc     *Service
	catalog *memory.CatalogRepository
	carts   *memory.CartRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	catalog := memory.NewCatalogRepository()
	carts, _ := memory.NewCommerceRepositories(catalog, memory.NewOutboxRepository())
	return fixture{svc: NewService(carts, catalog), catalog: catalog, carts: carts}
}

func (f fixture) product(t *testing.T, slug, price string) domain.Product {
	t.Helper()
	p, err := f.catalog.Create(context.Background(), domain.Product{
		Name:  slug,
		Slug:  slug,
		Price: decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return p
}

func TestResolve_CreatesCartWhenCodeMissingOrUnknown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, created, err := f.svc.Resolve(ctx, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, first.Code, 36)

	same, created, err := f.svc.Resolve(ctx, first.Code)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, same.ID)

	fresh, created, err := f.svc.Resolve(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "does-not-exist", fresh.Code)
	assert.NotEqual(t, first.Code, fresh.Code)
}

func TestUpsertItem_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "chair", "10.00")
	c, _, err := f.svc.Resolve(ctx, "")
	require.NoError(t, err)

	_, err = f.svc.UpsertItem(ctx, c, p.ID, 3)
	require.NoError(t, err)
	_, err = f.svc.UpsertItem(ctx, c, p.ID, 1)
	require.NoError(t, err)

	view, err := f.svc.Load(ctx, c.Code)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.EqualValues(t, 1, view.Lines[0].Item.Quantity)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("10.00")))
}

func TestUpsertItem_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "lamp", "5.00")
	c, _, err := f.svc.Resolve(ctx, "")
	require.NoError(t, err)

	for _, qty := range []int32{0, -1} {
		_, err = f.svc.UpsertItem(ctx, c, p.ID, qty)
		require.ErrorIs(t, err, domain.ErrQuantityInvalid)
		assert.True(t, domain.IsValidation(err))
	}

	_, err = f.svc.UpsertItem(ctx, c, 999, 1)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestRemoveItem_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "desk", "50.00")
	c, _, err := f.svc.Resolve(ctx, "")
	require.NoError(t, err)
	_, err = f.svc.UpsertItem(ctx, c, p.ID, 1)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveItem(ctx, c, p.ID))
	require.NoError(t, f.svc.RemoveItem(ctx, c, p.ID))
	require.NoError(t, f.svc.RemoveItem(ctx, c, 12345))

	view, err := f.svc.Load(ctx, c.Code)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.True(t, view.Total.IsZero())
}

func TestView_UsesCurrentPrices(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.product(t, "a", "10.00")
	b := f.product(t, "b", "5.00")
	c, _, err := f.svc.Resolve(ctx, "")
	require.NoError(t, err)
	_, err = f.svc.UpsertItem(ctx, c, a.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.UpsertItem(ctx, c, b.ID, 1)
	require.NoError(t, err)

	view, err := f.svc.Load(ctx, c.Code)
	require.NoError(t, err)
	assert.Equal(t, "25.00", view.Total.StringFixed(2))
	assert.Len(t, view.Lines, 2)
}
