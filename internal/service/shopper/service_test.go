package shopper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type fixture struct {
	svc      *Service
	products []domain.Product
	clock    *time.Time
}

func newFixture(t *testing.T, n int) fixture {
	t.Helper()
	ctx := context.Background()
	catalog := memory.NewCatalogRepository()

	products := make([]domain.Product, 0, n)
	for i := 0; i < n; i++ {
		p, err := catalog.Create(ctx, domain.Product{
			Name:  fmt.Sprintf("Chair %d", i),
			Slug:  fmt.Sprintf("chair-%d", i),
			Price: decimal.NewFromInt(int64(100 + i)),
		})
		require.NoError(t, err)
		products = append(products, p)
	}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &now
	svc := NewService(
		catalog,
		memory.NewWishlistRepository(),
		memory.NewAddressRepository(),
		memory.NewRecentlyViewedStore(),
		WithClock(func() time.Time { return *clock }),
	)
	return fixture{svc: svc, products: products, clock: clock}
}

func TestToggleWishlist_AddsRemovesAndSkipsUnknown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	a, b := f.products[0].ID, f.products[1].ID

	res, err := f.svc.ToggleWishlist(ctx, 1, []int64{a, 9999})
	require.NoError(t, err)
	assert.Equal(t, []int64{a}, res.Added)
	assert.Empty(t, res.Removed)

	res, err = f.svc.ToggleWishlist(ctx, 1, []int64{a, b})
	require.NoError(t, err)
	assert.Equal(t, []int64{b}, res.Added)
	assert.Equal(t, []int64{a}, res.Removed)

	items, err := f.svc.Wishlist(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b, items[0].Product.ID)

	other, err := f.svc.Wishlist(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestToggleWishlist_RequiresIDs(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.svc.ToggleWishlist(context.Background(), 1, nil)
	require.True(t, domain.IsValidation(err))
}

func TestRecentlyViewed_KeepsTenNewest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 12)

	for _, p := range f.products {
		*f.clock = f.clock.Add(time.Second)
		require.NoError(t, f.svc.TouchRecentlyViewed(ctx, 5, p.ID))
	}
	// повторный просмотр поднимает товар наверх
	*f.clock = f.clock.Add(time.Second)
	require.NoError(t, f.svc.TouchRecentlyViewed(ctx, 5, f.products[3].ID))

	viewed, err := f.svc.RecentlyViewed(ctx, 5)
	require.NoError(t, err)
	require.Len(t, viewed, domain.RecentlyViewedLimit)
	assert.Equal(t, f.products[3].ID, viewed[0].ID)
	assert.Equal(t, f.products[11].ID, viewed[1].ID)

	err = f.svc.TouchRecentlyViewed(ctx, 5, 9999)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestAddresses_CRUDScopedToOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	created, err := f.svc.CreateAddress(ctx, domain.Address{UserID: 1, Street: " 1 Marina ", City: "Lagos", IsDefault: true})
	require.NoError(t, err)
	assert.Equal(t, "1 Marina", created.Street)

	_, err = f.svc.CreateAddress(ctx, domain.Address{UserID: 1, City: "Lagos"})
	require.True(t, domain.IsValidation(err))

	created.City = "Abuja"
	updated, err := f.svc.UpdateAddress(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Abuja", updated.City)

	stolen := created
	stolen.UserID = 2
	_, err = f.svc.UpdateAddress(ctx, stolen)
	require.ErrorIs(t, err, domain.ErrAddressNotFound)

	require.ErrorIs(t, f.svc.DeleteAddress(ctx, 2, created.ID), domain.ErrAddressNotFound)
	require.NoError(t, f.svc.DeleteAddress(ctx, 1, created.ID))

	list, err := f.svc.Addresses(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}
