package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func seedProduct(t *testing.T, repo domain.ProductRepository, slug, price string) domain.Product {
	t.Helper()
	p, err := repo.Create(context.Background(), domain.Product{Name: slug, Slug: slug, Price: decimal.RequireFromString(price)})
	require.NoError(t, err)
	return p
}

func TestCatalogRepository_Postgres(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCatalogRepository(store)
	ctx := context.Background()

	mug := seedProduct(t, repo, "mug", "10.50")
	_, err := repo.Create(ctx, domain.Product{Name: "dup", Slug: "mug", Price: decimal.NewFromInt(1)})
	require.True(t, domain.IsValidation(err), "duplicate slug must be a validation error, got %v", err)

	require.NoError(t, repo.AddGalleryImage(ctx, mug.ID, "mug.png"))
	require.ErrorIs(t, repo.AddGalleryImage(ctx, 9999, "x.png"), domain.ErrProductNotFound)

	got, err := repo.GetBySlug(ctx, "mug")
	require.NoError(t, err)
	require.True(t, got.Price.Equal(decimal.RequireFromString("10.50")))
	require.Equal(t, []string{"mug.png"}, got.Gallery)

	list, err := repo.ListByIDs(ctx, []int64{mug.ID, 9999})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCartAndOrderRepositories_PostgresFulfill(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	catalog := NewCatalogRepository(store)
	carts := NewCartRepository(store)
	orders := NewOrderRepository(store)
	outbox := NewOutboxRepository(store)
	ctx := context.Background()

	mug := seedProduct(t, catalog, "mug", "10.00")
	lamp := seedProduct(t, catalog, "lamp", "25.00")

	cart, err := carts.Create(ctx, "cart-code-1")
	require.NoError(t, err)
	again, err := carts.Create(ctx, "cart-code-1")
	require.NoError(t, err)
	require.Equal(t, cart.ID, again.ID)

	_, err = carts.UpsertItem(ctx, cart.ID, mug.ID, 1)
	require.NoError(t, err)
	_, err = carts.UpsertItem(ctx, cart.ID, mug.ID, 3)
	require.NoError(t, err)
	_, err = carts.UpsertItem(ctx, cart.ID, lamp.ID, 2)
	require.NoError(t, err)
	_, err = carts.UpsertItem(ctx, cart.ID, 9999, 1)
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	require.NoError(t, carts.RemoveItem(ctx, cart.ID, 9999))

	stored, err := carts.Get(ctx, "cart-code-1")
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	require.EqualValues(t, 3, stored.Items[0].Quantity)

	order := domain.Order{CheckoutID: "302961", Reference: "purchase_x", AmountMinor: 158000, Currency: "NGN",
		CustomerEmail: "buyer@example.com", Status: domain.OrderStatusPaid}
	events := []domain.OutboxMessage{{AggregateType: "order", AggregateID: "302961", EventType: "order.paid", Payload: []byte(`{}`)}}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []domain.FulfillmentResult
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := orders.Fulfill(ctx, order, "cart-code-1", events)
			if err != nil {
				t.Errorf("fulfill: %v", err)
				return
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}()
	}
	wg.Wait()

	created := 0
	for _, res := range results {
		if !res.Duplicate {
			created++
			require.True(t, res.CartFound)
			require.Len(t, res.Order.Items, 2)
		}
	}
	require.Equal(t, 1, created)

	emptied, err := carts.Get(ctx, "cart-code-1")
	require.NoError(t, err)
	require.Empty(t, emptied.Items)

	pending, err := outbox.PullPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	byEmail, err := orders.ListByEmail(ctx, "BUYER@example.com", 10)
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	require.Equal(t, "mug", byEmail[0].Items[0].Name)

	_, err = orders.Get(ctx, "not-a-uuid")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_PostgresClearedCart(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	catalog := NewCatalogRepository(store)
	carts := NewCartRepository(store)
	orders := NewOrderRepository(store)
	ctx := context.Background()

	mug := seedProduct(t, catalog, "mug", "10.00")
	cart, err := carts.Create(ctx, "cart-twice")
	require.NoError(t, err)
	_, err = carts.UpsertItem(ctx, cart.ID, mug.ID, 2)
	require.NoError(t, err)

	first, err := orders.Fulfill(ctx, domain.Order{CheckoutID: "601", Currency: "NGN", CustomerEmail: "x@y.z", Status: domain.OrderStatusPaid}, "cart-twice", nil)
	require.NoError(t, err)
	require.True(t, first.CartFound)
	require.False(t, first.CartEmpty)
	require.Len(t, first.Order.Items, 1)

	second, err := orders.Fulfill(ctx, domain.Order{CheckoutID: "602", Currency: "NGN", CustomerEmail: "x@y.z", Status: domain.OrderStatusPaid}, "cart-twice", nil)
	require.NoError(t, err)
	require.False(t, second.Duplicate)
	require.True(t, second.CartFound)
	require.True(t, second.CartEmpty)
	require.Empty(t, second.Order.Items)
}

func TestOrderRepository_PostgresMissingCart(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	orders := NewOrderRepository(store)
	ctx := context.Background()

	res, err := orders.Fulfill(ctx, domain.Order{CheckoutID: "555", Currency: "NGN", CustomerEmail: "x@y.z", Status: domain.OrderStatusPaid}, "nope", nil)
	require.NoError(t, err)
	require.False(t, res.CartFound)
	require.Empty(t, res.Order.Items)

	got, err := orders.GetByCheckoutID(ctx, "555")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPaid, got.Status)
}

func TestAccountRepositories_Postgres(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	users := NewUserRepository(store)
	wishlist := NewWishlistRepository(store)
	addresses := NewAddressRepository(store)
	catalog := NewCatalogRepository(store)
	ctx := context.Background()

	u, err := users.Create(ctx, domain.User{Email: "Ada@Example.com", Username: "ada"})
	require.NoError(t, err)
	_, err = users.Create(ctx, domain.User{Email: "ada@example.com", Username: "other"})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
	_, err = users.Create(ctx, domain.User{Email: "b@example.com", Username: "ADA"})
	require.ErrorIs(t, err, domain.ErrUsernameTaken)

	byEmail, err := users.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	p := seedProduct(t, catalog, "mug", "1.00")
	added, err := wishlist.Toggle(ctx, u.ID, p.ID)
	require.NoError(t, err)
	require.True(t, added)
	added, err = wishlist.Toggle(ctx, u.ID, p.ID)
	require.NoError(t, err)
	require.False(t, added)
	_, err = wishlist.Toggle(ctx, u.ID, 9999)
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	first, err := addresses.Create(ctx, domain.Address{UserID: u.ID, City: "Lagos", IsDefault: true})
	require.NoError(t, err)
	_, err = addresses.Create(ctx, domain.Address{UserID: u.ID, City: "Abuja", IsDefault: true})
	require.NoError(t, err)

	list, err := addresses.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.False(t, list[0].IsDefault)

	first.UserID = u.ID + 100
	_, err = addresses.Update(ctx, first)
	require.ErrorIs(t, err, domain.ErrAddressNotFound)
	require.ErrorIs(t, addresses.Delete(ctx, u.ID+100, first.ID), domain.ErrAddressNotFound)
	require.NoError(t, addresses.Delete(ctx, u.ID, first.ID))
}
