package fulfillment

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type env struct {
	engine   *Engine
	catalog  *memory.CatalogRepository
	carts    *memory.CartRepository
	orders   *memory.OrderRepository
	outbox   *memory.OutboxRepository
	timeline domain.TimelineRepository
}

func newEnv(t *testing.T) env {
	t.Helper()
	catalog := memory.NewCatalogRepository()
	outbox := memory.NewOutboxRepository()
	carts, orders := memory.NewCommerceRepositories(catalog, outbox)
	timeline := memory.NewTimelineRepository()
	engine := NewEngine(orders, timeline, WithMetrics(metrics.NewCheckoutMetricsWithRegisterer(prometheus.NewRegistry())))
	return env{engine: engine, catalog: catalog, carts: carts, orders: orders, outbox: outbox, timeline: timeline}
}

// seedCart собирает корзину: A ×2 по 10.00, B ×1 по 5.00.
func (e env) seedCart(t *testing.T, code string) (domain.Product, domain.Product) {
	t.Helper()
	ctx := context.Background()
	a, err := e.catalog.Create(ctx, domain.Product{Name: "A", Slug: "a", Price: decimal.RequireFromString("10.00")})
	require.NoError(t, err)
	b, err := e.catalog.Create(ctx, domain.Product{Name: "B", Slug: "b", Price: decimal.RequireFromString("5.00")})
	require.NoError(t, err)
	c, err := e.carts.Create(ctx, code)
	require.NoError(t, err)
	_, err = e.carts.UpsertItem(ctx, c.ID, a.ID, 2)
	require.NoError(t, err)
	_, err = e.carts.UpsertItem(ctx, c.ID, b.ID, 1)
	require.NoError(t, err)
	return a, b
}

func confirmation(cartCode string, amount int64) domain.PaymentConfirmation {
	return domain.PaymentConfirmation{
		CheckoutID:    "4099260516",
		Reference:     "purchase_1",
		AmountMinor:   amount,
		Currency:      "ngn",
		CustomerEmail: "buyer@example.com",
		Metadata: domain.PaymentMetadata{
			CartCode: cartCode,
			Items: []domain.MetadataItem{
				{ProductID: 1, Name: "A", Quantity: 2, UnitPrice: "10.00"},
				{ProductID: 2, Name: "B", Quantity: 1, UnitPrice: "5.00"},
			},
			ShippingMethod: "standard",
		},
	}
}

func TestFulfill_CreatesPaidOrderAndEmptiesCart(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a, b := e.seedCart(t, "cart-1")

	out, err := e.engine.Fulfill(ctx, confirmation("cart-1", 152500))
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	assert.Empty(t, out.Anomalies)

	order := out.Order
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, int64(152500), order.AmountMinor)
	assert.Equal(t, "NGN", order.Currency)
	require.Len(t, order.Items, 2)
	qty := map[int64]int32{}
	for _, item := range order.Items {
		qty[item.ProductID] = item.Quantity
	}
	assert.Equal(t, map[int64]int32{a.ID: 2, b.ID: 1}, qty)

	c, err := e.carts.Get(ctx, "cart-1")
	require.NoError(t, err, "cart record must persist")
	assert.Empty(t, c.Items)

	events, err := e.timeline.List(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.TimelineOrderPaid, events[0].Kind)

	pending := e.outbox.AllPending()
	require.Len(t, pending, 1)
	assert.Equal(t, domain.EventOrderPaid, pending[0].EventType)
	var payload domain.OrderPaidEvent
	require.NoError(t, json.Unmarshal(pending[0].Payload, &payload))
	assert.Equal(t, order.ID, payload.OrderID)
}

func TestFulfill_DuplicateHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seedCart(t, "cart-1")

	first, err := e.engine.Fulfill(ctx, confirmation("cart-1", 152500))
	require.NoError(t, err)

	// Повторная доставка после того, как покупатель снова наполнил корзину.
	_, err = e.carts.UpsertItem(ctx, 1, 1, 5)
	require.NoError(t, err)

	second, err := e.engine.Fulfill(ctx, confirmation("cart-1", 152500))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Len(t, second.Order.Items, 2)

	c, err := e.carts.Get(ctx, "cart-1")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1, "duplicate must not touch the cart")
	assert.Len(t, e.outbox.AllPending(), 1)

	orders, err := e.orders.ListByEmail(ctx, "buyer@example.com", 0)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestFulfill_ConcurrentDeliveriesCreateOneOrder(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seedCart(t, "cart-1")

	const n = 8
	var wg sync.WaitGroup
	results := make([]Outcome, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = e.engine.Fulfill(ctx, confirmation("cart-1", 152500))
		}()
	}
	wg.Wait()

	created := 0
	for i := range n {
		require.NoError(t, errs[i])
		if !results[i].Duplicate {
			created++
		}
	}
	assert.Equal(t, 1, created)
}

func TestFulfill_MissingCartIsAnomaly(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	conf := confirmation("gone", 152500)
	out, err := e.engine.Fulfill(ctx, conf)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, out.Order.Status)
	assert.Empty(t, out.Order.Items)
	assert.Equal(t, []string{AnomalyCartMissing}, out.Anomalies)

	events, err := e.timeline.List(ctx, out.Order.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.TimelineCartMissing, events[1].Kind)
}

func TestFulfill_SecondPaymentOnClearedCartIsAnomaly(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seedCart(t, "cart-1")

	first, err := e.engine.Fulfill(ctx, confirmation("cart-1", 152500))
	require.NoError(t, err)
	require.Len(t, first.Order.Items, 2)
	assert.Empty(t, first.Anomalies)

	// вторая вкладка оплатила ту же корзину
	conf := confirmation("cart-1", 152500)
	conf.CheckoutID = "4099260517"
	conf.Reference = "purchase_2"
	second, err := e.engine.Fulfill(ctx, conf)
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.Equal(t, domain.OrderStatusPaid, second.Order.Status)
	assert.Empty(t, second.Order.Items)
	assert.Equal(t, []string{AnomalyCartEmpty}, second.Anomalies)

	events, err := e.timeline.List(ctx, second.Order.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.TimelineCartEmpty, events[1].Kind)
	assert.True(t, events[1].Kind.Anomaly())
}

func TestFulfill_AmountMismatchStillCreatesOrder(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seedCart(t, "cart-1")

	out, err := e.engine.Fulfill(ctx, confirmation("cart-1", 100))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, out.Order.Status)
	assert.Equal(t, int64(100), out.Order.AmountMinor)
	assert.Equal(t, []string{AnomalyAmountMismatch}, out.Anomalies)
}

func TestFulfill_Validation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	tests := map[string]func(*domain.PaymentConfirmation){
		"missing id":       func(c *domain.PaymentConfirmation) { c.CheckoutID = " " },
		"missing email":    func(c *domain.PaymentConfirmation) { c.CustomerEmail = "" },
		"missing currency": func(c *domain.PaymentConfirmation) { c.Currency = "" },
		"negative amount":  func(c *domain.PaymentConfirmation) { c.AmountMinor = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			conf := confirmation("cart-1", 152500)
			mutate(&conf)
			_, err := e.engine.Fulfill(ctx, conf)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
		})
	}
	assert.Empty(t, e.outbox.AllPending())
}
