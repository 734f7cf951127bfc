package app

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/webhook"
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []domain.OutboxMessage
}

func (p *recordingPublisher) Publish(msg domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return nil
}

// CheckoutLifecycleSuite прогоняет покупку через собранные сервисы приложения:
// корзина, оформление, уведомление об оплате, заказ и публикация событий.
type CheckoutLifecycleSuite struct {
	suite.Suite
	ctx      context.Context
	cfg      Config
	deps     *runtimeDependencies
	services appServices
	verifier *webhook.Verifier
}

func (s *CheckoutLifecycleSuite) SetupTest() {
	logger := log.New()
	logger.SetOutput(io.Discard)
	entry := logger.WithField("component", "lifecycle-test")

	s.ctx = context.Background()
	s.cfg = DefaultConfig()
	s.cfg.WebhookSecret = "sk_test_suite"

	deps, err := initRuntimeDependencies(s.ctx, s.cfg, entry)
	s.Require().NoError(err)
	s.deps = deps

	s.services, err = buildServices(s.cfg, deps, nil, entry)
	s.Require().NoError(err)
	s.Require().Nil(s.services.outbox, "outbox worker needs kafka")
	s.Require().NoError(seedDemoCatalog(s.ctx, s.services.api.Catalog, entry))

	s.verifier = webhook.NewVerifier(s.cfg.WebhookSecret)
}

func (s *CheckoutLifecycleSuite) TearDownTest() {
	s.Require().NoError(s.deps.closeFn())
}

// fillCart кладёт в новую корзину qty единиц товара и возвращает код корзины и товар.
func (s *CheckoutLifecycleSuite) fillCart(slug string, qty int32) (string, domain.Product) {
	p, err := s.services.api.Catalog.GetBySlug(s.ctx, slug)
	s.Require().NoError(err)

	c, created, err := s.services.api.Carts.Resolve(s.ctx, "")
	s.Require().NoError(err)
	s.Require().True(created)

	_, err = s.services.api.Carts.UpsertItem(s.ctx, c, p.ID, qty)
	s.Require().NoError(err)
	return c.Code, p
}

func (s *CheckoutLifecycleSuite) chargeSuccess(id string, email, cartCode string, p domain.Product, qty int32, res checkout.Result) []byte {
	body, err := json.Marshal(map[string]any{
		"event": "charge.success",
		"data": map[string]any{
			"id":        json.Number(id),
			"reference": res.Reference,
			"amount":    res.AmountMinor,
			"currency":  res.Currency,
			"status":    "success",
			"customer":  map[string]string{"email": email},
			"metadata": domain.PaymentMetadata{
				CartCode: cartCode,
				Items: []domain.MetadataItem{{
					ProductID: p.ID, Name: p.Name, Quantity: qty, UnitPrice: p.Price.StringFixed(2),
				}},
				ShippingMethod: string(domain.ShippingStandard),
				AmountMinor:    res.AmountMinor,
			},
		},
	})
	s.Require().NoError(err)
	return body
}

func (s *CheckoutLifecycleSuite) TestPaidCheckoutBecomesOrderAndEvent() {
	code, chair := s.fillCart("oak-dining-chair", 2)

	res, err := s.services.api.Checkout.Initiate(s.ctx, checkout.Request{
		CustomerEmail:  "buyer@example.com",
		CartCode:       code,
		ShippingMethod: string(domain.ShippingStandard),
		IdempotencyKey: "suite-1",
	})
	s.Require().NoError(err)
	s.NotEmpty(res.AuthorizationURL)
	s.Equal("NGN", res.Currency)

	body := s.chargeSuccess("9001", "buyer@example.com", code, chair, 2, res)
	out, err := s.services.api.Webhooks.Handle(s.ctx, body, s.verifier.Sign(body))
	s.Require().NoError(err)
	s.Equal(webhook.StatusFulfilled, out.Status)

	order, err := s.deps.orders.Get(s.ctx, out.OrderID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPaid, order.Status)
	s.Equal(res.AmountMinor, order.AmountMinor)
	s.Require().Len(order.Items, 1)
	s.EqualValues(2, order.Items[0].Quantity)

	view, err := s.services.api.Carts.Load(s.ctx, code)
	s.Require().NoError(err)
	s.Empty(view.Lines)

	again, err := s.services.api.Webhooks.Handle(s.ctx, body, s.verifier.Sign(body))
	s.Require().NoError(err)
	s.Equal(webhook.StatusDuplicate, again.Status)
	s.Equal(out.OrderID, again.OrderID)

	publisher := &recordingPublisher{}
	worker := outbox.NewWorker(s.deps.outboxRepo, publisher, outbox.WithRetryBaseDelay(0))
	s.Equal(1, worker.ProcessOnce(s.ctx))
	s.Require().Len(publisher.sent, 1)
	s.Equal(out.OrderID, publisher.sent[0].AggregateID)

	stats, err := s.deps.outboxRepo.Stats(s.ctx)
	s.Require().NoError(err)
	s.Zero(stats.PendingCount)
}

func (s *CheckoutLifecycleSuite) TestForgedNotificationChangesNothing() {
	code, lamp := s.fillCart("brass-floor-lamp", 1)
	res, err := s.services.api.Checkout.Initiate(s.ctx, checkout.Request{
		CustomerEmail:  "buyer@example.com",
		CartCode:       code,
		ShippingMethod: string(domain.ShippingExpress),
	})
	s.Require().NoError(err)

	body := s.chargeSuccess("9002", "buyer@example.com", code, lamp, 1, res)
	_, err = s.services.api.Webhooks.Handle(s.ctx, body, webhook.NewVerifier("sk_wrong").Sign(body))
	s.Require().ErrorIs(err, domain.ErrSignatureInvalid)

	view, err := s.services.api.Carts.Load(s.ctx, code)
	s.Require().NoError(err)
	s.Len(view.Lines, 1)

	orders, err := s.deps.orders.ListByEmail(s.ctx, "buyer@example.com", 10)
	s.Require().NoError(err)
	s.Empty(orders)
}

func (s *CheckoutLifecycleSuite) TestIdempotentCheckoutReplay() {
	code, _ := s.fillCart("linen-sofa", 1)
	req := checkout.Request{
		CustomerEmail:  "buyer@example.com",
		CartCode:       code,
		ShippingMethod: string(domain.ShippingStandard),
		IdempotencyKey: "suite-replay",
	}

	first, err := s.services.api.Checkout.Initiate(s.ctx, req)
	s.Require().NoError(err)
	second, err := s.services.api.Checkout.Initiate(s.ctx, req)
	s.Require().NoError(err)

	s.True(second.Replayed)
	s.Equal(first.Reference, second.Reference)
}

func TestCheckoutLifecycleSuite(t *testing.T) {
	suite.Run(t, new(CheckoutLifecycleSuite))
}
