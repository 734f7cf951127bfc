package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/auth"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/fulfillment"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/service/shopper"
	"github.com/vladislavdragonenkov/storefront/internal/service/webhook"
	"github.com/vladislavdragonenkov/storefront/internal/transport/httpapi"
)

// appServices собирает сервисы и фоновые воркеры.
type appServices struct {
	api     httpapi.Services
	outbox  *outbox.Worker
	cleanup *idempotency.CleanupWorker
}

func newPaymentGateway(cfg Config, m *metrics.CheckoutMetrics, logger *log.Entry) domain.PaymentGateway {
	if cfg.PaystackSecretKey == "" {
		logger.Warn("PAYSTACK_SECRET_KEY is not set, using fake payment gateway")
		return payment.NewFakeGateway("")
	}
	return payment.NewPaystackGateway(payment.PaystackConfig{
		BaseURL:   cfg.PaystackBaseURL,
		SecretKey: cfg.PaystackSecretKey,
		Timeout:   cfg.PaymentTimeout,
		Logger:    logger.WithField("component", "paystack-gateway"),
		Metrics:   m,
	})
}

func buildServices(cfg Config, deps *runtimeDependencies, producer *kafka.Producer, logger *log.Entry) (appServices, error) {
	checkoutMetrics := metrics.NewCheckoutMetrics()

	tokens, err := auth.NewTokenIssuer(cfg.jwtSecret(), cfg.AccessTokenTTL)
	if err != nil {
		return appServices{}, err
	}
	if cfg.JWTSecret == "" {
		logger.Warn("STOREFRONT_JWT_SECRET is not set, using development secret")
	}
	if cfg.WebhookSecret == "" {
		logger.Warn("webhook secret is not set, every payment notification will be rejected")
	}

	catalogOpts := []catalog.Option{catalog.WithCreatedHook(catalog.GalleryHook(deps.products))}
	if deps.productCache != nil {
		catalogOpts = append(catalogOpts, catalog.WithCache(deps.productCache))
	}

	carts := cart.NewService(deps.carts, deps.products)
	engine := fulfillment.NewEngine(deps.orders, deps.timelineRepo, fulfillment.WithMetrics(checkoutMetrics))

	svc := appServices{
		api: httpapi.Services{
			Carts: carts,
			Checkout: checkout.NewService(carts, newPaymentGateway(cfg, checkoutMetrics, logger), checkout.Config{
				Currency:    cfg.Currency,
				CallbackURL: cfg.CallbackURL,
				CancelURL:   cfg.CancelURL,
			}, checkout.WithMetrics(checkoutMetrics), checkout.WithIdempotency(deps.idempotencyRepo)),
			Webhooks: webhook.NewProcessor(webhook.NewVerifier(cfg.WebhookSecret), engine, webhook.WithMetrics(checkoutMetrics)),
			Auth: auth.NewService(deps.users, tokens,
				auth.WithIdentityProvider(auth.NewGoogleClient(cfg.GoogleUserInfoURL, 10*time.Second))),
			Catalog:  catalog.NewService(deps.products, catalogOpts...),
			Shopper:  shopper.NewService(deps.products, deps.wishlist, deps.addresses, deps.recent),
			Orders:   deps.orders,
			Timeline: deps.timelineRepo,
		},
		cleanup: idempotency.NewCleanupWorker(deps.idempotencyRepo,
			idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
			idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
			idempotency.WithMetrics(metrics.NewCleanupMetrics()),
		),
	}

	if producer != nil {
		svc.outbox = outbox.NewWorker(deps.outboxRepo, kafka.NewOutboxPublisher(producer, ""),
			outbox.WithDLQPublisher(kafka.NewDLQPublisher(producer, "")),
			outbox.WithMetrics(metrics.NewOutboxMetrics()),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
	}
	return svc, nil
}

// startWorker запускает фоновый цикл и возвращает функцию остановки и канал завершения.
func startWorker(ctx context.Context, run func(ctx context.Context)) (context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(ctx)
	}()
	return cancel, done
}

// shutdownWorker останавливает воркер и ждёт его завершения не дольше 5 секунд.
func shutdownWorker(name string, cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.WithField("worker", name).Warn("worker did not stop in time")
	}
}
