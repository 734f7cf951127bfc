package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/auth"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/shopper"
	"github.com/vladislavdragonenkov/storefront/internal/service/webhook"
)

const (
	cartCookie   = "cart_code"
	accessCookie = "access_token"

	cartCookieMaxAge = 365 * 24 * time.Hour

	idempotencyHeader = "Idempotency-Key"
)

// Services собирает зависимости обработчиков.
type Services struct {
	Carts    *cart.Service
	Checkout *checkout.Service
	Webhooks *webhook.Processor
	Auth     *auth.Service
	Catalog  *catalog.Service
	Shopper  *shopper.Service
	Orders   domain.OrderRepository
	Timeline domain.TimelineRepository
}

type Config struct {
	CookieSecure    bool
	RequestTimeout  time.Duration
	MaxBodyBytes    int64
	WebhookMaxBytes int64
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	if c.WebhookMaxBytes <= 0 {
		c.WebhookMaxBytes = 1 << 20
	}
	return c
}

type api struct {
	svc     Services
	cfg     Config
	logger  *log.Entry
	metrics *metrics.HTTPMetrics
}

type Option func(*api)

func WithLogger(logger *log.Entry) Option {
	return func(a *api) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(a *api) { a.metrics = m }
}

// NewRouter собирает HTTP API магазина.
func NewRouter(svc Services, cfg Config, opts ...Option) http.Handler {
	a := &api{
		svc:    svc,
		cfg:    cfg.withDefaults(),
		logger: log.WithField("component", "http-api"),
	}
	for _, opt := range opts {
		opt(a)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.cfg.RequestTimeout))

	r.Route("/api/v1", func(r chi.Router) {
		// webhook читает тело сам: подпись считается по сырым байтам
		r.Post("/webhooks/paystack", a.paystackWebhook)

		r.Group(func(r chi.Router) {
			r.Use(a.limitBody)

			r.Get("/cart", a.getCart)
			r.Post("/cart/items", a.upsertCartItem)
			r.Delete("/cart/items/{productID}", a.removeCartItem)

			r.Get("/products", a.listProducts)
			r.Get("/products/{slug}", a.getProduct)
			r.Post("/products/batch", a.batchProducts)

			r.Post("/auth/register", a.register)
			r.Post("/auth/login", a.login)
			r.Post("/auth/google", a.googleLogin)
			r.Post("/auth/logout", a.logout)

			r.Group(func(r chi.Router) {
				r.Use(a.requireUser)

				r.Get("/auth/me", a.me)
				r.Post("/checkout", a.initiateCheckout)

				r.Get("/wishlist", a.listWishlist)
				r.Post("/wishlist/toggle", a.toggleWishlist)

				r.Get("/recent", a.listRecent)
				r.Post("/recent", a.touchRecent)

				r.Get("/addresses", a.listAddresses)
				r.Post("/addresses", a.createAddress)
				r.Put("/addresses/{addressID}", a.updateAddress)
				r.Delete("/addresses/{addressID}", a.deleteAddress)

				r.Get("/orders/items", a.listOrderItems)
				r.Get("/orders/{orderID}", a.getOrder)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found", Code: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", Code: "method_not_allowed"})
	})
	return r
}
