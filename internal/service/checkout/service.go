package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const referencePrefix = "purchase_"

// CartLoader отдаёт корзину с актуальными ценами.
type CartLoader interface {
	Load(ctx context.Context, code string) (domain.CartView, error)
}

// Config читается один раз при старте.
type Config struct {
	Currency       string
	CallbackURL    string
	CancelURL      string
	IdempotencyTTL time.Duration
}

// Request приходит от аутентифицированного покупателя.
type Request struct {
	CustomerEmail  string
	CartCode       string
	ShippingMethod string
	// IdempotencyKey необязателен; повтор с тем же ключом возвращает сохранённый ответ.
	IdempotencyKey string
}

// Result говорит клиенту, куда перенаправить покупателя.
type Result struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
	AmountMinor      int64  `json:"amount_minor"`
	Currency         string `json:"currency"`
	// Replayed выставляется, если ответ взят из кэша идемпотентности.
	Replayed bool `json:"-"`
}

// Service проводит оформление: расчёт итога, затем один вызов процессора.
type Service struct {
	carts      CartLoader
	calculator Calculator
	gateway    domain.PaymentGateway
	idem       domain.IdempotencyRepository
	metrics    *metrics.CheckoutMetrics
	logger     *log.Entry
	cfg        Config
	now        func() time.Time
	newRef     func() string
}

// Option настраивает Service.
type Option func(*Service)

func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithIdempotency включает поддержку Idempotency-Key.
func WithIdempotency(repo domain.IdempotencyRepository) Option {
	return func(s *Service) { s.idem = repo }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService создаёт сервис оформления.
func NewService(carts CartLoader, gateway domain.PaymentGateway, cfg Config, opts ...Option) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = domain.DefaultIdempotencyTTL
	}
	s := &Service{
		carts:   carts,
		gateway: gateway,
		logger:  log.WithField("component", "checkout-service"),
		cfg:     cfg,
		now:     time.Now,
		newRef:  NewReference,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewReference генерирует уникальный reference транзакции.
func NewReference() string {
	return referencePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Initiate создаёт платёжную сессию. Заказ здесь не создаётся: это делает только webhook.
func (s *Service) Initiate(ctx context.Context, req Request) (Result, error) {
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.CartCode = strings.TrimSpace(req.CartCode)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)

	if req.CustomerEmail == "" {
		return Result{}, domain.ErrCustomerEmailRequired
	}
	if s.idem == nil || req.IdempotencyKey == "" {
		return s.initiate(ctx, req)
	}
	return s.withIdempotency(ctx, req)
}

func (s *Service) initiate(ctx context.Context, req Request) (res Result, err error) {
	started := s.now()
	defer func() {
		s.metrics.ObserveCheckout(checkoutResult(err), s.now().Sub(started))
	}()

	entry := s.logger.WithFields(log.Fields{
		"cart_code":       req.CartCode,
		"shipping_method": req.ShippingMethod,
	})

	view, err := s.carts.Load(ctx, req.CartCode)
	if errors.Is(err, domain.ErrCartNotFound) {
		// Корзины нет: для оформления это то же, что пустая корзина.
		return Result{}, domain.ErrCartEmpty
	}
	if err != nil {
		return Result{}, fmt.Errorf("load cart: %w", err)
	}

	quote, err := s.calculator.Quote(view, req.ShippingMethod)
	if err != nil {
		entry.WithError(err).Info("checkout rejected by validation")
		return Result{}, err
	}

	session := domain.PaymentSession{
		Email:       req.CustomerEmail,
		AmountMinor: quote.AmountMinor,
		Currency:    s.cfg.Currency,
		Reference:   s.newRef(),
		CallbackURL: s.cfg.CallbackURL,
		Label:       "Checkout for cart " + quote.CartCode,
		Metadata:    quote.Metadata(s.cfg.CancelURL),
	}
	entry = entry.WithFields(log.Fields{"reference": session.Reference, "amount_minor": session.AmountMinor})

	redirect, err := s.gateway.InitializeTransaction(ctx, session)
	if err != nil {
		entry.WithError(err).Warn("payment session initialization failed")
		if domain.IsUpstream(err) {
			return Result{}, err
		}
		return Result{}, &domain.PaymentError{Message: "payment processor error", Err: err}
	}

	reference := redirect.Reference
	if reference == "" {
		reference = session.Reference
	}
	entry.Info("checkout session created")
	return Result{
		AuthorizationURL: redirect.AuthorizationURL,
		Reference:        reference,
		AmountMinor:      session.AmountMinor,
		Currency:         session.Currency,
	}, nil
}

func checkoutResult(err error) string {
	switch {
	case err == nil:
		return metrics.CheckoutOK
	case domain.IsValidation(err):
		return metrics.CheckoutValidation
	case domain.IsUpstream(err):
		return metrics.CheckoutUpstream
	default:
		return metrics.CheckoutError
	}
}
