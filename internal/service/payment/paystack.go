package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.paystack.co"
	initializePath = "/transaction/initialize"

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

// Исходы вызова процессора для метрик.
const (
	outcomeOK          = "ok"
	outcomeRejected    = "rejected"
	outcomeUnavailable = "unavailable"
	outcomeOpen        = "circuit_open"
)

// PaystackConfig задаёт параметры подключения к процессору.
type PaystackConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
	// HTTPClient можно подменить в тестах; Timeout к нему не применяется.
	HTTPClient *http.Client
	Logger     *log.Entry
	Metrics    *metrics.CheckoutMetrics
	// BreakerFailures — число подряд неудачных вызовов до размыкания.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// PaystackGateway реализует domain.PaymentGateway поверх HTTP API Paystack.
// Вызов выполняется ровно один раз: автоматических повторов нет.
type PaystackGateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
	logger    *log.Entry
	metrics   *metrics.CheckoutMetrics
	breaker   *gobreaker.CircuitBreaker[domain.PaymentRedirect]
}

// NewPaystackGateway создаёт адаптер процессора.
func NewPaystackGateway(cfg PaystackConfig) *PaystackGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.WithField("component", "paystack-gateway")
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	logger := cfg.Logger
	breaker := gobreaker.NewCircuitBreaker[domain.PaymentRedirect](gobreaker.Settings{
		Name:        "paystack",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// Отказ процессора по бизнес-причине не говорит о его недоступности.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrPaymentRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("payment gateway circuit breaker state changed")
		},
	})

	return &PaystackGateway{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		client:    cfg.HTTPClient,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		breaker:   breaker,
	}
}

type initializeRequest struct {
	Email       string                 `json:"email"`
	Amount      int64                  `json:"amount"`
	Currency    string                 `json:"currency"`
	Reference   string                 `json:"reference"`
	CallbackURL string                 `json:"callback_url,omitempty"`
	Label       string                 `json:"label,omitempty"`
	Metadata    domain.PaymentMetadata `json:"metadata"`
}

type initializeResponse struct {
	Status  *bool  `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializeTransaction создаёт hosted-checkout сессию.
// Успехом считается только ответ с "status": true и непустым authorization_url.
func (g *PaystackGateway) InitializeTransaction(ctx context.Context, session domain.PaymentSession) (domain.PaymentRedirect, error) {
	redirect, err := g.breaker.Execute(func() (domain.PaymentRedirect, error) {
		return g.initialize(ctx, session)
	})

	entry := g.logger.WithField("reference", session.Reference)
	switch {
	case err == nil:
		g.metrics.RecordGatewayRequest(outcomeOK)
		return redirect, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.metrics.RecordGatewayRequest(outcomeOpen)
		entry.WithError(err).Warn("payment gateway call short-circuited")
		return domain.PaymentRedirect{}, &domain.PaymentError{
			Message: "payment processor is temporarily unavailable",
			Err:     fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err),
		}
	case errors.Is(err, domain.ErrPaymentRejected):
		g.metrics.RecordGatewayRequest(outcomeRejected)
	default:
		g.metrics.RecordGatewayRequest(outcomeUnavailable)
	}
	entry.WithError(err).Warn("payment gateway call failed")
	return domain.PaymentRedirect{}, err
}

func (g *PaystackGateway) initialize(ctx context.Context, session domain.PaymentSession) (domain.PaymentRedirect, error) {
	body, err := json.Marshal(initializeRequest{
		Email:       session.Email,
		Amount:      session.AmountMinor,
		Currency:    session.Currency,
		Reference:   session.Reference,
		CallbackURL: session.CallbackURL,
		Label:       session.Label,
		Metadata:    session.Metadata,
	})
	if err != nil {
		return domain.PaymentRedirect{}, fmt.Errorf("marshal initialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+initializePath, bytes.NewReader(body))
	if err != nil {
		return domain.PaymentRedirect{}, fmt.Errorf("build initialize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.PaymentRedirect{}, &domain.PaymentError{
			Message: "payment processor is unreachable",
			Err:     fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.PaymentRedirect{}, &domain.PaymentError{
			Message: "failed to read payment processor response",
			Err:     fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err),
		}
	}

	var parsed initializeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Status == nil {
		return domain.PaymentRedirect{}, &domain.PaymentError{
			Message: fmt.Sprintf("invalid JSON response from payment processor (HTTP %d): %s", resp.StatusCode, truncate(string(raw), 256)),
			Err:     domain.ErrPaymentUnavailable,
		}
	}

	if !*parsed.Status {
		message := parsed.Message
		if message == "" {
			message = "unknown error"
		}
		cause := domain.ErrPaymentRejected
		if resp.StatusCode >= http.StatusInternalServerError {
			cause = domain.ErrPaymentUnavailable
		}
		return domain.PaymentRedirect{}, &domain.PaymentError{Message: "payment processor error: " + message, Err: cause}
	}

	if parsed.Data.AuthorizationURL == "" {
		return domain.PaymentRedirect{}, &domain.PaymentError{
			Message: "payment processor response has no authorization_url",
			Err:     domain.ErrPaymentUnavailable,
		}
	}

	reference := parsed.Data.Reference
	if reference == "" {
		reference = session.Reference
	}
	return domain.PaymentRedirect{
		AuthorizationURL: parsed.Data.AuthorizationURL,
		AccessCode:       parsed.Data.AccessCode,
		Reference:        reference,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ domain.PaymentGateway = (*PaystackGateway)(nil)
