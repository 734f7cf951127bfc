package webhook

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/fulfillment"
)

// Fulfiller применяет подтверждение оплаты.
type Fulfiller interface {
	Fulfill(ctx context.Context, conf domain.PaymentConfirmation) (fulfillment.Outcome, error)
}

// Status — итог обработки доставки webhook.
type Status string

const (
	StatusFulfilled Status = "fulfilled"
	StatusDuplicate Status = "duplicate"
	StatusIgnored   Status = "ignored"
)

// Result описывает, что произошло с уведомлением.
type Result struct {
	Status  Status
	Event   string
	OrderID string
}

// Processor проверяет подпись, разбирает уведомление и передаёт charge.success в fulfillment.
type Processor struct {
	verifier  *Verifier
	fulfiller Fulfiller
	metrics   *metrics.CheckoutMetrics
	logger    *log.Entry
}

// Option настраивает Processor.
type Option func(*Processor)

func WithLogger(logger *log.Entry) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(p *Processor) { p.metrics = m }
}

func NewProcessor(verifier *Verifier, fulfiller Fulfiller, opts ...Option) *Processor {
	p := &Processor{
		verifier:  verifier,
		fulfiller: fulfiller,
		logger:    log.WithField("component", "payment-webhook"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle обрабатывает одну доставку. Повторная доставка безопасна.
// ErrSignatureInvalid и ErrMalformedEvent означают, что тело не принято.
func (p *Processor) Handle(ctx context.Context, body []byte, signature string) (Result, error) {
	if err := p.verifier.Verify(body, signature); err != nil {
		p.metrics.RecordWebhook(metrics.WebhookInvalidSignature)
		p.logger.WithFields(log.Fields{
			"security_event": true,
			"body_bytes":     len(body),
			"has_signature":  signature != "",
		}).Warn("webhook signature mismatch")
		return Result{}, err
	}

	ev, err := ParseEvent(body)
	if err != nil {
		p.metrics.RecordWebhook(metrics.WebhookMalformed)
		p.logger.WithError(err).Warn("webhook body could not be decoded")
		return Result{}, err
	}

	entry := p.logger.WithFields(log.Fields{"event": ev.Event, "checkout_id": string(ev.Data.ID)})
	if ev.Event != EventChargeSuccess {
		p.metrics.RecordWebhook(metrics.WebhookIgnored)
		entry.Debug("webhook event ignored")
		return Result{Status: StatusIgnored, Event: ev.Event}, nil
	}

	out, err := p.fulfiller.Fulfill(ctx, ev.Data.Confirmation())
	if err != nil {
		if domain.IsValidation(err) {
			p.metrics.RecordWebhook(metrics.WebhookMalformed)
			return Result{}, errors.Join(ErrMalformedEvent, err)
		}
		p.metrics.RecordWebhook(metrics.WebhookError)
		return Result{}, err
	}

	p.metrics.RecordWebhook(metrics.WebhookAccepted)
	status := StatusFulfilled
	if out.Duplicate {
		status = StatusDuplicate
	}
	return Result{Status: status, Event: ev.Event, OrderID: out.Order.ID}, nil
}
