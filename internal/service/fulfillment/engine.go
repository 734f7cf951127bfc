package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Виды аномалий, требующих ручной сверки.
const (
	AnomalyCartMissing    = "cart_missing"
	AnomalyCartEmpty      = "cart_empty"
	AnomalyAmountMismatch = "amount_mismatch"
)

const (
	outcomeCreated   = "created"
	outcomeDuplicate = "duplicate"
	outcomeInvalid   = "invalid"
	outcomeError     = "error"
)

// Outcome описывает, чем закончилось применение подтверждения оплаты.
type Outcome struct {
	Order     domain.Order
	Duplicate bool
	Anomalies []string
}

// Engine переводит подтверждённую оплату в заказ ровно один раз на идентификатор процессора.
type Engine struct {
	orders   domain.OrderRepository
	timeline domain.TimelineRepository
	metrics  *metrics.CheckoutMetrics
	logger   *log.Entry
	now      func() time.Time
}

// Option настраивает Engine.
type Option func(*Engine)

func WithLogger(logger *log.Entry) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine создаёт движок. timeline может быть nil.
func NewEngine(orders domain.OrderRepository, timeline domain.TimelineRepository, opts ...Option) *Engine {
	e := &Engine{
		orders:   orders,
		timeline: timeline,
		logger:   log.WithField("component", "fulfillment-engine"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fulfill создаёт оплаченный заказ, переносит в него строки корзины и очищает её.
// Повторное подтверждение с тем же CheckoutID ничего не меняет и ошибкой не является.
// Отсутствующая корзина и расхождение суммы не мешают созданию заказа.
func (e *Engine) Fulfill(ctx context.Context, conf domain.PaymentConfirmation) (Outcome, error) {
	conf.CheckoutID = strings.TrimSpace(conf.CheckoutID)
	conf.CustomerEmail = strings.TrimSpace(conf.CustomerEmail)
	conf.Currency = strings.ToUpper(strings.TrimSpace(conf.Currency))
	cartCode := strings.TrimSpace(conf.Metadata.CartCode)

	entry := e.logger.WithFields(log.Fields{
		"checkout_id": conf.CheckoutID,
		"reference":   conf.Reference,
		"cart_code":   cartCode,
	})

	if err := conf.Validate(); err != nil {
		e.metrics.RecordFulfillment(outcomeInvalid)
		entry.WithError(err).Warn("payment confirmation rejected")
		return Outcome{}, err
	}

	order := domain.Order{
		ID:            uuid.NewString(),
		CheckoutID:    conf.CheckoutID,
		Reference:     conf.Reference,
		AmountMinor:   conf.AmountMinor,
		Currency:      conf.Currency,
		CustomerEmail: conf.CustomerEmail,
		Status:        domain.OrderStatusPaid,
		CreatedAt:     e.now().UTC(),
	}
	event, err := domain.NewOrderPaidMessage(order, cartCode)
	if err != nil {
		e.metrics.RecordFulfillment(outcomeError)
		return Outcome{}, err
	}

	result, err := e.orders.Fulfill(ctx, order, cartCode, []domain.OutboxMessage{event})
	if err != nil {
		e.metrics.RecordFulfillment(outcomeError)
		entry.WithError(err).Error("fulfillment failed")
		return Outcome{}, fmt.Errorf("fulfill order: %w", err)
	}

	if result.Duplicate {
		e.metrics.RecordFulfillment(outcomeDuplicate)
		entry.WithField("order_id", result.Order.ID).Info("payment already fulfilled, skipping")
		return Outcome{Order: result.Order, Duplicate: true}, nil
	}

	e.metrics.RecordFulfillment(outcomeCreated)
	entry = entry.WithField("order_id", result.Order.ID)
	entry.WithFields(log.Fields{
		"amount_minor": result.Order.AmountMinor,
		"items":        len(result.Order.Items),
	}).Info("order created from payment")

	out := Outcome{Order: result.Order}
	e.record(ctx, entry, result.Order.ID, domain.TimelineOrderPaid, "payment confirmed by processor")

	switch {
	case !result.CartFound:
		out.Anomalies = append(out.Anomalies, AnomalyCartMissing)
		e.anomaly(ctx, entry, result.Order.ID, AnomalyCartMissing, domain.TimelineCartMissing,
			fmt.Sprintf("cart %q not found; order created without lines", cartCode))
	case result.CartEmpty:
		// Вторая оплата той же корзины: строки уже ушли в предыдущий заказ.
		out.Anomalies = append(out.Anomalies, AnomalyCartEmpty)
		e.anomaly(ctx, entry, result.Order.ID, AnomalyCartEmpty, domain.TimelineCartEmpty,
			fmt.Sprintf("cart %q already cleared; order created without lines", cartCode))
	}

	if expected, ok := conf.Metadata.ExpectedAmountMinor(); ok && expected != conf.AmountMinor {
		out.Anomalies = append(out.Anomalies, AnomalyAmountMismatch)
		e.anomaly(ctx, entry.WithFields(log.Fields{"expected_minor": expected, "reported_minor": conf.AmountMinor}),
			result.Order.ID, AnomalyAmountMismatch, domain.TimelineAmountMismatch,
			fmt.Sprintf("processor reported %d, checkout quoted %d", conf.AmountMinor, expected))
	}
	return out, nil
}

func (e *Engine) anomaly(ctx context.Context, entry *log.Entry, orderID, kind string, timelineType domain.TimelineKind, reason string) {
	e.metrics.RecordAnomaly(kind)
	entry.WithField("anomaly", kind).Error(reason)
	e.record(ctx, entry, orderID, timelineType, reason)
}

// record пишет событие таймлайна. Заказ уже зафиксирован, поэтому ошибка только логируется.
func (e *Engine) record(ctx context.Context, entry *log.Entry, orderID string, kind domain.TimelineKind, reason string) {
	if e.timeline == nil {
		return
	}
	err := e.timeline.Append(context.WithoutCancel(ctx), domain.TimelineEvent{
		OrderID:    orderID,
		Kind:       kind,
		Note:       reason,
		OccurredAt: e.now().UTC(),
	})
	if err != nil {
		entry.WithError(err).WithField("timeline_type", kind).Warn("failed to append timeline event")
		return
	}
	e.metrics.RecordTimelineEvent()
}
