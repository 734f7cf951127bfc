package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventOrderPaid публикуется один раз на каждый созданный заказ.
const EventOrderPaid = "order.paid"

// OrderPaidEvent уходит подписчикам как тело события order.paid.
type OrderPaidEvent struct {
	OrderID       string    `json:"order_id"`
	CheckoutID    string    `json:"checkout_id"`
	Reference     string    `json:"reference,omitempty"`
	CartCode      string    `json:"cart_code,omitempty"`
	AmountMinor   int64     `json:"amount_minor"`
	Currency      string    `json:"currency"`
	CustomerEmail string    `json:"customer_email"`
	PaidAt        time.Time `json:"paid_at"`
}

// NewOrderPaidMessage собирает outbox-сообщение для заказа. ID заказа должен быть уже назначен.
func NewOrderPaidMessage(order Order, cartCode string) (OutboxMessage, error) {
	payload, err := json.Marshal(OrderPaidEvent{
		OrderID:       order.ID,
		CheckoutID:    order.CheckoutID,
		Reference:     order.Reference,
		CartCode:      cartCode,
		AmountMinor:   order.AmountMinor,
		Currency:      order.Currency,
		CustomerEmail: order.CustomerEmail,
		PaidAt:        order.CreatedAt,
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal order.paid: %w", err)
	}
	return OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     EventOrderPaid,
		Payload:       payload,
	}, nil
}
