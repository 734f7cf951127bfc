package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending зарезервирован для заказов без подтверждённой оплаты.
	OrderStatusPending OrderStatus = "Pending"
	// Оплата подтверждена процессором.
	OrderStatusPaid OrderStatus = "Paid"
)

// OrderItem переносится из корзины при оплате.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID int64
	Name      string
	Quantity  int32
	CreatedAt time.Time
}

// Order создаётся только по подтверждённой оплате.
type Order struct {
	ID string
	// CheckoutID — идентификатор оплаты у процессора, уникален.
	CheckoutID    string
	Reference     string
	AmountMinor   int64
	Currency      string
	CustomerEmail string
	Status        OrderStatus
	Items         []OrderItem
	CreatedAt     time.Time
}

// FulfillmentResult описывает итог атомарного создания заказа.
type FulfillmentResult struct {
	Order Order
	// Duplicate: заказ с таким CheckoutID уже был, ничего не изменено.
	Duplicate bool
	// CartFound: корзина из метаданных найдена и очищена.
	CartFound bool
	// CartEmpty: корзина найдена, но к моменту оплаты в ней не было строк.
	CartEmpty bool
}

// PaymentConfirmation — нормализованное подтверждение оплаты от процессора.
type PaymentConfirmation struct {
	CheckoutID    string
	Reference     string
	AmountMinor   int64
	Currency      string
	CustomerEmail string
	Metadata      PaymentMetadata
}

// Validate проверяет обязательные поля до создания заказа.
func (c PaymentConfirmation) Validate() error {
	switch {
	case c.CheckoutID == "":
		return ErrCheckoutIDRequired
	case c.CustomerEmail == "":
		return ErrCustomerEmailRequired
	case c.Currency == "":
		return ErrCurrencyRequired
	case c.AmountMinor < 0:
		return ErrAmountNegative
	}
	return nil
}
