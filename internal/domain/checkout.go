package domain

import "github.com/shopspring/decimal"

// CheckoutQuote хранит расчёт суммы заказа по текущим ценам.
type CheckoutQuote struct {
	CartCode       string
	Lines          []CartLine
	ShippingMethod ShippingMethod
	Subtotal       decimal.Decimal
	ShippingFee    decimal.Decimal
	Total          decimal.Decimal
	AmountMinor    int64
}

// MetadataItem — снимок строки корзины на момент оформления.
type MetadataItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// PaymentMetadata передаётся процессору при создании сессии и возвращается в webhook.
type PaymentMetadata struct {
	CartCode       string         `json:"cart_code"`
	Items          []MetadataItem `json:"items"`
	ShippingMethod string         `json:"shipping_method,omitempty"`
	AmountMinor    int64          `json:"amount_minor,omitempty"`
	CancelAction   string         `json:"cancel_action,omitempty"`
}

// Metadata строит снимок корзины для процессора.
func (q CheckoutQuote) Metadata(cancelURL string) PaymentMetadata {
	items := make([]MetadataItem, 0, len(q.Lines))
	for _, line := range q.Lines {
		items = append(items, MetadataItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Quantity:  line.Item.Quantity,
			UnitPrice: line.Product.Price.StringFixed(2),
		})
	}
	return PaymentMetadata{
		CartCode:       q.CartCode,
		Items:          items,
		ShippingMethod: string(q.ShippingMethod),
		AmountMinor:    q.AmountMinor,
		CancelAction:   cancelURL,
	}
}

// ExpectedAmountMinor восстанавливает сумму по снимку: сначала явное поле,
// затем пересчёт позиций и доставки. ok=false, если снимок неполный.
func (m PaymentMetadata) ExpectedAmountMinor() (int64, bool) {
	if m.AmountMinor > 0 {
		return m.AmountMinor, true
	}
	method, err := ParseShippingMethod(m.ShippingMethod)
	if err != nil || len(m.Items) == 0 {
		return 0, false
	}
	total := method.Fee()
	for _, item := range m.Items {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return 0, false
		}
		total = total.Add(LineSubTotal(price, item.Quantity))
	}
	return ToMinorUnits(total), true
}

// PaymentSession — запрос на создание hosted-checkout сессии.
type PaymentSession struct {
	Email       string
	AmountMinor int64
	Currency    string
	Reference   string
	CallbackURL string
	Label       string
	Metadata    PaymentMetadata
}

// PaymentRedirect содержит адрес для редиректа из ответа процессора.
type PaymentRedirect struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}
