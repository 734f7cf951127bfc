package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart — анонимная корзина, адресуемая непрозрачным кодом из cookie.
type Cart struct {
	ID        int64
	Code      string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem — строка корзины. На пару (корзина, товар) приходится не больше одной строки.
type CartItem struct {
	ID        int64
	CartID    int64
	ProductID int64
	Quantity  int32
}

// CartLine дополняет строку корзины актуальной ценой товара.
type CartLine struct {
	Item     CartItem
	Product  Product
	SubTotal decimal.Decimal
}

// CartView содержит суммы, посчитанные по текущим ценам.
type CartView struct {
	Cart  Cart
	Lines []CartLine
	Total decimal.Decimal
}

// LineSubTotal возвращает цену строки: unit_price × quantity.
func LineSubTotal(price decimal.Decimal, qty int32) decimal.Decimal {
	return price.Mul(decimal.NewFromInt32(qty))
}
