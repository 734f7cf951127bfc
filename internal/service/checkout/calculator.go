package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Calculator считает итог оформления на сервере по текущим ценам.
// Клиентские суммы не принимаются.
type Calculator struct{}

// Quote возвращает снимок строк, доставку и итог в минимальных единицах.
// Пустая корзина и неизвестный способ доставки считаются ошибками валидации.
func (Calculator) Quote(view domain.CartView, shippingMethod string) (domain.CheckoutQuote, error) {
	method, err := domain.ParseShippingMethod(shippingMethod)
	if err != nil {
		return domain.CheckoutQuote{}, err
	}
	if len(view.Lines) == 0 {
		return domain.CheckoutQuote{}, domain.ErrCartEmpty
	}

	subtotal := decimal.Zero
	lines := make([]domain.CartLine, 0, len(view.Lines))
	for _, line := range view.Lines {
		line.SubTotal = domain.LineSubTotal(line.Product.Price, line.Item.Quantity)
		subtotal = subtotal.Add(line.SubTotal)
		lines = append(lines, line)
	}

	fee := method.Fee()
	total := subtotal.Add(fee)
	return domain.CheckoutQuote{
		CartCode:       view.Cart.Code,
		Lines:          lines,
		ShippingMethod: method,
		Subtotal:       subtotal,
		ShippingFee:    fee,
		Total:          total,
		AmountMinor:    domain.ToMinorUnits(total),
	}, nil
}
