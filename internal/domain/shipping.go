package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ShippingMethod — способ доставки, выбранный при оформлении.
type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

var shippingFees = map[ShippingMethod]decimal.Decimal{
	ShippingStandard: decimal.RequireFromString("1500.00"),
	ShippingExpress:  decimal.RequireFromString("3000.00"),
}

// ParseShippingMethod возвращает известный способ доставки или ErrShippingMethodUnknown.
func ParseShippingMethod(raw string) (ShippingMethod, error) {
	m := ShippingMethod(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := shippingFees[m]; !ok {
		return "", ErrShippingMethodUnknown
	}
	return m, nil
}

// Fee возвращает фиксированную стоимость доставки.
func (m ShippingMethod) Fee() decimal.Decimal {
	return shippingFees[m]
}

// Valid проверяет, что способ доставки поддерживается.
func (m ShippingMethod) Valid() bool {
	_, ok := shippingFees[m]
	return ok
}
