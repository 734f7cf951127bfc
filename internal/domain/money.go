package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToMinorUnits переводит сумму в минимальные единицы (копейки/кобо).
// Доли единицы округляются половиной вверх.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits переводит минимальные единицы обратно в сумму с двумя знаками.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
