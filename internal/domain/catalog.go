package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает позицию каталога. Цена хранится с точностью до двух знаков.
type Product struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	Category    string
	Price       decimal.Decimal
	Image       string
	Featured    bool
	Gallery     []string
	CreatedAt   time.Time
}
