package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func line(id int64, name, price string, qty int32) domain.CartLine {
	return domain.CartLine{
		Item:    domain.CartItem{ProductID: id, Quantity: qty},
		Product: domain.Product{ID: id, Name: name, Price: decimal.RequireFromString(price)},
	}
}

func TestCalculator_Quote(t *testing.T) {
	t.Parallel()

	view := domain.CartView{
		Cart:  domain.Cart{Code: "cart-1"},
		Lines: []domain.CartLine{line(1, "A", "10.00", 2), line(2, "B", "5.00", 1)},
	}

	tests := []struct {
		method    string
		wantTotal string
		wantMinor int64
	}{
		{method: "standard", wantTotal: "1525.00", wantMinor: 152500},
		{method: "express", wantTotal: "3025.00", wantMinor: 302500},
		{method: " Express ", wantTotal: "3025.00", wantMinor: 302500},
	}
	for _, tc := range tests {
		t.Run(tc.method, func(t *testing.T) {
			t.Parallel()

			quote, err := Calculator{}.Quote(view, tc.method)
			require.NoError(t, err)
			assert.Equal(t, tc.wantTotal, quote.Total.StringFixed(2))
			assert.Equal(t, tc.wantMinor, quote.AmountMinor)
			assert.Equal(t, "25.00", quote.Subtotal.StringFixed(2))
			assert.Equal(t, "cart-1", quote.CartCode)
		})
	}
}

func TestCalculator_Metadata(t *testing.T) {
	t.Parallel()

	view := domain.CartView{Cart: domain.Cart{Code: "c"}, Lines: []domain.CartLine{line(7, "Sofa", "99.99", 3)}}
	quote, err := Calculator{}.Quote(view, "standard")
	require.NoError(t, err)

	meta := quote.Metadata("http://cancel")
	require.Len(t, meta.Items, 1)
	assert.Equal(t, domain.MetadataItem{ProductID: 7, Name: "Sofa", Quantity: 3, UnitPrice: "99.99"}, meta.Items[0])
	assert.Equal(t, "http://cancel", meta.CancelAction)

	expected, ok := meta.ExpectedAmountMinor()
	require.True(t, ok)
	assert.Equal(t, quote.AmountMinor, expected)
}

func TestCalculator_Errors(t *testing.T) {
	t.Parallel()

	_, err := Calculator{}.Quote(domain.CartView{}, "standard")
	require.ErrorIs(t, err, domain.ErrCartEmpty)

	_, err = Calculator{}.Quote(domain.CartView{Lines: []domain.CartLine{line(1, "A", "1.00", 1)}}, "overnight")
	require.ErrorIs(t, err, domain.ErrShippingMethodUnknown)
	assert.True(t, domain.IsValidation(err))
}

func TestCalculator_Deterministic(t *testing.T) {
	t.Parallel()

	view := domain.CartView{Lines: []domain.CartLine{line(1, "A", "12.34", 3)}}
	first, err := Calculator{}.Quote(view, "standard")
	require.NoError(t, err)
	second, err := Calculator{}.Quote(view, "standard")
	require.NoError(t, err)
	assert.Equal(t, first.AmountMinor, second.AmountMinor)
}
