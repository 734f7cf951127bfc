package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func makeQuote() domain.CheckoutQuote {
	price := decimal.RequireFromString("10.00")
	return domain.CheckoutQuote{
		CartCode: "cart-1",
		Lines: []domain.CartLine{
			{
				Item:     domain.CartItem{ProductID: 1, Quantity: 2},
				Product:  domain.Product{ID: 1, Name: "Mug", Price: price},
				SubTotal: domain.LineSubTotal(price, 2),
			},
		},
		ShippingMethod: domain.ShippingStandard,
		Subtotal:       decimal.RequireFromString("20.00"),
		ShippingFee:    decimal.RequireFromString("1500.00"),
		Total:          decimal.RequireFromString("1520.00"),
		AmountMinor:    152000,
	}
}

func TestQuoteMetadata(t *testing.T) {
	meta := makeQuote().Metadata("http://localhost:3000/cart")

	if meta.CartCode != "cart-1" || meta.CancelAction != "http://localhost:3000/cart" {
		t.Fatalf("unexpected metadata header: %+v", meta)
	}
	if len(meta.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(meta.Items))
	}
	item := meta.Items[0]
	if item.ProductID != 1 || item.Name != "Mug" || item.Quantity != 2 || item.UnitPrice != "10.00" {
		t.Fatalf("unexpected item snapshot: %+v", item)
	}
	if meta.AmountMinor != 152000 || meta.ShippingMethod != "standard" {
		t.Fatalf("unexpected totals: %+v", meta)
	}
}

func TestExpectedAmountMinor(t *testing.T) {
	meta := makeQuote().Metadata("")

	got, ok := meta.ExpectedAmountMinor()
	if !ok || got != 152000 {
		t.Fatalf("explicit amount: got %d ok=%v", got, ok)
	}

	meta.AmountMinor = 0
	got, ok = meta.ExpectedAmountMinor()
	if !ok || got != 152000 {
		t.Fatalf("recomputed amount: got %d ok=%v", got, ok)
	}

	meta.ShippingMethod = ""
	if _, ok := meta.ExpectedAmountMinor(); ok {
		t.Fatal("expected incomplete snapshot without shipping method")
	}
}
