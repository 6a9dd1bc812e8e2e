// Package pricing computes checkout totals from a cart snapshot.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/ha165/orderdesk/internal/domain/cart"
)

// Quote is the priced summary of a cart snapshot.
type Quote struct {
	SubTotal decimal.Decimal
	Quantity int
	Total    decimal.Decimal
}

// Calculate derives the order totals from cart lines plus shipping and coupon
// inputs. Total = subtotal + shipping - coupon, clamped at zero so an
// oversized coupon can never produce a negative charge.
func Calculate(lines []cart.Line, shippingPrice, couponValue decimal.Decimal) Quote {
	subtotal := decimal.Zero
	quantity := 0
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		subtotal = subtotal.Add(line.Price.Mul(qty))
		quantity += line.Quantity
	}

	total := subtotal.Add(shippingPrice).Sub(couponValue)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		SubTotal: subtotal.Round(2),
		Quantity: quantity,
		Total:    total.Round(2),
	}
}
