package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// ErrInvalidCoupon is returned when a coupon code is not found or inactive.
var ErrInvalidCoupon = errors.New("invalid coupon code")

// Rule defines a coupon's discount behaviour.
type Rule struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
}

// Repository provides lookup of active coupon rules by their code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}

var hundred = decimal.NewFromInt(100)

// Apply computes the monetary discount the rule grants against the given
// subtotal. The result is never negative and never exceeds the subtotal.
func Apply(rule *Rule, subtotal decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal
	switch rule.DiscountType {
	case DiscountPercentage:
		amount = subtotal.Mul(rule.Value).Div(hundred)
	case DiscountFixed:
		amount = rule.Value
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", rule.DiscountType)
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}
	amount = decimal.Min(amount, subtotal)
	return amount.Round(2), nil
}
