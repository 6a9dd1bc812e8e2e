// Package session holds ephemeral per-user checkout state: the coupon a user
// applied before placing their order. State is keyed by user ID and passed
// explicitly through the call chain rather than living in ambient request
// session storage.
package session

import (
	"context"

	"github.com/shopspring/decimal"
)

// Coupon is the applied-coupon snapshot held between "apply code" and checkout.
type Coupon struct {
	Code  string          `json:"code"`
	Value decimal.Decimal `json:"value"`
}

// Store persists per-user checkout session state.
type Store interface {
	// Coupon returns the user's applied coupon, or nil when none is set.
	Coupon(ctx context.Context, userID string) (*Coupon, error)
	SetCoupon(ctx context.Context, userID string, c Coupon) error
	// ClearCoupon removes the applied coupon. Clearing an absent coupon is not
	// an error.
	ClearCoupon(ctx context.Context, userID string) error
}
