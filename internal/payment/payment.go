// Package payment drives the external gateway round-trip: building a payment
// intent from a persisted order, initiating redirect-based approval, and
// finalizing capture on the return callback.
package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// IntentItem is one priced line of a payment intent.
type IntentItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Intent is the transient, provider-agnostic payment request. It exists only
// for the duration of the gateway round-trip. All amounts are sourced from
// the persisted order so the intent cannot drift from what was charged.
type Intent struct {
	Currency  string
	Items     []IntentItem
	ItemTotal decimal.Decimal
	Shipping  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
}

// ProviderOrder is the provider's handle for an initiated payment.
type ProviderOrder struct {
	ID         string
	ApproveURL string
}

// CaptureResult is the provider's answer to a capture attempt.
type CaptureResult struct {
	OrderID string
	Status  string
}

// Provider is the narrow surface of the external payment API.
type Provider interface {
	CreateOrder(ctx context.Context, intent Intent) (*ProviderOrder, error)
	Capture(ctx context.Context, providerOrderID string) (*CaptureResult, error)
}

// GatewayError wraps a provider-side failure: credential exchange, transport,
// or a malformed response. No order state is mutated when it is returned.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// CaptureFailedError reports a capture that the provider declined. The raw
// provider status is retained for diagnostics.
type CaptureFailedError struct {
	ProviderStatus string
}

func (e *CaptureFailedError) Error() string {
	return fmt.Sprintf("payment capture failed with provider status %q", e.ProviderStatus)
}
