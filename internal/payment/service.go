package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/ha165/orderdesk/internal/domain/cart"
	"github.com/ha165/orderdesk/internal/domain/order"
	"github.com/ha165/orderdesk/internal/domain/product"
	"github.com/ha165/orderdesk/internal/session"
)

// statusCompleted is the provider status that confirms funds were captured.
const statusCompleted = "COMPLETED"

// ErrNotPayable is returned when initiation is attempted for an order that is
// not an unpaid gateway order.
var ErrNotPayable = errors.New("order is not payable through the gateway")

// Service coordinates the gateway round-trip against persisted order state.
// Provider calls run behind a circuit breaker so a dead gateway fails fast
// instead of tying up request handlers.
type Service struct {
	orders   order.Repository
	carts    cart.Repository
	products product.Repository
	sessions session.Store
	provider Provider
	breaker  *gobreaker.CircuitBreaker[any]
	currency string
}

// NewService creates a payment Service.
func NewService(
	orders order.Repository,
	carts cart.Repository,
	products product.Repository,
	sessions session.Store,
	provider Provider,
	currency string,
) *Service {
	return &Service{
		orders:   orders,
		carts:    carts,
		products: products,
		sessions: sessions,
		provider: provider,
		breaker:  gobreaker.NewCircuitBreaker[any](gobreaker.Settings{Name: "payment-provider"}),
		currency: currency,
	}
}

// Initiate builds a payment intent from the order's committed cart lines and
// asks the provider for an approval redirect. The provider's order id is
// persisted on the order before the URL is returned, so the capture callback
// can correlate deterministically.
func (s *Service) Initiate(ctx context.Context, orderID string) (string, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if o.PaymentMethod != order.PaymentPayPal || o.PaymentStatus != order.PaymentUnpaid {
		return "", ErrNotPayable
	}

	intent, err := s.buildIntent(ctx, o)
	if err != nil {
		return "", err
	}

	res, err := s.breaker.Execute(func() (any, error) {
		return s.provider.CreateOrder(ctx, intent)
	})
	if err != nil {
		return "", &GatewayError{Op: "create order", Err: err}
	}
	po := res.(*ProviderOrder)

	if err := s.orders.SetProviderOrderID(ctx, o.ID, po.ID); err != nil {
		return "", errors.Wrap(err, "persist provider order id")
	}
	return po.ApproveURL, nil
}

// buildIntent resolves the order's cart lines to named, priced items. Totals
// come from the order columns, not a recomputation, so intent and order can
// never disagree.
func (s *Service) buildIntent(ctx context.Context, o *order.Order) (Intent, error) {
	lines, err := s.carts.LinesByOrder(ctx, o.ID)
	if err != nil {
		return Intent{}, errors.Wrap(err, "read order cart lines")
	}
	if len(lines) == 0 {
		return Intent{}, errors.Errorf("order %s has no cart lines", o.ID)
	}

	items := make([]IntentItem, len(lines))
	for i, line := range lines {
		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return Intent{}, errors.Wrapf(err, "resolve product %s", line.ProductID)
		}
		items[i] = IntentItem{
			Name:      p.Name,
			UnitPrice: line.Price,
			Quantity:  line.Quantity,
		}
	}

	return Intent{
		Currency:  s.currency,
		Items:     items,
		ItemTotal: o.SubTotal,
		Shipping:  o.ShippingPrice,
		Discount:  o.Coupon,
		Total:     o.TotalAmount,
	}, nil
}

// Finalize captures the provider order named by the callback token. On
// COMPLETED it marks the correlated order paid and clears the user's session
// coupon; on any other provider status nothing is mutated.
func (s *Service) Finalize(ctx context.Context, callbackToken string) (*order.Order, error) {
	res, err := s.breaker.Execute(func() (any, error) {
		return s.provider.Capture(ctx, callbackToken)
	})
	if err != nil {
		return nil, &GatewayError{Op: "capture", Err: err}
	}
	capture := res.(*CaptureResult)

	if capture.Status != statusCompleted {
		return nil, &CaptureFailedError{ProviderStatus: capture.Status}
	}

	o, err := s.orders.GetByProviderOrderID(ctx, callbackToken)
	if err != nil {
		return nil, errors.Wrapf(err, "correlate provider order %s", callbackToken)
	}

	if err := s.orders.MarkPaid(ctx, o.ID); err != nil {
		return nil, errors.Wrap(err, "mark order paid")
	}
	o.PaymentStatus = order.PaymentPaid

	if err := s.sessions.ClearCoupon(ctx, o.UserID); err != nil {
		zctx.From(ctx).Warn("clear session coupon", zap.Error(err))
	}
	return o, nil
}

// CancelMessage is the user-visible notice for an abandoned gateway flow.
// Cancellation mutates nothing.
func (s *Service) CancelMessage() string {
	return "Payment was canceled."
}
