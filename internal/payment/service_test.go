package payment

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha165/orderdesk/internal/domain/cart"
	"github.com/ha165/orderdesk/internal/domain/order"
	"github.com/ha165/orderdesk/internal/domain/product"
	"github.com/ha165/orderdesk/internal/session"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byID       map[string]*order.Order
	byProvider map[string]*order.Order
	paid       []string
	providerID map[string]string
}

func newMockOrderRepo(orders ...*order.Order) *mockOrderRepo {
	m := &mockOrderRepo{
		byID:       make(map[string]*order.Order),
		byProvider: make(map[string]*order.Order),
		providerID: make(map[string]string),
	}
	for _, o := range orders {
		m.byID[o.ID] = o
		if o.ProviderOrderID != "" {
			m.byProvider[o.ProviderOrderID] = o
		}
	}
	return m
}

func (m *mockOrderRepo) CreateWithCart(_ context.Context, _ *order.Order) error { return nil }

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, _, _ string) (*order.Order, error) {
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) GetByProviderOrderID(_ context.Context, providerID string) (*order.Order, error) {
	o, ok := m.byProvider[providerID]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) List(_ context.Context, _, _ int) ([]order.Order, error) { return nil, nil }

func (m *mockOrderRepo) Transition(_ context.Context, _ string, _, _ order.Status) error {
	return nil
}

func (m *mockOrderRepo) SetProviderOrderID(_ context.Context, id, providerID string) error {
	m.providerID[id] = providerID
	m.byProvider[providerID] = m.byID[id]
	return nil
}

func (m *mockOrderRepo) MarkPaid(_ context.Context, id string) error {
	m.paid = append(m.paid, id)
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, _ string) error { return nil }

func (m *mockOrderRepo) IncomeByMonth(_ context.Context, _ int) (map[time.Month]decimal.Decimal, error) {
	return nil, nil
}

type mockCartRepo struct {
	byOrder map[string][]cart.Line
}

func (m *mockCartRepo) Add(_ context.Context, _ *cart.Line) error { return nil }

func (m *mockCartRepo) OpenLines(_ context.Context, _ string) ([]cart.Line, error) {
	return nil, nil
}

func (m *mockCartRepo) LinesByOrder(_ context.Context, orderID string) ([]cart.Line, error) {
	return m.byOrder[orderID], nil
}

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

type mockProvider struct {
	createdIntent *Intent
	order         *ProviderOrder
	createErr     error
	capture       *CaptureResult
	captureErr    error
}

func (m *mockProvider) CreateOrder(_ context.Context, intent Intent) (*ProviderOrder, error) {
	m.createdIntent = &intent
	return m.order, m.createErr
}

func (m *mockProvider) Capture(_ context.Context, _ string) (*CaptureResult, error) {
	return m.capture, m.captureErr
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func payableOrder() *order.Order {
	return &order.Order{
		ID:            "o1",
		Number:        "ORD-PAY0000001",
		UserID:        "u1",
		SubTotal:      d("25.00"),
		ShippingPrice: d("4.99"),
		Coupon:        d("5.00"),
		TotalAmount:   d("24.99"),
		PaymentMethod: order.PaymentPayPal,
		PaymentStatus: order.PaymentUnpaid,
		Status:        order.StatusNew,
	}
}

type fixture struct {
	orders   *mockOrderRepo
	provider *mockProvider
	sessions *session.MemoryStore
	svc      *Service
}

func newFixture(o *order.Order) *fixture {
	orders := newMockOrderRepo()
	if o != nil {
		orders.byID[o.ID] = o
		if o.ProviderOrderID != "" {
			orders.byProvider[o.ProviderOrderID] = o
		}
	}
	carts := &mockCartRepo{byOrder: map[string][]cart.Line{
		"o1": {
			{ID: "l1", ProductID: "p1", Price: d("10.00"), Quantity: 2, Amount: d("20.00")},
			{ID: "l2", ProductID: "p2", Price: d("5.00"), Quantity: 1, Amount: d("5.00")},
		},
	}}
	products := &mockProductRepo{byID: map[string]*product.Product{
		"p1": {ID: "p1", Name: "Widget", Price: d("10.00")},
		"p2": {ID: "p2", Name: "Gadget", Price: d("5.00")},
	}}
	provider := &mockProvider{
		order:   &ProviderOrder{ID: "PP-1", ApproveURL: "https://paypal.example.com/approve"},
		capture: &CaptureResult{OrderID: "PP-1", Status: "COMPLETED"},
	}
	sessions := session.NewMemoryStore()

	return &fixture{
		orders:   orders,
		provider: provider,
		sessions: sessions,
		svc:      NewService(orders, carts, products, sessions, provider, "USD"),
	}
}

// --- Initiate ---

func TestInitiate(t *testing.T) {
	f := newFixture(payableOrder())

	approveURL, err := f.svc.Initiate(context.Background(), "o1")
	require.NoError(t, err)

	assert.Equal(t, "https://paypal.example.com/approve", approveURL)
	assert.Equal(t, "PP-1", f.orders.providerID["o1"], "provider order id must be persisted")

	intent := f.provider.createdIntent
	require.NotNil(t, intent)
	assert.Equal(t, "USD", intent.Currency)
	require.Len(t, intent.Items, 2)
	assert.Equal(t, "Widget", intent.Items[0].Name)
	assert.Equal(t, 2, intent.Items[0].Quantity)
}

// Intent totals come from the persisted order, so they always reconcile with
// what the order will record as charged.
func TestInitiate_TotalsMatchPersistedOrder(t *testing.T) {
	o := payableOrder()
	f := newFixture(o)

	_, err := f.svc.Initiate(context.Background(), "o1")
	require.NoError(t, err)

	intent := f.provider.createdIntent
	assert.True(t, o.SubTotal.Equal(intent.ItemTotal))
	assert.True(t, o.ShippingPrice.Equal(intent.Shipping))
	assert.True(t, o.Coupon.Equal(intent.Discount))
	assert.True(t, o.TotalAmount.Equal(intent.Total))

	// And the item math agrees with the stored subtotal.
	sum := decimal.Zero
	for _, it := range intent.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	assert.True(t, sum.Equal(intent.ItemTotal))
}

func TestInitiate_OrderNotFound(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.Initiate(context.Background(), "missing")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestInitiate_NotPayable(t *testing.T) {
	cod := payableOrder()
	cod.PaymentMethod = order.PaymentCOD
	f := newFixture(cod)

	_, err := f.svc.Initiate(context.Background(), "o1")
	require.ErrorIs(t, err, ErrNotPayable)

	paid := payableOrder()
	paid.PaymentStatus = order.PaymentPaid
	f = newFixture(paid)

	_, err = f.svc.Initiate(context.Background(), "o1")
	require.ErrorIs(t, err, ErrNotPayable)
}

func TestInitiate_ProviderFailure(t *testing.T) {
	f := newFixture(payableOrder())
	f.provider.order = nil
	f.provider.createErr = errors.New("connection refused")

	_, err := f.svc.Initiate(context.Background(), "o1")

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Empty(t, f.orders.providerID, "no mutation on a failed initiate")
}

// --- Finalize ---

func TestFinalize_Completed(t *testing.T) {
	o := payableOrder()
	o.ProviderOrderID = "PP-1"
	f := newFixture(o)
	require.NoError(t, f.sessions.SetCoupon(context.Background(), "u1", session.Coupon{
		Code: "OVER9000", Value: d("5.00"),
	}))

	got, err := f.svc.Finalize(context.Background(), "PP-1")
	require.NoError(t, err)

	assert.Equal(t, "o1", got.ID)
	assert.Equal(t, order.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, []string{"o1"}, f.orders.paid)

	c, err := f.sessions.Coupon(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, c, "session coupon cleared after successful capture")
}

func TestFinalize_NonCompletedRetainsProviderStatus(t *testing.T) {
	o := payableOrder()
	o.ProviderOrderID = "PP-1"
	f := newFixture(o)
	f.provider.capture = &CaptureResult{OrderID: "PP-1", Status: "PAYER_ACTION_REQUIRED"}

	_, err := f.svc.Finalize(context.Background(), "PP-1")

	var cfErr *CaptureFailedError
	require.ErrorAs(t, err, &cfErr)
	assert.Equal(t, "PAYER_ACTION_REQUIRED", cfErr.ProviderStatus)
	assert.Empty(t, f.orders.paid, "no order mutation on failed capture")
}

func TestFinalize_ProviderFailure(t *testing.T) {
	f := newFixture(payableOrder())
	f.provider.capture = nil
	f.provider.captureErr = errors.New("timeout")

	_, err := f.svc.Finalize(context.Background(), "PP-1")

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
}

func TestCancelMessage(t *testing.T) {
	f := newFixture(nil)
	assert.Equal(t, "Payment was canceled.", f.svc.CancelMessage())
}
