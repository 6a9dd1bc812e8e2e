package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha165/orderdesk/internal/domain/cart"
	"github.com/ha165/orderdesk/internal/domain/shipping"
	"github.com/ha165/orderdesk/internal/domain/user"
	"github.com/ha165/orderdesk/internal/notify"
	"github.com/ha165/orderdesk/internal/session"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byID           map[string]*Order
	byNumber       map[string]*Order // key: number + "|" + userID
	created        []*Order
	createErr      error
	numberTakenFor int
	transitions    []string // "from->to"
	transitionErr  error
	incomeByMonth  map[time.Month]decimal.Decimal
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		byID:     make(map[string]*Order),
		byNumber: make(map[string]*Order),
	}
}

func (m *mockOrderRepo) CreateWithCart(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.numberTakenFor > 0 {
		m.numberTakenFor--
		return ErrNumberTaken
	}
	cp := *o
	m.created = append(m.created, &cp)
	m.byID[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, number, userID string) (*Order, error) {
	o, ok := m.byNumber[number+"|"+userID]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) GetByProviderOrderID(_ context.Context, providerID string) (*Order, error) {
	for _, o := range m.byID {
		if o.ProviderOrderID == providerID {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockOrderRepo) List(_ context.Context, _, _ int) ([]Order, error) { return nil, nil }

func (m *mockOrderRepo) Transition(_ context.Context, id string, from, to Status) error {
	if m.transitionErr != nil {
		return m.transitionErr
	}
	m.transitions = append(m.transitions, string(from)+"->"+string(to))
	if o, ok := m.byID[id]; ok {
		o.Status = to
	}
	return nil
}

func (m *mockOrderRepo) SetProviderOrderID(_ context.Context, id, providerID string) error {
	m.byID[id].ProviderOrderID = providerID
	return nil
}

func (m *mockOrderRepo) MarkPaid(_ context.Context, id string) error {
	m.byID[id].PaymentStatus = PaymentPaid
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *mockOrderRepo) IncomeByMonth(_ context.Context, _ int) (map[time.Month]decimal.Decimal, error) {
	return m.incomeByMonth, nil
}

type mockCartRepo struct {
	open    []cart.Line
	openErr error
}

func (m *mockCartRepo) Add(_ context.Context, _ *cart.Line) error { return nil }

func (m *mockCartRepo) OpenLines(_ context.Context, _ string) ([]cart.Line, error) {
	return m.open, m.openErr
}

func (m *mockCartRepo) LinesByOrder(_ context.Context, _ string) ([]cart.Line, error) {
	return nil, nil
}

type mockShippingRepo struct {
	byID map[string]*shipping.Shipping
}

func (m *mockShippingRepo) GetByID(_ context.Context, id string) (*shipping.Shipping, error) {
	sh, ok := m.byID[id]
	if !ok {
		return nil, shipping.ErrNotFound
	}
	return sh, nil
}

type mockUserRepo struct {
	admins []user.User
}

func (m *mockUserRepo) ListAdmins(_ context.Context) ([]user.User, error) {
	return m.admins, nil
}

type spyNotifier struct {
	sent []notify.Notification
	err  error
}

func (s *spyNotifier) Send(_ context.Context, ns []notify.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, ns...)
	return nil
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func openLine(price string, qty int) cart.Line {
	return cart.Line{
		ID:        "line-" + price,
		UserID:    "u1",
		ProductID: "p-" + price,
		Price:     d(price),
		Quantity:  qty,
		Amount:    d(price).Mul(decimal.NewFromInt(int64(qty))),
	}
}

func validCheckout() CheckoutRequest {
	return CheckoutRequest{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Phone:      "5551234567",
		Address1:   "12 Analytical Road",
		ShippingID: "standard",
	}
}

type fixture struct {
	orders    *mockOrderRepo
	carts     *mockCartRepo
	shippings *mockShippingRepo
	users     *mockUserRepo
	sessions  *session.MemoryStore
	notifier  *spyNotifier
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		orders: newOrderRepo(),
		carts:  &mockCartRepo{open: []cart.Line{openLine("10.00", 2), openLine("5.00", 1)}},
		shippings: &mockShippingRepo{byID: map[string]*shipping.Shipping{
			"standard": {ID: "standard", Type: "Standard", Price: d("4.99")},
		}},
		users:    &mockUserRepo{admins: []user.User{{ID: "admin1", Role: user.RoleAdmin}}},
		sessions: session.NewMemoryStore(),
		notifier: &spyNotifier{},
	}
	f.svc = NewService(f.orders, f.carts, f.shippings, f.users, f.sessions, f.notifier, "https://shop.example.com")
	return f
}

// --- Create ---

func TestCreate_TotalInvariant(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Create(context.Background(), validCheckout(), "u1")
	require.NoError(t, err)

	o := res.Order
	assert.True(t, d("25.00").Equal(o.SubTotal), "subtotal %s", o.SubTotal)
	assert.Equal(t, 3, o.Quantity)
	assert.True(t, o.SubTotal.Add(o.ShippingPrice).Sub(o.Coupon).Equal(o.TotalAmount),
		"total %s != subtotal %s + shipping %s - coupon %s",
		o.TotalAmount, o.SubTotal, o.ShippingPrice, o.Coupon)
	assert.True(t, d("29.99").Equal(o.TotalAmount))
	assert.Equal(t, StatusNew, o.Status)
	assert.Equal(t, PaymentCOD, o.PaymentMethod)
	assert.Equal(t, PaymentUnpaid, o.PaymentStatus)
	assert.Equal(t, RedirectConfirmation, res.Redirect)
}

func TestCreate_EmptyCart(t *testing.T) {
	f := newFixture()
	f.carts.open = nil

	_, err := f.svc.Create(context.Background(), validCheckout(), "u1")
	require.ErrorIs(t, err, cart.ErrEmpty)
	assert.Empty(t, f.orders.created, "nothing may be persisted on an empty cart")
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*CheckoutRequest)
		wantField string
	}{
		{"missing first name", func(r *CheckoutRequest) { r.FirstName = " " }, "first_name"},
		{"missing last name", func(r *CheckoutRequest) { r.LastName = "" }, "last_name"},
		{"missing address", func(r *CheckoutRequest) { r.Address1 = "" }, "address1"},
		{"missing phone", func(r *CheckoutRequest) { r.Phone = "" }, "phone"},
		{"alphabetic phone", func(r *CheckoutRequest) { r.Phone = "555-CALL" }, "phone"},
		{"missing email", func(r *CheckoutRequest) { r.Email = "" }, "email"},
		{"malformed email", func(r *CheckoutRequest) { r.Email = "not-an-email" }, "email"},
		{"unknown payment method", func(r *CheckoutRequest) { r.PaymentMethod = "wire" }, "payment_method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := validCheckout()
			tt.mutate(&req)

			_, err := f.svc.Create(context.Background(), req, "u1")

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
			assert.Empty(t, f.orders.created)
		})
	}
}

func TestCreate_ShippingMissDefaultsToZero(t *testing.T) {
	f := newFixture()
	req := validCheckout()
	req.ShippingID = "no-such-option"

	res, err := f.svc.Create(context.Background(), req, "u1")
	require.NoError(t, err)

	assert.True(t, res.Order.ShippingPrice.IsZero())
	assert.Empty(t, res.Order.ShippingID)
	assert.True(t, d("25.00").Equal(res.Order.TotalAmount))
}

func TestCreate_SessionCouponApplied(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.sessions.SetCoupon(context.Background(), "u1", session.Coupon{
		Code: "OVER9000", Value: d("9.00"),
	}))

	res, err := f.svc.Create(context.Background(), validCheckout(), "u1")
	require.NoError(t, err)

	assert.True(t, d("9.00").Equal(res.Order.Coupon))
	assert.True(t, d("20.99").Equal(res.Order.TotalAmount))

	// Cash checkout clears the session coupon.
	c, err := f.sessions.Coupon(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCreate_OversizedCouponClampsTotal(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.sessions.SetCoupon(context.Background(), "u1", session.Coupon{
		Code: "FREE", Value: d("500.00"),
	}))

	res, err := f.svc.Create(context.Background(), validCheckout(), "u1")
	require.NoError(t, err)
	assert.True(t, res.Order.TotalAmount.IsZero())
}

func TestCreate_RetriesOnNumberCollision(t *testing.T) {
	f := newFixture()
	f.orders.numberTakenFor = 2

	res, err := f.svc.Create(context.Background(), validCheckout(), "u1")
	require.NoError(t, err)
	require.Len(t, f.orders.created, 1)
	assert.NotEmpty(t, res.Order.Number)
}

func TestCreate_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture()
	f.orders.numberTakenFor = maxNumberRetries + 1

	_, err := f.svc.Create(context.Background(), validCheckout(), "u1")
	require.ErrorIs(t, err, ErrNumberTaken)
}

func TestCreate_PaypalRedirectsToPayment(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.sessions.SetCoupon(context.Background(), "u1", session.Coupon{
		Code: "OVER9000", Value: d("9.00"),
	}))
	req := validCheckout()
	req.PaymentMethod = PaymentPayPal

	res, err := f.svc.Create(context.Background(), req, "u1")
	require.NoError(t, err)

	assert.Equal(t, RedirectPayment, res.Redirect)
	assert.Equal(t, PaymentUnpaid, res.Order.PaymentStatus,
		"paypal orders stay unpaid until capture completes")

	// The coupon survives until the capture callback.
	c, err := f.sessions.Coupon(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestCreate_NotifiesAdmins(t *testing.T) {
	f := newFixture()
	f.users.admins = []user.User{
		{ID: "admin1", Role: user.RoleAdmin},
		{ID: "admin2", Role: user.RoleAdmin},
	}

	res, err := f.svc.Create(context.Background(), validCheckout(), "u1")
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, "admin1", f.notifier.sent[0].Recipient)
	assert.Equal(t, "New Order Received", f.notifier.sent[0].Title)
	assert.Equal(t, "https://shop.example.com/orders/"+res.Order.ID, f.notifier.sent[0].ActionURL)
}

func TestCreate_NotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("broker down")

	_, err := f.svc.Create(context.Background(), validCheckout(), "u1")
	require.NoError(t, err)
	require.Len(t, f.orders.created, 1)
}

// --- UpdateStatus ---

func seedOrder(f *fixture, status Status) *Order {
	o := &Order{ID: "o1", Number: "ORD-AAAA0000BB", UserID: "u1", Status: status}
	f.orders.byID[o.ID] = o
	return o
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	f := newFixture()
	seedOrder(f, StatusNew)

	_, err := f.svc.UpdateStatus(context.Background(), "o1", "shipped")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "status", vErr.Field)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateStatus(context.Background(), "nope", "process")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_TransitionTable(t *testing.T) {
	tests := []struct {
		from    Status
		to      string
		allowed bool
	}{
		{StatusNew, "process", true},
		{StatusNew, "cancel", true},
		{StatusNew, "delivered", false},
		{StatusNew, "new", false},
		{StatusProcess, "delivered", true},
		{StatusProcess, "cancel", true},
		{StatusProcess, "new", false},
		{StatusDelivered, "new", false},
		{StatusDelivered, "delivered", false},
		{StatusDelivered, "cancel", false},
		{StatusCancel, "process", false},
		{StatusCancel, "delivered", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+tt.to, func(t *testing.T) {
			f := newFixture()
			seedOrder(f, tt.from)

			o, err := f.svc.UpdateStatus(context.Background(), "o1", tt.to)
			if !tt.allowed {
				var itErr *InvalidTransitionError
				require.ErrorAs(t, err, &itErr)
				assert.Empty(t, f.orders.transitions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Status(tt.to), o.Status)
			require.Len(t, f.orders.transitions, 1)
			assert.Equal(t, string(tt.from)+"->"+tt.to, f.orders.transitions[0])
		})
	}
}

func TestUpdateStatus_DeliveryFailurePropagates(t *testing.T) {
	f := newFixture()
	seedOrder(f, StatusProcess)
	f.orders.transitionErr = ErrInsufficientStock

	_, err := f.svc.UpdateStatus(context.Background(), "o1", "delivered")
	require.ErrorIs(t, err, ErrInsufficientStock)
}

// --- TrackByNumber ---

func TestTrackByNumber(t *testing.T) {
	f := newFixture()
	f.orders.byNumber["ORD-TRACK00001|u1"] = &Order{Status: StatusProcess}

	msg, err := f.svc.TrackByNumber(context.Background(), "ORD-TRACK00001", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Your order is currently processing.", msg)
}

func TestTrackByNumber_OtherUsersOrderIsNotFound(t *testing.T) {
	f := newFixture()
	f.orders.byNumber["ORD-TRACK00001|u2"] = &Order{Status: StatusNew}

	_, err := f.svc.TrackByNumber(context.Background(), "ORD-TRACK00001", "u1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTrackByNumber_UnknownStatusFallsBack(t *testing.T) {
	f := newFixture()
	f.orders.byNumber["ORD-TRACK00001|u1"] = &Order{Status: Status("limbo")}

	msg, err := f.svc.TrackByNumber(context.Background(), "ORD-TRACK00001", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Order status not found", msg)
}

// --- IncomeSeries ---

func TestIncomeSeries_FullYearZeroFilled(t *testing.T) {
	f := newFixture()
	f.orders.incomeByMonth = map[time.Month]decimal.Decimal{
		time.March: d("150.00"),
	}

	series, err := f.svc.IncomeSeries(context.Background(), 2026)
	require.NoError(t, err)

	require.Len(t, series, 12)
	assert.Equal(t, "January", series[0].Month)
	assert.Equal(t, "December", series[11].Month)
	for i, entry := range series {
		if entry.Month == "March" {
			assert.True(t, d("150.00").Equal(entry.Amount))
			continue
		}
		assert.True(t, entry.Amount.IsZero(), "month %d (%s) should be zero", i+1, entry.Month)
	}
}
