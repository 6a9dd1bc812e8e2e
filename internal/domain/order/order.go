package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state. Transitions are restricted to the
// closed table in CanTransition; there is no way back out of a terminal state.
type Status string

const (
	StatusNew       Status = "new"
	StatusProcess   Status = "process"
	StatusDelivered Status = "delivered"
	StatusCancel    Status = "cancel"
)

// ParseStatus validates a raw status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNew, StatusProcess, StatusDelivered, StatusCancel:
		return Status(s), nil
	}
	return "", &ValidationError{Field: "status", Reason: "must be one of new, process, delivered, cancel"}
}

// transitions is the set of legal status moves. Delivery is only reachable
// through processing, and terminal states have no outgoing edges, so an order
// can never be re-delivered or resurrected after cancellation.
var transitions = map[Status][]Status{
	StatusNew:     {StatusProcess, StatusCancel},
	StatusProcess: {StatusDelivered, StatusCancel},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentMethod selects how an order is paid.
type PaymentMethod string

const (
	// PaymentCOD collects payment at delivery, outside any gateway.
	PaymentCOD PaymentMethod = "cod"
	// PaymentPayPal routes the order through the PayPal capture flow.
	PaymentPayPal PaymentMethod = "paypal"
)

// PaymentStatus tracks whether funds for an order have been captured.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Order is a persisted customer order.
type Order struct {
	ID              string
	Number          string
	UserID          string
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Address1        string
	Address2        string
	PostCode        string
	ShippingID      string
	ShippingPrice   decimal.Decimal
	Coupon          decimal.Decimal
	SubTotal        decimal.Decimal
	Quantity        int
	TotalAmount     decimal.Decimal
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	ProviderOrderID string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Sentinel errors.
var (
	// ErrNotFound is returned when an order does not exist or is not visible
	// to the requesting user.
	ErrNotFound = errors.New("order not found")
	// ErrNumberTaken is returned by Create when the generated order number
	// collides with an existing one; the service retries with a fresh number.
	ErrNumberTaken = errors.New("order number already taken")
	// ErrStaleStatus is returned when a transition raced a concurrent update
	// and the expected current status no longer matches.
	ErrStaleStatus = errors.New("order status changed concurrently")
	// ErrInsufficientStock aborts a delivery whose stock decrements would
	// drive any product negative.
	ErrInsufficientStock = errors.New("insufficient product stock")
)

// ValidationError reports a malformed or missing checkout field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// InvalidTransitionError reports an illegal status move.
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return "cannot transition order from " + string(e.From) + " to " + string(e.To)
}

// MonthIncome is one entry of the income series, in calendar order.
type MonthIncome struct {
	Month  string
	Amount decimal.Decimal
}

// Repository defines persistence operations for orders. Multi-row writes
// (creation with cart attachment, delivery with stock decrements, deletion
// with cart detachment) are each a single transaction inside the
// implementation.
type Repository interface {
	// CreateWithCart inserts the order and attaches all of the user's open
	// cart lines to it atomically. Returns ErrNumberTaken on an order number
	// collision and cart.ErrEmpty when the user has no open lines.
	CreateWithCart(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// GetByNumber is scoped to the owning user so one customer can never
	// observe another's order.
	GetByNumber(ctx context.Context, number, userID string) (*Order, error)
	GetByProviderOrderID(ctx context.Context, providerID string) (*Order, error)
	List(ctx context.Context, limit, offset int) ([]Order, error)
	// Transition moves the order from one status to another, guarded by the
	// expected current status. When to is StatusDelivered it also decrements
	// the stock of every product on the order's cart lines in the same
	// transaction; any shortfall fails the whole batch.
	Transition(ctx context.Context, id string, from, to Status) error
	SetProviderOrderID(ctx context.Context, id, providerID string) error
	MarkPaid(ctx context.Context, id string) error
	// Delete removes the order and detaches its cart lines atomically.
	Delete(ctx context.Context, id string) error
	// IncomeByMonth sums the cart-line amounts of delivered orders created in
	// the given year, keyed by creation month (1-12). Months without
	// delivered orders are absent from the map.
	IncomeByMonth(ctx context.Context, year int) (map[time.Month]decimal.Decimal, error)
}
