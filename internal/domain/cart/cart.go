package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrEmpty is returned when an operation requires at least one open cart line.
var ErrEmpty = errors.New("cart is empty")

// Line is one product+quantity entry belonging to a user. The unit price is
// captured at add-to-cart time; Amount is Price multiplied by Quantity.
// OrderID is empty while the line is still "in cart" and set exactly once,
// when the line is committed to an order.
type Line struct {
	ID        string
	UserID    string
	ProductID string
	OrderID   string
	Price     decimal.Decimal
	Quantity  int
	Amount    decimal.Decimal
}

// Repository defines persistence operations for cart lines.
//
// Attaching lines to an order is not part of this interface: that mutation
// must happen in the same transaction as the order insert and is therefore
// owned by order.Repository.
type Repository interface {
	// Add inserts a new open line for the user.
	Add(ctx context.Context, line *Line) error
	// OpenLines returns the user's lines that are not yet attached to an order.
	OpenLines(ctx context.Context, userID string) ([]Line, error)
	// LinesByOrder returns the lines committed to the given order.
	LinesByOrder(ctx context.Context, orderID string) ([]Line, error)
}
