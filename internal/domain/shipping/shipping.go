package shipping

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a shipping option does not exist.
var ErrNotFound = errors.New("shipping not found")

// Shipping is a reference-data row mapping a shipping option to its price.
type Shipping struct {
	ID    string
	Type  string
	Price decimal.Decimal
}

// Repository provides read-only access to shipping reference data.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Shipping, error)
}
