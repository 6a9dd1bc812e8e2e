package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog entry with its current stock level.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
}

// Repository defines read operations on the product catalog. Stock mutation
// happens inside order delivery transactions and is owned by order.Repository.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
}
