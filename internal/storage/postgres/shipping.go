package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ha165/orderdesk/internal/domain/shipping"
)

var _ shipping.Repository = (*ShippingRepository)(nil)

// ShippingRepository implements shipping.Repository backed by PostgreSQL.
type ShippingRepository struct {
	pool *pgxpool.Pool
}

// NewShippingRepository returns a ShippingRepository that uses the given pool.
func NewShippingRepository(pool *pgxpool.Pool) *ShippingRepository {
	return &ShippingRepository{pool: pool}
}

func (r *ShippingRepository) GetByID(ctx context.Context, id string) (*shipping.Shipping, error) {
	var s shipping.Shipping
	err := r.pool.QueryRow(ctx,
		`SELECT id, type, price FROM shippings WHERE id = $1`, id).
		Scan(&s.ID, &s.Type, &s.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shipping.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get shipping %s", id)
	}
	return &s, nil
}
