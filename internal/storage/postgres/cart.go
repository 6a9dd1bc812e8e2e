package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ha165/orderdesk/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

func (r *CartRepository) Add(ctx context.Context, line *cart.Line) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO carts (id, user_id, product_id, price, quantity, amount)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		line.ID, line.UserID, line.ProductID, line.Price, line.Quantity, line.Amount,
	)
	if err != nil {
		return errors.Wrapf(err, "insert cart line %s", line.ID)
	}
	return nil
}

func (r *CartRepository) OpenLines(ctx context.Context, userID string) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, product_id, price, quantity, amount
		FROM carts WHERE user_id = $1 AND order_id IS NULL
		ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "query open cart lines")
	}
	return collectLines(rows)
}

func (r *CartRepository) LinesByOrder(ctx context.Context, orderID string) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, product_id, price, quantity, amount
		FROM carts WHERE order_id = $1
		ORDER BY created_at`,
		orderID)
	if err != nil {
		return nil, errors.Wrap(err, "query order cart lines")
	}
	lines, err := collectLines(rows)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i].OrderID = orderID
	}
	return lines, nil
}

func collectLines(rows pgx.Rows) ([]cart.Line, error) {
	defer rows.Close()

	var out []cart.Line
	for rows.Next() {
		var l cart.Line
		if err := rows.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Price, &l.Quantity, &l.Amount); err != nil {
			return nil, errors.Wrap(err, "scan cart line")
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
