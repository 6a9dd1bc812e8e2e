package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ha165/orderdesk/internal/domain/cart"
	"github.com/ha165/orderdesk/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Every
// multi-row operation (create+attach, deliver+decrement, delete+detach) is a
// single transaction.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, order_number, user_id, first_name, last_name, email, phone,
	address1, address2, post_code, shipping_id, shipping_price, coupon, sub_total,
	quantity, total_amount, payment_method, payment_status, provider_order_id,
	status, created_at, updated_at`

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o          order.Order
		shippingID *string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &o.FirstName, &o.LastName, &o.Email, &o.Phone,
		&o.Address1, &o.Address2, &o.PostCode, &shippingID, &o.ShippingPrice,
		&o.Coupon, &o.SubTotal, &o.Quantity, &o.TotalAmount,
		&o.PaymentMethod, &o.PaymentStatus, &o.ProviderOrderID,
		&o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if shippingID != nil {
		o.ShippingID = *shippingID
	}
	return &o, nil
}

// CreateWithCart inserts the order and attaches all of the user's open cart
// lines to it in one transaction. A checkout racing another checkout for the
// same user cannot split the lines: the attach UPDATE only sees lines still
// unowned at commit time, and zero attached lines aborts the insert.
func (r *OrderRepository) CreateWithCart(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	var shippingID *string
	if o.ShippingID != "" {
		shippingID = &o.ShippingID
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, first_name, last_name, email, phone,
			address1, address2, post_code, shipping_id, shipping_price, coupon,
			sub_total, quantity, total_amount, payment_method, payment_status,
			provider_order_id, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		o.ID, o.Number, o.UserID, o.FirstName, o.LastName, o.Email, o.Phone,
		o.Address1, o.Address2, o.PostCode, shippingID, o.ShippingPrice, o.Coupon,
		o.SubTotal, o.Quantity, o.TotalAmount, o.PaymentMethod, o.PaymentStatus,
		o.ProviderOrderID, o.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return order.ErrNumberTaken
		}
		return errors.Wrapf(err, "insert order %s", o.ID)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE carts SET order_id = $1 WHERE user_id = $2 AND order_id IS NULL`,
		o.ID, o.UserID,
	)
	if err != nil {
		return errors.Wrap(err, "attach cart lines")
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrEmpty
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number, userID string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1 AND user_id = $2`,
		number, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get order by number %s", number)
	}
	return o, nil
}

func (r *OrderRepository) GetByProviderOrderID(ctx context.Context, providerID string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE provider_order_id = $1`, providerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get order by provider id %s", providerID)
	}
	return o, nil
}

func (r *OrderRepository) List(ctx context.Context, limit, offset int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// Transition moves the order between statuses, guarded by the expected
// current status. Delivery additionally decrements product stock for every
// cart line on the order; any shortfall rolls the whole transaction back.
func (r *OrderRepository) Transition(ctx context.Context, id string, from, to order.Status) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		to, id, from,
	)
	if err != nil {
		return errors.Wrapf(err, "update order %s status", id)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return errors.Wrap(err, "check order existence")
		}
		if !exists {
			return order.ErrNotFound
		}
		return order.ErrStaleStatus
	}

	if to == order.StatusDelivered {
		if err := decrementStock(ctx, tx, id); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

// decrementStock reduces each product's stock by the order's line quantity.
// The guard in the WHERE clause refuses to drive stock negative; a zero-row
// update means a shortfall and fails the whole batch.
func decrementStock(ctx context.Context, tx pgx.Tx, orderID string) error {
	rows, err := tx.Query(ctx,
		`SELECT product_id, quantity FROM carts WHERE order_id = $1`, orderID)
	if err != nil {
		return errors.Wrap(err, "read order cart lines")
	}

	type lineQty struct {
		productID string
		quantity  int
	}
	var lines []lineQty
	for rows.Next() {
		var l lineQty
		if err := rows.Scan(&l.productID, &l.quantity); err != nil {
			rows.Close()
			return errors.Wrap(err, "scan cart line")
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate cart lines")
	}

	for _, l := range lines {
		tag, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1`,
			l.quantity, l.productID,
		)
		if err != nil {
			return errors.Wrapf(err, "decrement stock for product %s", l.productID)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrInsufficientStock
		}
	}
	return nil
}

func (r *OrderRepository) SetProviderOrderID(ctx context.Context, id, providerID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET provider_order_id = $1, updated_at = now() WHERE id = $2`,
		providerID, id)
	if err != nil {
		return errors.Wrapf(err, "set provider order id on %s", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_status = 'paid', updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "mark order %s paid", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Delete removes the order and detaches its cart lines in one transaction.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE carts SET order_id = NULL WHERE order_id = $1`, id); err != nil {
		return errors.Wrap(err, "detach cart lines")
	}

	tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete order %s", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

// IncomeByMonth sums delivered-order cart amounts for the year, grouped by
// creation month. Months without delivered orders are absent from the map;
// the service zero-fills them.
func (r *OrderRepository) IncomeByMonth(ctx context.Context, year int) (map[time.Month]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT EXTRACT(MONTH FROM o.created_at)::int AS month, SUM(c.amount) AS income
		FROM orders o
		JOIN carts c ON c.order_id = o.id
		WHERE o.status = 'delivered' AND EXTRACT(YEAR FROM o.created_at)::int = $1
		GROUP BY 1`,
		year)
	if err != nil {
		return nil, errors.Wrap(err, "query income")
	}
	defer rows.Close()

	out := make(map[time.Month]decimal.Decimal)
	for rows.Next() {
		var (
			month  int
			income decimal.Decimal
		)
		if err := rows.Scan(&month, &income); err != nil {
			return nil, errors.Wrap(err, "scan income row")
		}
		out[time.Month(month)] = income
	}
	return out, rows.Err()
}
