package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ha165/orderdesk/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon by its code, case-insensitively.
// Returns coupon.ErrInvalidCoupon when no matching active coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	var rule coupon.Rule
	err := r.pool.QueryRow(ctx, `
		SELECT code, discount_type, value
		FROM coupons WHERE code = UPPER($1) AND active`,
		code).
		Scan(&rule.Code, &rule.DiscountType, &rule.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, coupon.ErrInvalidCoupon
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	return &rule, nil
}
