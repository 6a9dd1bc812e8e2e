package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore implements Store on Redis. Coupons expire on their own after the
// TTL so abandoned checkouts do not leak keys.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore with the given coupon TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func couponKey(userID string) string {
	return "session:coupon:" + userID
}

func (s *RedisStore) Coupon(ctx context.Context, userID string) (*Coupon, error) {
	data, err := s.client.Get(ctx, couponKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}

	var c Coupon
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "unmarshal coupon")
	}
	return &c, nil
}

func (s *RedisStore) SetCoupon(ctx context.Context, userID string, c Coupon) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal coupon")
	}
	if err := s.client.Set(ctx, couponKey(userID), data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (s *RedisStore) ClearCoupon(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, couponKey(userID)).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}
