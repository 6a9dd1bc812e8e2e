package session

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for tests and single-node development
// runs without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	coupons map[string]Coupon
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{coupons: make(map[string]Coupon)}
}

func (s *MemoryStore) Coupon(_ context.Context, userID string) (*Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[userID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *MemoryStore) SetCoupon(_ context.Context, userID string, c Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons[userID] = c
	return nil
}

func (s *MemoryStore) ClearCoupon(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.coupons, userID)
	return nil
}
