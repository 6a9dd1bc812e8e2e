// Package auth holds the request identity model and the capability checks
// guarding administrative operations.
package auth

import (
	"context"

	"github.com/ha165/orderdesk/internal/domain/user"
)

// Action is a named capability a request may or may not hold.
type Action string

const (
	// ActionManageOrders covers status updates, deletion, and listing all orders.
	ActionManageOrders Action = "manage_orders"
	// ActionViewReports covers income reporting.
	ActionViewReports Action = "view_reports"
)

// Identity is the authenticated principal attached to a request context.
type Identity struct {
	UserID string
	Name   string
	Role   user.Role
}

// Can reports whether the identity holds the given capability. Roles map to
// capabilities here rather than being string-compared at call sites.
func (i Identity) Can(action Action) bool {
	switch action {
	case ActionManageOrders, ActionViewReports:
		return i.Role == user.RoleAdmin
	default:
		return false
	}
}

// APIKeyRecord holds the fields returned when looking up an API key by hash.
type APIKeyRecord struct {
	ID      string
	KeyHash string
	Name    string
	User    user.User
}

// Repository provides lookup of active API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyRecord, error)
}
