package user

import "context"

// Role classifies what a user is allowed to do.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// User is an account row. Accounts are created elsewhere; this service only
// reads them for identity resolution and admin notification fan-out.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// Repository provides read access to user accounts.
type Repository interface {
	ListAdmins(ctx context.Context) ([]User, error)
}
