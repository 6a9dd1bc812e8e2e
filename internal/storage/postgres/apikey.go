package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ha165/orderdesk/internal/domain/auth"
	"github.com/ha165/orderdesk/internal/domain/user"
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository implements auth.Repository backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash resolves an active API key by its HMAC hash, joining the owning
// user so callers get the full identity in one round trip. Returns
// pgx.ErrNoRows wrapped as a lookup failure when the hash is unknown.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyRecord, error) {
	var rec auth.APIKeyRecord
	err := r.pool.QueryRow(ctx, `
		SELECT k.id, k.key_hash, k.name, u.id, u.name, u.email, u.role
		FROM api_keys k
		JOIN users u ON u.id = k.user_id
		WHERE k.key_hash = $1 AND k.active`,
		hash).
		Scan(&rec.ID, &rec.KeyHash, &rec.Name,
			&rec.User.ID, &rec.User.Name, &rec.User.Email, &rec.User.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(err, "api key not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "find api key")
	}
	return &rec, nil
}

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// ListAdmins returns every admin account, ordered by creation time.
func (r *UserRepository) ListAdmins(ctx context.Context) ([]user.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, role
		FROM users WHERE role = $1 ORDER BY created_at`,
		user.RoleAdmin)
	if err != nil {
		return nil, errors.Wrap(err, "list admins")
	}
	defer rows.Close()

	var admins []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, errors.Wrap(err, "scan admin")
		}
		admins = append(admins, u)
	}
	return admins, rows.Err()
}
