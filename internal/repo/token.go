package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pkordes/recipe-api/internal/domain"
)

// TokenRepo stores the single opaque API key each user may hold.
type TokenRepo interface {
	// GetOrCreate returns the user's existing key, or stores candidate as the
	// new key if the user has none. Concurrent logins converge on one key.
	GetOrCreate(ctx context.Context, userID uuid.UUID, candidate string) (string, error)

	// UserByKey returns the user bound to key.
	// Returns domain.ErrNotFound if the key is unknown.
	UserByKey(ctx context.Context, key string) (domain.User, error)

	// DeleteByUser removes the user's key. Deleting a missing key is not an error.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

// pgTokenRepo is the Postgres implementation of TokenRepo.
type pgTokenRepo struct {
	db db
}

// NewTokenRepo constructs a TokenRepo backed by the provided db connection.
func NewTokenRepo(db db) TokenRepo {
	return &pgTokenRepo{db: db}
}

// GetOrCreate uses the same DO UPDATE trick as an upsert so RETURNING fires
// on conflict and hands back the key that was already stored.
func (r *pgTokenRepo) GetOrCreate(ctx context.Context, userID uuid.UUID, candidate string) (string, error) {
	const q = `
		INSERT INTO auth_tokens (key, user_id)
		VALUES (@key, @user_id)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING key`

	var key string
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"key": candidate, "user_id": userID}).Scan(&key)
	if err != nil {
		return "", fmt.Errorf("repo.TokenRepo.GetOrCreate: %w", err)
	}
	return key, nil
}

func (r *pgTokenRepo) UserByKey(ctx context.Context, key string) (domain.User, error) {
	const q = `
		SELECT u.id, u.email, u.name, u.password_hash, u.is_active, u.is_staff,
		       u.is_superuser, u.created_at, u.updated_at
		FROM auth_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.key = @key`

	user, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"key": key}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.TokenRepo.UserByKey: %w", err)
	}
	return user, nil
}

func (r *pgTokenRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	const q = `DELETE FROM auth_tokens WHERE user_id = @user_id`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"user_id": userID}); err != nil {
		return fmt.Errorf("repo.TokenRepo.DeleteByUser: %w", err)
	}
	return nil
}
