package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/titikruang/ruang/internal/domain"
)

type IdentityRepo struct {
	pool *pgxpool.Pool
}

func NewIdentityRepo(pool *pgxpool.Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

func (r *IdentityRepo) Create(ctx context.Context, identity *domain.Identity) error {
	query := `
		INSERT INTO identities (id, secret_hash, created_at)
		VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, identity.ID, identity.SecretHash, identity.CreatedAt)
	return err
}

func (r *IdentityRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Identity, error) {
	query := `SELECT id, secret_hash, created_at FROM identities WHERE id = $1`

	var identity domain.Identity
	err := r.pool.QueryRow(ctx, query, id).Scan(&identity.ID, &identity.SecretHash, &identity.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &identity, err
}
