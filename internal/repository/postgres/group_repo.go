package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/repository"
)

type GroupRepo struct {
	pool *pgxpool.Pool
}

func NewGroupRepo(pool *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

func (r *GroupRepo) Create(ctx context.Context, g *domain.Group, maxOwned int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Serialize creations per creator so the quota count cannot race.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, g.CreatedBy.String()); err != nil {
			return err
		}

		var owned int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM groups WHERE created_by = $1`, g.CreatedBy).Scan(&owned); err != nil {
			return err
		}
		if owned >= maxOwned {
			return repository.ErrQuotaReached
		}

		query := `
			INSERT INTO groups (id, name, created_by)
			VALUES ($1, $2, $3)
			RETURNING created_at`
		if err := tx.QueryRow(ctx, query, g.ID, g.Name, g.CreatedBy).Scan(&g.CreatedAt); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO group_members (group_id, identity_id, role) VALUES ($1, $2, $3)`,
			g.ID, g.CreatedBy, string(domain.RoleAdmin),
		)
		if err != nil {
			return err
		}

		g.Members = map[uuid.UUID]domain.Member{g.CreatedBy: {Role: domain.RoleAdmin}}
		return nil
	})
}

func (r *GroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	query := `SELECT id, name, created_by, created_at FROM groups WHERE id = $1`

	var g domain.Group
	err := r.pool.QueryRow(ctx, query, id).Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	groups := []domain.Group{g}
	if err := r.loadMembers(ctx, groups); err != nil {
		return nil, err
	}
	return &groups[0], nil
}

func (r *GroupRepo) CountByCreator(ctx context.Context, creator uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM groups WHERE created_by = $1`, creator).Scan(&n)
	return n, err
}

func (r *GroupRepo) ListByMember(ctx context.Context, identity uuid.UUID) ([]domain.Group, error) {
	query := `
		SELECT g.id, g.name, g.created_by, g.created_at
		FROM groups g
		INNER JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.identity_id = $1
		ORDER BY g.created_at DESC, g.id`

	return r.listGroups(ctx, query, identity)
}

func (r *GroupRepo) ListAll(ctx context.Context) ([]domain.Group, error) {
	query := `
		SELECT id, name, created_by, created_at
		FROM groups
		ORDER BY created_at DESC, id`

	return r.listGroups(ctx, query)
}

func (r *GroupRepo) UpsertMember(ctx context.Context, groupID, identity uuid.UUID, role domain.Role) error {
	query := `
		INSERT INTO group_members (group_id, identity_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, identity_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, groupID, identity, string(role))
	return err
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, identity uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM group_members WHERE group_id = $1 AND identity_id = $2`, groupID, identity)
	return err
}

func (r *GroupRepo) listGroups(ctx context.Context, query string, args ...any) ([]domain.Group, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadMembers(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// loadMembers fills the membership map of every group with one query.
func (r *GroupRepo) loadMembers(ctx context.Context, groups []domain.Group) error {
	if len(groups) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(groups))
	index := make(map[uuid.UUID]int, len(groups))
	for i := range groups {
		ids[i] = groups[i].ID
		index[groups[i].ID] = i
		groups[i].Members = make(map[uuid.UUID]domain.Member)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT group_id, identity_id, role FROM group_members WHERE group_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var groupID, identity uuid.UUID
		var role string
		if err := rows.Scan(&groupID, &identity, &role); err != nil {
			return err
		}
		groups[index[groupID]].Members[identity] = domain.Member{Role: domain.Role(role)}
	}
	return rows.Err()
}
