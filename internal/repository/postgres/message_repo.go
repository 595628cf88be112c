package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/titikruang/ruang/internal/domain"
)

const messageColumns = `seq, id, scope, text, uid, sender_name, image_url, created_at, reactions`

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	if msg.Reactions == nil {
		msg.Reactions = domain.Reactions{}
	}

	query := `
		INSERT INTO messages (id, scope, text, uid, sender_name, image_url, reactions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.ID, msg.Scope, msg.Text, msg.UID, msg.SenderName, msg.ImageURL, msg.Reactions,
	).Scan(&msg.Seq, &msg.Timestamp)
}

func (r *MessageRepo) GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE scope = $1 AND id = $2`

	msg, err := scanMessage(r.pool.QueryRow(ctx, query, scope.Key(), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (r *MessageRepo) ListByScope(ctx context.Context, scope domain.Scope) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE scope = $1 ORDER BY created_at, seq`

	rows, err := r.pool.Query(ctx, query, scope.Key())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepo) ToggleReaction(ctx context.Context, scope domain.Scope, id uuid.UUID, emoji string, identity uuid.UUID) (*domain.Message, error) {
	var updated *domain.Message

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// The row lock isolates the read-decide-write from concurrent toggles.
		query := `SELECT ` + messageColumns + ` FROM messages WHERE scope = $1 AND id = $2 FOR UPDATE`
		msg, err := scanMessage(tx.QueryRow(ctx, query, scope.Key(), id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		msg.Reactions.Toggle(emoji, identity)

		if _, err := tx.Exec(ctx, `UPDATE messages SET reactions = $1 WHERE seq = $2`, msg.Reactions, msg.Seq); err != nil {
			return err
		}
		updated = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	err := row.Scan(
		&msg.Seq, &msg.ID, &msg.Scope, &msg.Text, &msg.UID,
		&msg.SenderName, &msg.ImageURL, &msg.Timestamp, &msg.Reactions,
	)
	if err != nil {
		return nil, err
	}
	if msg.Reactions == nil {
		msg.Reactions = domain.Reactions{}
	}
	return &msg, nil
}
