package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/snaplist/internal/domain"
)

// itemColumns must match the Scan order in scanItem.
const itemColumns = `id, session_id, text, completed, created_at, updated_at`

// ItemRepo implements domain.ItemRepository backed by PostgreSQL.
type ItemRepo struct {
	pool *pgxpool.Pool
}

func NewItemRepo(pool *pgxpool.Pool) *ItemRepo {
	return &ItemRepo{pool: pool}
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var item domain.Item
	err := row.Scan(
		&item.ID, &item.SessionID, &item.Text, &item.Completed,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ItemRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM items WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}

	return items, nil
}

func (r *ItemRepo) Insert(ctx context.Context, sessionID uuid.UUID, text string, completed bool) (*domain.Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `
		INSERT INTO items (session_id, text, completed, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING `+itemColumns+`
	`, sessionID, text, completed))
	if err != nil {
		return nil, fmt.Errorf("failed to insert item: %w", err)
	}
	return item, nil
}

// UpdateOwned applies a partial patch in a single statement filtered by both
// item ID and session ID, so ownership is enforced atomically with the write.
func (r *ItemRepo) UpdateOwned(ctx context.Context, sessionID, itemID uuid.UUID, patch domain.ItemPatch) (*domain.Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `
		UPDATE items
		SET text = COALESCE($1, text),
		    completed = COALESCE($2, completed),
		    updated_at = NOW()
		WHERE id = $3 AND session_id = $4
		RETURNING `+itemColumns+`
	`, patch.Text, patch.Completed, itemID, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

func (r *ItemRepo) DeleteOwned(ctx context.Context, sessionID, itemID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM items WHERE id = $1 AND session_id = $2`, itemID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// DeleteBySession removes every item owned by a session and returns how many
// rows went away. Used by the expiry sweeper's cascade.
func (r *ItemRepo) DeleteBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM items WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session items: %w", err)
	}
	return tag.RowsAffected(), nil
}
