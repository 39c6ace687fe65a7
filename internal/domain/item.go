package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Item is a single to-do entry owned by exactly one session.
type Item struct {
	ID        uuid.UUID `db:"id"`
	SessionID uuid.UUID `db:"session_id"`
	Text      string    `db:"text"`
	Completed bool      `db:"completed"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ItemPatch carries the optional fields of a partial update. A nil field
// leaves the stored value untouched.
type ItemPatch struct {
	Text      *string
	Completed *bool
}

// IsEmpty reports whether the patch carries no fields at all.
func (p ItemPatch) IsEmpty() bool {
	return p.Text == nil && p.Completed == nil
}

// ItemRepository is the persistence contract for to-do items.
//
// UpdateOwned and DeleteOwned filter by item ID and session ID in a single
// statement, so ownership is checked atomically with the mutation. A caller
// holding a foreign item ID gets ErrItemNotFound, never a hint that the item
// exists under another session.
type ItemRepository interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]Item, error)
	Insert(ctx context.Context, sessionID uuid.UUID, text string, completed bool) (*Item, error)
	UpdateOwned(ctx context.Context, sessionID, itemID uuid.UUID, patch ItemPatch) (*Item, error)
	DeleteOwned(ctx context.Context, sessionID, itemID uuid.UUID) error
	DeleteBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)
}
